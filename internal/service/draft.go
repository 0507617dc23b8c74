package service

import (
	"context"
	"errors"
	"log/slog"

	apperrors "github.com/askhub/askhub-server/internal/errors"
	"github.com/askhub/askhub-server/internal/store"
)

// Drafter writes a candidate answer for a question.
type Drafter interface {
	Draft(ctx context.Context, title, body string) (string, error)
}

// DraftService produces model-written answer drafts. Drafts are returned to
// the caller and never stored; posting one goes through AnswerService.
type DraftService struct {
	store   *store.Store
	drafter Drafter
	logger  *slog.Logger
}

// NewDraftService creates a draft service. A nil drafter means drafting is
// not configured.
func NewDraftService(st *store.Store, drafter Drafter, logger *slog.Logger) *DraftService {
	return &DraftService{store: st, drafter: drafter, logger: discardIfNil(logger)}
}

// Enabled reports whether a drafter is configured.
func (s *DraftService) Enabled() bool {
	return s.drafter != nil
}

// DraftAnswer drafts an answer to a question for the signed-in caller.
func (s *DraftService) DraftAnswer(ctx context.Context, questionID string) (string, error) {
	if _, err := requireSession(ctx); err != nil {
		return "", err
	}
	if s.drafter == nil {
		return "", apperrors.NotFound("answer drafting is not enabled")
	}

	q, err := s.store.Questions.Get(ctx, questionID)
	if err != nil {
		return "", err
	}
	if q == nil {
		return "", apperrors.NotFoundf("question %s not found", questionID)
	}

	draft, err := s.drafter.Draft(ctx, q.Title, q.Body)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		s.logger.Warn("answer draft failed", "question_id", questionID, "error", err)
		return "", apperrors.Wrap(err, apperrors.CodeInternal, "failed to generate an answer draft")
	}
	return draft, nil
}
