package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/askhub/askhub-server/internal/docstore"
	"github.com/askhub/askhub-server/internal/domain"
	apperrors "github.com/askhub/askhub-server/internal/errors"
	"github.com/askhub/askhub-server/internal/store"
	"github.com/askhub/askhub-server/internal/validation"
)

// AnswerService posts, lists, accepts and removes answers.
type AnswerService struct {
	store     *store.Store
	notifier  Notifier
	validator *validation.Validator
	locks     *keyedLock
	logger    *slog.Logger
	clock     clock
}

// NewAnswerService creates an answer service.
func NewAnswerService(st *store.Store, notifier Notifier, v *validation.Validator, logger *slog.Logger) *AnswerService {
	return &AnswerService{
		store:     st,
		notifier:  notifier,
		validator: v,
		locks:     newKeyedLock(),
		logger:    discardIfNil(logger),
	}
}

// Post answers a question as the caller. The question's answerCount is
// incremented afterwards; a failed increment is logged, not returned.
func (s *AnswerService) Post(ctx context.Context, questionID, body string) (*domain.Answer, error) {
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if err := s.validator.Var("body", body, "notblank,max=30000"); err != nil {
		return nil, err
	}

	q, err := s.question(ctx, questionID)
	if err != nil {
		return nil, err
	}

	a, err := s.store.Answers.Create(ctx, &domain.Answer{
		QuestionID: questionID,
		Body:       body,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.store.Questions.IncrementField(ctx, questionID, "answerCount", 1); err != nil {
		s.logger.Warn("answer created but answerCount not incremented",
			"question_id", questionID, "answer_id", a.ID, "error", err)
	}

	notifyBestEffort(ctx, s.notifier, s.logger, q.Owner(), domain.NewNotification(
		domain.NotifyAnswer,
		sess.UserID(), sess.Username(),
		sess.Username()+" answered your question "+quoted(q.Title),
		q.ID, domain.ItemQuestion, s.clock.now(),
	))

	s.logger.Info("answer posted", "answer_id", a.ID, "question_id", questionID, "user_id", sess.UserID())
	return a, nil
}

// List returns a question's answers by upvotes, with the accepted answer
// first.
func (s *AnswerService) List(ctx context.Context, questionID string) ([]*domain.Answer, error) {
	answers, err := s.store.Answers.Query(ctx,
		[]store.Condition{store.Where("questionId", docstore.OpEqual, questionID)},
		store.OrderBy("upvotes", docstore.Desc),
		0,
	)
	if err != nil {
		return nil, err
	}
	return domain.AcceptedFirst(answers), nil
}

// Accept marks an answer accepted and its question solved. Only the
// question's author may accept, and only one answer per question. Accepting
// the accepted answer again succeeds without changes.
func (s *AnswerService) Accept(ctx context.Context, answerID string) (*domain.Answer, error) {
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}
	a, err := s.answer(ctx, answerID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.lock(ctx, a.QuestionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Re-read under the lock; another accept may have just finished.
	if a, err = s.answer(ctx, answerID); err != nil {
		return nil, err
	}
	q, err := s.question(ctx, a.QuestionID)
	if err != nil {
		return nil, err
	}
	if !q.OwnedBy(sess.UserID()) {
		return nil, apperrors.Forbidden("only the question's author can accept an answer")
	}
	if a.IsAccepted {
		return a, nil
	}
	if q.IsSolved {
		return nil, apperrors.Conflictf("question %s already has an accepted answer", q.ID)
	}

	accepted, err := s.store.Answers.Query(ctx, []store.Condition{
		store.Where("questionId", docstore.OpEqual, q.ID),
		store.Where("isAccepted", docstore.OpEqual, true),
	}, nil, 1)
	if err != nil {
		return nil, err
	}
	if len(accepted) > 0 {
		return nil, apperrors.Conflictf("question %s already has an accepted answer", q.ID)
	}

	if _, err := s.store.Answers.Update(ctx, a.ID, map[string]any{"isAccepted": true}); err != nil {
		return nil, err
	}
	if _, err := s.store.Questions.Update(ctx, q.ID, map[string]any{"isSolved": true}); err != nil {
		return nil, err
	}
	a.IsAccepted = true

	s.logger.Info("answer accepted", "answer_id", a.ID, "question_id", q.ID)
	return a, nil
}

// Delete removes the caller's own answer. Accepted answers can't be deleted.
func (s *AnswerService) Delete(ctx context.Context, answerID string) error {
	sess, err := requireSession(ctx)
	if err != nil {
		return err
	}
	a, err := s.answer(ctx, answerID)
	if err != nil {
		return err
	}
	if !a.OwnedBy(sess.UserID()) {
		return apperrors.Forbidden("only the author can delete this answer")
	}
	if a.IsAccepted {
		return apperrors.Conflict("an accepted answer can't be deleted")
	}

	if err := s.store.Answers.Delete(ctx, answerID); err != nil {
		return err
	}
	if _, err := s.store.Questions.IncrementField(ctx, a.QuestionID, "answerCount", -1); err != nil {
		s.logger.Warn("answer deleted but answerCount not decremented",
			"question_id", a.QuestionID, "answer_id", answerID, "error", err)
	}
	deleteComments(ctx, s.store, s.logger, domain.ItemAnswer, answerID)
	return nil
}

// ListByUser returns a user's answers, newest first.
func (s *AnswerService) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Answer, error) {
	return s.store.Answers.QueryOrdered(ctx,
		[]store.Condition{store.Where("userId", docstore.OpEqual, userID)},
		[]store.Order{
			{Field: "createdAt", Direction: docstore.Desc},
			{Field: docstore.DocumentID, Direction: docstore.Desc},
		},
		clampLimit(limit, DefaultLimit, MaxLimit),
	)
}

func (s *AnswerService) answer(ctx context.Context, id string) (*domain.Answer, error) {
	a, err := s.store.Answers.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperrors.NotFoundf("answer %s not found", id)
	}
	return a, nil
}

func (s *AnswerService) question(ctx context.Context, id string) (*domain.Question, error) {
	q, err := s.store.Questions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, apperrors.NotFoundf("question %s not found", id)
	}
	return q, nil
}
