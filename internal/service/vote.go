package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/askhub/askhub-server/internal/domain"
	apperrors "github.com/askhub/askhub-server/internal/errors"
	"github.com/askhub/askhub-server/internal/session"
	"github.com/askhub/askhub-server/internal/store"
)

// VoteService records votes. One vote per caller per item; votes can't be
// changed or retracted, so counters only grow.
type VoteService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewVoteService creates a vote service.
func NewVoteService(st *store.Store, logger *slog.Logger) *VoteService {
	return &VoteService{store: st, logger: discardIfNil(logger)}
}

// Vote records the caller's vote and bumps the target's counter. A second
// vote on the same item is a CONFLICT.
func (s *VoteService) Vote(ctx context.Context, itemType domain.ItemType, itemID string, voteType domain.VoteType) (*domain.Vote, error) {
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}
	if !itemType.Valid() {
		return nil, apperrors.Validationf("cannot vote on %q", itemType)
	}
	if !voteType.Valid() {
		return nil, apperrors.Validationf("invalid vote type %q", voteType)
	}
	if err := s.ensureTarget(ctx, itemType, itemID); err != nil {
		return nil, err
	}

	v, err := s.store.Votes.CreateWithID(ctx, domain.VoteID(itemType, itemID, sess.UserID()), &domain.Vote{
		ItemID:   itemID,
		ItemType: itemType,
		VoteType: voteType,
	})
	if errors.Is(err, apperrors.ErrConflict) {
		return nil, apperrors.Conflictf("already voted on this %s", itemType).WithCause(err)
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.increment(ctx, itemType, itemID, voteType.CounterField()); err != nil {
		s.logger.Error("vote recorded but counter not incremented",
			"vote_id", v.ID, "field", voteType.CounterField(), "error", err)
		return nil, err
	}
	return v, nil
}

// Get returns the caller's vote on an item, or nil.
func (s *VoteService) Get(ctx context.Context, itemType domain.ItemType, itemID string) (*domain.Vote, error) {
	sess := session.From(ctx)
	if !sess.Authenticated() {
		return nil, nil
	}
	return s.store.Votes.Get(ctx, domain.VoteID(itemType, itemID, sess.UserID()))
}

func (s *VoteService) ensureTarget(ctx context.Context, itemType domain.ItemType, itemID string) error {
	var found bool
	switch itemType {
	case domain.ItemQuestion:
		q, err := s.store.Questions.Get(ctx, itemID)
		if err != nil {
			return err
		}
		found = q != nil
	case domain.ItemAnswer:
		a, err := s.store.Answers.Get(ctx, itemID)
		if err != nil {
			return err
		}
		found = a != nil
	}
	if !found {
		return apperrors.NotFoundf("%s %s not found", itemType, itemID)
	}
	return nil
}

func (s *VoteService) increment(ctx context.Context, itemType domain.ItemType, itemID, field string) (bool, error) {
	if itemType == domain.ItemAnswer {
		return s.store.Answers.IncrementField(ctx, itemID, field, 1)
	}
	return s.store.Questions.IncrementField(ctx, itemID, field, 1)
}
