package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/askhub/askhub-server/internal/docstore"
	"github.com/askhub/askhub-server/internal/domain"
	apperrors "github.com/askhub/askhub-server/internal/errors"
	"github.com/askhub/askhub-server/internal/normalize"
	"github.com/askhub/askhub-server/internal/search"
	"github.com/askhub/askhub-server/internal/store"
	"github.com/askhub/askhub-server/internal/validation"
	"github.com/askhub/askhub-server/internal/views"
)

// AskInput is a new question as submitted.
type AskInput struct {
	Title string   `json:"title" validate:"min=15,max=150"`
	Body  string   `json:"body" validate:"min=30,max=30000"`
	Tags  []string `json:"tags" validate:"min=1,max=5"`
}

// UpdateQuestionInput changes a question. Nil fields are left alone.
type UpdateQuestionInput struct {
	Title *string `json:"title,omitempty" validate:"omitnil,min=15,max=150"`
	Body  *string `json:"body,omitempty" validate:"omitnil,min=30,max=30000"`
}

// QuestionService asks, reads, edits and removes questions.
type QuestionService struct {
	store     *store.Store
	indexer   search.Indexer
	views     views.Tracker
	validator *validation.Validator
	logger    *slog.Logger
}

// NewQuestionService creates a question service. indexer may be nil when no
// search index needs change notifications.
func NewQuestionService(st *store.Store, indexer search.Indexer, tracker views.Tracker, v *validation.Validator, logger *slog.Logger) *QuestionService {
	return &QuestionService{
		store:     st,
		indexer:   indexer,
		views:     tracker,
		validator: v,
		logger:    discardIfNil(logger),
	}
}

// Ask creates a question owned by the caller. Tag counters and search
// indexes are updated afterwards; their failures are logged and never fail
// the ask.
func (s *QuestionService) Ask(ctx context.Context, in AskInput) (*domain.Question, error) {
	if _, err := requireSession(ctx); err != nil {
		return nil, err
	}

	in.Title = normalize.Title(in.Title)
	in.Body = strings.TrimSpace(in.Body)
	in.Tags = normalize.Tags(in.Tags)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	q, err := s.store.Questions.Create(ctx, &domain.Question{
		Title:          in.Title,
		TitleLowercase: normalize.Lower(in.Title),
		Body:           in.Body,
		Tags:           in.Tags,
	})
	if err != nil {
		return nil, err
	}

	s.bumpTags(ctx, q.Tags)
	s.index(ctx, q)

	s.logger.Info("question asked",
		"question_id", q.ID,
		"user_id", q.Owner(),
		"tags", q.Tags,
	)
	return q, nil
}

// bumpTags upserts each tag with count+1. Tags are never decremented here;
// the periodic sync corrects drift.
func (s *QuestionService) bumpTags(ctx context.Context, tags []string) {
	for _, tag := range tags {
		_, err := s.store.Tags.Upsert(ctx, tag, map[string]any{
			"name":  tag,
			"count": docstore.Increment(1),
		})
		if err != nil {
			s.logger.Warn("failed to update tag count", "tag", tag, "error", err)
		}
	}
}

func (s *QuestionService) index(ctx context.Context, q *domain.Question) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexQuestion(ctx, q); err != nil {
		s.logger.Warn("failed to index question", "question_id", q.ID, "error", err)
	}
}

// Get returns a question or NOT_FOUND.
func (s *QuestionService) Get(ctx context.Context, id string) (*domain.Question, error) {
	q, err := s.store.Questions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, apperrors.NotFoundf("question %s not found", id)
	}
	return q, nil
}

// View returns a question and counts a view when the tracker admits
// viewerKey. The returned views are computed locally, not re-read.
func (s *QuestionService) View(ctx context.Context, id, viewerKey string) (*domain.Question, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewerKey == "" || s.views == nil {
		return q, nil
	}

	admitted, err := s.views.Admit(ctx, id, viewerKey)
	if err != nil {
		s.logger.Warn("view tracker failed", "question_id", id, "error", err)
		return q, nil
	}
	if !admitted {
		return q, nil
	}

	if _, err := s.store.Questions.IncrementField(ctx, id, "views", 1); err != nil {
		s.logger.Warn("failed to count view", "question_id", id, "error", err)
		return q, nil
	}
	q.Views++
	return q, nil
}

// Feed lists questions by sort: latest, trending (views) or hot (upvotes).
func (s *QuestionService) Feed(ctx context.Context, sort domain.FeedSort, limit int) ([]*domain.Question, error) {
	if !sort.Valid() {
		return nil, apperrors.ValidationWithDetails("invalid sort", map[string]string{
			"sort": "must be one of: latest trending hot",
		})
	}
	return s.store.Questions.Query(ctx, nil,
		store.OrderBy(sort.Field(), docstore.Desc),
		clampLimit(limit, DefaultLimit, MaxLimit),
	)
}

// Update edits the caller's own question and reindexes it.
func (s *QuestionService) Update(ctx context.Context, id string, in UpdateQuestionInput) (*domain.Question, error) {
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}
	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !q.OwnedBy(sess.UserID()) {
		return nil, apperrors.Forbidden("only the author can edit this question")
	}

	fields := map[string]any{}
	if in.Title != nil {
		title := normalize.Title(*in.Title)
		in.Title = &title
		fields["title"] = title
		fields["titleLowercase"] = normalize.Lower(title)
	}
	if in.Body != nil {
		body := strings.TrimSpace(*in.Body)
		in.Body = &body
		fields["body"] = body
	}
	if len(fields) == 0 {
		return nil, apperrors.Validation("nothing to update")
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	if _, err := s.store.Questions.Update(ctx, id, fields); err != nil {
		return nil, err
	}
	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.index(ctx, updated)
	return updated, nil
}

// Delete removes a question. The author or an admin may delete. Its answers
// and comments are removed afterwards, best effort.
func (s *QuestionService) Delete(ctx context.Context, id string) error {
	sess, err := requireSession(ctx)
	if err != nil {
		return err
	}
	q, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !q.OwnedBy(sess.UserID()) && !sess.IsAdmin() {
		return apperrors.Forbidden("only the author or an admin can delete this question")
	}

	if err := s.store.Questions.Delete(ctx, id); err != nil {
		return err
	}

	s.cascade(ctx, id)
	if s.indexer != nil {
		if err := s.indexer.DeleteQuestion(ctx, id); err != nil {
			s.logger.Warn("failed to remove question from index", "question_id", id, "error", err)
		}
	}

	s.logger.Info("question deleted", "question_id", id, "by", sess.UserID())
	return nil
}

func (s *QuestionService) cascade(ctx context.Context, questionID string) {
	answers, err := s.store.Answers.Query(ctx,
		[]store.Condition{store.Where("questionId", docstore.OpEqual, questionID)}, nil, 0)
	if err != nil {
		s.logger.Warn("failed to list answers of deleted question", "question_id", questionID, "error", err)
	}
	for _, a := range answers {
		deleteComments(ctx, s.store, s.logger, domain.ItemAnswer, a.ID)
		if err := s.store.Answers.Delete(ctx, a.ID); err != nil {
			s.logger.Warn("failed to delete answer of deleted question", "answer_id", a.ID, "error", err)
		}
	}
	deleteComments(ctx, s.store, s.logger, domain.ItemQuestion, questionID)
}

// ListByUser returns a user's questions, newest first.
func (s *QuestionService) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Question, error) {
	return s.store.Questions.QueryOrdered(ctx,
		[]store.Condition{store.Where("userId", docstore.OpEqual, userID)},
		[]store.Order{
			{Field: "createdAt", Direction: docstore.Desc},
			{Field: docstore.DocumentID, Direction: docstore.Desc},
		},
		clampLimit(limit, DefaultLimit, MaxLimit),
	)
}

// deleteComments removes every comment on an item, logging failures.
func deleteComments(ctx context.Context, st *store.Store, logger *slog.Logger, parentType domain.ItemType, parentID string) {
	comments, err := st.Comments.Query(ctx, []store.Condition{
		store.Where("parentId", docstore.OpEqual, parentID),
		store.Where("parentType", docstore.OpEqual, string(parentType)),
	}, nil, 0)
	if err != nil {
		logger.Warn("failed to list comments for cascade",
			"parent_type", parentType, "parent_id", parentID, "error", err)
		return
	}
	for _, c := range comments {
		if err := st.Comments.Delete(ctx, c.ID); err != nil {
			logger.Warn("failed to delete comment", "comment_id", c.ID, "error", err)
		}
	}
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}

func quoted(title string) string {
	return fmt.Sprintf("%q", excerpt(title, 60))
}
