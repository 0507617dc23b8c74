package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/askhub/askhub-server/internal/docstore"
	"github.com/askhub/askhub-server/internal/domain"
	apperrors "github.com/askhub/askhub-server/internal/errors"
	"github.com/askhub/askhub-server/internal/normalize"
	"github.com/askhub/askhub-server/internal/session"
	"github.com/askhub/askhub-server/internal/store"
	"github.com/askhub/askhub-server/internal/validation"
)

// MentionResolver maps a username to the id of the user holding it.
type MentionResolver interface {
	ResolveUsername(ctx context.Context, username string) (string, error)
}

// CommentService manages comments on questions and answers, their embedded
// replies and likes.
type CommentService struct {
	store      *store.Store
	notifier   Notifier
	mentions   MentionResolver
	validator  *validation.Validator
	locks      *keyedLock
	maxReplies int
	logger     *slog.Logger
	clock      clock
}

// NewCommentService creates a comment service allowing maxReplies replies
// per comment. A nil mentions resolver turns off @username notifications.
func NewCommentService(st *store.Store, notifier Notifier, mentions MentionResolver, v *validation.Validator, maxReplies int, logger *slog.Logger) *CommentService {
	return &CommentService{
		store:      st,
		notifier:   notifier,
		mentions:   mentions,
		validator:  v,
		locks:      newKeyedLock(),
		maxReplies: maxReplies,
		logger:     discardIfNil(logger),
	}
}

// Add comments on a question or answer and notifies its author.
func (s *CommentService) Add(ctx context.Context, parentType domain.ItemType, parentID, body string) (*domain.Comment, error) {
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}
	if !parentType.Valid() {
		return nil, apperrors.Validationf("cannot comment on %q", parentType)
	}
	body, err = s.body(body)
	if err != nil {
		return nil, err
	}

	parent, err := s.parent(ctx, parentType, parentID)
	if err != nil {
		return nil, err
	}

	c, err := s.store.Comments.Create(ctx, &domain.Comment{
		ParentID:   parentID,
		ParentType: parentType,
		Body:       body,
		Replies:    []domain.Reply{},
		Likes:      []string{},
	})
	if err != nil {
		return nil, err
	}

	notifyBestEffort(ctx, s.notifier, s.logger, parent.Owner(), domain.NewNotification(
		domain.NotifyComment,
		sess.UserID(), sess.Username(),
		sess.Username()+" commented on your "+string(parentType)+": "+quoted(body),
		parentID, parentType, s.clock.now(),
	))
	s.notifyMentions(ctx, body, parentID, parentType, parent.Owner())
	return c, nil
}

// List returns the comments on an item, oldest first.
func (s *CommentService) List(ctx context.Context, parentType domain.ItemType, parentID string) ([]*domain.Comment, error) {
	if !parentType.Valid() {
		return nil, apperrors.Validationf("invalid parent type %q", parentType)
	}
	return s.store.Comments.Query(ctx, []store.Condition{
		store.Where("parentId", docstore.OpEqual, parentID),
		store.Where("parentType", docstore.OpEqual, string(parentType)),
	}, store.OrderBy("createdAt", docstore.Asc), 0)
}

// Edit changes the body of the caller's own comment.
func (s *CommentService) Edit(ctx context.Context, id, body string) (*domain.Comment, error) {
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}
	body, err = s.body(body)
	if err != nil {
		return nil, err
	}
	c, err := s.comment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.OwnedBy(sess.UserID()) {
		return nil, apperrors.Forbidden("only the author can edit this comment")
	}

	if _, err := s.store.Comments.Update(ctx, id, map[string]any{"body": body}); err != nil {
		return nil, err
	}
	return s.comment(ctx, id)
}

// Delete removes the caller's own comment. Deleting a missing comment
// succeeds.
func (s *CommentService) Delete(ctx context.Context, id string) error {
	sess, err := requireSession(ctx)
	if err != nil {
		return err
	}
	c, err := s.store.Comments.Get(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}
	if !c.OwnedBy(sess.UserID()) {
		return apperrors.Forbidden("only the author can delete this comment")
	}
	return s.store.Comments.Delete(ctx, id)
}

// Reply appends a reply to a comment and notifies the comment's author.
// A comment holds at most maxReplies replies.
func (s *CommentService) Reply(ctx context.Context, commentID, body string) (*domain.Reply, error) {
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}
	body, err = s.body(body)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.lock(ctx, commentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, err := s.comment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if len(c.Replies) >= s.maxReplies {
		return nil, apperrors.Conflictf("comment %s has reached the limit of %d replies", commentID, s.maxReplies)
	}

	r := domain.NewReply(commentID, body, sess.UserID(), sess.Username(), sess.PhotoURL(), s.clock.now())
	if _, err := s.store.Comments.AddToSet(ctx, commentID, "replies", r); err != nil {
		return nil, err
	}

	notifyBestEffort(ctx, s.notifier, s.logger, c.Owner(), domain.NewNotification(
		domain.NotifyReply,
		sess.UserID(), sess.Username(),
		sess.Username()+" replied to your comment: "+quoted(body),
		commentID, domain.ItemComment, s.clock.now(),
	))
	s.notifyMentions(ctx, body, commentID, domain.ItemComment, c.Owner())
	return &r, nil
}

// notifyMentions tells each @username in body that they were mentioned.
// Unknown usernames are ignored. The caller and already-notified users are
// skipped.
func (s *CommentService) notifyMentions(ctx context.Context, body, itemID string, itemType domain.ItemType, notified ...string) {
	if s.mentions == nil || s.notifier == nil {
		return
	}
	sess := session.From(ctx)
	skip := append([]string{sess.UserID()}, notified...)

	for _, name := range normalize.Mentions(body) {
		uid, err := s.mentions.ResolveUsername(ctx, name)
		if err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) {
				s.logger.Warn("failed to resolve mention", "username", name, "error", err)
			}
			continue
		}
		if slices.Contains(skip, uid) {
			continue
		}
		skip = append(skip, uid)

		notifyBestEffort(ctx, s.notifier, s.logger, uid, domain.NewNotification(
			domain.NotifyMention,
			sess.UserID(), sess.Username(),
			sess.Username()+" mentioned you: "+quoted(body),
			itemID, itemType, s.clock.now(),
		))
	}
}

// DeleteReply removes the caller's own reply.
func (s *CommentService) DeleteReply(ctx context.Context, commentID, replyID string) error {
	sess, err := requireSession(ctx)
	if err != nil {
		return err
	}
	return s.editReplies(ctx, commentID, func(c *domain.Comment) error {
		i := c.FindReply(replyID)
		if i < 0 {
			return apperrors.NotFoundf("reply %s not found", replyID)
		}
		if c.Replies[i].UserID != sess.UserID() {
			return apperrors.Forbidden("only the author can delete this reply")
		}
		c.Replies = slices.Delete(c.Replies, i, i+1)
		return nil
	})
}

// ToggleLike likes or unlikes a comment for the caller and returns the new
// state. A new like notifies the comment's author.
func (s *CommentService) ToggleLike(ctx context.Context, commentID string) (bool, error) {
	sess, err := requireSession(ctx)
	if err != nil {
		return false, err
	}
	c, err := s.comment(ctx, commentID)
	if err != nil {
		return false, err
	}

	if c.LikedBy(sess.UserID()) {
		if _, err := s.store.Comments.RemoveFromSet(ctx, commentID, "likes", sess.UserID()); err != nil {
			return false, err
		}
		return false, nil
	}

	if _, err := s.store.Comments.AddToSet(ctx, commentID, "likes", sess.UserID()); err != nil {
		return false, err
	}
	notifyBestEffort(ctx, s.notifier, s.logger, c.Owner(), domain.NewNotification(
		domain.NotifyLike,
		sess.UserID(), sess.Username(),
		sess.Username()+" liked your comment",
		commentID, domain.ItemComment, s.clock.now(),
	))
	return true, nil
}

// ToggleReplyLike likes or unlikes a reply for the caller and returns the
// new state.
func (s *CommentService) ToggleReplyLike(ctx context.Context, commentID, replyID string) (bool, error) {
	sess, err := requireSession(ctx)
	if err != nil {
		return false, err
	}

	var liked bool
	var replyAuthor string
	err = s.editReplies(ctx, commentID, func(c *domain.Comment) error {
		i := c.FindReply(replyID)
		if i < 0 {
			return apperrors.NotFoundf("reply %s not found", replyID)
		}
		liked = c.Replies[i].ToggleLike(sess.UserID())
		replyAuthor = c.Replies[i].UserID
		return nil
	})
	if err != nil {
		return false, err
	}

	if liked {
		notifyBestEffort(ctx, s.notifier, s.logger, replyAuthor, domain.NewNotification(
			domain.NotifyLike,
			sess.UserID(), sess.Username(),
			sess.Username()+" liked your reply",
			commentID, domain.ItemComment, s.clock.now(),
		))
	}
	return liked, nil
}

// editReplies runs a read-merge-write of a comment's replies under the
// per-comment lock.
func (s *CommentService) editReplies(ctx context.Context, commentID string, change func(*domain.Comment) error) error {
	unlock, err := s.locks.lock(ctx, commentID)
	if err != nil {
		return err
	}
	defer unlock()

	c, err := s.comment(ctx, commentID)
	if err != nil {
		return err
	}
	if err := change(c); err != nil {
		return err
	}
	if c.Replies == nil {
		c.Replies = []domain.Reply{}
	}
	_, err = s.store.Comments.Update(ctx, commentID, map[string]any{"replies": c.Replies})
	return err
}

func (s *CommentService) body(body string) (string, error) {
	body = strings.TrimSpace(body)
	if err := s.validator.Var("body", body, "notblank,max=2000"); err != nil {
		return "", err
	}
	return body, nil
}

func (s *CommentService) comment(ctx context.Context, id string) (*domain.Comment, error) {
	c, err := s.store.Comments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperrors.NotFoundf("comment %s not found", id)
	}
	return c, nil
}

// parent loads the ownership metadata of the item being commented on.
func (s *CommentService) parent(ctx context.Context, parentType domain.ItemType, parentID string) (*domain.Meta, error) {
	switch parentType {
	case domain.ItemQuestion:
		q, err := s.store.Questions.Get(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if q != nil {
			return &q.Meta, nil
		}
	case domain.ItemAnswer:
		a, err := s.store.Answers.Get(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if a != nil {
			return &a.Meta, nil
		}
	}
	return nil, apperrors.NotFoundf("%s %s not found", parentType, parentID)
}
