package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askhub/askhub-server/internal/domain"
	apperrors "github.com/askhub/askhub-server/internal/errors"
	"github.com/askhub/askhub-server/internal/store"
	"github.com/askhub/askhub-server/internal/validation"
)

type commentFixture struct {
	svc       *CommentService
	st        *store.Store
	notifier  *fakeNotifier
	author    context.Context
	commenter context.Context
	question  *domain.Question
}

// mentionDirectory resolves usernames from a fixed map.
type mentionDirectory map[string]string

func (d mentionDirectory) ResolveUsername(_ context.Context, username string) (string, error) {
	uid, ok := d[username]
	if !ok {
		return "", apperrors.NotFoundf("user %q not found", username)
	}
	return uid, nil
}

func setupTestCommentService(t *testing.T, maxReplies int) *commentFixture {
	t.Helper()
	st := setupTestStore(t)
	n := &fakeNotifier{}
	directory := mentionDirectory{"author": "author", "commenter": "commenter", "bystander": "bystander"}
	f := &commentFixture{
		svc:       NewCommentService(st, n, directory, validation.New(), maxReplies, nil),
		st:        st,
		notifier:  n,
		author:    createTestUser(t, st, "author", "author", domain.RoleUser),
		commenter: createTestUser(t, st, "commenter", "commenter", domain.RoleUser),
	}
	f.question = askTestQuestion(t, st, f.author, "A question people comment on", "go")
	return f
}

func (f *commentFixture) comment(t *testing.T, body string) *domain.Comment {
	t.Helper()
	c, err := f.svc.Add(f.commenter, domain.ItemQuestion, f.question.ID, body)
	require.NoError(t, err)
	return c
}

func TestCommentService_AddAndList(t *testing.T) {
	f := setupTestCommentService(t, 50)

	first := f.comment(t, "first")
	time.Sleep(2 * time.Millisecond)
	second := f.comment(t, "second")

	assert.Empty(t, first.Replies)
	assert.Empty(t, first.Likes)
	assert.Equal(t, domain.ItemQuestion, first.ParentType)

	got, err := f.svc.List(context.Background(), domain.ItemQuestion, f.question.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)

	sent := f.notifier.to("author")
	require.Len(t, sent, 2)
	assert.Equal(t, domain.NotifyComment, sent[0].Type)
}

func TestCommentService_AddRejects(t *testing.T) {
	f := setupTestCommentService(t, 50)

	tests := []struct {
		name       string
		ctx        context.Context
		parentType domain.ItemType
		parentID   string
		body       string
		want       error
	}{
		{"anonymous", context.Background(), domain.ItemQuestion, f.question.ID, "hi", apperrors.ErrUnauthorized},
		{"comment on comment", f.commenter, domain.ItemComment, f.question.ID, "hi", apperrors.ErrValidation},
		{"blank", f.commenter, domain.ItemQuestion, f.question.ID, "  ", apperrors.ErrValidation},
		{"missing parent", f.commenter, domain.ItemAnswer, "missing", "hi", apperrors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Add(tt.ctx, tt.parentType, tt.parentID, tt.body)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCommentService_EditAndDelete(t *testing.T) {
	f := setupTestCommentService(t, 50)
	c := f.comment(t, "typo")

	_, err := f.svc.Edit(f.author, c.ID, "not mine")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	edited, err := f.svc.Edit(f.commenter, c.ID, "fixed")
	require.NoError(t, err)
	assert.Equal(t, "fixed", edited.Body)

	assert.ErrorIs(t, f.svc.Delete(f.author, c.ID), apperrors.ErrForbidden)
	require.NoError(t, f.svc.Delete(f.commenter, c.ID))
	require.NoError(t, f.svc.Delete(f.commenter, c.ID))
}

func TestCommentService_ReplyLimit(t *testing.T) {
	f := setupTestCommentService(t, 3)
	c := f.comment(t, "ask me anything")

	for i := range 3 {
		r, err := f.svc.Reply(f.author, c.ID, fmt.Sprintf("reply %d", i))
		require.NoError(t, err)
		assert.Equal(t, c.ID, r.CommentID)
	}

	_, err := f.svc.Reply(f.author, c.ID, "one too many")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	stored, err := f.st.Comments.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Replies, 3)

	replies := f.notifier.to("commenter")
	require.Len(t, replies, 3)
	assert.Equal(t, domain.NotifyReply, replies[0].Type)
}

func TestCommentService_DeleteReply(t *testing.T) {
	f := setupTestCommentService(t, 50)
	c := f.comment(t, "thread")
	r, err := f.svc.Reply(f.author, c.ID, "mine")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteReply(f.commenter, c.ID, r.ID), apperrors.ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteReply(f.author, c.ID, "missing"), apperrors.ErrNotFound)
	require.NoError(t, f.svc.DeleteReply(f.author, c.ID, r.ID))

	stored, err := f.st.Comments.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Replies)
}

func TestCommentService_ToggleLike(t *testing.T) {
	f := setupTestCommentService(t, 50)
	c := f.comment(t, "like me")

	liked, err := f.svc.ToggleLike(f.author, c.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	stored, err := f.st.Comments.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"author"}, stored.Likes)

	liked, err = f.svc.ToggleLike(f.author, c.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	stored, err = f.st.Comments.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Likes)

	likes := f.notifier.to("commenter")
	require.Len(t, likes, 1)
	assert.Equal(t, domain.NotifyLike, likes[0].Type)
}

func TestCommentService_ToggleReplyLike(t *testing.T) {
	f := setupTestCommentService(t, 50)
	c := f.comment(t, "thread")
	r, err := f.svc.Reply(f.author, c.ID, "a reply")
	require.NoError(t, err)

	liked, err := f.svc.ToggleReplyLike(f.commenter, c.ID, r.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	stored, err := f.st.Comments.Get(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, stored.Replies, 1)
	assert.Equal(t, []string{"commenter"}, stored.Replies[0].Likes)

	liked, err = f.svc.ToggleReplyLike(f.commenter, c.ID, r.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	_, err = f.svc.ToggleReplyLike(f.commenter, c.ID, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCommentService_MentionsNotifyOnce(t *testing.T) {
	f := setupTestCommentService(t, 50)

	// The author already gets a comment notification; the caller and
	// unknown names get nothing.
	f.comment(t, "@bystander @Bystander @author @commenter @nobody see this")

	mentions := f.notifier.to("bystander")
	require.Len(t, mentions, 1)
	assert.Equal(t, domain.NotifyMention, mentions[0].Type)
	assert.Equal(t, f.question.ID, mentions[0].ItemID)
	assert.Equal(t, domain.ItemQuestion, mentions[0].ItemType)
	assert.Contains(t, mentions[0].Content, "commenter mentioned you")

	toAuthor := f.notifier.to("author")
	require.Len(t, toAuthor, 1)
	assert.Equal(t, domain.NotifyComment, toAuthor[0].Type)
	assert.Empty(t, f.notifier.to("commenter"))
}

func TestCommentService_ReplyMentions(t *testing.T) {
	f := setupTestCommentService(t, 50)
	c := f.comment(t, "plain comment")

	_, err := f.svc.Reply(f.author, c.ID, "thanks, looping in @bystander")
	require.NoError(t, err)

	mentions := f.notifier.to("bystander")
	require.Len(t, mentions, 1)
	assert.Equal(t, domain.NotifyMention, mentions[0].Type)
	assert.Equal(t, c.ID, mentions[0].ItemID)
	assert.Equal(t, domain.ItemComment, mentions[0].ItemType)
}

func TestCommentService_MentionsOffWithoutResolver(t *testing.T) {
	st := setupTestStore(t)
	n := &fakeNotifier{}
	svc := NewCommentService(st, n, nil, validation.New(), 50, nil)
	author := createTestUser(t, st, "author", "author", domain.RoleUser)
	commenter := createTestUser(t, st, "commenter", "commenter", domain.RoleUser)
	createTestUser(t, st, "bystander", "bystander", domain.RoleUser)
	q := askTestQuestion(t, st, author, "A question people comment on", "go")

	_, err := svc.Add(commenter, domain.ItemQuestion, q.ID, "hey @bystander")
	require.NoError(t, err)
	assert.Empty(t, n.to("bystander"))
}
