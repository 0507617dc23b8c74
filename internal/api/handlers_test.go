package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askhub/askhub-server/internal/domain"
	"github.com/askhub/askhub-server/internal/service"
)

func TestQuestionLifecycle(t *testing.T) {
	ts := setupTestServer(t)
	_, asker := ts.createUser(t, "asker", domain.RoleUser)
	_, answerer := ts.createUser(t, "answerer", domain.RoleUser)

	w := ts.do(t, http.MethodPost, "/api/v1/questions", asker, askBody("How do I close a channel safely?", "Go", "channels"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	q := decode[domain.Question](t, w)
	assert.Equal(t, "asker", q.Username)
	assert.Equal(t, []string{"go", "channels"}, q.Tags)

	w = ts.do(t, http.MethodPost, "/api/v1/questions/"+q.ID+"/answers", answerer,
		map[string]any{"body": "Only the sender should close it, and only once."})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	a := decode[domain.Answer](t, w)

	w = ts.do(t, http.MethodPost, "/api/v1/answers/"+a.ID+"/accept", answerer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, w))

	w = ts.do(t, http.MethodPost, "/api/v1/answers/"+a.ID+"/accept", asker, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[domain.Answer](t, w).IsAccepted)

	w = ts.do(t, http.MethodPost, "/api/v1/questions/"+q.ID+"/votes", answerer, map[string]any{"voteType": "upvote"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = ts.do(t, http.MethodPost, "/api/v1/questions/"+q.ID+"/votes", answerer, map[string]any{"voteType": "downvote"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/questions/"+q.ID, answerer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[QuestionDetail](t, w)
	assert.True(t, detail.Question.IsSolved)
	assert.Equal(t, int64(1), detail.Question.Upvotes)
	assert.Equal(t, int64(1), detail.Question.AnswerCount)
	assert.Equal(t, int64(1), detail.Question.Views)
	require.Len(t, detail.Answers, 1)
	require.NotNil(t, detail.Vote)
	assert.Equal(t, domain.VoteUp, detail.Vote.VoteType)

	// The same viewer does not count twice.
	w = ts.do(t, http.MethodGet, "/api/v1/questions/"+q.ID, answerer, nil)
	assert.Equal(t, int64(1), decode[QuestionDetail](t, w).Question.Views)

	w = ts.do(t, http.MethodGet, "/api/v1/notifications", asker, nil)
	require.Equal(t, http.StatusOK, w.Code)
	inbox := decode[Inbox](t, w)
	require.Len(t, inbox.Notifications, 1)
	assert.Equal(t, domain.NotifyAnswer, inbox.Notifications[0].Type)
	assert.Equal(t, 1, inbox.Unread)

	w = ts.do(t, http.MethodPost, "/api/v1/notifications/"+inbox.Notifications[0].ID+"/read", asker, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/v1/questions/"+q.ID, answerer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = ts.do(t, http.MethodDelete, "/api/v1/questions/"+q.ID, asker, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(t, http.MethodGet, "/api/v1/questions/"+q.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type cannedDrafter string

func (d cannedDrafter) Draft(_ context.Context, title, _ string) (string, error) {
	return string(d) + " " + title, nil
}

func TestDraftAnswer(t *testing.T) {
	ts := setupTestServer(t)
	_, asker := ts.createUser(t, "asker", domain.RoleUser)

	w := ts.do(t, http.MethodPost, "/api/v1/questions", asker, askBody("How do I close a channel safely?", "go"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	q := decode[domain.Question](t, w)
	path := "/api/v1/questions/" + q.ID + "/draft-answer"

	w = ts.do(t, http.MethodPost, path, asker, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "drafting is off without a model")

	ts.server.services.Drafts = service.NewDraftService(ts.store, cannedDrafter("Draft for:"), nil)

	w = ts.do(t, http.MethodPost, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, path, asker, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Draft for: How do I close a channel safely?", decode[AnswerDraft](t, w).Body)

	w = ts.do(t, http.MethodGet, "/api/v1/questions/"+q.ID+"/answers", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[AnswerList](t, w).Answers)
}

func TestAskValidation(t *testing.T) {
	ts := setupTestServer(t)
	_, token := ts.createUser(t, "ada", domain.RoleUser)

	w := ts.do(t, http.MethodPost, "/api/v1/questions", token, askBody("short", "go"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

func TestCommentThread(t *testing.T) {
	ts := setupTestServer(t)
	_, asker := ts.createUser(t, "asker", domain.RoleUser)
	_, commenter := ts.createUser(t, "commenter", domain.RoleUser)

	w := ts.do(t, http.MethodPost, "/api/v1/questions", asker, askBody("What does the race detector catch?", "go"))
	require.Equal(t, http.StatusCreated, w.Code)
	q := decode[domain.Question](t, w)

	w = ts.do(t, http.MethodPost, "/api/v1/questions/"+q.ID+"/comments", commenter, map[string]any{"body": "Which Go version?"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	c := decode[domain.Comment](t, w)
	assert.Equal(t, domain.ItemQuestion, c.ParentType)

	w = ts.do(t, http.MethodPost, "/api/v1/comments/"+c.ID+"/replies", asker, map[string]any{"body": "1.26"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	r := decode[domain.Reply](t, w)

	w = ts.do(t, http.MethodPost, "/api/v1/comments/"+c.ID+"/replies/"+r.ID+"/like", commenter, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[LikeState](t, w).Liked)

	w = ts.do(t, http.MethodPost, "/api/v1/comments/"+c.ID+"/like", asker, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[LikeState](t, w).Liked)

	w = ts.do(t, http.MethodGet, "/api/v1/questions/"+q.ID+"/comments", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	thread := decode[CommentList](t, w).Comments
	require.Len(t, thread, 1)
	require.Len(t, thread[0].Replies, 1)
	assert.Len(t, thread[0].Replies[0].Likes, 1)
	assert.Len(t, thread[0].Likes, 1)

	w = ts.do(t, http.MethodDelete, "/api/v1/comments/"+c.ID+"/replies/"+r.ID, commenter, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = ts.do(t, http.MethodDelete, "/api/v1/comments/"+c.ID+"/replies/"+r.ID, asker, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/answers/missing/comments", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[CommentList](t, w).Comments)
}

func TestSearchAndTags(t *testing.T) {
	ts := setupTestServer(t)
	_, asker := ts.createUser(t, "asker", domain.RoleUser)
	_, admin := ts.createUser(t, "root", domain.RoleAdmin)

	for _, b := range []map[string]any{
		askBody("Java streams versus loops", "performance"),
		askBody("Why does my Gradle build hang?", "java", "gradle"),
		askBody("Python asyncio cancellation", "python"),
	} {
		w := ts.do(t, http.MethodPost, "/api/v1/questions", asker, b)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := ts.do(t, http.MethodGet, "/api/v1/search?q=Java", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	results := decode[SearchResults](t, w).Results
	require.Len(t, results, 2)
	assert.Equal(t, "Java streams versus loops", results[0].Title)

	w = ts.do(t, http.MethodGet, "/api/v1/search?q=", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[SearchResults](t, w).Results)

	w = ts.do(t, http.MethodGet, "/api/v1/tags/java/questions", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[QuestionList](t, w).Questions, 1)

	w = ts.do(t, http.MethodPost, "/api/v1/admin/tags/sync", asker, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/admin/tags/sync", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode[service.SyncReport](t, w)
	assert.Equal(t, 3, report.Questions)
	assert.Equal(t, 4, report.Tags)

	w = ts.do(t, http.MethodGet, "/api/v1/tags/GRADLE", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[domain.Tag](t, w).Count)
}

func TestUserProfiles(t *testing.T) {
	ts := setupTestServer(t)
	adaID, ada := ts.createUser(t, "ada", domain.RoleUser)
	_, bob := ts.createUser(t, "bob", domain.RoleUser)

	w := ts.do(t, http.MethodPatch, "/api/v1/users/me", ada, map[string]any{"bio": "compilers"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "compilers", decode[domain.User](t, w).Bio)

	w = ts.do(t, http.MethodGet, "/api/v1/users/me", ada, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[domain.User](t, w)
	assert.Equal(t, adaID, me.ID)
	assert.NotNil(t, me.Notifications)

	w = ts.do(t, http.MethodGet, "/api/v1/users/"+adaID, bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[service.UserProfile](t, w)
	assert.Equal(t, "ada", profile.User.Username)
	assert.Nil(t, profile.User.Notifications)

	w = ts.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
