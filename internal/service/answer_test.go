package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askhub/askhub-server/internal/domain"
	apperrors "github.com/askhub/askhub-server/internal/errors"
	"github.com/askhub/askhub-server/internal/store"
	"github.com/askhub/askhub-server/internal/validation"
)

type answerFixture struct {
	svc      *AnswerService
	st       *store.Store
	notifier *fakeNotifier
	asker    context.Context
	answerer context.Context
	question *domain.Question
}

func setupTestAnswerService(t *testing.T) *answerFixture {
	t.Helper()
	st := setupTestStore(t)
	n := &fakeNotifier{}
	f := &answerFixture{
		svc:      NewAnswerService(st, n, validation.New(), nil),
		st:       st,
		notifier: n,
		asker:    createTestUser(t, st, "asker", "asker", domain.RoleUser),
		answerer: createTestUser(t, st, "answerer", "answerer", domain.RoleUser),
	}
	f.question = askTestQuestion(t, st, f.asker, "Why does my goroutine leak?", "go")
	return f
}

func (f *answerFixture) post(t *testing.T, body string) *domain.Answer {
	t.Helper()
	a, err := f.svc.Post(f.answerer, f.question.ID, body)
	require.NoError(t, err)
	return a
}

func TestAnswerService_PostCountsAndNotifies(t *testing.T) {
	f := setupTestAnswerService(t)

	a := f.post(t, "  Close the done channel.  ")
	assert.Equal(t, "Close the done channel.", a.Body)
	assert.Equal(t, f.question.ID, a.QuestionID)
	assert.Equal(t, "answerer", a.Owner())

	q, err := f.st.Questions.Get(context.Background(), f.question.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), q.AnswerCount)

	sent := f.notifier.to("asker")
	require.Len(t, sent, 1)
	assert.Equal(t, domain.NotifyAnswer, sent[0].Type)
	assert.Equal(t, f.question.ID, sent[0].ItemID)
	assert.Contains(t, sent[0].Content, "answerer answered your question")
}

func TestAnswerService_PostRejects(t *testing.T) {
	f := setupTestAnswerService(t)

	_, err := f.svc.Post(context.Background(), f.question.ID, "an answer")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = f.svc.Post(f.answerer, f.question.ID, "   ")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.Post(f.answerer, "missing", "an answer")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAnswerService_PostSurvivesNotifierFailure(t *testing.T) {
	f := setupTestAnswerService(t)
	f.notifier.err = errors.New("inbox unavailable")

	_, err := f.svc.Post(f.answerer, f.question.ID, "still posted")
	require.NoError(t, err)
}

func TestAnswerService_Accept(t *testing.T) {
	f := setupTestAnswerService(t)
	first := f.post(t, "first answer")
	second := f.post(t, "second answer")

	_, err := f.svc.Accept(f.answerer, first.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	accepted, err := f.svc.Accept(f.asker, first.ID)
	require.NoError(t, err)
	assert.True(t, accepted.IsAccepted)

	stored, err := f.st.Answers.Get(context.Background(), first.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsAccepted)
	q, err := f.st.Questions.Get(context.Background(), f.question.ID)
	require.NoError(t, err)
	assert.True(t, q.IsSolved)

	// Accepting the same answer again is a no-op.
	_, err = f.svc.Accept(f.asker, first.ID)
	require.NoError(t, err)

	_, err = f.svc.Accept(f.asker, second.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestAnswerService_ConcurrentAcceptsOneWins(t *testing.T) {
	f := setupTestAnswerService(t)
	ids := []string{f.post(t, "one").ID, f.post(t, "two").ID, f.post(t, "three").ID}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.Accept(f.asker, id)
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	}
	assert.Equal(t, 1, wins)
}

func TestAnswerService_ListAcceptedFirst(t *testing.T) {
	f := setupTestAnswerService(t)
	low := f.post(t, "low")
	high := f.post(t, "high")
	_, err := f.st.Answers.IncrementField(context.Background(), high.ID, "upvotes", 3)
	require.NoError(t, err)
	_, err = f.svc.Accept(f.asker, low.ID)
	require.NoError(t, err)

	got, err := f.svc.List(context.Background(), f.question.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, low.ID, got[0].ID)
	assert.Equal(t, high.ID, got[1].ID)
}

func TestAnswerService_Delete(t *testing.T) {
	f := setupTestAnswerService(t)
	kept := f.post(t, "kept")
	gone := f.post(t, "gone")

	assert.ErrorIs(t, f.svc.Delete(f.asker, gone.ID), apperrors.ErrForbidden)
	require.NoError(t, f.svc.Delete(f.answerer, gone.ID))

	q, err := f.st.Questions.Get(context.Background(), f.question.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), q.AnswerCount)

	_, err = f.svc.Accept(f.asker, kept.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Delete(f.answerer, kept.ID), apperrors.ErrConflict)
}
