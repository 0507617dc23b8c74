package docstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askhub/askhub-server/internal/docstore"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)

func setupTestDB(t *testing.T) *docstore.DB {
	t.Helper()
	db, err := docstore.Open(docstore.Options{
		Path:           t.TempDir(),
		EnforceIndexes: true,
		Clock:          func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestAdd_GetRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	doc, err := db.Add(ctx, "questions", map[string]any{
		"title":     "Java basics",
		"tags":      []string{"java", "beginner"},
		"views":     0,
		"createdAt": docstore.ServerTimestamp,
	})
	require.NoError(t, err)
	require.NotEmpty(t, doc.ID)

	got, err := db.Get(ctx, "questions", doc.ID)
	require.NoError(t, err)

	want := map[string]any{
		"title":     "Java basics",
		"tags":      []any{"java", "beginner"},
		"views":     float64(0),
		"createdAt": "2025-03-14T09:26:53.589793000Z",
	}
	if diff := cmp.Diff(want, got.Data); diff != "" {
		t.Errorf("stored document mismatch (-want +got):\n%s", diff)
	}
}

func TestCreate_RejectsExistingID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.Create(ctx, "usernames", "alice", map[string]any{"uid": "u1"})
	require.NoError(t, err)

	_, err = db.Create(ctx, "usernames", "alice", map[string]any{"uid": "u2"})
	require.ErrorIs(t, err, docstore.ErrAlreadyExists)

	got, err := db.Get(ctx, "usernames", "alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.Data["uid"])
}

func TestGet_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.Get(context.Background(), "questions", "missing")
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestUpdate_MissingDocument(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.Update(context.Background(), "questions", "missing",
		docstore.Update{Path: "title", Value: "x"})
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestUpdate_MergesFields(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	doc, err := db.Add(ctx, "questions", map[string]any{"title": "a", "body": "b"})
	require.NoError(t, err)

	updated, err := db.Update(ctx, "questions", doc.ID,
		docstore.Update{Path: "body", Value: "new body"},
		docstore.Update{Path: "meta.edits", Value: docstore.Increment(1)},
	)
	require.NoError(t, err)
	assert.Equal(t, "a", updated.Data["title"])
	assert.Equal(t, "new body", updated.Data["body"])
	assert.Equal(t, map[string]any{"edits": float64(1)}, updated.Data["meta"])
}

func TestSet_MergeAndReplace(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.Set(ctx, "tags", "go", map[string]any{"name": "go", "description": "gophers", "count": 3}, false)
	require.NoError(t, err)

	merged, err := db.Set(ctx, "tags", "go", map[string]any{"count": docstore.Increment(1)}, true)
	require.NoError(t, err)
	assert.Equal(t, "gophers", merged.Data["description"])
	assert.Equal(t, float64(4), merged.Data["count"])

	replaced, err := db.Set(ctx, "tags", "go", map[string]any{"name": "go"}, false)
	require.NoError(t, err)
	assert.NotContains(t, replaced.Data, "description")
}

func TestSet_MergeCreatesMissing(t *testing.T) {
	db := setupTestDB(t)

	doc, err := db.Set(context.Background(), "tags", "rust", map[string]any{"name": "rust", "count": docstore.Increment(1)}, true)
	require.NoError(t, err)
	assert.Equal(t, float64(1), doc.Data["count"])
}

func TestDelete_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	doc, err := db.Add(ctx, "comments", map[string]any{"body": "x"})
	require.NoError(t, err)

	require.NoError(t, db.Delete(ctx, "comments", doc.ID))
	require.NoError(t, db.Delete(ctx, "comments", doc.ID))
	require.NoError(t, db.Delete(ctx, "comments", "never-existed"))

	_, err = db.Get(ctx, "comments", doc.ID)
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestIncrement_ConcurrentWritersLoseNothing(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	doc, err := db.Add(ctx, "questions", map[string]any{"views": 0})
	require.NoError(t, err)

	const writers = 50
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := db.Update(ctx, "questions", doc.ID, docstore.Update{Path: "views", Value: docstore.Increment(1)})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := db.Get(ctx, "questions", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(writers), got.Data["views"])
}

func TestArrayUnionAndRemove(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	doc, err := db.Add(ctx, "comments", map[string]any{"likes": []string{}})
	require.NoError(t, err)

	for range 2 {
		_, err = db.Update(ctx, "comments", doc.ID, docstore.Update{Path: "likes", Value: docstore.ArrayUnion("u1")})
		require.NoError(t, err)
	}
	got, err := db.Get(ctx, "comments", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []any{"u1"}, got.Data["likes"])

	_, err = db.Update(ctx, "comments", doc.ID, docstore.Update{Path: "likes", Value: docstore.ArrayUnion("u2", "u3")})
	require.NoError(t, err)
	_, err = db.Update(ctx, "comments", doc.ID, docstore.Update{Path: "likes", Value: docstore.ArrayRemove("u1", "u3")})
	require.NoError(t, err)

	got, err = db.Get(ctx, "comments", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []any{"u2"}, got.Data["likes"])
}

func TestArrayUnion_ObjectsCompareByValue(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	doc, err := db.Add(ctx, "users", map[string]any{"notifications": []any{}})
	require.NoError(t, err)

	n := map[string]any{"id": "n1", "read": false}
	for range 2 {
		_, err = db.Update(ctx, "users", doc.ID, docstore.Update{Path: "notifications", Value: docstore.ArrayUnion(n)})
		require.NoError(t, err)
	}

	got, err := db.Get(ctx, "users", doc.ID)
	require.NoError(t, err)
	assert.Len(t, got.Data["notifications"], 1)
}

func TestDeleteField(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	doc, err := db.Add(ctx, "users", map[string]any{"bio": "hi", "username": "a"})
	require.NoError(t, err)

	updated, err := db.Update(ctx, "users", doc.ID, docstore.Update{Path: "bio", Value: docstore.DeleteField})
	require.NoError(t, err)
	assert.NotContains(t, updated.Data, "bio")
}

func TestInvalidArguments(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.Create(ctx, "questions", "a/b", map[string]any{})
	require.ErrorIs(t, err, docstore.ErrInvalidArgument)

	_, err = db.Create(ctx, "", "x", map[string]any{})
	require.ErrorIs(t, err, docstore.ErrInvalidArgument)

	_, err = db.Add(ctx, "questions", map[string]any{"a.b": 1})
	require.ErrorIs(t, err, docstore.ErrInvalidArgument)
}

func TestClosedStore(t *testing.T) {
	db, err := docstore.Open(docstore.Options{InMemory: true})
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	_, err = db.Get(context.Background(), "questions", "x")
	require.ErrorIs(t, err, docstore.ErrClosed)
}

func TestCanceledContext(t *testing.T) {
	db := setupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := db.Add(ctx, "questions", map[string]any{"title": "x"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCount(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for range 3 {
		_, err := db.Add(ctx, "answers", map[string]any{"body": "x"})
		require.NoError(t, err)
	}
	_, err := db.Add(ctx, "answersx", map[string]any{"body": "other collection"})
	require.NoError(t, err)

	n, err := db.Count(ctx, "answers")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestTimestamp_JSONRoundTripAndOrdering(t *testing.T) {
	early := docstore.NewTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 500_000_000, time.UTC))
	late := docstore.NewTimestamp(time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC))

	assert.Less(t, early.String(), late.String(), "encoded form sorts chronologically")

	raw, err := early.MarshalJSON()
	require.NoError(t, err)

	var back docstore.Timestamp
	require.NoError(t, back.UnmarshalJSON(raw))
	assert.True(t, early.Equal(back.Time))

	var zero docstore.Timestamp
	raw, err = zero.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))
}
