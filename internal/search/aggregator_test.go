package search_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/askhub/askhub-server/internal/docstore"
	"github.com/askhub/askhub-server/internal/domain"
	apperrors "github.com/askhub/askhub-server/internal/errors"
	"github.com/askhub/askhub-server/internal/normalize"
	"github.com/askhub/askhub-server/internal/search"
	"github.com/askhub/askhub-server/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// badger and bleve keep background workers alive until the process exits.
		goleak.IgnoreTopFunction("github.com/golang/glog.(*fileSink).flushDaemon"),
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
		goleak.IgnoreAnyFunction("github.com/dgraph-io/ristretto/v2.(*defaultPolicy[...]).processItems"),
		goleak.IgnoreAnyFunction("github.com/dgraph-io/ristretto/v2.(*Cache[...]).processItems"),
		goleak.IgnoreAnyFunction("github.com/blevesearch/bleve_index_api.AnalysisWorker"),
		goleak.IgnoreAnyFunction("github.com/blevesearch/bleve/v2/index/scorch.(*Scorch).mainLoop"),
		goleak.IgnoreAnyFunction("github.com/blevesearch/bleve/v2/index/scorch.(*Scorch).persisterLoop"),
		goleak.IgnoreAnyFunction("github.com/blevesearch/bleve/v2/index/scorch.(*Scorch).introducerLoop"),
	)
}

type call struct {
	conds  []store.Condition
	orders []store.Order
	limit  int
}

type fakeQuerier struct {
	mu      sync.Mutex
	calls   []call
	byTitle []*domain.Question
	byTag   []*domain.Question
	failTag error
	delay   time.Duration
	running atomic.Int32
	maxSeen atomic.Int32
}

func (f *fakeQuerier) QueryOrdered(ctx context.Context, conds []store.Condition, orders []store.Order, limit int) ([]*domain.Question, error) {
	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		prev := f.maxSeen.Load()
		if n <= prev || f.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, call{conds: conds, orders: orders, limit: limit})
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if conds[0].Op == docstore.OpArrayContains {
		if f.failTag != nil {
			return nil, f.failTag
		}
		return f.byTag, nil
	}
	return f.byTitle, nil
}

func q(id string) *domain.Question {
	return &domain.Question{Meta: domain.Meta{ID: id}}
}

func questionIDs(qs []*domain.Question) []string {
	out := make([]string, len(qs))
	for i, x := range qs {
		out[i] = x.ID
	}
	return out
}

func TestAggregator_BlankTermMakesNoCalls(t *testing.T) {
	f := &fakeQuerier{}
	agg := search.NewAggregator(f, nil, nil)

	for _, term := range []string{"", "   ", "\t\n"} {
		got, err := agg.Search(context.Background(), term, 0)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
	assert.Empty(t, f.calls)
}

func TestAggregator_QueryShapes(t *testing.T) {
	f := &fakeQuerier{}
	agg := search.NewAggregator(f, nil, nil)

	_, err := agg.Search(context.Background(), "  Java ", 0)
	require.NoError(t, err)
	require.Len(t, f.calls, 2)

	var title, tag call
	for _, c := range f.calls {
		if c.conds[0].Op == docstore.OpArrayContains {
			tag = c
		} else {
			title = c
		}
	}

	assert.Equal(t, []store.Condition{
		{Field: "titleLowercase", Op: docstore.OpGreaterEqual, Value: "java"},
		{Field: "titleLowercase", Op: docstore.OpLessEqual, Value: "java" + search.HighSentinel},
	}, title.conds)
	assert.Equal(t, []store.Order{
		{Field: "titleLowercase", Direction: docstore.Asc},
		{Field: "createdAt", Direction: docstore.Desc},
	}, title.orders)
	assert.Equal(t, search.DefaultLimit, title.limit)

	assert.Equal(t, []store.Condition{{Field: "tags", Op: docstore.OpArrayContains, Value: "java"}}, tag.conds)
	assert.Equal(t, []store.Order{{Field: "createdAt", Direction: docstore.Desc}}, tag.orders)
	assert.Equal(t, search.DefaultLimit, tag.limit)
}

func TestAggregator_RunsQueriesConcurrently(t *testing.T) {
	f := &fakeQuerier{delay: 50 * time.Millisecond}
	agg := search.NewAggregator(f, nil, nil)

	_, err := agg.Search(context.Background(), "go", 5)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.maxSeen.Load())
}

func TestAggregator_TitleHitsFirstAndDeduped(t *testing.T) {
	f := &fakeQuerier{
		byTitle: []*domain.Question{q("t1"), q("shared")},
		byTag:   []*domain.Question{q("shared"), q("g1"), q("g2")},
	}
	agg := search.NewAggregator(f, nil, nil)

	got, err := agg.Search(context.Background(), "java", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "shared", "g1", "g2"}, questionIDs(got))
}

func TestAggregator_EitherFailureFailsWhole(t *testing.T) {
	boom := errors.New("tag query failed")
	f := &fakeQuerier{
		byTitle: []*domain.Question{q("t1")},
		failTag: boom,
	}
	agg := search.NewAggregator(f, nil, nil)

	got, err := agg.Search(context.Background(), "java", 0)
	assert.Nil(t, got)
	require.ErrorIs(t, err, apperrors.ErrSearch)
	require.ErrorIs(t, err, boom)
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name  string
		title []string
		tag   []string
		limit int
		want  []string
	}{
		{"empty", nil, nil, 20, []string{}},
		{"title only", []string{"a", "b"}, nil, 20, []string{"a", "b"}},
		{"tag fills remainder", []string{"a"}, []string{"b", "c"}, 2, []string{"a", "b"}},
		{"title alone can fill", []string{"a", "b", "c"}, []string{"d"}, 2, []string{"a", "b"}},
		{"duplicates skipped", []string{"a", "b"}, []string{"b", "a", "c"}, 20, []string{"a", "b", "c"}},
	}
	toQs := func(ids []string) []*domain.Question {
		out := make([]*domain.Question, len(ids))
		for i, id := range ids {
			out[i] = q(id)
		}
		return out
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := search.Merge(toQs(tt.title), toQs(tt.tag), tt.limit)
			assert.Equal(t, tt.want, questionIDs(got))
		})
	}
}

func TestAggregator_AgainstStore(t *testing.T) {
	db, err := docstore.Open(docstore.Options{Path: t.TempDir(), EnforceIndexes: true})
	require.NoError(t, err)
	s := store.New(db, store.Options{})
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	_, err = s.Questions.Create(ctx, &domain.Question{
		Title: "Java basics", TitleLowercase: "java basics", Tags: []string{"programming"},
	})
	require.NoError(t, err)
	_, err = s.Questions.Create(ctx, &domain.Question{
		Title: "Why is my build slow?", TitleLowercase: "why is my build slow?", Tags: []string{"java", "gradle"},
	})
	require.NoError(t, err)
	_, err = s.Questions.Create(ctx, &domain.Question{
		Title: "Python decorators", TitleLowercase: "python decorators", Tags: []string{"python"},
	})
	require.NoError(t, err)

	agg := search.NewAggregator(s.Questions, nil, nil)
	got, err := agg.Search(ctx, "java", 0)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "Java basics", got[0].Title)
	assert.Equal(t, "Why is my build slow?", got[1].Title)
}

func TestAggregator_TitlePrefixCoversEveryContinuation(t *testing.T) {
	db, err := docstore.Open(docstore.Options{Path: t.TempDir(), EnforceIndexes: true})
	require.NoError(t, err)
	s := store.New(db, store.Options{})
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	titles := []string{
		"Java basics for everyone",
		"Java🚀 performance tuning",
		"Java！ fullwidth bang tips",
		"Java豈 compatibility ideograph",
		"Javascript is not Java",
		"Kotlin for Java developers",
	}
	for _, title := range titles {
		_, err := s.Questions.Create(ctx, &domain.Question{
			Title: title, TitleLowercase: normalize.Lower(title), Tags: []string{"misc"},
		})
		require.NoError(t, err)
	}

	agg := search.NewAggregator(s.Questions, nil, nil)
	got, err := agg.Search(ctx, "java", 0)
	require.NoError(t, err)

	var hits []string
	for _, x := range got {
		hits = append(hits, x.Title)
	}
	assert.ElementsMatch(t, titles[:5], hits)
}

func TestAggregator_CollapsesWhitespaceInTerm(t *testing.T) {
	db, err := docstore.Open(docstore.Options{Path: t.TempDir(), EnforceIndexes: true})
	require.NoError(t, err)
	s := store.New(db, store.Options{})
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	_, err = s.Questions.Create(ctx, &domain.Question{
		Title: "Java basics", TitleLowercase: "java basics", Tags: []string{"programming"},
	})
	require.NoError(t, err)

	got, err := search.NewAggregator(s.Questions, nil, nil).Search(ctx, "  Java   basics ", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Java basics", got[0].Title)
}
