package search

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/askhub/askhub-server/internal/docstore"
	"github.com/askhub/askhub-server/internal/domain"
	apperrors "github.com/askhub/askhub-server/internal/errors"
	"github.com/askhub/askhub-server/internal/metrics"
	"github.com/askhub/askhub-server/internal/normalize"
	"github.com/askhub/askhub-server/internal/store"
)

// QuestionQuerier is the slice of the questions accessor the aggregator uses.
type QuestionQuerier interface {
	QueryOrdered(ctx context.Context, conds []store.Condition, orders []store.Order, limit int) ([]*domain.Question, error)
}

// Aggregator answers a search with two store queries run in parallel: a
// title-prefix range and an exact tag match. Title matches always come first.
type Aggregator struct {
	questions QuestionQuerier
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewAggregator creates the prefix search backend.
func NewAggregator(questions QuestionQuerier, m *metrics.Metrics, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Aggregator{questions: questions, metrics: m, logger: logger}
}

// Search implements Searcher. Blank input returns an empty result without
// touching the store. If either query fails the whole search fails with
// SEARCH_ERROR; partial results are never returned.
func (a *Aggregator) Search(ctx context.Context, raw string, limit int) ([]*domain.Question, error) {
	term := normalize.Term(raw)
	if term == "" {
		return []*domain.Question{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	var byTitle, byTag []*domain.Question
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		res, err := a.questions.QueryOrdered(gctx,
			[]store.Condition{
				store.Where("titleLowercase", docstore.OpGreaterEqual, term),
				store.Where("titleLowercase", docstore.OpLessEqual, term+HighSentinel),
			},
			[]store.Order{
				{Field: "titleLowercase", Direction: docstore.Asc},
				{Field: "createdAt", Direction: docstore.Desc},
			},
			limit,
		)
		byTitle = res
		return err
	})

	g.Go(func() error {
		res, err := a.questions.QueryOrdered(gctx,
			[]store.Condition{store.Where("tags", docstore.OpArrayContains, term)},
			[]store.Order{{Field: "createdAt", Direction: docstore.Desc}},
			limit,
		)
		byTag = res
		return err
	})

	err := g.Wait()
	a.metrics.ObserveSearch(BackendPrefix, err)
	if err != nil {
		a.logger.Warn("search failed", "term", term, "error", err)
		return nil, apperrors.Search(err, "search failed")
	}
	return Merge(byTitle, byTag, limit), nil
}

// Merge keeps every title hit in order, then appends tag hits whose id is not
// already present, stopping at limit.
func Merge(byTitle, byTag []*domain.Question, limit int) []*domain.Question {
	out := make([]*domain.Question, 0, min(limit, len(byTitle)+len(byTag)))
	seen := make(map[string]bool, len(byTitle))

	for _, q := range byTitle {
		if len(out) == limit {
			return out
		}
		seen[q.ID] = true
		out = append(out, q)
	}
	for _, q := range byTag {
		if len(out) == limit {
			break
		}
		if seen[q.ID] {
			continue
		}
		seen[q.ID] = true
		out = append(out, q)
	}
	return out
}
