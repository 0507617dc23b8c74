package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/askhub/askhub-server/internal/domain"
	apperrors "github.com/askhub/askhub-server/internal/errors"
	"github.com/askhub/askhub-server/internal/metrics"
	"github.com/askhub/askhub-server/internal/normalize"
)

// Boosts keep the prefix backend's precedence: a title prefix outranks an
// exact tag, which outranks a stemmed text match.
const (
	boostTitlePrefix = 8.0
	boostTag         = 4.0
	boostTitleMatch  = 2.0
	boostBody        = 0.5
)

// SearchIDs returns the ids of the best matches for term, best first.
func (s *Index) SearchIDs(ctx context.Context, term string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildSearchQuery(term), limit, 0, false)
	req.SortBy([]string{"-_score", "-created_at"})

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}
	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// buildSearchQuery constructs the disjunction for a normalized term.
func buildSearchQuery(term string) query.Query {
	prefix := bleve.NewPrefixQuery(term)
	prefix.SetField("title_lower")
	prefix.SetBoost(boostTitlePrefix)

	tag := bleve.NewTermQuery(term)
	tag.SetField("tags")
	tag.SetBoost(boostTag)

	title := bleve.NewMatchQuery(term)
	title.SetField("title")
	title.SetBoost(boostTitleMatch)

	body := bleve.NewMatchQuery(term)
	body.SetField("body")
	body.SetBoost(boostBody)

	return bleve.NewDisjunctionQuery(prefix, tag, title, body)
}

// QuestionGetter loads a question by id, returning nil when it is gone.
type QuestionGetter interface {
	Get(ctx context.Context, id string) (*domain.Question, error)
}

// IndexSearcher is the index backend: it ranks with bleve and hydrates hits
// from the store in rank order.
type IndexSearcher struct {
	index     *Index
	questions QuestionGetter
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewIndexSearcher creates the index search backend.
func NewIndexSearcher(index *Index, questions QuestionGetter, m *metrics.Metrics, logger *slog.Logger) *IndexSearcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &IndexSearcher{index: index, questions: questions, metrics: m, logger: logger}
}

// Search implements Searcher.
func (s *IndexSearcher) Search(ctx context.Context, raw string, limit int) (out []*domain.Question, err error) {
	term := normalize.Term(raw)
	if term == "" {
		return []*domain.Question{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	defer func() { s.metrics.ObserveSearch(BackendIndex, err) }()

	ids, err := s.index.SearchIDs(ctx, term, limit)
	if err != nil {
		return nil, apperrors.Search(err, "search failed")
	}

	out = make([]*domain.Question, 0, len(ids))
	for _, id := range ids {
		q, err := s.questions.Get(ctx, id)
		if err != nil {
			return nil, apperrors.Search(err, "search failed")
		}
		if q == nil {
			// Deleted since it was indexed.
			s.logger.Debug("dropping stale search hit", "question_id", id)
			continue
		}
		out = append(out, q)
	}
	return out, nil
}
