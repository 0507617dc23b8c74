package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/askhub/askhub-server/internal/docstore"
	"github.com/askhub/askhub-server/internal/domain"
	apperrors "github.com/askhub/askhub-server/internal/errors"
	"github.com/askhub/askhub-server/internal/metrics"
	"github.com/askhub/askhub-server/internal/normalize"
	"github.com/askhub/askhub-server/internal/store"
)

// MaxTagLimit caps tag listings.
const MaxTagLimit = 100

// TagService reads tags and keeps their question counts accurate.
type TagService struct {
	store   *store.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// SyncReport summarizes a tag sync run.
type SyncReport struct {
	Questions int           `json:"questions"`
	Tags      int           `json:"tags"`
	Updated   int           `json:"updated"`
	Zeroed    int           `json:"zeroed"`
	Duration  time.Duration `json:"durationNs"`
}

// NewTagService creates a tag service.
func NewTagService(st *store.Store, m *metrics.Metrics, logger *slog.Logger) *TagService {
	return &TagService{store: st, metrics: m, logger: discardIfNil(logger)}
}

// List returns tags by question count, most used first.
func (s *TagService) List(ctx context.Context, limit int) ([]*domain.Tag, error) {
	return s.store.Tags.Query(ctx, nil,
		store.OrderBy("count", docstore.Desc),
		clampLimit(limit, MaxLimit, MaxTagLimit),
	)
}

// Get returns one tag by name.
func (s *TagService) Get(ctx context.Context, name string) (*domain.Tag, error) {
	tag := normalize.Tag(name)
	if tag == "" {
		return nil, apperrors.NotFoundf("tag %q not found", name)
	}
	t, err := s.store.Tags.Get(ctx, tag)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperrors.NotFoundf("tag %q not found", tag)
	}
	return t, nil
}

// Questions returns the newest questions carrying a tag.
func (s *TagService) Questions(ctx context.Context, name string, limit int) ([]*domain.Question, error) {
	tag := normalize.Tag(name)
	if tag == "" {
		return []*domain.Question{}, nil
	}
	return s.store.Questions.Query(ctx,
		[]store.Condition{store.Where("tags", docstore.OpArrayContains, tag)},
		store.OrderBy("createdAt", docstore.Desc),
		clampLimit(limit, DefaultLimit, MaxLimit),
	)
}

// Sync recomputes every tag's count from the questions themselves. Tags no
// question carries are set to zero. Running it twice changes nothing the
// second time.
func (s *TagService) Sync(ctx context.Context) (report SyncReport, err error) {
	start := time.Now()
	defer func() {
		report.Duration = time.Since(start)
		s.metrics.ObserveTagSync(err)
	}()

	counts := make(map[string]int64)
	for q, err := range s.store.Questions.List(ctx) {
		if err != nil {
			return report, err
		}
		report.Questions++
		for _, tag := range normalize.Tags(q.Tags) {
			counts[tag]++
		}
	}

	stored := make(map[string]int64)
	for t, err := range s.store.Tags.List(ctx) {
		if err != nil {
			return report, err
		}
		stored[t.ID] = t.Count
	}

	for tag, n := range counts {
		if have, ok := stored[tag]; ok && have == n {
			continue
		}
		if _, err := s.store.Tags.Upsert(ctx, tag, map[string]any{"name": tag, "count": n}); err != nil {
			return report, err
		}
		report.Updated++
	}
	for tag, have := range stored {
		if _, used := counts[tag]; used || have == 0 {
			continue
		}
		if _, err := s.store.Tags.Upsert(ctx, tag, map[string]any{"name": tag, "count": 0}); err != nil {
			return report, err
		}
		report.Zeroed++
	}
	report.Tags = len(counts)

	s.logger.Info("tag sync complete",
		"questions", report.Questions,
		"tags", report.Tags,
		"updated", report.Updated,
		"zeroed", report.Zeroed,
	)
	return report, nil
}
