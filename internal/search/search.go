// Package search finds questions by title prefix, tag and text.
//
// Two backends sit behind Searcher. The prefix backend (Aggregator) runs a
// title-prefix range query and a tag query against the document store in
// parallel and merges them. The index backend keeps a bleve full-text index
// fed through the Indexer interface. An optional Meilisearch mirror is another
// Indexer.
package search

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/askhub/askhub-server/internal/domain"
)

// DefaultLimit caps results when the caller passes no limit.
const DefaultLimit = 20

// HighSentinel sorts after every character a title can continue with, so
// the range [term, term+HighSentinel] holds every title starting with term.
// Strings compare bytewise, so it must be the largest encodable rune.
const HighSentinel = string(utf8.MaxRune)

// Backend names.
const (
	BackendPrefix = "prefix"
	BackendIndex  = "index"
)

// Searcher finds questions for a free-text term.
type Searcher interface {
	Search(ctx context.Context, term string, limit int) ([]*domain.Question, error)
}

// Indexer mirrors question changes into a search backend.
type Indexer interface {
	IndexQuestion(ctx context.Context, q *domain.Question) error
	DeleteQuestion(ctx context.Context, id string) error
}

// Indexers fans one change out to several indexers, joining their errors.
type Indexers []Indexer

// IndexQuestion implements Indexer.
func (ix Indexers) IndexQuestion(ctx context.Context, q *domain.Question) error {
	var errs []error
	for _, i := range ix {
		if err := i.IndexQuestion(ctx, q); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DeleteQuestion implements Indexer.
func (ix Indexers) DeleteQuestion(ctx context.Context, id string) error {
	var errs []error
	for _, i := range ix {
		if err := i.DeleteQuestion(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
