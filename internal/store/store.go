// Package store binds askhub's collections to the document store.
package store

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/askhub/askhub-server/internal/docstore"
	"github.com/askhub/askhub-server/internal/domain"
	"github.com/askhub/askhub-server/internal/metrics"
	"github.com/askhub/askhub-server/internal/session"
)

// Store holds one accessor per collection.
type Store struct {
	db       *docstore.DB
	sessions session.Provider
	metrics  *metrics.Metrics
	logger   *slog.Logger

	Questions *Collection[domain.Question]
	Answers   *Collection[domain.Answer]
	Tags      *Collection[domain.Tag]
	Comments  *Collection[domain.Comment]
	Users     *Collection[domain.User]
	Usernames *Collection[domain.UsernameClaim]
	Votes     *Collection[domain.Vote]
}

// Options configures New. Nil fields get working defaults.
type Options struct {
	Sessions session.Provider
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// New wraps an open document store.
func New(db *docstore.DB, opts Options) *Store {
	s := &Store{
		db:       db,
		sessions: opts.Sessions,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
	if s.sessions == nil {
		s.sessions = session.ContextProvider{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	s.Questions = NewCollection[domain.Question](s, domain.CollectionQuestions)
	s.Answers = NewCollection[domain.Answer](s, domain.CollectionAnswers)
	s.Comments = NewCollection[domain.Comment](s, domain.CollectionComments)
	s.Votes = NewCollection[domain.Vote](s, domain.CollectionVotes)
	s.Tags = NewCollection[domain.Tag](s, domain.CollectionTags, WithoutOwner())
	s.Users = NewCollection[domain.User](s, domain.CollectionUsers, WithoutOwner())
	s.Usernames = NewCollection[domain.UsernameClaim](s, domain.CollectionUsernames, WithoutOwner())
	return s
}

// DB returns the underlying document store.
func (s *Store) DB() *docstore.DB {
	return s.db
}

// Close closes the underlying document store.
func (s *Store) Close() error {
	return s.db.Close()
}

func sortedFieldNames(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
