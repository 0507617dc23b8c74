// Package service implements askhub's operations on top of the collection
// accessors: asking and answering, votes, comments, notifications, tags and
// user profiles.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/EagleChen/mapmutex"

	"github.com/askhub/askhub-server/internal/docstore"
	apperrors "github.com/askhub/askhub-server/internal/errors"
	"github.com/askhub/askhub-server/internal/session"
)

// Feed and list limits.
const (
	DefaultLimit = 20
	MaxLimit     = 50
	ProfileItems = 5
)

// Body limits for answers, comments and replies.
const (
	MaxBodyLength    = 30000
	MaxCommentLength = 2000
)

// requireSession returns the caller's session, or UNAUTHORIZED when the
// caller is anonymous.
func requireSession(ctx context.Context) (session.Session, error) {
	s := session.From(ctx)
	if !s.Authenticated() {
		return s, apperrors.Unauthorized("sign in required")
	}
	return s, nil
}

// clampLimit applies the default and maximum to a caller-supplied limit.
func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, maxLimit)
}

// keyedLock serializes read-merge-write edits of one document's embedded
// arrays.
type keyedLock struct {
	mu *mapmutex.Mutex
}

func newKeyedLock() *keyedLock {
	// 100 retries from a 10ns base delay bound one TryLock to a couple of
	// milliseconds, so lock re-checks ctx often.
	return &keyedLock{mu: mapmutex.NewCustomizedMapMutex(100, 100000000, 10, 1.1, 0.2)}
}

// lock acquires key, returning the release func. It gives up when ctx ends.
func (l *keyedLock) lock(ctx context.Context, key string) (func(), error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if l.mu.TryLock(key) {
			return func() { l.mu.Unlock(key) }, nil
		}
	}
}

// clock returns the current time as a stored timestamp. Embedded elements
// can't use the server-timestamp transform, so services stamp them.
type clock func() time.Time

func (c clock) now() docstore.Timestamp {
	if c == nil {
		return docstore.NewTimestamp(time.Now())
	}
	return docstore.NewTimestamp(c())
}

func discardIfNil(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
