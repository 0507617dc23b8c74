package views

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// Memory tracks views in process. Counts are per server instance.
type Memory struct {
	seen *cache.Cache
}

// NewMemory creates an in-process tracker with the given window. A zero
// window uses Window.
func NewMemory(window time.Duration) *Memory {
	if window <= 0 {
		window = Window
	}
	return &Memory{seen: cache.New(window, 2*window)}
}

// Admit implements Tracker.
func (m *Memory) Admit(ctx context.Context, questionID, viewerKey string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	// Add fails when an unexpired entry exists, which makes check-and-set atomic.
	if err := m.seen.Add(key(questionID, viewerKey), struct{}{}, cache.DefaultExpiration); err != nil {
		return false, nil
	}
	return true, nil
}
