package views

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis tracks views in Redis so every server instance shares one window.
type Redis struct {
	client *redis.Client
	window time.Duration
}

// NewRedis creates a tracker on client. A zero window uses Window.
func NewRedis(client *redis.Client, window time.Duration) *Redis {
	if window <= 0 {
		window = Window
	}
	return &Redis{client: client, window: window}
}

// Admit implements Tracker.
func (r *Redis) Admit(ctx context.Context, questionID, viewerKey string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key(questionID, viewerKey), "viewed", r.window).Result()
	if err != nil {
		return false, fmt.Errorf("record view: %w", err)
	}
	return ok, nil
}
