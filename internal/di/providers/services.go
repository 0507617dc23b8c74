package providers

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do/v2"

	"github.com/askhub/askhub-server/internal/assist"
	"github.com/askhub/askhub-server/internal/config"
	"github.com/askhub/askhub-server/internal/logger"
	"github.com/askhub/askhub-server/internal/metrics"
	"github.com/askhub/askhub-server/internal/ratelimit"
	"github.com/askhub/askhub-server/internal/service"
	"github.com/askhub/askhub-server/internal/validation"
	"github.com/askhub/askhub-server/internal/views"
)

// ProvideValidator provides the shared input validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ViewTrackerHandle wraps the view tracker and the Redis client behind it,
// if any.
type ViewTrackerHandle struct {
	views.Tracker
	client *redis.Client
}

// Shutdown implements do.Shutdownable.
func (h *ViewTrackerHandle) Shutdown() error {
	if h.client != nil {
		return h.client.Close()
	}
	return nil
}

// ProvideViewTracker keeps view dedupe in Redis when an address is
// configured, so several server processes share one window. Otherwise it
// stays in process.
func ProvideViewTracker(i do.Injector) (*ViewTrackerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Redis.Addr == "" {
		log.Info("View tracking in process", "window", views.Window)
		return &ViewTrackerHandle{Tracker: views.NewMemory(views.Window)}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		// Admit errors are logged per view; a down Redis only stops counting.
		log.Warn("Redis unreachable at startup", "addr", cfg.Redis.Addr, "error", err)
	}

	log.Info("View tracking in Redis", "addr", cfg.Redis.Addr, "window", views.Window)
	return &ViewTrackerHandle{Tracker: views.NewRedis(client, views.Window), client: client}, nil
}

// WriteLimiterHandle wraps the per-caller write limiter.
type WriteLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *WriteLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideWriteLimiter provides the token bucket applied to mutating requests.
func ProvideWriteLimiter(i do.Injector) (*WriteLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &WriteLimiterHandle{
		KeyedRateLimiter: ratelimit.New(cfg.Limits.WriteRPS, cfg.Limits.WriteBurst),
	}, nil
}

// ProvideNotificationService provides the notification service.
func ProvideNotificationService(i do.Injector) (*service.NotificationService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewNotificationService(storeHandle.Store, sseHandle.Manager, cfg.Limits.MaxNotifications, log.Component("notifications")), nil
}

// ProvideQuestionService provides the question service.
func ProvideQuestionService(i do.Injector) (*service.QuestionService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchHandle := do.MustInvoke[*SearchHandle](i)
	tracker := do.MustInvoke[*ViewTrackerHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewQuestionService(storeHandle.Store, searchHandle.Indexer, tracker.Tracker, v, log.Component("questions")), nil
}

// ProvideAnswerService provides the answer service.
func ProvideAnswerService(i do.Injector) (*service.AnswerService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	notifications := do.MustInvoke[*service.NotificationService](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAnswerService(storeHandle.Store, notifications, v, log.Component("answers")), nil
}

// ProvideVoteService provides the vote service.
func ProvideVoteService(i do.Injector) (*service.VoteService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewVoteService(storeHandle.Store, log.Component("votes")), nil
}

// ProvideCommentService provides the comment service.
func ProvideCommentService(i do.Injector) (*service.CommentService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	notifications := do.MustInvoke[*service.NotificationService](i)
	users := do.MustInvoke[*service.UserService](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCommentService(storeHandle.Store, notifications, users, v, cfg.Limits.MaxReplies, log.Component("comments")), nil
}

// ProvideTagService provides the tag service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTagService(storeHandle.Store, m, log.Component("tags")), nil
}

// ProvideUserService provides the user service.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUserService(storeHandle.Store, v, log.Component("users")), nil
}

// ProvideDraftService provides answer drafting. Without an API key the
// service reports drafting as not enabled.
func ProvideDraftService(i do.Injector) (*service.DraftService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	if cfg.Assist.APIKey == "" {
		log.Info("Answer drafting disabled")
		return service.NewDraftService(storeHandle.Store, nil, log.Component("draft")), nil
	}

	client, err := assist.New(context.Background(), assist.Options{
		APIKey:  cfg.Assist.APIKey,
		Model:   cfg.Assist.Model,
		Timeout: cfg.Assist.Timeout,
	})
	if err != nil {
		return nil, err
	}

	log.Info("Answer drafting enabled", "model", client.Model())

	return service.NewDraftService(storeHandle.Store, client, log.Component("draft")), nil
}
