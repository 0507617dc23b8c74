// Package di provides dependency injection configuration for the askhub server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/askhub/askhub-server/internal/auth"
	"github.com/askhub/askhub-server/internal/config"
	"github.com/askhub/askhub-server/internal/di/providers"
	"github.com/askhub/askhub-server/internal/logger"
	"github.com/askhub/askhub-server/internal/metrics"
	"github.com/askhub/askhub-server/internal/service"
	"github.com/askhub/askhub-server/internal/validation"
)

// NewContainer creates the container with configuration loaded from the
// process arguments and environment.
func NewContainer() *do.RootScope {
	injector := do.New()
	do.Provide(injector, providers.ProvideConfig)
	register(injector)
	return injector
}

// NewContainerWithConfig creates the container around an already loaded
// configuration. Tools that parse their own flags use it.
func NewContainerWithConfig(cfg *config.Config) *do.RootScope {
	injector := do.New()
	do.ProvideValue(injector, cfg)
	register(injector)
	return injector
}

func register(injector do.Injector) {
	// Core infrastructure
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideMetrics)
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideValidator)

	// Storage layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideIndexWatcher)
	do.Provide(injector, providers.ProvideSearch)
	do.Provide(injector, providers.ProvideViewTracker)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideWriteLimiter)

	// Business services
	do.Provide(injector, providers.ProvideNotificationService)
	do.Provide(injector, providers.ProvideQuestionService)
	do.Provide(injector, providers.ProvideAnswerService)
	do.Provide(injector, providers.ProvideVoteService)
	do.Provide(injector, providers.ProvideCommentService)
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideUserService)
	do.Provide(injector, providers.ProvideDraftService)

	// Workers
	do.Provide(injector, providers.ProvideTagSyncJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	steps := []func() error{
		invoke[*config.Config](injector),
		invoke[*logger.Logger](injector),
		invoke[*metrics.Metrics](injector),
		invoke[providers.AuthKey](injector),
		invoke[*validation.Validator](injector),
		invoke[*providers.SSEManagerHandle](injector),
		invoke[*providers.StoreHandle](injector),
		invoke[*providers.IndexWatcherHandle](injector),
		invoke[*providers.SearchHandle](injector),
		invoke[*providers.ViewTrackerHandle](injector),
		invoke[*auth.TokenService](injector),
		invoke[*providers.WriteLimiterHandle](injector),

		// Business services
		invoke[*service.NotificationService](injector),
		invoke[*service.QuestionService](injector),
		invoke[*service.AnswerService](injector),
		invoke[*service.VoteService](injector),
		invoke[*service.CommentService](injector),
		invoke[*service.TagService](injector),
		invoke[*service.UserService](injector),
		invoke[*service.DraftService](injector),

		// Workers
		invoke[*providers.TagSyncJob](injector),

		// Server
		invoke[*providers.HTTPServerHandle](injector),
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func invoke[T any](injector do.Injector) func() error {
	return func() error {
		_, err := do.Invoke[T](injector)
		return err
	}
}
