package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/askhub/askhub-server/internal/api"
	"github.com/askhub/askhub-server/internal/auth"
	"github.com/askhub/askhub-server/internal/config"
	"github.com/askhub/askhub-server/internal/logger"
	"github.com/askhub/askhub-server/internal/metrics"
	"github.com/askhub/askhub-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server and starts it in the background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	searchHandle := do.MustInvoke[*SearchHandle](i)
	limiter := do.MustInvoke[*WriteLimiterHandle](i)

	services := &api.Services{
		Questions:     do.MustInvoke[*service.QuestionService](i),
		Answers:       do.MustInvoke[*service.AnswerService](i),
		Votes:         do.MustInvoke[*service.VoteService](i),
		Comments:      do.MustInvoke[*service.CommentService](i),
		Notifications: do.MustInvoke[*service.NotificationService](i),
		Tags:          do.MustInvoke[*service.TagService](i),
		Users:         do.MustInvoke[*service.UserService](i),
		Drafts:        do.MustInvoke[*service.DraftService](i),
		Search:        searchHandle.Searcher,
	}

	handler := api.NewServer(storeHandle.Store, services, api.Options{
		Tokens:       do.MustInvoke[*auth.TokenService](i),
		Events:       sseHandle.Manager,
		Metrics:      do.MustInvoke[*metrics.Metrics](i),
		WriteLimiter: limiter.KeyedRateLimiter,
		CORSOrigins:  cfg.Server.CORSOrigins,
		TrustProxy:   cfg.Server.TrustProxy,
		Logger:       log.Component("http"),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
