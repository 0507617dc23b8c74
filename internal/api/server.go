// Package api serves askhub's HTTP API: huma operations on a chi router,
// plus the event stream and Prometheus endpoint.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/askhub/askhub-server/internal/auth"
	"github.com/askhub/askhub-server/internal/metrics"
	"github.com/askhub/askhub-server/internal/ratelimit"
	"github.com/askhub/askhub-server/internal/search"
	"github.com/askhub/askhub-server/internal/service"
	"github.com/askhub/askhub-server/internal/sse"
	"github.com/askhub/askhub-server/internal/store"
)

// Services groups the business services the handlers call.
type Services struct {
	Questions     *service.QuestionService
	Answers       *service.AnswerService
	Votes         *service.VoteService
	Comments      *service.CommentService
	Notifications *service.NotificationService
	Tags          *service.TagService
	Users         *service.UserService
	Drafts        *service.DraftService
	Search        search.Searcher
}

// Options holds the server's collaborators besides the services.
type Options struct {
	Tokens       *auth.TokenService
	Events       *sse.Manager
	Metrics      *metrics.Metrics
	WriteLimiter *ratelimit.KeyedRateLimiter
	CORSOrigins  []string
	Logger       *slog.Logger

	// TrustProxy enables client addresses from proxy headers. Without it the
	// connection's address is used, so callers cannot pick their own
	// rate-limit key.
	TrustProxy bool
}

// Server is the HTTP handler for the whole API.
type Server struct {
	store    *store.Store
	services *Services
	tokens   *auth.TokenService
	events   *sse.Manager
	limiter  *ratelimit.KeyedRateLimiter
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
}

// NewServer builds the router and registers every route.
func NewServer(st *store.Store, services *Services, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s := &Server{
		store:    st,
		services: services,
		tokens:   opts.Tokens,
		events:   opts.Events,
		limiter:  opts.WriteLimiter,
		router:   chi.NewRouter(),
		logger:   logger,
	}

	s.router.Use(middleware.RequestID)
	if opts.TrustProxy {
		s.router.Use(middleware.RealIP)
	}
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.logRequests)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	s.router.Use(s.authenticate)
	s.router.Use(s.limitWrites)

	if opts.Metrics != nil {
		s.router.Handle("/metrics", opts.Metrics.Handler())
	}
	if s.events != nil {
		s.router.Get("/api/v1/events", sse.NewHandler(s.events, logger).ServeHTTP)
	}

	config := huma.DefaultConfig("askhub API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	s.api = humachi.New(s.router, config)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerQuestionRoutes()
	s.registerAnswerRoutes()
	s.registerCommentRoutes()
	s.registerSearchRoutes()
	s.registerTagRoutes()
	s.registerUserRoutes()
	s.registerNotificationRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// op builds an operation. Options adjust security and default status.
func op(id, method, path, summary, tag string, opts ...func(*huma.Operation)) huma.Operation {
	o := huma.Operation{
		OperationID: id,
		Method:      method,
		Path:        path,
		Summary:     summary,
		Tags:        []string{tag},
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func secured(o *huma.Operation) {
	o.Security = []map[string][]string{{"bearer": {}}}
}

func created(o *huma.Operation) {
	o.DefaultStatus = http.StatusCreated
}

func noContent(o *huma.Operation) {
	o.DefaultStatus = http.StatusNoContent
}
