package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/askhub/askhub-server/internal/errors"
	"github.com/askhub/askhub-server/internal/http/response"
	"github.com/askhub/askhub-server/internal/session"
)

type ctxKey string

const clientIPKey ctxKey = "client_ip"

// authenticate resolves a bearer token into a session. Requests without a
// token continue anonymously; a token that fails to verify is rejected.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), clientIPKey, remoteIP(r))

		header := r.Header.Get("Authorization")
		if header == "" || s.tokens == nil {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			response.Error(w, apperrors.Unauthorized("invalid authorization header"), s.logger)
			return
		}
		claims, err := s.tokens.Verify(token)
		if err != nil {
			response.Error(w, err, s.logger)
			return
		}
		sess, err := s.services.Users.LoadSession(ctx, claims.UserID)
		if err != nil {
			response.Error(w, err, s.logger)
			return
		}

		next.ServeHTTP(w, r.WithContext(session.With(ctx, sess)))
	})
}

// limitWrites applies the per-caller token bucket to mutating requests.
// Callers are keyed by user id, or by address when anonymous.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil || !isWrite(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		key := callerKey(r.Context())
		if !s.limiter.Allow(key) {
			s.logger.Warn("write rate limit exceeded", "caller", key, "path", r.URL.Path)
			response.Error(w, apperrors.RateLimited("too many requests, try again shortly"), s.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// logRequests writes one line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		level := s.logger.Info
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			level = s.logger.Debug
		}
		level("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// callerKey identifies the caller for rate limiting and view counting.
func callerKey(ctx context.Context) string {
	if id := session.From(ctx).UserID(); id != "" {
		return "user:" + id
	}
	ip, _ := ctx.Value(clientIPKey).(string)
	return "ip:" + ip
}

// remoteIP strips the port from RemoteAddr. Behind a trusted proxy RealIP
// has already rewritten it from the proxy headers.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// requireAdmin returns FORBIDDEN unless the caller is an admin.
func requireAdmin(ctx context.Context) error {
	sess := session.From(ctx)
	if !sess.Authenticated() {
		return apperrors.Unauthorized("sign in required")
	}
	if !sess.IsAdmin() {
		return apperrors.Forbidden("admin access required")
	}
	return nil
}
