package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, op("healthCheck", http.MethodGet, "/health",
		"Health check", "Health"), s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	store := s.checkStore(ctx)
	events := s.checkEvents()

	overall := "healthy"
	if events.Status != "healthy" {
		overall = "degraded"
	}
	if store.Status != "healthy" {
		overall = "unhealthy"
	}

	return &HealthOutput{Body: HealthResponse{
		Status: overall,
		Components: map[string]ComponentHealth{
			"store":  store,
			"events": events,
		},
	}}, nil
}

func (s *Server) checkStore(ctx context.Context) ComponentHealth {
	if s.store == nil {
		return ComponentHealth{Status: "unhealthy", Message: "store not configured"}
	}

	start := time.Now()
	err := s.store.DB().Ping(ctx)
	latency := time.Since(start)
	if err != nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Latency: latency.String(),
			Message: "store read failed",
		}
	}
	return ComponentHealth{Status: "healthy", Latency: latency.String()}
}

func (s *Server) checkEvents() ComponentHealth {
	if s.events == nil {
		return ComponentHealth{Status: "degraded", Message: "event stream not configured"}
	}
	switch n := s.events.ClientCount(); n {
	case 1:
		return ComponentHealth{Status: "healthy", Message: "1 connected client"}
	default:
		return ComponentHealth{Status: "healthy", Message: strconv.Itoa(n) + " connected clients"}
	}
}
