package server

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

type ComponentHealth struct {
	Status string `json:"status" example:"UP"`
	Error  string `json:"error,omitempty"`
}

type HealthBody struct {
	Status     string                     `json:"status" example:"UP"`
	Components map[string]ComponentHealth `json:"components"`
	Uptime     int64                      `json:"uptime" doc:"Seconds since the process started"`
}

type healthOutput struct {
	Status int
	Body   HealthBody
}

var started = time.Now()

func (s *server) registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health of this service and every upstream API",
	}, func(ctx context.Context, _ *struct{}) (*healthOutput, error) {
		body := s.health(ctx)
		status := http.StatusOK
		if body.Status != "UP" {
			status = http.StatusServiceUnavailable
		}
		return &healthOutput{Status: status, Body: body}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "ping",
		Method:      http.MethodGet,
		Path:        "/ping",
		Summary:     "Liveness check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "UP"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "info",
		Method:      http.MethodGet,
		Path:        "/info",
		Summary:     "Build and deployment details",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]any `json:"body"`
	}, error) {
		return &struct {
			Body map[string]any `json:"body"`
		}{Body: map[string]any{
			"version":    versionOr(s.Version),
			"prisonCode": s.User.PrisonCode,
			"timezone":   s.Location.String(),
			"upstreams":  s.upstreamNames(),
		}}, nil
	})
}

// health pings every upstream one after the other; any failure marks the service DOWN.
func (s *server) health(ctx context.Context) HealthBody {
	body := HealthBody{Status: "UP", Components: map[string]ComponentHealth{}, Uptime: int64(time.Since(started).Seconds())}
	for _, name := range s.upstreamNames() {
		if err := s.Upstreams[name].Ping(ctx); err != nil {
			body.Status = "DOWN"
			body.Components[name] = ComponentHealth{Status: "DOWN", Error: err.Error()}
			continue
		}
		body.Components[name] = ComponentHealth{Status: "UP"}
	}
	return body
}

func (s *server) upstreamNames() []string {
	names := make([]string, 0, len(s.Upstreams))
	for name := range s.Upstreams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
