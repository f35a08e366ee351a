package api

import (
	"context"
	"net/http"
	"time"
)

// healthCheckTimeout bounds each dependency probe in /health.
const healthCheckTimeout = 2 * time.Second

// Component states reported by /health.
const (
	componentOK           = "ok"
	componentDown         = "down"
	componentDisconnected = "disconnected"
	componentDisabled     = "disabled"
)

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components"`
}

// handleHealth returns the server health status.
//
// The status is "degraded" when an enabled dependency is unreachable; the
// dashboard keeps serving log files either way, so the response is 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:     componentOK,
		Version:    s.version,
		Components: map[string]string{},
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	switch {
	case s.db == nil:
		resp.Components["database"] = componentDisabled
	case s.db.HealthCheck(ctx) != nil:
		resp.Components["database"] = componentDown
		resp.Status = "degraded"
	default:
		resp.Components["database"] = componentOK
	}

	switch {
	case s.mqtt == nil:
		resp.Components["mqtt"] = componentDisabled
	case !s.mqtt.IsConnected():
		resp.Components["mqtt"] = componentDisconnected
		resp.Status = "degraded"
	default:
		resp.Components["mqtt"] = componentOK
	}

	if s.notifier != nil && s.notifier.Configured() {
		resp.Components["notifier"] = componentOK
	} else {
		resp.Components["notifier"] = componentDisabled
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleRefresh drops every cached range so the next view rereads the files.
func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	n := s.clearCache("api")
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "cleared",
		"entries": n,
	})
}
