package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/dashboard"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/infrastructure/config"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/infrastructure/database"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/infrastructure/logging"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/infrastructure/mqtt"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/notify"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// EventCacheCleared is broadcast after the dashboard cache is dropped.
const EventCacheCleared = "cache.cleared"

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Logger      *logging.Logger
	Dashboard   *dashboard.Controller
	Notifier    *notify.Notifier // Optional: report delivery answers 503 without it
	MQTT        *mqtt.Client     // Optional: enables the refresh command topic
	DB          *database.DB     // Optional: database pool metrics
	ExternalHub *Hub             // If set, the server uses this hub instead of creating its own
	WebDir      string           // Serves the dashboard page from disk when set
	Version     string
}

// Server is the HTTP API server for Dspx-Monitor.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	logger      *logging.Logger
	dashboard   *dashboard.Controller
	notifier    *notify.Notifier
	mqtt        *mqtt.Client
	db          *database.DB
	webDir      string
	version     string
	started     time.Time
	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, dashboard controller)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Dashboard == nil {
		return nil, fmt.Errorf("dashboard controller is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		dashboard: deps.Dashboard,
		notifier:  deps.Notifier,
		mqtt:      deps.MQTT,
		db:        deps.DB,
		webDir:    deps.WebDir,
		version:   deps.Version,
		started:   time.Now(),
	}

	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Hub returns the WebSocket hub, or nil before Start when none was injected.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, subscribes to the MQTT refresh command and
// launches the HTTP listener in a background goroutine. The server can be
// stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation of background goroutines
//
// Returns:
//   - error: If the server fails to start
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	if err := s.subscribeRefreshCommand(); err != nil {
		s.logger.Warn("failed to subscribe to refresh command", "error", err)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// subscribeRefreshCommand drops the dashboard cache whenever a message
// arrives on the refresh command topic.
func (s *Server) subscribeRefreshCommand() error {
	if s.mqtt == nil {
		return nil
	}
	topic := s.mqtt.Topics().RefreshCommand()
	s.logger.Info("subscribing to refresh command", "topic", topic)
	return s.mqtt.Subscribe(topic, 1, func(_ string, _ []byte) error {
		s.clearCache("mqtt")
		return nil
	})
}

// clearCache drops every cached range and tells WebSocket clients.
func (s *Server) clearCache(origin string) int {
	n := s.dashboard.Invalidate()
	s.logger.Info("dashboard cache cleared", "entries", n, "origin", origin)
	if s.hub != nil {
		s.hub.Broadcast(EventCacheCleared, map[string]any{"entries": n, "origin": origin})
	}
	return n
}
