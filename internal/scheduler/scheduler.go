package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/dashboard"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/infrastructure/mqtt"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/notify"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/telemetry"
)

// EventDataUpdated is the WebSocket event type sent on file changes.
const EventDataUpdated = "data.updated"

// Logger defines the logging interface used by the Scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Source is the part of the log directory the watcher needs.
type Source interface {
	telemetry.Fingerprinter
	FileName(date time.Time) string
}

// Dashboard is the part of dashboard.Controller the scheduler uses.
type Dashboard interface {
	Load(ctx context.Context, rng telemetry.Range) (*dashboard.View, error)
	BuildReport(ctx context.Context, req dashboard.ReportRequest) (*dashboard.ReportView, error)
	Invalidate() int
}

// Publisher publishes MQTT messages.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// Hub broadcasts WebSocket events.
type Hub interface {
	Broadcast(eventType string, payload any)
}

// Exporter forwards readings to time-series sinks.
type Exporter interface {
	Enabled() bool
	Export(s telemetry.Series) int
	Mark() time.Time
}

// Notifier delivers reports.
type Notifier interface {
	Configured() bool
	Deliver(ctx context.Context, req notify.Request) (*notify.Delivery, error)
}

// Config configures a Scheduler.
type Config struct {
	// CheckInterval is the file watch period; 0 disables the watcher.
	CheckInterval time.Duration

	// ReportEnabled turns the daily report job on.
	ReportEnabled bool

	// ReportHour and ReportMinute are the daily report time in Location.
	ReportHour   int
	ReportMinute int

	Location *time.Location
	Topics   mqtt.Topics
}

// Deps are the scheduler's collaborators. Only Source and Dashboard are
// required.
type Deps struct {
	Source    Source
	Dashboard Dashboard
	Publisher Publisher
	Hub       Hub
	Exporter  Exporter
	Notifier  Notifier
	Logger    Logger
}

// Scheduler runs the file watcher and the daily report job.
type Scheduler struct {
	cfg  Config
	deps Deps
	now  func() time.Time

	mu     sync.Mutex
	seen   map[string]telemetry.Fingerprint
	primed bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates a Scheduler.
func New(cfg Config, deps Deps) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}
	return &Scheduler{
		cfg:  cfg,
		deps: deps,
		now:  time.Now,
		seen: make(map[string]telemetry.Fingerprint),
	}
}

// Start primes the watcher with the current files and launches the jobs.
// They stop when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	if _, err := s.CheckFiles(ctx); err != nil {
		s.deps.Logger.Warn("initial file check failed", "error", err)
	}

	if s.cfg.CheckInterval > 0 {
		s.wg.Add(1)
		go s.watchLoop(ctx)
		s.deps.Logger.Info("file watcher started", "interval", s.cfg.CheckInterval)
	}
	if s.cfg.ReportEnabled {
		s.wg.Add(1)
		go s.reportLoop(ctx)
		s.deps.Logger.Info("daily report scheduled",
			"time", fmt.Sprintf("%02d:%02d", s.cfg.ReportHour, s.cfg.ReportMinute),
			"next", s.NextReport())
	}
}

// Stop cancels the jobs and waits for them to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) watchLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.CheckFiles(ctx); err != nil {
				s.deps.Logger.Warn("file check failed", "error", err)
			}
		}
	}
}

func (s *Scheduler) reportLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		now := s.now()
		timer := time.NewTimer(nextRun(now, s.cfg.ReportHour, s.cfg.ReportMinute, s.cfg.Location).Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if _, err := s.RunReport(ctx); err != nil {
				s.deps.Logger.Error("scheduled report failed", "error", err)
			}
		}
	}
}

// NextReport returns when the daily report will next run.
func (s *Scheduler) NextReport() time.Time {
	return nextRun(s.now(), s.cfg.ReportHour, s.cfg.ReportMinute, s.cfg.Location)
}

// nextRun returns the first hour:minute in loc strictly after now.
func nextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}
