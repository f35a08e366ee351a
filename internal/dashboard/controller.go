package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/channel"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/telemetry"
)

// Logger defines the logging interface used by the Controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// State classifies the outcome of loading a range.
type State string

const (
	// StateOK means every date with a file parsed.
	StateOK State = "ok"
	// StatePartial means some dates failed but others produced data.
	StatePartial State = "partial"
	// StateNoData means no date in the range has observations, and none failed.
	StateNoData State = "no_data"
	// StateError means every date with a file failed to load.
	StateError State = "error"
)

func stateOf(r *telemetry.MergeResult) State {
	switch {
	case len(r.Failures) > 0 && r.Files == 0:
		return StateError
	case len(r.Failures) > 0:
		return StatePartial
	case r.Series.Len() == 0:
		return StateNoData
	default:
		return StateOK
	}
}

// ReportConfig shapes reports built by the controller.
type ReportConfig struct {
	Title     string
	Precision int

	// Window is how far back a report without an explicit range looks.
	Window time.Duration

	// Channels defaults to every temperature channel when empty.
	Channels []channel.ID
}

// Config configures a Controller.
type Config struct {
	// MaxPoints caps chart series length; 0 disables decimation.
	MaxPoints int

	// ValveMaxPoints caps series made only of valve channels. 0 means
	// MaxPoints.
	ValveMaxPoints int

	// CacheTTL is how long a merged range is reused; 0 disables caching.
	CacheTTL time.Duration

	// MaxRangeDays rejects longer ranges before any file is touched.
	MaxRangeDays int

	// Location is the site timezone used for dates.
	Location *time.Location

	Report ReportConfig
}

// Controller loads ranges through a cache and shapes them into views.
//
// All methods are safe for concurrent use.
type Controller struct {
	source telemetry.Source
	merger *telemetry.Merger
	cache  *Cache
	cfg    Config
	logger Logger
	now    func() time.Time
}

// NewController creates a Controller reading source through merger.
func NewController(source telemetry.Source, merger *telemetry.Merger, cfg Config) *Controller {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Report.Window <= 0 {
		cfg.Report.Window = 24 * time.Hour
	}
	if len(cfg.Report.Channels) == 0 {
		cfg.Report.Channels = channel.ByCategory(channel.CategoryTemperature)
	}

	c := &Controller{
		source: source,
		merger: merger,
		cfg:    cfg,
		logger: noopLogger{},
		now:    time.Now,
	}
	c.cache = NewCache(cfg.CacheTTL, func() time.Time { return c.now() })
	return c
}

// SetLogger sets the logger for the controller.
func (c *Controller) SetLogger(logger Logger) {
	c.logger = logger
}

// SetClock replaces the wall clock; it is used by tests and must be
// called before the controller is shared.
func (c *Controller) SetClock(now func() time.Time) {
	c.now = now
}

// Location returns the site timezone.
func (c *Controller) Location() *time.Location {
	return c.cfg.Location
}

// Today returns the single-day range for the current site date.
func (c *Controller) Today() telemetry.Range {
	d := telemetry.Day(c.now(), c.cfg.Location)
	return telemetry.Range{Start: d, End: d}
}

// Available returns the first and last dates with a log file.
func (c *Controller) Available() (telemetry.Range, error) {
	b, ok := c.source.(interface {
		Available() (telemetry.Range, error)
	})
	if !ok {
		return telemetry.Range{}, ErrNoDateBounds
	}
	return b.Available()
}

// View is a loaded range.
type View struct {
	Range  telemetry.Range
	State  State
	Result *telemetry.MergeResult
	Cached bool
}

// Load merges rng, serving it from cache when the files are unchanged.
//
// Returns:
//   - *View: The merged range and its state
//   - error: telemetry.ErrInvalidRange, telemetry.ErrRangeTooLarge, or ctx's error
func (c *Controller) Load(ctx context.Context, rng telemetry.Range) (*View, error) {
	rng = telemetry.Range{
		Start: telemetry.Day(rng.Start, c.cfg.Location),
		End:   telemetry.Day(rng.End, c.cfg.Location),
	}
	if err := rng.Validate(c.cfg.MaxRangeDays); err != nil {
		return nil, err
	}
	key := rng.String()

	fps, fpErr := c.fingerprints(rng)
	if fpErr == nil {
		if res, ok := c.cache.Get(key, fps); ok {
			return &View{Range: rng, State: stateOf(res), Result: res, Cached: true}, nil
		}
	} else {
		c.logger.Warn("fingerprinting range failed, bypassing cache", "range", key, "error", fpErr)
	}

	start := time.Now()
	res, err := c.merger.Merge(ctx, rng)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("range merged",
		"range", key,
		"files", res.Files,
		"missing", len(res.Missing),
		"failures", len(res.Failures),
		"observations", res.Series.Len(),
		"duration", time.Since(start),
	)
	for _, f := range res.Failures {
		c.logger.Warn("log file skipped", "date", f.Date.Format(time.DateOnly), "error", f.Err)
	}

	if fpErr == nil {
		c.cache.Put(key, fps, res)
	}
	return &View{Range: rng, State: stateOf(res), Result: res}, nil
}

// fingerprints returns per-date fingerprints, or nil when the source
// cannot provide them.
func (c *Controller) fingerprints(rng telemetry.Range) ([]telemetry.Fingerprint, error) {
	fp, ok := c.source.(telemetry.Fingerprinter)
	if !ok {
		return nil, nil
	}

	days := rng.Days()
	out := make([]telemetry.Fingerprint, len(days))
	for i, d := range days {
		f, err := fp.Fingerprint(d)
		if err != nil {
			return nil, fmt.Errorf("fingerprint %s: %w", d.Format(time.DateOnly), err)
		}
		out[i] = f
	}
	return out, nil
}

// Invalidate clears the cache and returns the number of dropped entries.
func (c *Controller) Invalidate() int {
	n := c.cache.Invalidate()
	c.logger.Info("dashboard cache cleared", "entries", n)
	return n
}

// CacheStats reports cache counters.
func (c *Controller) CacheStats() CacheStats {
	return c.cache.Stats()
}
