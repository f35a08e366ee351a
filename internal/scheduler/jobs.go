package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/dashboard"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/notify"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/summary"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/telemetry"
)

// DataUpdate is the payload of data.updated events.
type DataUpdate struct {
	Files []string  `json:"files"`
	At    time.Time `json:"at"`
}

// ReportSummary is the retained MQTT message describing the last report.
type ReportSummary struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Label       string          `json:"label"`
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	State       dashboard.State `json:"state"`
	Summary     summary.Summary `json:"summary"`
}

// watchedRange is yesterday and today in the site timezone.
func (s *Scheduler) watchedRange() telemetry.Range {
	today := telemetry.Day(s.now(), s.cfg.Location)
	return telemetry.Range{Start: today.AddDate(0, 0, -1), End: today}
}

// CheckFiles compares the watched files with the last check and, when
// any appeared or changed, runs the refresh actions. The first call only
// records the current state.
//
// Returns:
//   - []string: Names of files that changed
//   - error: A fingerprint failure; no refresh is run then
func (s *Scheduler) CheckFiles(ctx context.Context) ([]string, error) {
	rng := s.watchedRange()

	s.mu.Lock()
	current := make(map[string]telemetry.Fingerprint, 2)
	var changed []string
	for _, d := range rng.Days() {
		fp, err := s.deps.Source.Fingerprint(d)
		if err != nil {
			s.mu.Unlock()
			return nil, fmt.Errorf("checking %s: %w", d.Format(time.DateOnly), err)
		}
		if !fp.Exists {
			continue
		}

		name := s.deps.Source.FileName(d)
		current[name] = fp
		prev, ok := s.seen[name]
		switch {
		case !ok:
			if s.primed {
				s.deps.Logger.Info("new file detected", "file", name)
				changed = append(changed, name)
			}
		case fp.Size != prev.Size || !fp.ModTime.Equal(prev.ModTime):
			s.deps.Logger.Info("file updated", "file", name, "size", fp.Size)
			changed = append(changed, name)
		}
	}
	s.seen = current
	s.primed = true
	s.mu.Unlock()

	if len(changed) > 0 {
		s.refresh(ctx, rng, changed)
	}
	return changed, nil
}

// refresh fans a data change out to the cache, subscribers and sinks.
func (s *Scheduler) refresh(ctx context.Context, rng telemetry.Range, files []string) {
	dropped := s.deps.Dashboard.Invalidate()

	update := DataUpdate{Files: files, At: s.now().UTC()}
	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.PublishJSON(s.cfg.Topics.DataUpdated(), update, false); err != nil {
			s.deps.Logger.Warn("publishing data update failed", "error", err)
		}
	}
	if s.deps.Hub != nil {
		s.deps.Hub.Broadcast(EventDataUpdated, update)
	}

	exported := 0
	if s.deps.Exporter != nil && s.deps.Exporter.Enabled() {
		v, err := s.deps.Dashboard.Load(ctx, rng)
		if err != nil {
			s.deps.Logger.Warn("loading changed files for export failed", "error", err)
		} else {
			exported = s.deps.Exporter.Export(v.Result.Series)
			s.deps.Logger.Debug("export mark advanced", "mark", s.deps.Exporter.Mark())
		}
	}

	s.deps.Logger.Info("refresh signalled", "files", files, "cache_entries_dropped", dropped, "samples_exported", exported)
}

// RunReport builds the trailing-window report and delivers it.
//
// The summary is published on the report summary topic before delivery,
// so subscribers see it even when the webhook fails.
//
// Returns:
//   - *notify.Delivery: The recorded attempt, when one was made
//   - error: ErrNoReportData, notify.ErrNotConfigured, a delivery error,
//     or a load error
func (s *Scheduler) RunReport(ctx context.Context) (*notify.Delivery, error) {
	s.deps.Logger.Info("running daily report")

	v, err := s.deps.Dashboard.BuildReport(ctx, dashboard.ReportRequest{})
	if err != nil {
		return nil, fmt.Errorf("building report: %w", err)
	}
	if v.Summary.Observations == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoReportData, v.Label)
	}

	if s.deps.Publisher != nil {
		msg := ReportSummary{
			GeneratedAt: s.now().UTC(),
			Label:       v.Label,
			From:        v.From,
			To:          v.To,
			State:       v.State,
			Summary:     v.Summary,
		}
		if err := s.deps.Publisher.PublishJSON(s.cfg.Topics.ReportSummary(), msg, true); err != nil {
			s.deps.Logger.Warn("publishing report summary failed", "error", err)
		}
	}

	if s.deps.Notifier == nil || !s.deps.Notifier.Configured() {
		return nil, notify.ErrNotConfigured
	}
	return s.deps.Notifier.Deliver(ctx, notify.Request{
		Report:     v.Report,
		Kind:       notify.KindScheduled,
		RangeStart: v.From,
		RangeEnd:   v.To,
	})
}
