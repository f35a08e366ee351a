// Package export replays merged telemetry into time-series databases.
//
// Each present reading becomes one sample of the measurement
// "dspx_reading" tagged with site, channel, category and unit. The
// Exporter keeps a high-water mark so repeated exports of an overlapping
// window (the scheduler re-reads yesterday and today on every change)
// only forward observations newer than the last one written.
package export

import (
	"sync"
	"time"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/channel"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/telemetry"
)

// Measurement is the measurement name written for every reading.
const Measurement = "dspx_reading"

// Sink accepts samples. Implementations buffer and write asynchronously,
// so WriteSample never blocks on the network.
type Sink interface {
	WriteSample(measurement string, tags map[string]string, value float64, at time.Time)
}

// flusher is implemented by sinks that can push buffered samples now.
type flusher interface {
	Flush()
}

// Exporter forwards readings to every configured sink.
type Exporter struct {
	site  string
	sinks []Sink

	mu   sync.Mutex
	mark time.Time
}

// New returns an Exporter tagging samples with site. Nil sinks are ignored.
func New(site string, sinks ...Sink) *Exporter {
	e := &Exporter{site: site}
	for _, s := range sinks {
		if s != nil {
			e.sinks = append(e.sinks, s)
		}
	}
	return e
}

// Enabled reports whether any sink is configured.
func (e *Exporter) Enabled() bool {
	return len(e.sinks) > 0
}

// Mark returns the timestamp of the newest observation exported.
func (e *Exporter) Mark() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mark
}

// SetMark moves the high-water mark, e.g. to skip history on startup.
func (e *Exporter) SetMark(t time.Time) {
	e.mu.Lock()
	e.mark = t
	e.mu.Unlock()
}

// Export writes the readings of observations newer than the mark and
// returns the number of samples written. s must be ascending.
func (e *Exporter) Export(s telemetry.Series) int {
	if !e.Enabled() || len(s) == 0 {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tags := make([]map[string]string, channel.Count())
	for _, id := range channel.All() {
		c, _ := channel.Get(id)
		tags[id] = map[string]string{
			"site":     e.site,
			"channel":  c.Name,
			"category": string(c.Category),
			"unit":     c.Unit,
		}
	}

	written := 0
	for _, o := range s {
		if !o.Time.After(e.mark) {
			continue
		}
		for id, r := range o.Readings {
			if !r.Present {
				continue
			}
			for _, sink := range e.sinks {
				sink.WriteSample(Measurement, tags[id], r.Value, o.Time)
			}
			written++
		}
		e.mark = o.Time
	}

	if written > 0 {
		for _, sink := range e.sinks {
			if f, ok := sink.(flusher); ok {
				f.Flush()
			}
		}
	}
	return written
}
