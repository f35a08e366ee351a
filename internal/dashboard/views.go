package dashboard

import (
	"context"
	"time"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/channel"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/summary"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/telemetry"
)

// DateRange is a range rendered as YYYY-MM-DD dates.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func dateRange(r telemetry.Range) DateRange {
	return DateRange{Start: r.Start.Format(time.DateOnly), End: r.End.Format(time.DateOnly)}
}

// Failure is a date that could not be loaded.
type Failure struct {
	Date  string `json:"date"`
	Error string `json:"error"`
}

// Outcome is what every view reports about the files behind it.
type Outcome struct {
	Range    DateRange            `json:"range"`
	State    State                `json:"state"`
	Cached   bool                 `json:"cached"`
	Files    int                  `json:"files"`
	Missing  []string             `json:"missing"`
	Failures []Failure            `json:"failures"`
	Stats    telemetry.ParseStats `json:"stats"`
}

func outcomeOf(v *View) Outcome {
	o := Outcome{
		Range:    dateRange(v.Range),
		State:    v.State,
		Cached:   v.Cached,
		Files:    v.Result.Files,
		Missing:  []string{},
		Failures: []Failure{},
		Stats:    v.Result.Stats,
	}
	for _, d := range v.Result.Missing {
		o.Missing = append(o.Missing, d.Format(time.DateOnly))
	}
	for _, f := range v.Result.Failures {
		o.Failures = append(o.Failures, Failure{Date: f.Date.Format(time.DateOnly), Error: f.Err.Error()})
	}
	return o
}

// SeriesRequest selects channels for a chart. Channels wins over
// Category; with neither, every channel is returned.
type SeriesRequest struct {
	Range    telemetry.Range
	Category channel.Category
	Channels []channel.ID
}

// Column is one channel's values aligned with SeriesView.Times.
// Absent readings are null.
type Column struct {
	Channel channel.Channel `json:"channel"`
	Values  []*float64      `json:"values"`
}

// SeriesView is chart-ready data.
type SeriesView struct {
	Outcome
	Decimation telemetry.Decimation `json:"decimation"`
	Times      []time.Time          `json:"times"`
	Columns    []Column             `json:"columns"`
}

// Series returns decimated chart columns for the requested channels.
func (c *Controller) Series(ctx context.Context, req SeriesRequest) (*SeriesView, error) {
	ids, err := selectChannels(req.Category, req.Channels)
	if err != nil {
		return nil, err
	}

	v, err := c.Load(ctx, req.Range)
	if err != nil {
		return nil, err
	}

	sampled, dec := telemetry.Downsample(v.Result.Series, c.maxPoints(ids))
	out := &SeriesView{
		Outcome:    outcomeOf(v),
		Decimation: dec,
		Times:      make([]time.Time, len(sampled)),
		Columns:    make([]Column, 0, len(ids)),
	}
	for i, o := range sampled {
		out.Times[i] = o.Time
	}

	for _, id := range ids {
		ch, _ := channel.Get(id)
		col := Column{Channel: ch, Values: make([]*float64, len(sampled))}
		for i, o := range sampled {
			if r := o.Reading(id); r.Present {
				val := r.Value
				col.Values[i] = &val
			}
		}
		out.Columns = append(out.Columns, col)
	}
	return out, nil
}

// maxPoints is the decimation cap for a chart of ids.
func (c *Controller) maxPoints(ids []channel.ID) int {
	if c.cfg.ValveMaxPoints <= 0 || len(ids) == 0 {
		return c.cfg.MaxPoints
	}
	for _, id := range ids {
		if ch, ok := channel.Get(id); !ok || ch.Category != channel.CategoryValve {
			return c.cfg.MaxPoints
		}
	}
	return c.cfg.ValveMaxPoints
}

func selectChannels(cat channel.Category, ids []channel.ID) ([]channel.ID, error) {
	switch {
	case len(ids) > 0:
		return ids, nil
	case cat != "":
		if _, err := channel.ParseCategory(string(cat)); err != nil {
			return nil, err
		}
		sel := channel.ByCategory(cat)
		if len(sel) == 0 {
			return nil, ErrNoChannels
		}
		return sel, nil
	default:
		return channel.All(), nil
	}
}

// ValveState is the latest known state of one valve.
type ValveState struct {
	Channel channel.Channel `json:"channel"`
	Open    *bool           `json:"open"`
	At      *time.Time      `json:"at,omitempty"`
}

// ValvesView is the valve grid.
type ValvesView struct {
	Outcome
	Valves []ValveState `json:"valves"`
}

// Valves returns the most recent state of every valve in the range.
func (c *Controller) Valves(ctx context.Context, rng telemetry.Range) (*ValvesView, error) {
	v, err := c.Load(ctx, rng)
	if err != nil {
		return nil, err
	}

	ids := channel.ByCategory(channel.CategoryValve)
	out := &ValvesView{Outcome: outcomeOf(v), Valves: make([]ValveState, 0, len(ids))}
	for _, id := range ids {
		ch, _ := channel.Get(id)
		st := ValveState{Channel: ch}
		if pt, ok := v.Result.Series.Latest(id); ok {
			open := pt.Value != 0
			at := pt.Time
			st.Open, st.At = &open, &at
		}
		out.Valves = append(out.Valves, st)
	}
	return out, nil
}

// SummaryView is a summary over a whole range.
type SummaryView struct {
	Outcome
	Summary summary.Summary `json:"summary"`
}

// Summary computes statistics for ids over rng. Empty ids means every channel.
func (c *Controller) Summary(ctx context.Context, rng telemetry.Range, ids []channel.ID) (*SummaryView, error) {
	v, err := c.Load(ctx, rng)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		ids = channel.All()
	}
	return &SummaryView{Outcome: outcomeOf(v), Summary: summary.Calculate(v.Result.Series, ids)}, nil
}
