package summary

import (
	"math"
	"time"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/channel"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/telemetry"
)

// Extremum is a value and the time it was observed.
type Extremum struct {
	Value float64   `json:"value"`
	At    time.Time `json:"at"`
}

// ChannelSummary holds the statistics for one channel. Pointer fields are
// nil when the statistic is not defined.
type ChannelSummary struct {
	Channel channel.Channel `json:"channel"`

	Min   *Extremum `json:"min"`
	Max   *Extremum `json:"max"`
	First *Extremum `json:"first"`
	Last  *Extremum `json:"last"`

	// RatePerHour is (Last-First) per hour of elapsed time.
	RatePerHour *float64 `json:"rate_per_hour"`
	Mean        *float64 `json:"mean"`

	Samples int `json:"samples"`
}

// HasData reports whether the channel had any present sample.
func (c ChannelSummary) HasData() bool {
	return c.Samples > 0
}

// Summary is the result of Calculate. It is not modified after creation.
type Summary struct {
	// From and To bound the observations the summary saw; zero when empty.
	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	// Observations is the number of rows scanned.
	Observations int `json:"observations"`

	// Channels is in the order requested.
	Channels []ChannelSummary `json:"channels"`
}

// Get returns the entry for id.
func (s Summary) Get(id channel.ID) (ChannelSummary, bool) {
	for _, c := range s.Channels {
		if c.Channel.ID == id {
			return c, true
		}
	}
	return ChannelSummary{}, false
}

// Calculate summarises the requested channels over series.
//
// Ties for minimum and maximum go to the earliest timestamp; ties for
// first and last go to the sample met first and last in series order.
// Unknown channel IDs are skipped; a nil ids slice means every channel.
func Calculate(series telemetry.Series, ids []channel.ID) Summary {
	if ids == nil {
		ids = channel.All()
	}

	out := Summary{Observations: len(series), Channels: make([]ChannelSummary, 0, len(ids))}
	for i, o := range series {
		if i == 0 || o.Time.Before(out.From) {
			out.From = o.Time
		}
		if i == 0 || o.Time.After(out.To) {
			out.To = o.Time
		}
	}

	for _, id := range ids {
		c, ok := channel.Get(id)
		if !ok {
			continue
		}
		out.Channels = append(out.Channels, calculateChannel(series, c))
	}
	return out
}

func calculateChannel(series telemetry.Series, c channel.Channel) ChannelSummary {
	cs := ChannelSummary{Channel: c}

	var (
		minE, maxE, first, last Extremum
		sum                     float64
	)
	for _, o := range series {
		r := o.Reading(c.ID)
		if !r.Present || math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			continue
		}
		e := Extremum{Value: r.Value, At: o.Time}

		if cs.Samples == 0 {
			minE, maxE, first, last = e, e, e, e
		} else {
			if e.Value < minE.Value || (e.Value == minE.Value && e.At.Before(minE.At)) {
				minE = e
			}
			if e.Value > maxE.Value || (e.Value == maxE.Value && e.At.Before(maxE.At)) {
				maxE = e
			}
			if e.At.Before(first.At) {
				first = e
			}
			if !e.At.Before(last.At) {
				last = e
			}
		}
		cs.Samples++
		sum += r.Value
	}

	if cs.Samples == 0 {
		return cs
	}

	cs.Min, cs.Max, cs.First, cs.Last = &minE, &maxE, &first, &last

	mean := sum / float64(cs.Samples)
	if !math.IsInf(mean, 0) && !math.IsNaN(mean) {
		cs.Mean = &mean
	}

	if elapsed := last.At.Sub(first.At); cs.Samples >= 2 && elapsed > 0 {
		rate := (last.Value - first.Value) / elapsed.Hours()
		if !math.IsInf(rate, 0) && !math.IsNaN(rate) {
			cs.RatePerHour = &rate
		}
	}
	return cs
}
