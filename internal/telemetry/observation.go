package telemetry

import (
	"sort"
	"time"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/channel"
)

// Reading is one cell. Present is false when the cell was empty or
// unreadable; Value is meaningless then. Boolean channels store 0 or 1.
type Reading struct {
	Value   float64
	Present bool
}

// Observation is one timestamped row.
type Observation struct {
	Time time.Time

	// Readings is indexed by channel.ID and always has channel.Count() entries.
	Readings []Reading

	// Extra holds non-empty cells of columns outside the registry.
	Extra map[string]string
}

// NewObservation returns an observation with every channel absent.
func NewObservation(t time.Time) Observation {
	return Observation{Time: t, Readings: make([]Reading, channel.Count())}
}

// Reading returns the reading for id, absent when out of range.
func (o Observation) Reading(id channel.ID) Reading {
	if id < 0 || int(id) >= len(o.Readings) {
		return Reading{}
	}
	return o.Readings[id]
}

// clone copies o so merges never write into a parsed file's rows.
func (o Observation) clone() Observation {
	c := Observation{Time: o.Time, Readings: make([]Reading, len(o.Readings))}
	copy(c.Readings, o.Readings)
	if len(o.Extra) > 0 {
		c.Extra = make(map[string]string, len(o.Extra))
		for k, v := range o.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// Point is a present reading paired with its timestamp.
type Point struct {
	Time  time.Time
	Value float64
}

// Series is an ordered run of observations. Series produced by a Merger
// are strictly ascending in time.
type Series []Observation

// Len returns the number of observations.
func (s Series) Len() int {
	return len(s)
}

// Window returns the observations with from <= Time <= to.
// s must be ascending; the result shares s's backing array.
func (s Series) Window(from, to time.Time) Series {
	lo := sort.Search(len(s), func(i int) bool { return !s[i].Time.Before(from) })
	hi := sort.Search(len(s), func(i int) bool { return s[i].Time.After(to) })
	if lo >= hi {
		return Series{}
	}
	return s[lo:hi]
}

// Latest returns the most recent present reading for id.
func (s Series) Latest(id channel.ID) (Point, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if r := s[i].Reading(id); r.Present {
			return Point{Time: s[i].Time, Value: r.Value}, true
		}
	}
	return Point{}, false
}

// Values returns the present readings for id in series order.
func (s Series) Values(id channel.ID) []Point {
	var pts []Point
	for _, o := range s {
		if r := o.Reading(id); r.Present {
			pts = append(pts, Point{Time: o.Time, Value: r.Value})
		}
	}
	return pts
}

// Bounds returns the first and last timestamps.
func (s Series) Bounds() (first, last time.Time, ok bool) {
	if len(s) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return s[0].Time, s[len(s)-1].Time, true
}
