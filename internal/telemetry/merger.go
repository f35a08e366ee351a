package telemetry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// Range is an inclusive span of calendar dates.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Day truncates t to midnight in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Days lists every calendar date in the range, in Start's location.
func (r Range) Days() []time.Time {
	loc := r.Start.Location()
	start, end := Day(r.Start, loc), Day(r.End, loc)

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Contains reports whether t falls on one of the range's dates.
func (r Range) Contains(t time.Time) bool {
	loc := r.Start.Location()
	start := Day(r.Start, loc)
	end := Day(r.End, loc).AddDate(0, 0, 1)
	return !t.Before(start) && t.Before(end)
}

// Validate checks ordering and, when maxDays > 0, length.
func (r Range) Validate(maxDays int) error {
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: %s > %s", ErrInvalidRange,
			r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
	}
	if n := len(r.Days()); maxDays > 0 && n > maxDays {
		return fmt.Errorf("%w: %d days, limit %d", ErrRangeTooLarge, n, maxDays)
	}
	return nil
}

// String formats the range as YYYY-MM-DD..YYYY-MM-DD.
func (r Range) String() string {
	return r.Start.Format(time.DateOnly) + ".." + r.End.Format(time.DateOnly)
}

// DateFailure records a date whose file could not be read or parsed.
type DateFailure struct {
	Date time.Time
	Err  error
}

// MergeResult is a merged series plus what could not be loaded.
type MergeResult struct {
	Range  Range
	Series Series

	// Files is the number of dates that parsed successfully.
	Files int

	// Missing lists dates with no file.
	Missing []time.Time

	// Failures lists dates whose files were unreadable or malformed.
	Failures []DateFailure

	// Stats sums the per-file parse statistics.
	Stats ParseStats

	// OutOfRange counts merged rows dropped for falling outside Range,
	// as when a file's date column runs past midnight.
	OutOfRange int
}

// MergerConfig tunes a Merger.
type MergerConfig struct {
	// Parallelism bounds concurrent fetch+parse work. Values below 1 mean 1.
	Parallelism int

	// MaxRangeDays rejects longer ranges. Zero disables the check.
	MaxRangeDays int
}

// Merger loads a date range from a Source into one series.
type Merger struct {
	source Source
	parser *Parser
	cfg    MergerConfig
}

// NewMerger returns a Merger reading from source.
func NewMerger(source Source, parser *Parser, cfg MergerConfig) *Merger {
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	return &Merger{source: source, parser: parser, cfg: cfg}
}

// dayResult is one date's outcome, slotted by date index.
type dayResult struct {
	file    *ParsedFile
	missing bool
	err     error
}

// Merge fetches and parses every date in rng and merges the files.
//
// Missing dates and per-file failures do not fail the merge; they are
// reported in the result. Observations are ordered by timestamp; rows
// sharing a timestamp collapse into one, where each channel takes the
// present reading from the latest file (by date, then row) and an absent
// reading never erases an earlier present one. Rows dated outside rng are
// dropped after merging.
//
// Returns:
//   - *MergeResult: The merged series and per-date outcomes
//   - error: ErrInvalidRange, ErrRangeTooLarge, or ctx's error
func (m *Merger) Merge(ctx context.Context, rng Range) (*MergeResult, error) {
	if err := rng.Validate(m.cfg.MaxRangeDays); err != nil {
		return nil, err
	}

	days := rng.Days()
	results := make([]dayResult, len(days))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Parallelism)
	for i, day := range days {
		g.Go(func() error {
			results[i] = m.load(gctx, day)
			if errors.Is(results[i].err, context.Canceled) || errors.Is(results[i].err, context.DeadlineExceeded) {
				return results[i].err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &MergeResult{Range: rng}
	var files []*ParsedFile
	for i, r := range results {
		switch {
		case r.missing:
			out.Missing = append(out.Missing, days[i])
		case r.err != nil:
			out.Failures = append(out.Failures, DateFailure{Date: days[i], Err: r.err})
		default:
			files = append(files, r.file)
			out.Files++
			out.Stats.Rows += r.file.Stats.Rows
			out.Stats.BlankLines += r.file.Stats.BlankLines
			out.Stats.EmptyCells += r.file.Stats.EmptyCells
			out.Stats.InvalidCells += r.file.Stats.InvalidCells
		}
	}

	merged := MergeFiles(files...)
	out.Series = make(Series, 0, len(merged))
	for _, o := range merged {
		if !rng.Contains(o.Time) {
			out.OutOfRange++
			continue
		}
		out.Series = append(out.Series, o)
	}
	return out, nil
}

func (m *Merger) load(ctx context.Context, day time.Time) dayResult {
	data, err := m.source.Fetch(ctx, day)
	if errors.Is(err, ErrNotFound) {
		return dayResult{missing: true}
	}
	if err != nil {
		return dayResult{err: err}
	}

	name := day.Format(FileDateLayout)
	if ns, ok := m.source.(interface{ FileName(time.Time) string }); ok {
		name = ns.FileName(day)
	}

	file, err := m.parser.Parse(bytes.NewReader(data), day, name)
	if err != nil {
		return dayResult{err: err}
	}
	return dayResult{file: file}
}

// MergeFiles merges parsed files given in date order.
func MergeFiles(files ...*ParsedFile) Series {
	n := 0
	for _, f := range files {
		n += len(f.Observations)
	}

	all := make(Series, 0, n)
	for _, f := range files {
		all = append(all, f.Observations...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Time.Before(all[j].Time)
	})

	return collapse(all)
}

// collapse merges runs of equal timestamps in an ascending series.
// Merged rows are copies; inputs are not modified.
func collapse(s Series) Series {
	if len(s) == 0 {
		return Series{}
	}

	out := make(Series, 0, len(s))
	owned := false
	for _, o := range s {
		last := len(out) - 1
		if last < 0 || !out[last].Time.Equal(o.Time) {
			out = append(out, o)
			owned = false
			continue
		}

		if !owned {
			out[last] = out[last].clone()
			owned = true
		}
		for id, r := range o.Readings {
			if r.Present {
				out[last].Readings[id] = r
			}
		}
		for k, v := range o.Extra {
			if out[last].Extra == nil {
				out[last].Extra = make(map[string]string)
			}
			out[last].Extra[k] = v
		}
	}
	return out
}
