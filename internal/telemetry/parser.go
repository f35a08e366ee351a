package telemetry

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/channel"
)

// TimeColumn is the header of the wall-clock time column.
const TimeColumn = "heures"

// dateColumns are optional per-row date columns, in preference order.
var dateColumns = []string{"date", "jour"}

var dateLayouts = []string{"2006-01-02", "01/02/2006", "01/02/06"}

var timeLayouts = []string{"15:04:05", "15:04:05.000", "15:04"}

// sentinels are placeholder strings the instrument writes for missing values.
var sentinels = map[string]bool{
	"-": true, "--": true, "nan": true, "n/a": true, "na": true,
	"null": true, "none": true, "#n/a": true, "err": true,
}

// DefaultRegressionTolerance is how far time may step back inside one file.
const DefaultRegressionTolerance = 2 * time.Minute

// Parser turns one day's tab-separated log into observations.
// A Parser holds no state between calls and is safe for concurrent use.
type Parser struct {
	// Location is the timezone of the wall-clock times in the file.
	Location *time.Location

	// RegressionTolerance bounds backwards time steps between rows.
	RegressionTolerance time.Duration
}

// NewParser returns a Parser for the given zone and tolerance.
// A nil location means time.Local.
func NewParser(loc *time.Location, tolerance time.Duration) *Parser {
	if loc == nil {
		loc = time.Local
	}
	return &Parser{Location: loc, RegressionTolerance: tolerance}
}

// ParseStats counts cells that did not yield a reading.
type ParseStats struct {
	Rows         int `json:"rows"`
	BlankLines   int `json:"blank_lines"`
	EmptyCells   int `json:"empty_cells"`
	InvalidCells int `json:"invalid_cells"`
}

// ParsedFile is the result of parsing one log file.
type ParsedFile struct {
	Source string
	Date   time.Time

	// Observations are in file row order.
	Observations []Observation

	// Columns marks, per channel.ID, whether the header contained the channel.
	Columns []bool

	// Unmapped lists header columns that match no channel.
	Unmapped []string

	Stats ParseStats
}

// column describes what one header position feeds.
type column struct {
	name    string
	channel channel.ID
	kind    channel.Kind
	mapped  bool
}

// Parse reads a log file for the calendar date.
//
// The input is Latin-1. The first non-blank line is the header; it must
// contain the "heures" time column. Each following non-blank line is one
// observation whose timestamp is the row's date column when present,
// otherwise date, combined with the row's time.
//
// Cells that are empty or unreadable become absent readings and are
// counted in Stats. Structural problems return a *MalformedRecordError:
//   - a row with more cells than the header, unless the extras are empty
//   - a row with fewer cells than the header
//   - an unparseable time or date cell
//   - a timestamp earlier than the latest one so far by more than the tolerance
//
// Parameters:
//   - r: File contents
//   - date: Calendar date the file belongs to
//   - source: Name used in errors, usually the file name
//
// Returns:
//   - *ParsedFile: Observations and per-file metadata
//   - error: *MalformedRecordError, or a read error
func (p *Parser) Parse(r io.Reader, date time.Time, source string) (*ParsedFile, error) {
	raw, err := io.ReadAll(charmap.ISO8859_1.NewDecoder().Reader(r))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}

	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	y, m, d := date.In(loc).Date()

	out := &ParsedFile{
		Source:  source,
		Date:    time.Date(y, m, d, 0, 0, 0, 0, loc),
		Columns: make([]bool, channel.Count()),
	}

	var (
		header  []column
		timeIdx = -1
		dateIdx = -1
		hi      time.Time
	)

	lines := bytes.Split(raw, []byte("\n"))
	for i, line := range lines {
		lineNo := i + 1
		text := strings.TrimRight(string(line), "\r")
		if strings.TrimSpace(text) == "" {
			// The final empty element comes from the trailing newline.
			if i < len(lines)-1 {
				out.Stats.BlankLines++
			}
			continue
		}
		cells := splitRow(text)

		if header == nil {
			header, timeIdx, dateIdx = p.readHeader(cells, out)
			if timeIdx < 0 {
				return nil, malformed(source, lineNo, "header has no %q column", TimeColumn)
			}
			continue
		}

		cells, err := fitRow(cells, len(header))
		if err != nil {
			return nil, malformed(source, lineNo, "%v", err)
		}

		ts, err := p.rowTime(cells, timeIdx, dateIdx, y, m, d, loc)
		if err != nil {
			return nil, malformed(source, lineNo, "%v", err)
		}
		if !hi.IsZero() && hi.Sub(ts) > p.RegressionTolerance {
			return nil, malformed(source, lineNo, "time %s is %s before latest row %s",
				ts.Format("15:04:05"), hi.Sub(ts), hi.Format("15:04:05"))
		}
		if ts.After(hi) {
			hi = ts
		}

		obs := NewObservation(ts)
		for j, col := range header {
			if j == timeIdx || j == dateIdx {
				continue
			}
			cell := cells[j]
			if !col.mapped {
				if cell != "" {
					if obs.Extra == nil {
						obs.Extra = make(map[string]string)
					}
					obs.Extra[col.name] = cell
				}
				continue
			}

			reading, status := decodeCell(cell, col.kind)
			switch status {
			case cellEmpty:
				out.Stats.EmptyCells++
			case cellInvalid:
				out.Stats.InvalidCells++
			}
			obs.Readings[col.channel] = reading
		}

		out.Observations = append(out.Observations, obs)
		out.Stats.Rows++
	}

	return out, nil
}

// readHeader maps header cells to channels. A channel named twice keeps
// its first column; the duplicate is treated as unmapped. Unnamed columns
// at the end of the header are dropped.
func (p *Parser) readHeader(cells []string, out *ParsedFile) (cols []column, timeIdx, dateIdx int) {
	timeIdx, dateIdx = -1, -1
	for len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	cols = make([]column, len(cells))
	datePref := len(dateColumns)

	for i, name := range cells {
		cols[i] = column{name: name}
		lower := strings.ToLower(name)

		if lower == TimeColumn && timeIdx < 0 {
			timeIdx = i
			continue
		}
		if k := indexOf(dateColumns, lower); k >= 0 && k < datePref {
			dateIdx, datePref = i, k
			continue
		}

		c, ok := channel.Lookup(name)
		if !ok || out.Columns[c.ID] {
			if name != "" {
				out.Unmapped = append(out.Unmapped, name)
			}
			continue
		}
		cols[i] = column{name: name, channel: c.ID, kind: c.Kind, mapped: true}
		out.Columns[c.ID] = true
	}
	return cols, timeIdx, dateIdx
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

// splitRow splits on tabs and trims every cell.
func splitRow(line string) []string {
	cells := strings.Split(line, "\t")
	for i, c := range cells {
		cells[i] = strings.TrimSpace(c)
	}
	return cells
}

// fitRow checks the cell count against the header width. Trailing empty
// cells beyond the header are dropped.
func fitRow(cells []string, width int) ([]string, error) {
	if len(cells) < width {
		return nil, fmt.Errorf("row has %d cells, header has %d", len(cells), width)
	}
	for _, extra := range cells[width:] {
		if extra != "" {
			return nil, fmt.Errorf("row has %d cells, header has %d", len(cells), width)
		}
	}
	return cells[:width], nil
}

func (p *Parser) rowTime(cells []string, timeIdx, dateIdx int, y int, m time.Month, d int, loc *time.Location) (time.Time, error) {
	clock, err := parseClock(cells[timeIdx])
	if err != nil {
		return time.Time{}, err
	}

	if dateIdx >= 0 && cells[dateIdx] != "" {
		day, err := parseDate(cells[dateIdx])
		if err != nil {
			return time.Time{}, err
		}
		y, m, d = day.Date()
	}

	return time.Date(y, m, d, clock.Hour(), clock.Minute(), clock.Second(), clock.Nanosecond(), loc), nil
}

func parseClock(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unreadable time %q", s)
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unreadable date %q", s)
}

type cellStatus int

const (
	cellOK cellStatus = iota
	cellEmpty
	cellInvalid
)

// decodeCell converts one cell. Empty and sentinel cells are cellEmpty;
// anything else that does not decode is cellInvalid.
func decodeCell(cell string, kind channel.Kind) (Reading, cellStatus) {
	if cell == "" || sentinels[strings.ToLower(cell)] {
		return Reading{}, cellEmpty
	}

	if kind == channel.KindBoolean {
		switch strings.ToLower(cell) {
		case "on", "true":
			return Reading{Value: 1, Present: true}, cellOK
		case "off", "false":
			return Reading{Value: 0, Present: true}, cellOK
		}
		v, ok := ParseNumber(cell)
		if !ok || (v != 0 && v != 1) {
			return Reading{}, cellInvalid
		}
		return Reading{Value: v, Present: true}, cellOK
	}

	v, ok := ParseNumber(cell)
	if !ok {
		return Reading{}, cellInvalid
	}
	return Reading{Value: v, Present: true}, cellOK
}

// ParseNumber reads a finite float written with either a decimal point or a
// decimal comma. Spaces (including no-break spaces) are ignored. When both
// separators appear the last one is the decimal mark and the other is a
// thousands separator.
func ParseNumber(s string) (float64, bool) {
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' {
			return -1
		}
		return r
	}, s)

	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot > comma:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0 && dot >= 0:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
