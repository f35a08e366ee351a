package report

import (
	"strconv"
	"strings"
	"time"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/channel"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/summary"
)

// DefaultTitle heads every report unless Context overrides it.
const DefaultTitle = "Dspx-Monitor Daily Report"

// DefaultPrecision is the number of significant digits printed.
const DefaultPrecision = 6

// TimestampLayout formats sample and generation times.
const TimestampLayout = "2006-01-02 15:04:05"

// Context carries what the formatter cannot derive from the summary.
type Context struct {
	Title string

	// RangeLabel describes the reported window, e.g. "Last 24 hours".
	// When empty the summary's observed bounds are used.
	RangeLabel string

	GeneratedAt time.Time

	// Location renders timestamps; nil means UTC.
	Location *time.Location

	// Precision is the significant digit count; values below 1 use DefaultPrecision.
	Precision int
}

// Report is a formatted notification.
type Report struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks,omitempty"`
}

// Format renders sum.
func Format(sum summary.Summary, ctx Context) Report {
	f := newFormatter(ctx)

	groups := groupChannels(sum)

	var b strings.Builder
	b.WriteString(f.title)
	b.WriteString("\nRange: ")
	b.WriteString(f.rangeLabel(sum))
	b.WriteString("\nGenerated: ")
	b.WriteString(f.stamp(ctx.GeneratedAt))
	b.WriteString("\nSamples: ")
	b.WriteString(strconv.Itoa(sum.Observations))
	b.WriteString("\n")

	for _, g := range groups {
		b.WriteString("\n")
		b.WriteString(g.category.Title())
		b.WriteString("\n")
		for _, cs := range g.channels {
			b.WriteString(f.line(cs))
			b.WriteString("\n")
		}
	}

	return Report{
		Text:   strings.TrimRight(b.String(), "\n"),
		Blocks: f.blocks(sum, groups),
	}
}

type group struct {
	category channel.Category
	channels []summary.ChannelSummary
}

func groupChannels(sum summary.Summary) []group {
	var groups []group
	for _, cat := range channel.Categories {
		g := group{category: cat}
		for _, cs := range sum.Channels {
			if cs.Channel.Category == cat {
				g.channels = append(g.channels, cs)
			}
		}
		if len(g.channels) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

type formatter struct {
	title     string
	label     string
	loc       *time.Location
	precision int
}

func newFormatter(ctx Context) formatter {
	f := formatter{title: ctx.Title, label: ctx.RangeLabel, loc: ctx.Location, precision: ctx.Precision}
	if f.title == "" {
		f.title = DefaultTitle
	}
	if f.loc == nil {
		f.loc = time.UTC
	}
	if f.precision < 1 {
		f.precision = DefaultPrecision
	}
	return f
}

func (f formatter) rangeLabel(sum summary.Summary) string {
	if f.label != "" {
		return f.label
	}
	if sum.From.IsZero() {
		return "no observations"
	}
	return f.stamp(sum.From) + " to " + f.stamp(sum.To)
}

func (f formatter) stamp(t time.Time) string {
	return t.In(f.loc).Format(TimestampLayout)
}

func (f formatter) number(v float64) string {
	return strconv.FormatFloat(v, 'g', f.precision, 64)
}

// quantity prints v followed by unit, if any.
func (f formatter) quantity(v float64, unit string) string {
	if unit == "" {
		return f.number(v)
	}
	return f.number(v) + " " + unit
}

func (f formatter) rate(cs summary.ChannelSummary) string {
	if cs.RatePerHour == nil {
		return "undefined"
	}
	unit := cs.Channel.Unit
	if unit == "" {
		return f.number(*cs.RatePerHour) + " /h"
	}
	return f.number(*cs.RatePerHour) + " " + unit + "/h"
}

// line renders one channel:
// "<alias>: min=<v> <unit> @ <ts>, max=<v> <unit> @ <ts>, rate=<v> <unit>/h".
func (f formatter) line(cs summary.ChannelSummary) string {
	label := cs.Channel.Label()
	if !cs.HasData() {
		return label + ": no data"
	}

	unit := cs.Channel.Unit
	return label +
		": min=" + f.quantity(cs.Min.Value, unit) + " @ " + f.stamp(cs.Min.At) +
		", max=" + f.quantity(cs.Max.Value, unit) + " @ " + f.stamp(cs.Max.At) +
		", rate=" + f.rate(cs)
}
