package tsdb

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// WriteSample buffers one instrument reading as a line with a single
// "value" field, stamped with the reading's own time rather than now.
//
// Example:
//
//	client.WriteSample("dspx_reading",
//	    map[string]string{"site": "dspx", "channel": "full range"},
//	    0.0123, at)
func (c *Client) WriteSample(measurement string, tags map[string]string, value float64, at time.Time) {
	c.enqueue(formatLine(measurement, tags, value, at))
}

// formatLine renders measurement,tag=v value=<float> <unix ns>.
// Tags are sorted so output is deterministic.
func formatLine(measurement string, tags map[string]string, value float64, at time.Time) string {
	var b strings.Builder

	b.WriteString(escape(measurement, false))

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if tags[k] == "" {
			continue
		}
		b.WriteByte(',')
		b.WriteString(escape(k, true))
		b.WriteByte('=')
		b.WriteString(escape(tags[k], true))
	}

	b.WriteString(" value=")
	b.WriteString(strconv.FormatFloat(value, 'g', -1, 64))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(at.UnixNano(), 10))

	return b.String()
}

// escape backslash-escapes line protocol delimiters and strips newlines.
// Equals signs only need escaping in tag keys and values.
func escape(s string, tag bool) string {
	r := strings.NewReplacer("\n", "", "\r", "", " ", `\ `, ",", `\,`)
	s = r.Replace(s)
	if tag {
		s = strings.ReplaceAll(s, "=", `\=`)
	}
	return s
}
