package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/telemetry"
)

// ParseRange parses YYYY-MM-DD bounds in loc. An empty bound takes the
// other's value; both empty means the date of now.
func ParseRange(start, end string, loc *time.Location, now time.Time) (telemetry.Range, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	switch {
	case start == "" && end == "":
		d := telemetry.Day(now, loc)
		return telemetry.Range{Start: d, End: d}, nil
	case start == "":
		start = end
	case end == "":
		end = start
	}

	s, err := time.ParseInLocation(time.DateOnly, start, loc)
	if err != nil {
		return telemetry.Range{}, fmt.Errorf("%w: start %q is not YYYY-MM-DD", ErrInvalidDate, start)
	}
	e, err := time.ParseInLocation(time.DateOnly, end, loc)
	if err != nil {
		return telemetry.Range{}, fmt.Errorf("%w: end %q is not YYYY-MM-DD", ErrInvalidDate, end)
	}

	rng := telemetry.Range{Start: s, End: e}
	if err := rng.Validate(0); err != nil {
		return telemetry.Range{}, err
	}
	return rng, nil
}
