package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/MIT-Despereaux/Dspx-Monitor/internal/channel"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/report"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/summary"
	"github.com/MIT-Despereaux/Dspx-Monitor/internal/telemetry"
)

// ReportRequest selects what a report covers. A nil Range reports the
// configured trailing window ending now.
type ReportRequest struct {
	Range    *telemetry.Range
	Channels []channel.ID
}

// ReportView is a formatted report with the data behind it.
type ReportView struct {
	Outcome
	From    time.Time       `json:"from"`
	To      time.Time       `json:"to"`
	Label   string          `json:"label"`
	Summary summary.Summary `json:"summary"`
	Report  report.Report   `json:"report"`
}

// BuildReport loads, summarises and formats a report. It does not send it.
func (c *Controller) BuildReport(ctx context.Context, req ReportRequest) (*ReportView, error) {
	now := c.now()
	loc := c.cfg.Location

	var (
		rng      telemetry.Range
		from, to time.Time
		label    string
	)
	if req.Range != nil {
		rng = *req.Range
		from = telemetry.Day(rng.Start, loc)
		to = telemetry.Day(rng.End, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
		label = rng.String()
	} else {
		to = now
		from = now.Add(-c.cfg.Report.Window)
		rng = telemetry.Range{Start: telemetry.Day(from, loc), End: telemetry.Day(to, loc)}
		label = windowLabel(c.cfg.Report.Window)
	}

	v, err := c.Load(ctx, rng)
	if err != nil {
		return nil, err
	}

	series := v.Result.Series
	if req.Range == nil {
		series = series.Window(from, to)
	}

	ids := req.Channels
	if len(ids) == 0 {
		ids = c.cfg.Report.Channels
	}
	sum := summary.Calculate(series, ids)

	out := &ReportView{
		Outcome: outcomeOf(v),
		From:    from,
		To:      to,
		Label:   label,
		Summary: sum,
		Report: report.Format(sum, report.Context{
			Title:       c.cfg.Report.Title,
			RangeLabel:  label,
			GeneratedAt: now,
			Location:    loc,
			Precision:   c.cfg.Report.Precision,
		}),
	}
	if out.State == StateOK && series.Len() == 0 {
		out.State = StateNoData
	}
	return out, nil
}

func windowLabel(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("Last %d hours", int(d/time.Hour))
	}
	return "Last " + d.String()
}
