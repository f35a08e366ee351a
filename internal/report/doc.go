// Package report renders a summary.Summary as a chat notification.
//
// Format is a pure function: it performs no I/O and reads no clock, so the
// generation time is supplied in Context. The plain-text payload has a
// fixed shape:
//
//	Dspx-Monitor Daily Report
//	Range: 2026-06-10 15:00 to 2026-06-11 15:00
//	Generated: 2026-06-11 15:00:02
//	Samples: 2880
//
//	Temperatures
//	MC (K): min=0.0121 K @ 2026-06-11 04:12:30, max=0.0134 K @ 2026-06-10 15:00:00, rate=-5.4e-05 K/h
//	Still (K): no data
//
// Groups follow channel.Categories and are omitted when the summary has
// no channel in them. Numbers use strconv 'g' formatting with the
// configured number of significant digits, so the printed minimum and
// maximum parse back to the summary values within that precision.
//
// Report.Blocks carries the same content as Slack Block Kit blocks for
// webhooks that render them.
package report
