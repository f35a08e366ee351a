// Package summary derives per-channel statistics from a telemetry series.
//
// Calculate makes one pass over the series per requested channel and does
// not assume the series is sorted: minimum, maximum, first and last
// samples are all chosen by comparing timestamps inside that pass. A
// series produced by telemetry.Merger is sorted, so callers may pass
// windows of it directly.
//
// Absence is a value, not a fault. A channel with no present samples has
// nil statistics ("no data"), and a rate that cannot be computed (fewer
// than two samples, or no elapsed time) is nil ("undefined"). NaN and
// infinities are never produced.
package summary
