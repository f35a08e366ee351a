// Package telemetry reads the refrigerator's daily log files and merges
// them into time-ordered series.
//
// # Data flow
//
//	Source.Fetch(date) -> Parser.Parse -> ParsedFile
//	Merger.Merge(range) -> MergeResult{Series, Missing, Failures}
//	Downsample(series, maxPoints) -> chart-sized Series
//
// # File format
//
// One Latin-1, tab-separated file per calendar date, named MMDDYY.txt. The
// header names the columns; "heures" holds HH:MM:SS wall-clock time. Other
// columns map to channels in the channel registry; unknown columns are kept
// verbatim in Observation.Extra.
//
// # Absent values
//
// A Reading is either present with a finite value or absent. Empty cells,
// placeholders such as "--" or "nan", and unparseable numbers are absent and
// are never confused with zero.
//
// # Merging
//
// Missing dates are listed, not fatal. A file that fails to parse is
// reported in MergeResult.Failures and the remaining files still merge.
// Rows from different files that share a timestamp collapse into one
// observation channel by channel, with later files winning.
package telemetry
