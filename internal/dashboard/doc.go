// Package dashboard serves merged telemetry to the web dashboard and to
// report jobs.
//
// The Controller owns the only cache in the system. Merged ranges are
// cached under the range's date bounds together with the fingerprint
// (size and modification time) of every file in it; an entry is reused
// until its TTL expires or any fingerprint changes, so a log file that
// is still being appended to is re-read on the next request after it
// grows.
//
// Every view carries a State that separates "nothing logged for this
// range" (StateNoData) from "files exist but could not be read"
// (StateError), with StatePartial when only some dates failed.
package dashboard
