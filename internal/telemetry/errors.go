package telemetry

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord marks a file whose structure cannot be trusted.
	// The concrete error is a *MalformedRecordError.
	ErrMalformedRecord = errors.New("telemetry: malformed record")

	// ErrNotFound is returned by a Source when no file exists for a date.
	ErrNotFound = errors.New("telemetry: no data file for date")

	// ErrInvalidRange is returned when a range ends before it starts.
	ErrInvalidRange = errors.New("telemetry: range end is before start")

	// ErrRangeTooLarge is returned when a range spans more days than allowed.
	ErrRangeTooLarge = errors.New("telemetry: range too large")
)

// MalformedRecordError locates a structural problem in a log file.
type MalformedRecordError struct {
	Source string
	Line   int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("telemetry: malformed record in %s line %d: %s", e.Source, e.Line, e.Reason)
}

// Is matches ErrMalformedRecord.
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

func malformed(source string, line int, format string, args ...any) error {
	return &MalformedRecordError{Source: source, Line: line, Reason: fmt.Sprintf(format, args...)}
}
