package dashboard

import "errors"

var (
	// ErrNoDateBounds is returned when the source cannot list its dates.
	ErrNoDateBounds = errors.New("dashboard: source does not report available dates")

	// ErrInvalidDate is returned for a date that is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("dashboard: invalid date")

	// ErrNoChannels is returned when a request selects no channels.
	ErrNoChannels = errors.New("dashboard: no channels selected")
)
