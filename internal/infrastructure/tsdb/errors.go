package tsdb

import "errors"

// Sentinel errors for VictoriaMetrics operations.
var (
	// ErrConnectionFailed indicates the initial health check failed.
	ErrConnectionFailed = errors.New("tsdb: connection failed")

	// ErrWriteFailed indicates a batch POST failed.
	ErrWriteFailed = errors.New("tsdb: write failed")

	// ErrDisabled indicates the sink is disabled in config.
	ErrDisabled = errors.New("tsdb: disabled in configuration")
)
