package notify

import (
	"errors"
	"fmt"
)

var (
	// ErrDeliveryFailed is returned when a message could not be delivered.
	ErrDeliveryFailed = errors.New("notify: delivery failed")

	// ErrNotConfigured is returned when no webhook URL is set.
	ErrNotConfigured = errors.New("notify: webhook not configured")
)

// maxErrorBody bounds the response body kept in a DeliveryError.
const maxErrorBody = 512

// DeliveryError is a non-2xx webhook response.
type DeliveryError struct {
	StatusCode int
	Body       string // first 512 bytes
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("notify: webhook returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Is makes errors.Is(err, ErrDeliveryFailed) hold for DeliveryError.
func (e *DeliveryError) Is(target error) bool {
	return target == ErrDeliveryFailed
}
