package provider

import (
	"fmt"

	"github.com/gmarchetti/parley/internal/reliability"
)

// Capabilities, used for error attribution and metrics labels.
const (
	CapabilityCompletion = "completion"
	CapabilitySpeech     = "speech"
	CapabilityTranscribe = "transcribe"
)

// Error describes a failed provider call. Retryable is advisory only; the
// relay surfaces failures without retrying.
type Error struct {
	Capability string
	Status     int
	Retryable  bool
	Detail     string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s provider error (status %d): %s", e.Capability, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s provider error: %s", e.Capability, e.Detail)
}

func statusError(capability string, status int, detail string) *Error {
	return &Error{
		Capability: capability,
		Status:     status,
		Retryable:  reliability.IsRetryableHTTPStatus(status),
		Detail:     detail,
	}
}
