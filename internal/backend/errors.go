package backend

import (
	"errors"
	"fmt"
)

// NetworkError indicates a transport failure: no usable response arrived
// (connection refused, timeout, unparseable body). Retrying later may succeed.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RejectedError indicates the backend answered with success:false and a
// message, e.g. the room is no longer available. Retrying unchanged will
// usually fail again.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("request rejected: %s", e.Message)
}

// IsNetworkError reports whether err is a transport-level failure
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsRejected reports whether err is a well-formed backend rejection
func IsRejected(err error) bool {
	var rejErr *RejectedError
	return errors.As(err, &rejErr)
}

// RejectionMessage returns the server-provided message for a rejection,
// or the empty string for any other error
func RejectionMessage(err error) string {
	var rejErr *RejectedError
	if errors.As(err, &rejErr) {
		return rejErr.Message
	}
	return ""
}
