package broker

import (
	"errors"
	"fmt"
)

var (
	// ErrBrokerUnavailable is returned when no broker endpoint is configured.
	ErrBrokerUnavailable = errors.New("broker unavailable: no endpoint configured")
	// ErrRequestFailed is returned for transport failures and error replies.
	ErrRequestFailed = errors.New("broker request failed")
)

// RequestError describes a failed broker call. It matches ErrRequestFailed
// and the underlying cause with errors.Is.
type RequestError struct {
	Command    string
	URL        string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("broker %s %s: status %d: %v", e.Command, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("broker %s %s: %v", e.Command, e.URL, e.Err)
}

// Unwrap exposes both the sentinel and the cause.
func (e *RequestError) Unwrap() []error {
	return []error{ErrRequestFailed, e.Err}
}

// statusCoder is implemented by transport errors that carry an HTTP status.
type statusCoder interface {
	HTTPStatus() int
}

func statusOf(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	return 0
}
