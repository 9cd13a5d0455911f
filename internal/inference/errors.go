package inference

import (
	"errors"
	"fmt"
)

// TransportError reports that the inference service could not be reached or
// answered with a non-2xx status. The body of a successful response is never
// a TransportError unless reading it fails.
type TransportError struct {
	Endpoint   string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("inference transport %s: status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("inference transport %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
