package llm

import (
	"errors"
	"fmt"
)

// TransportError is a structured error for a failed exchange with the
// remote API. StatusCode is zero when the request never produced a
// usable response (connection failure, unreadable or malformed body).
type TransportError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("request failed: %v", e.Err)
	}
	return "request failed: " + e.Message
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError checks if err is a TransportError and returns it.
func IsTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
