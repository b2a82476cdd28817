package provider

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrMalformedData marks a payload that parsed but failed validation
// (non-monotonic dates, inverted high/low). Not retryable.
var ErrMalformedData = errors.New("malformed provider data")

// RequestError is a non-2xx response from the provider API.
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("provider API error (status %d): %s", e.StatusCode, e.Body)
}

// IsTransient reports whether an error is worth one retry: network
// failures, rate limits, and server-side errors. Malformed payloads and
// client errors are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMalformedData) {
		return false
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode == http.StatusTooManyRequests || reqErr.StatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}
