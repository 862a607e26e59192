package pushkit

import (
	"errors"
	"fmt"
)

// Sentinel errors for failures that carry no extra data. Callers match them
// with errors.Is.
var (
	// ErrInvalidConfiguration indicates an empty API key or malformed endpoint.
	ErrInvalidConfiguration = errors.New("pushkit: invalid configuration")

	// ErrInvalidCredentials indicates the backend rejected the API key (HTTP 401).
	// Retrying cannot fix a bad key, so the request is never re-issued.
	ErrInvalidCredentials = errors.New("pushkit: invalid credentials")

	// ErrTokenExpired indicates the backend considers the token expired (HTTP 403).
	ErrTokenExpired = errors.New("pushkit: token expired")

	// ErrInvalidResponse indicates a success response whose body could not be
	// decoded, or an absent body where one was required.
	ErrInvalidResponse = errors.New("pushkit: invalid response")

	// ErrTokenNotAvailable indicates a token was requested before any
	// registration succeeded.
	ErrTokenNotAvailable = errors.New("pushkit: no token available")
)

// NetworkError indicates a transport-level failure (connectivity loss,
// timeout) that persisted after the retry budget was exhausted.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("pushkit: network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError indicates a non-success HTTP status from the backend, either
// immediately (unrecognized status) or after retries were exhausted (5xx, 429).
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("pushkit: server error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("pushkit: server error: status %d: %s", e.StatusCode, e.Message)
}
