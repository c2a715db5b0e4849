package models

import "errors"

var (
	// ErrNoSession indicates an operation that requires a valid session
	// ran without one. Submissions fall back to the queue on this error.
	ErrNoSession = errors.New("no active session")

	// ErrAuthRejected indicates the remote service rejected the session
	// credentials (401/403). Never retried with the same session.
	ErrAuthRejected = errors.New("authentication rejected by remote service")

	// ErrServer indicates a non-auth server-side failure (non-2xx).
	// Eligible for queueing and bounded retry.
	ErrServer = errors.New("remote service error")

	// ErrNetwork indicates a transport-level failure, including timeouts.
	// Eligible for queueing and bounded retry.
	ErrNetwork = errors.New("network error")

	// ErrSessionNotFound indicates no session record exists in storage.
	ErrSessionNotFound = errors.New("session not found")
)

// IsRetryable reports whether a delivery failure should keep the item in
// the pending queue for another attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServer) || errors.Is(err, ErrNetwork)
}
