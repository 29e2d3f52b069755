package customerr

import (
	"errors"
	"fmt"
)

// Kind classifies a remote store failure.
type Kind int

const (
	// Transport covers network-level failures: refused connections, timeouts.
	Transport Kind = iota
	// ServerError is any non-2xx response outside the cases below.
	ServerError
	// Unauthorized means the caller needs to re-authenticate. Never retried.
	Unauthorized
	// NotFound is terminal for single-record operations.
	NotFound
)

func (k Kind) String() string {
	switch k {
	case Transport:
		return "transport"
	case ServerError:
		return "server error"
	case Unauthorized:
		return "unauthorized"
	case NotFound:
		return "not found"
	}
	return "unknown"
}

type RemoteError struct {
	Kind   Kind
	Status int
	Err    string
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func NewRemoteError(kind Kind, status int, msg string) *RemoteError {
	return &RemoteError{Kind: kind, Status: status, Err: msg}
}

// FromStatus maps an HTTP status code to the taxonomy.
func FromStatus(status int, msg string) *RemoteError {
	switch {
	case status == 401 || status == 403:
		return NewRemoteError(Unauthorized, status, msg)
	case status == 404:
		return NewRemoteError(NotFound, status, msg)
	default:
		return NewRemoteError(ServerError, status, msg)
	}
}

func KindOf(err error) (Kind, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return 0, false
}

func IsNotFound(err error) bool {
	k, ok := KindOf(err)
	return ok && k == NotFound
}

func IsUnauthorized(err error) bool {
	k, ok := KindOf(err)
	return ok && k == Unauthorized
}

// Retryable reports whether the failure is transient and worth another
// recovery-run attempt.
func Retryable(err error) bool {
	k, ok := KindOf(err)
	if !ok {
		return false
	}
	return k == Transport || k == ServerError
}
