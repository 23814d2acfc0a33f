package filings

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that no filing exists for the requested company and year.
var ErrNotFound = errors.New("filings: not found")

// ProviderError describes a failure reported by (or while talking to) the filing provider.
type ProviderError struct {
	Op      string
	Status  string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != "" {
		return fmt.Sprintf("filings: %s: status %s: %s", e.Op, e.Status, msg)
	}
	return fmt.Sprintf("filings: %s: %s", e.Op, msg)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the call may succeed. Transport failures,
// rate limiting and maintenance windows are retryable; key and parameter errors are not.
func (e *ProviderError) Retryable() bool {
	switch e.Status {
	case "", "020", "800", "900":
		return true
	default:
		return false
	}
}

// AsProviderError unwraps err into a *ProviderError when possible.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
