package market

import (
	"errors"
	"fmt"
)

// ErrNoToken is returned when an operation that requires the upstream API is
// invoked with no token configured. It is raised before any network call.
var ErrNoToken = errors.New("no api token configured")

// NotFoundError means the upstream provider does not know the symbol.
type NotFoundError struct {
	Symbol string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("symbol %q not found", e.Symbol)
}

// QuotaError is a 403-class response: the endpoint exists but the current
// plan is not entitled to it. History and change lookups react to it by
// substituting a synthetic series instead of surfacing the failure.
type QuotaError struct {
	Status int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("access denied by upstream (status %d)", e.Status)
}

// UpstreamError covers transport failures, 5xx responses and malformed
// payloads.
type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: upstream failure: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: upstream returned status %d", e.Op, e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
