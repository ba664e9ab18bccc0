package providers

import (
	"errors"
	"fmt"
	"net/http"
)

// Reason classifies why a provider call failed. Callers see one
// failure outcome per operation; the reason is carried for logs and
// for distinguishing "try another charger" from "try again later".
type Reason string

const (
	// ReasonUnavailable covers timeouts, transport failures and
	// upstream 5xx responses.
	ReasonUnavailable Reason = "unavailable"
	// ReasonRejected covers upstream refusals: charger busy,
	// unauthorized, conflicting state.
	ReasonRejected Reason = "rejected"
	// ReasonNotFound covers unknown station or session ids.
	ReasonNotFound Reason = "not_found"
)

// ProviderError is the single failure type surfaced by adapters.
type ProviderError struct {
	Provider string
	Op       string
	Reason   Reason
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Provider, e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Op, e.Reason)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a provider not-found failure.
func IsNotFound(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Reason == ReasonNotFound
}

// IsRejected reports whether the upstream refused the operation.
func IsRejected(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Reason == ReasonRejected
}

func newError(provider, op string, reason Reason, err error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Reason: reason, Err: err}
}

// classify maps a transport error or upstream status code to a
// ProviderError for the given provider and operation.
func classify(provider, op string, status int, err error) *ProviderError {
	if err != nil {
		return newError(provider, op, ReasonUnavailable, err)
	}
	switch {
	case status == http.StatusNotFound:
		return newError(provider, op, ReasonNotFound, fmt.Errorf("upstream status %d", status))
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusConflict:
		return newError(provider, op, ReasonRejected, fmt.Errorf("upstream status %d", status))
	default:
		return newError(provider, op, ReasonUnavailable, fmt.Errorf("upstream status %d", status))
	}
}
