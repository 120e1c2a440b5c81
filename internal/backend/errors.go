package backend

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by all provider clients. Anything else coming
// out of a provider is wrapped in a ProviderError and stays opaque.
var (
	// ErrAuthentication indicates a rejected or missing credential.
	ErrAuthentication = errors.New("backend authentication failed")
	// ErrRateLimit indicates the provider throttled the call.
	ErrRateLimit = errors.New("backend rate limited")
)

// ProviderError wraps an opaque provider failure with the backend id it
// came from.
type ProviderError struct {
	Backend string
	Err     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Backend, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// classifyStatus maps an HTTP status code to the shared error taxonomy.
func classifyStatus(backendID string, status int, err error) error {
	switch status {
	case 401, 403:
		return fmt.Errorf("%w: %s: %v", ErrAuthentication, backendID, err)
	case 429:
		return fmt.Errorf("%w: %s: %v", ErrRateLimit, backendID, err)
	default:
		return &ProviderError{Backend: backendID, Err: err}
	}
}
