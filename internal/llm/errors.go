package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

var (
	// ErrConfiguration means a provider's credentials or endpoint are
	// missing. The provider is never registered.
	ErrConfiguration = errors.New("provider configuration incomplete")

	// ErrTimeout means the backend did not answer within the call deadline.
	ErrTimeout = errors.New("provider call timed out")

	// ErrUnauthorized means the backend rejected the credential.
	ErrUnauthorized = errors.New("provider rejected credentials")

	// ErrUnreachable means the backend could not be reached at all.
	ErrUnreachable = errors.New("provider unreachable")

	// ErrMalformedResponse means the backend answered with an unparseable
	// or empty payload.
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrNoProvidersAvailable means the registry holds no usable adapter.
	ErrNoProvidersAvailable = errors.New("no providers available")
)

// ProviderNotFoundError reports a request for a provider name that is not
// registered, listing what is.
type ProviderNotFoundError struct {
	Name      string
	Available []string
}

func (e *ProviderNotFoundError) Error() string {
	return fmt.Sprintf("provider %q not available, available providers: [%s]",
		e.Name, strings.Join(e.Available, ", "))
}

// ExhaustedError means the fallback chain ran out of candidates. Last holds
// the final attempt's failure for diagnostics.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d providers exhausted, last error: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// wrapTransportError converts an http.Client failure into the adapter error
// taxonomy.
func wrapTransportError(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", provider, ErrTimeout, err)
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%s: %w: %v", provider, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w: %v", provider, ErrUnreachable, err)
}

// wrapStatusError converts a non-2xx backend answer into the adapter error
// taxonomy.
func wrapStatusError(provider string, status int, body []byte) error {
	detail := strings.TrimSpace(string(body))
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w: status %d: %s", provider, ErrUnauthorized, status, detail)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return fmt.Errorf("%s: %w: status %d: %s", provider, ErrTimeout, status, detail)
	}
	if status >= http.StatusInternalServerError {
		return fmt.Errorf("%s: %w: status %d: %s", provider, ErrUnreachable, status, detail)
	}
	return fmt.Errorf("%s request failed: status %d: %s", provider, status, detail)
}

// wrapDecodeError marks an unparseable provider payload.
func wrapDecodeError(provider string, err error) error {
	return fmt.Errorf("%s: %w: %v", provider, ErrMalformedResponse, err)
}
