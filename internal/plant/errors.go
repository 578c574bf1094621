package plant

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across adapters and the pipeline.
var (
	// ErrTimeout means a single network call exceeded its budget. The
	// failure is scoped to that call; siblings are unaffected.
	ErrTimeout = errors.New("request timed out")

	// ErrEmptyExtraction means a page yielded no product name after the
	// full fallback chain ran.
	ErrEmptyExtraction = errors.New("no extractable product data")

	// ErrSourceDisabled means the source's credential is not configured.
	ErrSourceDisabled = errors.New("source disabled: credential not configured")

	// ErrCanonicalUnavailable means the AI lookup failed or returned
	// unusable output.
	ErrCanonicalUnavailable = errors.New("canonical lookup unavailable")

	// ErrEmptyQuery is the only caller-visible failure of the lookup
	// entry point.
	ErrEmptyQuery = errors.New("search query required")
)

// HTTPStatusError reports a non-2xx response that did not match a
// challenge signature.
type HTTPStatusError struct {
	Status int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d", e.Status)
}

// BotBlockedError reports an anti-automation challenge page. It is
// distinct from HTTPStatusError so callers can suggest manual entry
// instead of a generic failure.
type BotBlockedError struct {
	Host string
}

func (e *BotBlockedError) Error() string {
	return fmt.Sprintf("%s is protected by bot detection and cannot be fetched automatically", e.Host)
}

// UnsupportedURLError reports a product URL whose hostname maps to no
// registered adapter.
type UnsupportedURLError struct {
	URL       string
	Supported []string
}

func (e *UnsupportedURLError) Error() string {
	return fmt.Sprintf("unsupported website %q", e.URL)
}

// SourceError ties a failure to the source that produced it.
type SourceError struct {
	Source Source
	Err    error
}

func (e SourceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Source.DisplayName(), e.Err)
}

func (e SourceError) Unwrap() error {
	return e.Err
}
