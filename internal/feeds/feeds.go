// Package feeds contains the source adapters that pull raw advisory and
// vulnerability payloads from external services. All blocking I/O for a run
// is confined to this package; adapters normalize payloads into typed raw
// records at the boundary so the core never sees upstream format drift.
package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// RecordKind discriminates the two raw record shapes
type RecordKind string

const (
	// KindAdvisory marks advisory-shaped records {id, title, body, published_at}.
	KindAdvisory RecordKind = "advisory"
	// KindVulnerability marks vulnerability-shaped records {id, severity_score?, published_at}.
	KindVulnerability RecordKind = "vulnerability"
)

// RawRecord is the normalized payload a source adapter delivers to the core
type RawRecord struct {
	Kind        RecordKind
	ID          string
	Title       string
	Body        string
	PublishedAt time.Time
	Score       *float64 // vulnerability records only; nil when unscored
	Vector      string   // CVSS vector string, when the source provides one
	Summary     string
	Packages    []string        // normalized base purls, when known
	Risks       []string        // advisory risk codes
	Products    []string        // affected products
	DocLinks    []string        // related documentation links
	Link        string          // canonical URL of the record
	Raw         json.RawMessage // original payload, retained for output formatting
}

// Source is the capability every external feed must satisfy: a one-shot,
// finite pull of raw records for a single target. Adapters own their retry
// policy; transport failure surfaces as a *FetchError.
type Source interface {
	// Name identifies the adapter in logs and error reports.
	Name() string
	// Fetch pulls the raw records for one target. The returned slice is not
	// restartable; each invocation is an independent pull.
	Fetch(ctx context.Context, target string) ([]RawRecord, error)
}

// FetchErrorKind classifies per-target transport failures
type FetchErrorKind string

const (
	// FetchTimeout - the request exceeded its deadline.
	FetchTimeout FetchErrorKind = "timeout"
	// FetchNotFound - target unreachable or empty.
	FetchNotFound FetchErrorKind = "not_found"
	// FetchRateLimited - the upstream throttled us.
	FetchRateLimited FetchErrorKind = "rate_limited"
)

// FetchError is a typed, per-target transport failure. The core treats it as
// non-fatal: the target is skipped, the error recorded, and the run
// continues with the remaining targets.
type FetchError struct {
	Kind   FetchErrorKind
	Source string
	Target string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: fetch %q failed (%s): %v", e.Source, e.Target, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError reports a malformed raw record. The offending record is
// dropped; the run continues.
type ParseError struct {
	Source string
	Target string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: malformed record for %q: %v", e.Source, e.Target, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// classifyTransportError maps a transport-level error onto a *FetchError
func classifyTransportError(source, target string, err error) *FetchError {
	kind := FetchNotFound

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = FetchTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = FetchTimeout
	}

	return &FetchError{Kind: kind, Source: source, Target: target, Err: err}
}

// classifyStatus maps an unexpected HTTP status onto a *FetchError
func classifyStatus(source, target string, status int) *FetchError {
	kind := FetchNotFound
	if status == http.StatusTooManyRequests || status == http.StatusForbidden {
		// NVD signals rate limiting with 403 as well as 429.
		kind = FetchRateLimited
	}
	return &FetchError{
		Kind:   kind,
		Source: source,
		Target: target,
		Err:    fmt.Errorf("unexpected status %d", status),
	}
}

// newHTTPClient builds the shared transport configuration for feed clients
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 90 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}
