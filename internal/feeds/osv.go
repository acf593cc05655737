package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/osv-scanner/pkg/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vulnwatch/vintel-backend/util"
)

const (
	osvSourceName  = "osv"
	osvBaseURL     = "https://api.osv.dev/v1/vulns/"
	osvHTTPTimeout = 30 * time.Second
	osvRetryMax    = 3
)

// OSVSource pulls vulnerability records from the OSV.dev API
type OSVSource struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// OSVOption customizes an OSVSource
type OSVOption func(*OSVSource)

// WithOSVBaseURL overrides the API base URL, mainly for tests
func WithOSVBaseURL(baseURL string) OSVOption {
	return func(s *OSVSource) {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		s.baseURL = baseURL
	}
}

// NewOSVSource builds an OSV.dev adapter
func NewOSVSource(logger *zap.Logger, opts ...OSVOption) *OSVSource {
	s := &OSVSource{
		baseURL: osvBaseURL,
		client:  newHTTPClient(osvHTTPTimeout),
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 10),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *OSVSource) Name() string {
	return osvSourceName
}

// Fetch pulls a single OSV record by id. CVE ids resolve directly since OSV
// aliases them to its native records.
func (s *OSVSource) Fetch(ctx context.Context, target string) ([]RawRecord, error) {
	id := strings.TrimSpace(target)
	if util.IsValidCVEID(id) {
		id = util.NormalizeCVEID(id)
	}
	if id == "" {
		return nil, &ParseError{
			Source: osvSourceName,
			Target: target,
			Err:    fmt.Errorf("empty id"),
		}
	}

	body, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	var vuln models.Vulnerability
	if err := json.Unmarshal(body, &vuln); err != nil {
		return nil, &ParseError{Source: osvSourceName, Target: id, Err: err}
	}

	record := RawRecord{
		Kind:        KindVulnerability,
		ID:          recordID(id, vuln),
		Summary:     vuln.Summary,
		PublishedAt: vuln.Published,
		Packages:    affectedPackages(vuln),
		Raw:         json.RawMessage(body),
	}
	record.Score, record.Vector = maxSeverityScore(vuln)
	return []RawRecord{record}, nil
}

// recordID keeps the CVE id the caller asked for when the OSV record is an
// alias, so correlation stays keyed on the advisory reference.
func recordID(requested string, vuln models.Vulnerability) string {
	if util.IsValidCVEID(requested) {
		return requested
	}
	for _, alias := range vuln.Aliases {
		if util.IsValidCVEID(alias) {
			return util.NormalizeCVEID(alias)
		}
	}
	return vuln.ID
}

// maxSeverityScore parses every CVSS vector on the record and keeps the
// highest score. Unparseable vectors are skipped; a vector scoring 0.0 still
// counts, since an explicit zero is not the same as no score.
func maxSeverityScore(vuln models.Vulnerability) (*float64, string) {
	var best *float64
	var bestVector string
	for _, severity := range vuln.Severity {
		score, err := util.ParseCVSSVector(string(severity.Score))
		if err != nil {
			continue
		}
		if best == nil || score > *best {
			value := score
			best = &value
			bestVector = string(severity.Score)
		}
	}
	return best, bestVector
}

// affectedPackages collects the distinct base purls of affected packages.
// Purls are cleaned of qualifiers first so variants of the same package
// collapse onto one identifier.
func affectedPackages(vuln models.Vulnerability) []string {
	seen := make(map[string]bool)
	var packages []string
	for _, affected := range vuln.Affected {
		cleaned, err := util.CleanPURL(affected.Package.Purl)
		if err != nil {
			continue
		}
		purl, err := util.GetBasePURL(cleaned)
		if err != nil || purl == "" || seen[purl] {
			continue
		}
		seen[purl] = true
		packages = append(packages, purl)
	}
	return packages
}

// get performs a rate-limited GET with backoff on transient failures
func (s *OSVSource) get(ctx context.Context, id string) ([]byte, error) {
	requestURL := s.baseURL + id
	var body []byte

	operation := func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(classifyTransportError(osvSourceName, id, err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return classifyTransportError(osvSourceName, id, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			fetchErr := classifyStatus(osvSourceName, id, resp.StatusCode)
			if resp.StatusCode >= 500 {
				return fetchErr
			}
			return backoff.Permanent(fetchErr)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return classifyTransportError(osvSourceName, id, err)
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		s.logger.Warn("Retrying OSV request",
			zap.String("id", id), zap.Duration("wait", wait), zap.Error(err))
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), osvRetryMax)
	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			fetchErr = classifyTransportError(osvSourceName, id, err)
		}
		return nil, fetchErr
	}
	return body, nil
}
