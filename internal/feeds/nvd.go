package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vulnwatch/vintel-backend/util"
)

const (
	nvdSourceName  = "nvd"
	nvdBaseURL     = "https://services.nvd.nist.gov/rest/json/cves/2.0"
	nvdHTTPTimeout = 60 * time.Second
	nvdRetryMax    = 3
	nvdDateLayout  = "2006-01-02T15:04:05.000"
)

// nvdResponse mirrors the subset of the NVD CVE API 2.0 response we consume
type nvdResponse struct {
	TotalResults    int `json:"totalResults"`
	Vulnerabilities []struct {
		CVE nvdCVE `json:"cve"`
	} `json:"vulnerabilities"`
}

type nvdCVE struct {
	ID           string `json:"id"`
	Published    string `json:"published"`
	Descriptions []struct {
		Lang  string `json:"lang"`
		Value string `json:"value"`
	} `json:"descriptions"`
	Metrics struct {
		CVSSMetricV31 []nvdMetric `json:"cvssMetricV31"`
		CVSSMetricV30 []nvdMetric `json:"cvssMetricV30"`
		CVSSMetricV2  []nvdMetric `json:"cvssMetricV2"`
	} `json:"metrics"`
}

type nvdMetric struct {
	CVSSData struct {
		BaseScore    float64 `json:"baseScore"`
		VectorString string  `json:"vectorString"`
	} `json:"cvssData"`
}

// NVDSource pulls vulnerability records from the NVD CVE API 2.0
type NVDSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NVDOption customizes an NVDSource
type NVDOption func(*NVDSource)

// WithNVDBaseURL overrides the API base URL, mainly for tests
func WithNVDBaseURL(baseURL string) NVDOption {
	return func(s *NVDSource) {
		s.baseURL = baseURL
	}
}

// WithNVDAPIKey attaches an API key, which raises the NVD rate ceiling
func WithNVDAPIKey(key string) NVDOption {
	return func(s *NVDSource) {
		s.apiKey = key
		s.limiter = rate.NewLimiter(rate.Every(time.Second), 5)
	}
}

// NewNVDSource builds an NVD adapter. Without an API key the NVD allows
// five requests per thirty seconds, so the default limiter is conservative.
func NewNVDSource(logger *zap.Logger, opts ...NVDOption) *NVDSource {
	s := &NVDSource{
		baseURL: nvdBaseURL,
		client:  newHTTPClient(nvdHTTPTimeout),
		limiter: rate.NewLimiter(rate.Every(6*time.Second), 1),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *NVDSource) Name() string {
	return nvdSourceName
}

// Fetch pulls a single CVE record by id
func (s *NVDSource) Fetch(ctx context.Context, target string) ([]RawRecord, error) {
	cveID := util.NormalizeCVEID(target)
	if !util.IsValidCVEID(cveID) {
		return nil, &ParseError{
			Source: nvdSourceName,
			Target: target,
			Err:    fmt.Errorf("not a CVE id"),
		}
	}

	body, err := s.get(ctx, cveID)
	if err != nil {
		return nil, err
	}

	var response nvdResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &ParseError{Source: nvdSourceName, Target: cveID, Err: err}
	}
	if len(response.Vulnerabilities) == 0 {
		return nil, &FetchError{
			Kind:   FetchNotFound,
			Source: nvdSourceName,
			Target: cveID,
			Err:    fmt.Errorf("no record returned"),
		}
	}

	cve := response.Vulnerabilities[0].CVE
	record := RawRecord{
		Kind:    KindVulnerability,
		ID:      util.NormalizeCVEID(cve.ID),
		Summary: englishDescription(cve),
	}
	record.Score, record.Vector = bestMetric(cve)

	if cve.Published != "" {
		published, err := time.Parse(nvdDateLayout, cve.Published)
		if err != nil {
			s.logger.Warn("Unparseable NVD published date",
				zap.String("cve", record.ID), zap.String("published", cve.Published))
		} else {
			record.PublishedAt = published
		}
	}

	if raw, err := json.Marshal(cve); err == nil {
		record.Raw = raw
	}
	return []RawRecord{record}, nil
}

// get performs a rate-limited GET with backoff on transient failures
func (s *NVDSource) get(ctx context.Context, cveID string) ([]byte, error) {
	requestURL := s.baseURL + "?cveId=" + url.QueryEscape(cveID)
	var body []byte

	operation := func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(classifyTransportError(nvdSourceName, cveID, err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if s.apiKey != "" {
			req.Header.Set("apiKey", s.apiKey)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return classifyTransportError(nvdSourceName, cveID, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			fetchErr := classifyStatus(nvdSourceName, cveID, resp.StatusCode)
			// The NVD throttles with 403/429; those are worth one more try
			// after the backoff window.
			if resp.StatusCode >= 500 || fetchErr.Kind == FetchRateLimited {
				return fetchErr
			}
			return backoff.Permanent(fetchErr)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return classifyTransportError(nvdSourceName, cveID, err)
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		s.logger.Warn("Retrying NVD request",
			zap.String("cve", cveID), zap.Duration("wait", wait), zap.Error(err))
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), nvdRetryMax)
	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			fetchErr = classifyTransportError(nvdSourceName, cveID, err)
		}
		return nil, fetchErr
	}
	return body, nil
}

// bestMetric picks the most recent CVSS generation available for a record,
// preferring v3.1 over v3.0 over v2.
func bestMetric(cve nvdCVE) (*float64, string) {
	for _, metrics := range [][]nvdMetric{
		cve.Metrics.CVSSMetricV31,
		cve.Metrics.CVSSMetricV30,
		cve.Metrics.CVSSMetricV2,
	} {
		if len(metrics) == 0 {
			continue
		}
		data := metrics[0].CVSSData
		if util.IsValidCVSSScore(data.BaseScore) {
			score := data.BaseScore
			return &score, data.VectorString
		}
	}
	return nil, ""
}

func englishDescription(cve nvdCVE) string {
	for _, desc := range cve.Descriptions {
		if desc.Lang == "en" {
			return desc.Value
		}
	}
	if len(cve.Descriptions) > 0 {
		return cve.Descriptions[0].Value
	}
	return ""
}
