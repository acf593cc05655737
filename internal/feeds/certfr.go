package feeds

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vulnwatch/vintel-backend/model"
	"github.com/vulnwatch/vintel-backend/util"
)

const (
	certfrSourceName  = "certfr"
	certfrBaseURL     = "https://www.cert.ssi.gouv.fr"
	certfrFeedPath    = "/feed/"
	certfrHTTPTimeout = 30 * time.Second
	certfrRetryMax    = 3
)

// certfrRefPattern matches CERT-FR references like CERTFR-2024-AVI-0001
var certfrRefPattern = regexp.MustCompile(`(?i)CERTFR-\d{4}-(AVI|ALE|ACT|CTI)-\d{3,4}`)

// certfrPageTypes maps the reference type token to its URL path segment
var certfrPageTypes = map[string]string{
	"AVI": "avis",
	"ALE": "alerte",
	"ACT": "actualite",
	"CTI": "cti",
}

// PageParser turns a fetched CERT-FR page payload into a raw advisory
// record. It is injected so page extraction can evolve without touching the
// transport; the default understands the JSON export CERT-FR serves
// alongside every page.
type PageParser interface {
	Parse(ref string, payload []byte) (RawRecord, error)
}

// FeedItem is one entry of the CERT-FR RSS feed
type FeedItem struct {
	Ref         string
	Title       string
	Link        string
	PublishedAt time.Time
}

// rssFeed mirrors the subset of the RSS 2.0 document we consume
type rssFeed struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
}

// CERTFRSource pulls advisories from the CERT-FR publication service
type CERTFRSource struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	parser  PageParser
	logger  *zap.Logger
}

// CERTFROption customizes a CERTFRSource
type CERTFROption func(*CERTFRSource)

// WithCERTFRBaseURL overrides the service base URL, mainly for tests
func WithCERTFRBaseURL(baseURL string) CERTFROption {
	return func(s *CERTFRSource) {
		s.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithCERTFRParser swaps the page parser collaborator
func WithCERTFRParser(parser PageParser) CERTFROption {
	return func(s *CERTFRSource) {
		s.parser = parser
	}
}

// NewCERTFRSource builds a CERT-FR adapter. Requests are throttled to stay
// polite with the upstream service.
func NewCERTFRSource(logger *zap.Logger, opts ...CERTFROption) *CERTFRSource {
	s := &CERTFRSource{
		baseURL: certfrBaseURL,
		client:  newHTTPClient(certfrHTTPTimeout),
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
		parser:  &JSONPageParser{},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CERTFRSource) Name() string {
	return certfrSourceName
}

// FetchFeed pulls an RSS feed and returns the items published at or after
// since. An empty feedURL reads the service's standard feed; a zero since
// returns the whole feed.
func (s *CERTFRSource) FetchFeed(ctx context.Context, feedURL string, since time.Time) ([]FeedItem, error) {
	if feedURL == "" {
		feedURL = s.baseURL + certfrFeedPath
	}
	body, err := s.get(ctx, feedURL, "feed")
	if err != nil {
		return nil, err
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, &ParseError{Source: certfrSourceName, Target: "feed", Err: err}
	}

	items := make([]FeedItem, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		ref := certfrRefPattern.FindString(item.Link)
		if ref == "" {
			// Non-advisory feed entries (news posts) carry no reference.
			continue
		}
		published, err := parseRSSDate(item.PubDate)
		if err != nil {
			s.logger.Warn("Skipping feed item with unparseable pubDate",
				zap.String("link", item.Link), zap.Error(err))
			continue
		}
		if !since.IsZero() && published.Before(since) {
			continue
		}
		items = append(items, FeedItem{
			Ref:         strings.ToUpper(ref),
			Title:       item.Title,
			Link:        item.Link,
			PublishedAt: published,
		})
	}

	s.logger.Info("Fetched CERT-FR feed",
		zap.Int("total", len(feed.Channel.Items)), zap.Int("selected", len(items)))
	return items, nil
}

// Fetch pulls a single advisory page and returns the parsed advisory record.
// The target may be a bare CERT-FR reference or a page link containing one.
func (s *CERTFRSource) Fetch(ctx context.Context, target string) ([]RawRecord, error) {
	ref := strings.ToUpper(certfrRefPattern.FindString(target))
	if ref == "" {
		return nil, &ParseError{
			Source: certfrSourceName,
			Target: target,
			Err:    fmt.Errorf("no CERT-FR reference in target"),
		}
	}

	pageURL, err := s.refURL(ref)
	if err != nil {
		return nil, &ParseError{Source: certfrSourceName, Target: target, Err: err}
	}

	body, err := s.get(ctx, pageURL, ref)
	if err != nil {
		return nil, err
	}

	record, err := s.parser.Parse(ref, body)
	if err != nil {
		return nil, &ParseError{Source: certfrSourceName, Target: ref, Err: err}
	}
	if record.Link == "" {
		record.Link = strings.TrimSuffix(pageURL, "json/")
	}
	return []RawRecord{record}, nil
}

// refURL derives the JSON export URL from a CERT-FR reference
func (s *CERTFRSource) refURL(ref string) (string, error) {
	parts := strings.Split(ref, "-")
	if len(parts) != 4 {
		return "", fmt.Errorf("malformed reference %q", ref)
	}
	segment, ok := certfrPageTypes[parts[2]]
	if !ok {
		return "", fmt.Errorf("unknown page type %q in reference %q", parts[2], ref)
	}
	return fmt.Sprintf("%s/%s/%s/json/", s.baseURL, segment, ref), nil
}

// get performs a rate-limited GET with exponential backoff on transient
// failures. Definitive statuses (404, 429) abort the retry loop.
func (s *CERTFRSource) get(ctx context.Context, url, target string) ([]byte, error) {
	var body []byte

	operation := func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(classifyTransportError(certfrSourceName, target, err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json, application/xml")

		resp, err := s.client.Do(req)
		if err != nil {
			return classifyTransportError(certfrSourceName, target, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			fetchErr := classifyStatus(certfrSourceName, target, resp.StatusCode)
			if resp.StatusCode >= 500 {
				return fetchErr
			}
			return backoff.Permanent(fetchErr)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return classifyTransportError(certfrSourceName, target, err)
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		s.logger.Warn("Retrying CERT-FR request",
			zap.String("target", target), zap.Duration("wait", wait), zap.Error(err))
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), certfrRetryMax)
	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			fetchErr = classifyTransportError(certfrSourceName, target, err)
		}
		return nil, fetchErr
	}
	return body, nil
}

// parseRSSDate tries the date layouts observed in the CERT-FR feed
func parseRSSDate(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// JSONPageParser decodes the JSON export CERT-FR publishes for every
// advisory page.
type JSONPageParser struct{}

// certfrPage mirrors the subset of the export we consume
type certfrPage struct {
	Reference string `json:"reference"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Revisions []struct {
		Date        string `json:"revision_date"`
		Description string `json:"description"`
	} `json:"revisions"`
	CVEs []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"cves"`
	Risks []struct {
		Description string `json:"description"`
	} `json:"risks"`
	AffectedSystems []struct {
		Description string `json:"description"`
	} `json:"affected_systems"`
	Links []struct {
		URL string `json:"url"`
	} `json:"links"`
}

func (p *JSONPageParser) Parse(ref string, payload []byte) (RawRecord, error) {
	var page certfrPage
	if err := json.Unmarshal(payload, &page); err != nil {
		return RawRecord{}, fmt.Errorf("decoding page export: %w", err)
	}
	if page.Title == "" {
		return RawRecord{}, fmt.Errorf("page export has no title")
	}

	record := RawRecord{
		Kind:  KindAdvisory,
		ID:    ref,
		Title: page.Title,
		Body:  page.Content,
		Raw:   json.RawMessage(payload),
	}

	// The CVE list is authoritative when present; the body is still scanned
	// so references mentioned only in prose are not lost.
	for _, cve := range page.CVEs {
		record.Body += " " + cve.Name
	}

	if len(page.Revisions) > 0 {
		if published, err := parsePageDate(page.Revisions[0].Date); err == nil {
			record.PublishedAt = published
		}
	}

	for _, risk := range page.Risks {
		if code := RiskCode(risk.Description); code != "" {
			record.Risks = append(record.Risks, code)
		}
	}
	for _, system := range page.AffectedSystems {
		if util.IsNotEmpty(system.Description) {
			record.Products = append(record.Products, system.Description)
		}
	}
	for _, link := range page.Links {
		if util.IsNotEmpty(link.URL) {
			record.DocLinks = append(record.DocLinks, link.URL)
		}
	}
	return record, nil
}

// parsePageDate tries the date layouts observed in page exports
func parsePageDate(value string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05.000000"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// RiskCode maps a CERT-FR risk description onto its short code. Unmatched
// descriptions yield the empty string.
func RiskCode(description string) string {
	desc := strings.ToLower(description)
	switch {
	case strings.Contains(desc, "privil"):
		return model.RiskPrivilegeEscalation
	case strings.Contains(desc, "code arbitraire"), strings.Contains(desc, "code à distance"):
		return model.RiskRemoteCodeExecution
	case strings.Contains(desc, "déni de service"):
		return model.RiskDenialOfService
	case strings.Contains(desc, "contournement"):
		return model.RiskSecurityBypass
	case strings.Contains(desc, "usurpation"):
		return model.RiskSpoofing
	case strings.Contains(desc, "confidentialité"):
		return model.RiskDataDisclosure
	case strings.Contains(desc, "intégrité"):
		return model.RiskDataTampering
	case strings.Contains(desc, "injection de code indirecte"), strings.Contains(desc, "xss"):
		return model.RiskCodeInjection
	default:
		return ""
	}
}
