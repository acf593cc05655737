// Package runner orchestrates a collection run: it validates the run
// configuration, loads the offline reference list, fans out to the feed
// adapters, correlates advisories with their referenced vulnerabilities,
// resolves max severity, applies the run filter and folds the outcome into
// the KPI history.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vulnwatch/vintel-backend/internal/feeds"
	"github.com/vulnwatch/vintel-backend/internal/filter"
	"github.com/vulnwatch/vintel-backend/internal/kpi"
	"github.com/vulnwatch/vintel-backend/internal/recordset"
	"github.com/vulnwatch/vintel-backend/internal/severity"
	"github.com/vulnwatch/vintel-backend/model"
	"github.com/vulnwatch/vintel-backend/util"
)

const (
	// ModeAdvisory runs advisory targets through the correlation pipeline.
	ModeAdvisory = "advisory"
	// ModeCVE fetches vulnerability targets directly, without advisories.
	ModeCVE = "cve"

	defaultConcurrency = 4
)

// Result is the outcome of one completed run
type Result struct {
	RunID      string
	Set        *recordset.RecordSet
	Advisories []*model.AdvisoryRecord // filtered view, arrival order
	Config     filter.Config
	Errors     []model.TargetError
	Snapshot   *model.KpiSnapshot
	StartedAt  time.Time
	FinishedAt time.Time
}

// Runner executes collection runs. It is safe for concurrent use; the KPI
// history it folds results into is guarded internally.
type Runner struct {
	certfr      *feeds.CERTFRSource
	cveSources  []feeds.Source // tried in order until one succeeds
	concurrency int
	logger      *zap.Logger

	mu      sync.Mutex
	history *kpi.History
	gap     time.Duration
}

// New builds a runner. cveSources are tried in declaration order for each
// vulnerability target, so put the preferred source first.
func New(certfr *feeds.CERTFRSource, cveSources []feeds.Source, history *kpi.History, gap time.Duration, logger *zap.Logger) *Runner {
	return &Runner{
		certfr:      certfr,
		cveSources:  cveSources,
		concurrency: defaultConcurrency,
		history:     history,
		gap:         gap,
		logger:      logger,
	}
}

// SetConcurrency bounds the number of in-flight fetches per phase
func (r *Runner) SetConcurrency(n int) {
	if n > 0 {
		r.concurrency = n
	}
}

// History returns the KPI history the runner folds results into
func (r *Runner) History() *kpi.History {
	return r.history
}

// HistoryTendency returns the trend of the last two snapshots under the
// runner lock
func (r *Runner) HistoryTendency() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.Tendency()
}

// HistoryView returns a persisted copy of the history under the runner lock
func (r *Runner) HistoryView() *model.KpiHistory {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.ToModel()
}

// Run executes one collection run. Configuration problems surface as a
// *filter.ConfigError before any fetch is attempted; per-target fetch
// failures are recorded on the result and never abort the run.
func (r *Runner) Run(ctx context.Context, req model.RunRequest) (*Result, error) {
	cfg, err := filter.ParseConfig(req.Keywords, req.DateFrom, req.DateTo)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:     uuid.NewString(),
		Set:       recordset.New(),
		Config:    cfg,
		StartedAt: time.Now(),
	}
	logger := r.logger.With(zap.String("run_id", result.RunID))

	if req.OfflineList != "" {
		offline, err := feeds.LoadOfflineList(req.OfflineList, logger)
		if err != nil {
			return nil, &filter.ConfigError{Reason: fmt.Sprintf("offline list: %v", err)}
		}
		for _, record := range offline {
			result.Set.UpsertVulnerability(record)
		}
		logger.Info("Loaded offline reference list",
			zap.String("path", req.OfflineList), zap.Int("records", len(offline)))
	}

	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = ModeAdvisory
	}

	switch mode {
	case ModeAdvisory:
		err = r.runAdvisory(ctx, req, cfg, result, logger)
	case ModeCVE:
		err = r.runCVE(ctx, req, result, logger)
	default:
		return nil, &filter.ConfigError{Reason: fmt.Sprintf("unknown mode %q", req.Mode)}
	}
	if err != nil {
		return nil, err
	}

	result.FinishedAt = time.Now()

	r.mu.Lock()
	r.history.Append(result.Snapshot, r.gap)
	r.mu.Unlock()

	logger.Info("Run complete",
		zap.String("mode", mode),
		zap.Int("advisories", result.Set.AdvisoryCount()),
		zap.Int("vulnerabilities", result.Set.VulnerabilityCount()),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)))
	return result, nil
}

// runAdvisory executes the advisory pipeline: expand the feed if requested,
// fetch each advisory, fetch the referenced vulnerabilities that the offline
// list did not cover, resolve severity and filter.
func (r *Runner) runAdvisory(ctx context.Context, req model.RunRequest, cfg filter.Config, result *Result, logger *zap.Logger) error {
	targets := append([]string(nil), req.Targets...)
	if req.Feed != "" {
		feedURL := ""
		if strings.Contains(req.Feed, "://") {
			feedURL = req.Feed
		}
		items, err := r.certfr.FetchFeed(ctx, feedURL, cfg.DateFrom)
		if err != nil {
			if recordTargetError(result, "feed", err) {
				logger.Warn("Feed expansion failed", zap.Error(err))
			} else {
				return err
			}
		}
		for _, item := range items {
			targets = append(targets, item.Ref)
		}
	}
	targets = dedupe(targets)

	// Phase one: advisories.
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)
	var mu sync.Mutex
	for _, target := range targets {
		group.Go(func() error {
			records, err := r.certfr.Fetch(gctx, target)
			if err != nil {
				mu.Lock()
				recorded := recordTargetError(result, target, err)
				mu.Unlock()
				if recorded {
					return nil
				}
				return err
			}
			for _, raw := range records {
				adv := advisoryFromRaw(raw)
				result.Set.UpsertAdvisory(adv)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	// Phase two: referenced vulnerabilities not already covered offline.
	var refs []string
	for _, adv := range result.Set.Advisories() {
		refs = append(refs, adv.References...)
	}
	missing := result.Set.MissingIDs(refs)
	logger.Info("Resolving referenced vulnerabilities",
		zap.Int("referenced", len(refs)), zap.Int("missing", len(missing)))

	group, gctx = errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)
	for _, id := range missing {
		group.Go(func() error {
			record, err := r.fetchVulnerability(gctx, id)
			if err != nil {
				mu.Lock()
				recorded := recordTargetError(result, id, err)
				mu.Unlock()
				if recorded {
					return nil
				}
				return err
			}
			result.Set.UpsertVulnerability(record)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	// Resolve severity on the full set so caches are warm before filtering.
	for _, adv := range result.Set.Advisories() {
		severity.MaxSeverity(adv, result.Set)
	}

	result.Advisories = filter.Apply(result.Set, cfg)

	collector := kpi.NewCollector(time.Now())
	if err := collector.AddAll(result.Advisories, result.Set); err != nil {
		return err
	}
	result.Snapshot = collector.Close()
	result.Snapshot.RunID = result.RunID
	return nil
}

// runCVE fetches vulnerability targets directly and aggregates their bands
func (r *Runner) runCVE(ctx context.Context, req model.RunRequest, result *Result, logger *zap.Logger) error {
	targets := dedupe(req.Targets)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)
	var mu sync.Mutex
	for _, target := range targets {
		group.Go(func() error {
			if result.Set.HasVulnerability(target) {
				// Already covered by the offline list.
				return nil
			}
			record, err := r.fetchVulnerability(gctx, target)
			if err != nil {
				mu.Lock()
				recorded := recordTargetError(result, target, err)
				mu.Unlock()
				if recorded {
					return nil
				}
				return err
			}
			result.Set.UpsertVulnerability(record)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	snapshot := model.NewKpiSnapshot(time.Now())
	for _, vuln := range result.Set.Vulnerabilities() {
		band := util.SeverityNone
		if vuln.HasScore() {
			band = util.GetSeverityRating(vuln.ScoreValue())
		}
		snapshot.Counts[band]++
		snapshot.Total++
	}
	snapshot.RunID = result.RunID
	result.Snapshot = snapshot
	return nil
}

// fetchVulnerability tries each configured vulnerability source in order and
// returns the first successful record. The last fetch error wins when every
// source fails.
func (r *Runner) fetchVulnerability(ctx context.Context, id string) (*model.VulnerabilityRecord, error) {
	var lastErr error
	for _, source := range r.cveSources {
		records, err := source.Fetch(ctx, id)
		if err != nil {
			lastErr = err
			var fetchErr *feeds.FetchError
			var parseErr *feeds.ParseError
			if errors.As(err, &fetchErr) || errors.As(err, &parseErr) {
				continue
			}
			return nil, err
		}
		for _, raw := range records {
			if raw.Kind != feeds.KindVulnerability {
				continue
			}
			return vulnerabilityFromRaw(raw), nil
		}
	}
	if lastErr == nil {
		lastErr = &feeds.FetchError{
			Kind:   feeds.FetchNotFound,
			Source: "runner",
			Target: id,
			Err:    errors.New("no vulnerability source configured"),
		}
	}
	return nil, lastErr
}

// advisoryFromRaw converts a raw advisory payload into the model record.
// References are extracted from the title and body text, deduplicated in
// first-seen order.
func advisoryFromRaw(raw feeds.RawRecord) *model.AdvisoryRecord {
	adv := model.NewAdvisoryRecord(strings.ToUpper(raw.ID))
	adv.Title = raw.Title
	adv.Link = raw.Link
	adv.PublishedAt = raw.PublishedAt
	adv.Keywords = util.Tokenize(raw.Title)
	adv.Risks = raw.Risks
	adv.Products = raw.Products
	adv.DocLinks = raw.DocLinks
	adv.Raw = raw.Raw
	adv.SetReferences(util.ExtractCVEIDs(raw.Title + " " + raw.Body))
	return adv
}

// vulnerabilityFromRaw converts a raw vulnerability payload into the model
// record. Live records never displace offline ones on upsert.
func vulnerabilityFromRaw(raw feeds.RawRecord) *model.VulnerabilityRecord {
	record := model.NewVulnerabilityRecord(util.NormalizeCVEID(raw.ID))
	record.Source = model.SourceLive
	record.Score = raw.Score
	record.Vector = raw.Vector
	record.Summary = raw.Summary
	record.PublishedAt = raw.PublishedAt
	record.Packages = raw.Packages
	record.Raw = raw.Raw
	if record.Score != nil {
		record.Rating = util.GetSeverityRating(*record.Score)
	}
	return record
}

// recordTargetError appends a typed per-target failure to the result. It
// reports false for errors that are not part of the fetch taxonomy; those
// abort the run.
func recordTargetError(result *Result, target string, err error) bool {
	var fetchErr *feeds.FetchError
	if errors.As(err, &fetchErr) {
		result.Errors = append(result.Errors, model.TargetError{
			Target: target,
			Kind:   string(fetchErr.Kind),
			Error:  fetchErr.Error(),
		})
		return true
	}
	var parseErr *feeds.ParseError
	if errors.As(err, &parseErr) {
		result.Errors = append(result.Errors, model.TargetError{
			Target: target,
			Kind:   "parse",
			Error:  parseErr.Error(),
		})
		return true
	}
	return false
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[strings.ToUpper(v)] {
			continue
		}
		seen[strings.ToUpper(v)] = true
		out = append(out, v)
	}
	return out
}
