// Package services provides internal service implementations for the vintel backend.
package services

import (
	"context"
	"fmt"

	"github.com/arangodb/go-driver/v2/arangodb"

	"github.com/vulnwatch/vintel-backend/database"
	"github.com/vulnwatch/vintel-backend/internal/runner"
	"github.com/vulnwatch/vintel-backend/model"
	"github.com/vulnwatch/vintel-backend/util"
)

// RunService persists completed collection runs. The REST handler and any
// scheduled invocation share this path so both write identical documents.
type RunService struct {
	DB database.DBConnection
}

// PersistRun stores the advisories, vulnerability records, reference edges,
// KPI snapshot and run summary of a completed run. Documents are upserted
// keyed on their natural id, so re-running the same targets updates in
// place instead of duplicating.
func (s *RunService) PersistRun(ctx context.Context, result *runner.Result) error {
	for _, adv := range result.Set.Advisories() {
		if err := s.upsertAdvisory(ctx, adv); err != nil {
			return fmt.Errorf("persisting advisory %s: %w", adv.ID, err)
		}
	}

	for _, vuln := range result.Set.Vulnerabilities() {
		if err := s.upsertVulnerability(ctx, vuln); err != nil {
			return fmt.Errorf("persisting vulnerability %s: %w", vuln.ID, err)
		}
	}

	for _, adv := range result.Set.Advisories() {
		if err := s.linkAdvisoryToCVEs(ctx, adv); err != nil {
			return fmt.Errorf("linking advisory %s: %w", adv.ID, err)
		}
	}

	if err := s.saveRunSummary(ctx, result); err != nil {
		return fmt.Errorf("persisting run summary: %w", err)
	}
	return nil
}

// upsertAdvisory writes an advisory document keyed on its reference. The
// _key is derived from the natural id so re-runs land on the same document.
func (s *RunService) upsertAdvisory(ctx context.Context, adv *model.AdvisoryRecord) error {
	adv.Key = util.SanitizeKey(adv.ID)
	query := `
		UPSERT { id: @id }
		INSERT @doc
		UPDATE @doc
		IN advisory
	`
	bindVars := map[string]interface{}{
		"id":  adv.ID,
		"doc": adv,
	}

	cursor, err := s.DB.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return err
	}
	return cursor.Close()
}

// upsertVulnerability writes a CVE document keyed on its id. Offline records
// are authoritative, so a live record never overwrites an offline one.
func (s *RunService) upsertVulnerability(ctx context.Context, vuln *model.VulnerabilityRecord) error {
	vuln.Key = util.SanitizeKey(vuln.ID)
	query := `
		UPSERT { id: @id }
		INSERT @doc
		UPDATE (OLD.source > @doc.source ? {} : @doc)
		IN cve
	`
	bindVars := map[string]interface{}{
		"id":  vuln.ID,
		"doc": vuln,
	}

	cursor, err := s.DB.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: bindVars,
	})
	if err != nil {
		return err
	}
	return cursor.Close()
}

// linkAdvisoryToCVEs rebuilds the advisory2cve edges for one advisory. Old
// edges are removed first so reference changes between runs do not leave
// stale links behind.
func (s *RunService) linkAdvisoryToCVEs(ctx context.Context, adv *model.AdvisoryRecord) error {
	advisoryKey, err := database.FindAdvisoryByID(ctx, s.DB.Database, adv.ID)
	if err != nil {
		return err
	}
	if advisoryKey == "" {
		return fmt.Errorf("advisory %s not found after upsert", adv.ID)
	}
	advisoryID := "advisory/" + advisoryKey

	deleteQuery := `
		FOR e IN advisory2cve
			FILTER e._from == @from
			REMOVE e IN advisory2cve
	`
	cursor, err := s.DB.Database.Query(ctx, deleteQuery, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"from": advisoryID},
	})
	if err != nil {
		return err
	}
	if err := cursor.Close(); err != nil {
		return err
	}

	for _, ref := range adv.References {
		cveKey, err := database.FindVulnerabilityByID(ctx, s.DB.Database, ref)
		if err != nil {
			return err
		}
		if cveKey == "" {
			// Unresolved reference: the CVE was never fetched. The edge is
			// skipped rather than pointing at a missing document.
			continue
		}

		edge := map[string]interface{}{
			"_from": advisoryID,
			"_to":   "cve/" + cveKey,
		}
		if _, err := s.DB.Collections["advisory2cve"].CreateDocument(ctx, edge); err != nil {
			return err
		}
	}
	return nil
}

// saveRunSummary stores the run document and its KPI snapshot
func (s *RunService) saveRunSummary(ctx context.Context, result *runner.Result) error {
	runDoc := map[string]interface{}{
		"run_id":          result.RunID,
		"started_at":      result.StartedAt,
		"finished_at":     result.FinishedAt,
		"advisories":      result.Set.AdvisoryCount(),
		"vulnerabilities": result.Set.VulnerabilityCount(),
		"matched":         len(result.Advisories),
		"errors":          result.Errors,
		"objtype":         "Run",
	}
	if _, err := s.DB.Collections["run"].CreateDocument(ctx, runDoc); err != nil {
		return err
	}

	if result.Snapshot != nil {
		if _, err := s.DB.Collections["kpi"].CreateDocument(ctx, result.Snapshot); err != nil {
			return err
		}
	}
	return nil
}

// LoadHistory reads the most recent KPI snapshots back from the database,
// oldest first, bounded by depth.
func (s *RunService) LoadHistory(ctx context.Context, depth int) (*model.KpiHistory, error) {
	query := `
		FOR k IN kpi
			SORT k.timestamp DESC
			LIMIT @depth
			RETURN k
	`
	cursor, err := s.DB.Database.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"depth": depth},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var newest []*model.KpiSnapshot
	for cursor.HasMore() {
		var snap model.KpiSnapshot
		if _, err := cursor.ReadDocument(ctx, &snap); err != nil {
			return nil, err
		}
		newest = append(newest, &snap)
	}

	history := &model.KpiHistory{Name: "severity", ObjType: "KpiHistory"}
	for i := len(newest) - 1; i >= 0; i-- {
		history.Snapshots = append(history.Snapshots, newest[i])
	}
	return history, nil
}
