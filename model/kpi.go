// Package model - KPI snapshots and their bounded history.
package model

import "time"

// KpiSnapshot is a point-in-time count of advisories by severity band
type KpiSnapshot struct {
	Key       string         `json:"_key,omitempty"`
	RunID     string         `json:"run_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Counts    map[string]int `json:"counts"`  // band label -> advisory count
	Total     int            `json:"total"`   // sum of all bands
	ObjType   string         `json:"objtype,omitempty"`
}

// NewKpiSnapshot creates a snapshot with zeroed counts for every band
func NewKpiSnapshot(ts time.Time) *KpiSnapshot {
	counts := map[string]int{
		"NONE":     0,
		"LOW":      0,
		"MEDIUM":   0,
		"HIGH":     0,
		"CRITICAL": 0,
	}
	return &KpiSnapshot{
		Timestamp: ts,
		Counts:    counts,
		ObjType:   "KpiSnapshot",
	}
}

// KpiHistory is an ordered, append-only sequence of snapshots, oldest first.
// Depth bounding and gap-based replacement live in the kpi package; this type
// is the persisted shape.
type KpiHistory struct {
	Key       string         `json:"_key,omitempty"`
	Name      string         `json:"name"`
	Snapshots []*KpiSnapshot `json:"snapshots"`
	ObjType   string         `json:"objtype,omitempty"`
}

// Latest returns the most recent snapshot, or nil for an empty history
func (h *KpiHistory) Latest() *KpiSnapshot {
	if len(h.Snapshots) == 0 {
		return nil
	}
	return h.Snapshots[len(h.Snapshots)-1]
}

// Len returns the number of retained snapshots
func (h *KpiHistory) Len() int {
	return len(h.Snapshots)
}
