package feeds

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/vulnwatch/vintel-backend/model"
	"github.com/vulnwatch/vintel-backend/util"
)

// offlineEntry is the YAML shape of one pinned vulnerability record
type offlineEntry struct {
	ID          string   `yaml:"id"`
	Score       *float64 `yaml:"score"`
	Summary     string   `yaml:"summary"`
	PublishedAt string   `yaml:"published_at"`
}

// LoadOfflineList reads a pre-verified vulnerability list from disk. Records
// loaded here carry model.SourceOffline and take precedence over anything a
// live source later reports for the same id.
//
// Two formats are accepted, switched on the file extension: a YAML list of
// {id, score, summary, published_at} entries, or a plain text file with one
// "CVE-ID score" pair per line. Malformed entries are logged and skipped;
// only an unreadable file is fatal.
func LoadOfflineList(path string, logger *zap.Logger) ([]*model.VulnerabilityRecord, error) {
	if !util.FileExists(path) {
		return nil, fmt.Errorf("offline list %q does not exist", path)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		return loadOfflineYAML(path, logger)
	}
	return loadOfflinePlain(path, logger)
}

func loadOfflineYAML(path string, logger *zap.Logger) ([]*model.VulnerabilityRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading offline list %q: %w", path, err)
	}

	var entries []offlineEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing offline list %q: %w", path, err)
	}

	records := make([]*model.VulnerabilityRecord, 0, len(entries))
	for i, entry := range entries {
		if !util.IsValidCVEID(entry.ID) {
			logger.Warn("Skipping offline entry with invalid CVE id",
				zap.String("path", path), zap.Int("index", i), zap.String("id", entry.ID))
			continue
		}
		if entry.Score != nil && !util.IsValidCVSSScore(*entry.Score) {
			logger.Warn("Skipping offline entry with out-of-range score",
				zap.String("path", path), zap.String("id", entry.ID), zap.Float64("score", *entry.Score))
			continue
		}

		record := model.NewVulnerabilityRecord(util.NormalizeCVEID(entry.ID))
		record.Source = model.SourceOffline
		record.Score = entry.Score
		record.Summary = entry.Summary
		if record.Score != nil {
			record.Rating = util.GetSeverityRating(*record.Score)
		}
		if entry.PublishedAt != "" {
			published, err := time.Parse(time.RFC3339, entry.PublishedAt)
			if err != nil {
				logger.Warn("Skipping offline entry with unparseable published_at",
					zap.String("path", path), zap.String("id", entry.ID), zap.Error(err))
				continue
			}
			record.PublishedAt = published
		}
		records = append(records, record)
	}
	return records, nil
}

// loadOfflinePlain reads the "CVE-ID score" line format. Blank lines and
// lines starting with '#' are ignored.
func loadOfflinePlain(path string, logger *zap.Logger) ([]*model.VulnerabilityRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening offline list %q: %w", path, err)
	}
	defer file.Close()

	var records []*model.VulnerabilityRecord
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if !util.IsValidCVEID(fields[0]) {
			logger.Warn("Skipping offline line with invalid CVE id",
				zap.String("path", path), zap.Int("line", lineNo), zap.String("text", line))
			continue
		}

		record := model.NewVulnerabilityRecord(util.NormalizeCVEID(fields[0]))
		record.Source = model.SourceOffline
		if len(fields) > 1 {
			score, err := strconv.ParseFloat(fields[1], 64)
			if err != nil || !util.IsValidCVSSScore(score) {
				logger.Warn("Skipping offline line with unparseable score",
					zap.String("path", path), zap.Int("line", lineNo), zap.String("text", line))
				continue
			}
			record.Score = &score
			record.Rating = util.GetSeverityRating(score)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading offline list %q: %w", path, err)
	}
	return records, nil
}
