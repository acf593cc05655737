package feeds

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vulnwatch/vintel-backend/model"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadOfflineListYAML(t *testing.T) {
	path := writeTemp(t, "cves.yaml", `
- id: CVE-2024-0001
  score: 9.8
  summary: remote code execution
  published_at: "2024-03-01T00:00:00Z"
- id: cve-2024-0002
  score: 5.0
- id: CVE-2024-0003
- id: not-a-cve
  score: 5.0
- id: CVE-2024-0004
  score: 42.0
`)

	records, err := LoadOfflineList(path, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, records, 3, "malformed entries are skipped, not fatal")

	assert.Equal(t, "CVE-2024-0001", records[0].ID)
	assert.Equal(t, model.SourceOffline, records[0].Source)
	assert.Equal(t, 9.8, records[0].ScoreValue())
	assert.Equal(t, "CRITICAL", records[0].Rating)

	assert.Equal(t, "CVE-2024-0002", records[1].ID, "ids are canonicalized")

	assert.Equal(t, "CVE-2024-0003", records[2].ID)
	assert.False(t, records[2].HasScore(), "score stays absent, not zero")
}

func TestLoadOfflineListPlain(t *testing.T) {
	path := writeTemp(t, "cves.txt", `
# pinned reference list
CVE-2024-0001 9.8
cve-2024-0002 5.0
CVE-2024-0003
garbage line
CVE-2024-0004 not-a-score
`)

	records, err := LoadOfflineList(path, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "CVE-2024-0001", records[0].ID)
	assert.Equal(t, 9.8, records[0].ScoreValue())
	assert.Equal(t, "CVE-2024-0002", records[1].ID)
	assert.False(t, records[2].HasScore())
}

func TestLoadOfflineListMissingFile(t *testing.T) {
	_, err := LoadOfflineList(filepath.Join(t.TempDir(), "absent.yaml"), zap.NewNop())
	assert.Error(t, err, "an unreadable file is fatal")
}
