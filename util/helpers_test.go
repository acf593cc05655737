package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CVE-2024-0001", "CVE-2024-0001"},
		{"pkg:npm/lodash", "pkg:npm-lodash"},
		{" spaced key ", "spaced-key"},
		{"a[b](c)/d", "abc-d"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeKey(tt.in), "input %q", tt.in)
	}
}

func TestFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.txt")
	assert.False(t, FileExists(path))

	require.NoError(t, os.WriteFile(path, []byte("CVE-2024-0001 9.8\n"), 0o600))
	assert.True(t, FileExists(path))
}
