package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidCVEID(t *testing.T) {
	assert.True(t, IsValidCVEID("CVE-2024-1234"))
	assert.True(t, IsValidCVEID("cve-2024-1234"))
	assert.True(t, IsValidCVEID("CVE-2021-4444444"))
	assert.False(t, IsValidCVEID("CVE-2024-123"))
	assert.False(t, IsValidCVEID("CVE-24-1234"))
	assert.False(t, IsValidCVEID("GHSA-xxxx-yyyy-zzzz"))
	assert.False(t, IsValidCVEID(""))
}

func TestNormalizeCVEID(t *testing.T) {
	assert.Equal(t, "CVE-2024-1234", NormalizeCVEID("cve-2024-1234"))
	assert.Equal(t, "CVE-2024-1234", NormalizeCVEID("  CVE-2024-1234  "))
}

func TestExtractCVEIDs(t *testing.T) {
	t.Run("preserves first-seen order", func(t *testing.T) {
		text := "Fixes CVE-2024-0002, also CVE-2023-1111 and CVE-2024-0001"
		assert.Equal(t, []string{"CVE-2024-0002", "CVE-2023-1111", "CVE-2024-0001"}, ExtractCVEIDs(text))
	})

	t.Run("deduplicates case-insensitively", func(t *testing.T) {
		text := "cve-2024-1234 is the same as CVE-2024-1234"
		assert.Equal(t, []string{"CVE-2024-1234"}, ExtractCVEIDs(text))
	})

	t.Run("no matches yields nil", func(t *testing.T) {
		assert.Nil(t, ExtractCVEIDs("no vulnerability identifiers here"))
	})

	t.Run("handles long sequence numbers", func(t *testing.T) {
		assert.Equal(t, []string{"CVE-2021-4444444"}, ExtractCVEIDs("see CVE-2021-4444444"))
	})
}
