package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSeverityRating(t *testing.T) {
	tests := []struct {
		score  float64
		rating string
	}{
		{0, SeverityNone},
		{0.1, SeverityLow},
		{3.9, SeverityLow},
		{4.0, SeverityMedium},
		{6.9, SeverityMedium},
		{7.0, SeverityHigh},
		{8.9, SeverityHigh},
		{9.0, SeverityCritical},
		{10.0, SeverityCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.rating, GetSeverityRating(tt.score), "score %.1f", tt.score)
	}
}

func TestParseCVSSVector(t *testing.T) {
	t.Run("v3.1 vector", func(t *testing.T) {
		score, err := ParseCVSSVector("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H")
		require.NoError(t, err)
		assert.InDelta(t, 9.8, score, 0.01)
	})

	t.Run("a zero score parses without error", func(t *testing.T) {
		score, err := ParseCVSSVector("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:N/I:N/A:N")
		require.NoError(t, err)
		assert.Equal(t, 0.0, score)
	})

	t.Run("garbage vector is an error", func(t *testing.T) {
		_, err := ParseCVSSVector("not-a-vector")
		assert.Error(t, err)
	})

	t.Run("empty vector is an error", func(t *testing.T) {
		_, err := ParseCVSSVector("")
		assert.Error(t, err)
	})
}

func TestIsValidCVSSScore(t *testing.T) {
	assert.True(t, IsValidCVSSScore(0))
	assert.True(t, IsValidCVSSScore(10))
	assert.False(t, IsValidCVSSScore(-0.1))
	assert.False(t, IsValidCVSSScore(10.1))
}
