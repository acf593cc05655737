package util

import (
	"testing"

	"github.com/google/osv-scanner/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSemanticVersion(t *testing.T) {
	t.Run("full version", func(t *testing.T) {
		v := ParseSemanticVersion("1.2.3")
		require.NotNil(t, v)
		require.NotNil(t, v.Major)
		assert.Equal(t, 1, *v.Major)
		assert.Equal(t, 2, *v.Minor)
		assert.Equal(t, 3, *v.Patch)
	})

	t.Run("go style prefix", func(t *testing.T) {
		v := ParseSemanticVersion("go1.21.4")
		require.NotNil(t, v)
		require.NotNil(t, v.Major)
		assert.Equal(t, 1, *v.Major)
	})

	t.Run("garbage yields nil components", func(t *testing.T) {
		v := ParseSemanticVersion("not a version")
		if v != nil {
			assert.Nil(t, v.Major)
		}
	})
}

func TestIsVersionAffected(t *testing.T) {
	affected := models.Affected{
		Ranges: []models.Range{
			{
				Type: models.RangeSemVer,
				Events: []models.Event{
					{Introduced: "1.0.0"},
					{Fixed: "1.4.2"},
				},
			},
		},
	}

	assert.True(t, IsVersionAffected("1.2.0", affected))
	assert.False(t, IsVersionAffected("1.4.2", affected))
	assert.False(t, IsVersionAffected("0.9.0", affected))

	t.Run("zero introduced means from the beginning", func(t *testing.T) {
		fromStart := models.Affected{
			Ranges: []models.Range{
				{
					Type: models.RangeSemVer,
					Events: []models.Event{
						{Introduced: "0"},
						{Fixed: "2.0.0"},
					},
				},
			},
		}
		assert.True(t, IsVersionAffected("0.0.1", fromStart))
		assert.True(t, IsVersionAffected("1.9.9", fromStart))
		assert.False(t, IsVersionAffected("2.0.0", fromStart))
	})

	t.Run("explicit version list", func(t *testing.T) {
		listed := models.Affected{Versions: []string{"1.0.0", "1.0.1"}}
		assert.True(t, IsVersionAffected("1.0.1", listed))
		assert.False(t, IsVersionAffected("1.0.2", listed))
	})
}

func TestPURLHelpers(t *testing.T) {
	base, err := GetBasePURL("pkg:npm/lodash@4.17.0")
	require.NoError(t, err)
	assert.Equal(t, "pkg:npm/lodash", base)

	cleaned, err := CleanPURL("pkg:golang/github.com/foo/bar@v1.0.0?checksum=abc#v2")
	require.NoError(t, err)
	assert.Equal(t, "pkg:golang/github.com/foo/bar@v1.0.0#v2", cleaned)

	_, err = GetBasePURL("not-a-purl")
	assert.Error(t, err)
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("Multiples vulnérabilités dans OpenSSL 3.0")
	assert.Contains(t, tokens, "openssl")
	assert.Contains(t, tokens, "dans")
	assert.NotContains(t, tokens, "OpenSSL")
}
