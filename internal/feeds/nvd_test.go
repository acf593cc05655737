package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testNVDResponse = `{
  "totalResults": 1,
  "vulnerabilities": [
    {
      "cve": {
        "id": "CVE-2024-0001",
        "published": "2024-03-01T10:15:00.000",
        "descriptions": [
          {"lang": "fr", "value": "description en français"},
          {"lang": "en", "value": "a heap overflow in the parser"}
        ],
        "metrics": {
          "cvssMetricV31": [
            {"cvssData": {"baseScore": 9.8, "vectorString": "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"}}
          ],
          "cvssMetricV2": [
            {"cvssData": {"baseScore": 7.5, "vectorString": "AV:N/AC:L/Au:N/C:P/I:P/A:P"}}
          ]
        }
      }
    }
  ]
}`

func TestNVDFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("cveId") {
		case "CVE-2024-0001":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(testNVDResponse))
		case "CVE-2024-0404":
			w.WriteHeader(http.StatusNotFound)
		default:
			_, _ = w.Write([]byte(`{"totalResults": 0, "vulnerabilities": []}`))
		}
	}))
	defer server.Close()

	t.Run("prefers the v3.1 metric", func(t *testing.T) {
		source := NewNVDSource(zap.NewNop(), WithNVDBaseURL(server.URL))
		records, err := source.Fetch(context.Background(), "cve-2024-0001")
		require.NoError(t, err)
		require.Len(t, records, 1)

		record := records[0]
		assert.Equal(t, KindVulnerability, record.Kind)
		assert.Equal(t, "CVE-2024-0001", record.ID)
		require.NotNil(t, record.Score)
		assert.Equal(t, 9.8, *record.Score)
		assert.Equal(t, "a heap overflow in the parser", record.Summary)
		assert.Equal(t, time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC), record.PublishedAt)
	})

	t.Run("empty result is a not_found fetch error", func(t *testing.T) {
		source := NewNVDSource(zap.NewNop(), WithNVDBaseURL(server.URL))
		_, err := source.Fetch(context.Background(), "CVE-2024-9999")
		var fetchErr *FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, FetchNotFound, fetchErr.Kind)
	})

	t.Run("non-cve target is a parse error", func(t *testing.T) {
		source := NewNVDSource(zap.NewNop(), WithNVDBaseURL(server.URL))
		_, err := source.Fetch(context.Background(), "GHSA-xxxx")
		var parseErr *ParseError
		assert.ErrorAs(t, err, &parseErr)
	})
}

func TestBestMetric(t *testing.T) {
	t.Run("falls back through metric generations", func(t *testing.T) {
		var cve nvdCVE
		cve.Metrics.CVSSMetricV2 = []nvdMetric{{}}
		cve.Metrics.CVSSMetricV2[0].CVSSData.BaseScore = 7.5

		score, _ := bestMetric(cve)
		require.NotNil(t, score)
		assert.Equal(t, 7.5, *score)
	})

	t.Run("no metrics yields nil", func(t *testing.T) {
		score, vector := bestMetric(nvdCVE{})
		assert.Nil(t, score)
		assert.Empty(t, vector)
	})
}

func TestClassifyStatus(t *testing.T) {
	assert.Equal(t, FetchRateLimited, classifyStatus("nvd", "x", http.StatusTooManyRequests).Kind)
	assert.Equal(t, FetchRateLimited, classifyStatus("nvd", "x", http.StatusForbidden).Kind)
	assert.Equal(t, FetchNotFound, classifyStatus("nvd", "x", http.StatusNotFound).Kind)
	assert.Equal(t, FetchNotFound, classifyStatus("nvd", "x", http.StatusInternalServerError).Kind)
}
