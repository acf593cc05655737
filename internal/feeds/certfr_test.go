package feeds

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vulnwatch/vintel-backend/model"
)

const testFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>CERT-FR</title>
    <item>
      <title>Multiples vulnérabilités dans OpenSSL</title>
      <link>https://www.cert.ssi.gouv.fr/avis/CERTFR-2024-AVI-0100/</link>
      <pubDate>Mon, 04 Mar 2024 10:00:00 +0100</pubDate>
    </item>
    <item>
      <title>Multiples vulnérabilités dans le noyau Linux</title>
      <link>https://www.cert.ssi.gouv.fr/avis/CERTFR-2024-AVI-0099/</link>
      <pubDate>Fri, 01 Mar 2024 10:00:00 +0100</pubDate>
    </item>
    <item>
      <title>Panorama de la menace</title>
      <link>https://www.cert.ssi.gouv.fr/actualite/sans-reference/</link>
      <pubDate>Fri, 01 Mar 2024 09:00:00 +0100</pubDate>
    </item>
  </channel>
</rss>`

const testPageJSON = `{
  "reference": "CERTFR-2024-AVI-0100",
  "title": "Multiples vulnérabilités dans OpenSSL",
  "content": "De multiples vulnérabilités ont été découvertes. Voir CVE-2024-0001 et CVE-2024-0002. CVE-2024-0001 est critique.",
  "revisions": [{"revision_date": "2024-03-04", "description": "Version initiale"}],
  "cves": [{"name": "CVE-2024-0003", "url": "https://nvd.nist.gov/vuln/detail/CVE-2024-0003"}],
  "risks": [
    {"description": "Exécution de code arbitraire à distance"},
    {"description": "Déni de service à distance"},
    {"description": "Quelque chose d'inconnu"}
  ],
  "affected_systems": [{"description": "OpenSSL versions antérieures à 3.0.13"}],
  "links": [{"url": "https://www.openssl.org/news/secadv/20240304.txt"}]
}`

func TestFetchFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/feed/", r.URL.Path)
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(testFeedXML))
	}))
	defer server.Close()

	source := NewCERTFRSource(zap.NewNop(), WithCERTFRBaseURL(server.URL))

	t.Run("returns referenced items only", func(t *testing.T) {
		items, err := source.FetchFeed(context.Background(), "", time.Time{})
		require.NoError(t, err)
		require.Len(t, items, 2, "entries without a reference are dropped")
		assert.Equal(t, "CERTFR-2024-AVI-0100", items[0].Ref)
		assert.Equal(t, "CERTFR-2024-AVI-0099", items[1].Ref)
	})

	t.Run("since filters by publication date", func(t *testing.T) {
		since := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
		items, err := source.FetchFeed(context.Background(), "", since)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "CERTFR-2024-AVI-0100", items[0].Ref)
	})

	t.Run("an explicit feed URL is fetched as given", func(t *testing.T) {
		alternate := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/alerts/feed/", r.URL.Path)
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(testFeedXML))
		}))
		defer alternate.Close()

		items, err := source.FetchFeed(context.Background(), alternate.URL+"/alerts/feed/", time.Time{})
		require.NoError(t, err)
		require.Len(t, items, 2)
	})
}

func TestCERTFRFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/avis/CERTFR-2024-AVI-0100/json/":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(testPageJSON))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	source := NewCERTFRSource(zap.NewNop(), WithCERTFRBaseURL(server.URL))

	t.Run("parses the advisory page", func(t *testing.T) {
		records, err := source.Fetch(context.Background(), "certfr-2024-avi-0100")
		require.NoError(t, err)
		require.Len(t, records, 1)

		record := records[0]
		assert.Equal(t, KindAdvisory, record.Kind)
		assert.Equal(t, "CERTFR-2024-AVI-0100", record.ID)
		assert.Equal(t, "Multiples vulnérabilités dans OpenSSL", record.Title)
		assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), record.PublishedAt)
		assert.Equal(t, []string{"RCE", "DOS"}, record.Risks)
		assert.Equal(t, []string{"OpenSSL versions antérieures à 3.0.13"}, record.Products)
		assert.Contains(t, record.Body, "CVE-2024-0001")
		assert.Contains(t, record.Body, "CVE-2024-0003", "the cves list is folded into the body")
	})

	t.Run("accepts a page link as target", func(t *testing.T) {
		records, err := source.Fetch(context.Background(), server.URL+"/avis/CERTFR-2024-AVI-0100/")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "CERTFR-2024-AVI-0100", records[0].ID)
	})

	t.Run("unknown reference is a parse error", func(t *testing.T) {
		_, err := source.Fetch(context.Background(), "not-a-reference")
		var parseErr *ParseError
		assert.ErrorAs(t, err, &parseErr)
	})

	t.Run("missing page is a not_found fetch error", func(t *testing.T) {
		_, err := source.Fetch(context.Background(), "CERTFR-2024-AVI-0777")
		var fetchErr *FetchError
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, FetchNotFound, fetchErr.Kind)
	})
}

func TestRiskCode(t *testing.T) {
	assert.Equal(t, model.RiskPrivilegeEscalation, RiskCode("Élévation de privilèges"))
	assert.Equal(t, model.RiskRemoteCodeExecution, RiskCode("Exécution de code arbitraire à distance"))
	assert.Equal(t, model.RiskDenialOfService, RiskCode("Déni de service à distance"))
	assert.Equal(t, model.RiskSecurityBypass, RiskCode("Contournement de la politique de sécurité"))
	assert.Equal(t, model.RiskDataDisclosure, RiskCode("Atteinte à la confidentialité des données"))
	assert.Equal(t, model.RiskDataTampering, RiskCode("Atteinte à l'intégrité des données"))
	assert.Equal(t, model.RiskCodeInjection, RiskCode("Injection de code indirecte à distance (XSS)"))
	assert.Equal(t, "", RiskCode("Quelque chose d'inconnu"))
}

func TestClassifyTransportError(t *testing.T) {
	err := classifyTransportError("certfr", "x", context.DeadlineExceeded)
	assert.Equal(t, FetchTimeout, err.Kind)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
