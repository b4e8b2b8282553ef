package contentful

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kurio/internal/common/logger"
)

const collectionWithAsset = `{
  "total": 1, "skip": 0, "limit": 100,
  "items": [{
    "sys": {"id": "entry-1", "type": "Entry", "createdAt": "2025-03-01T10:00:00Z"},
    "fields": {
      "article_title": "Nursing shifts",
      "report": {"sys": {"type": "Link", "linkType": "Asset", "id": "asset-1"}},
      "missing": {"sys": {"type": "Link", "linkType": "Asset", "id": "nope"}}
    }
  }],
  "includes": {
    "Asset": [{
      "sys": {"id": "asset-1", "type": "Asset"},
      "fields": {"file": {"url": "//assets.ctfassets.net/report.pdf", "contentType": "application/pdf"}}
    }]
  }
}`

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL:       baseURL,
		SpaceID:       "space1",
		DeliveryToken: "token1",
		Timeout:       5 * time.Second,
	}, logger.NewTestLogger(t))
	require.NoError(t, err)
	return client
}

func TestNewClient_NotConfigured(t *testing.T) {
	_, err := NewClient(Config{SpaceID: "space"}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewClient(Config{DeliveryToken: "token"}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_EntriesBuildsQueryAndResolvesLinks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/spaces/space1/environments/master/entries", r.URL.Path)
		assert.Equal(t, "Bearer token1", r.Header.Get("Authorization"))
		assert.Equal(t, "insight", r.URL.Query().Get("content_type"))
		assert.Equal(t, "-sys.createdAt", r.URL.Query().Get("order"))
		assert.Equal(t, "2", r.URL.Query().Get("include"))
		_, _ = w.Write([]byte(collectionWithAsset))
	}))
	defer server.Close()

	col, err := newTestClient(t, server.URL).Entries(context.Background(), Query{
		ContentType: "insight",
		Order:       []string{"-sys.createdAt"},
		Include:     2,
	})
	require.NoError(t, err)
	require.Len(t, col.Items, 1)

	report, ok := col.Items[0].Fields["report"].(map[string]interface{})
	require.True(t, ok)
	fields := report["fields"].(map[string]interface{})
	file := fields["file"].(map[string]interface{})
	assert.Equal(t, "//assets.ctfassets.net/report.pdf", file["url"])

	missing := col.Items[0].Fields["missing"].(map[string]interface{})
	assert.Equal(t, "Link", missing["sys"].(map[string]interface{})["type"])
}

func TestClient_AllEntriesPaginates(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		var body string
		switch skip {
		case 0:
			body = `{"total":3,"items":[{"sys":{"id":"a"}},{"sys":{"id":"b"}}]}`
		case 2:
			body = `{"total":3,"items":[{"sys":{"id":"c"}}]}`
		default:
			t.Errorf("unexpected skip %d", skip)
		}
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	entries, err := newTestClient(t, server.URL).AllEntries(context.Background(), Query{Limit: 2})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "c", entries[2].Sys.ID)
	assert.Equal(t, 2, calls)
}

func TestClient_EntriesUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Entries(context.Background(), Query{})
	assert.Error(t, err)
}
