package insights

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kurio/internal/common/contentful"
	apperrors "kurio/internal/common/errors"
	"kurio/internal/common/logger"
)

func entryFromJSON(t *testing.T, raw string) contentful.Entry {
	t.Helper()
	var e contentful.Entry
	require.NoError(t, json.Unmarshal([]byte(raw), &e))
	return e
}

func TestNormalize_FieldFallbacks(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		title     string
		published string
	}{
		{
			name:      "article fields",
			raw:       `{"sys":{"id":"1","createdAt":"2025-01-01"},"fields":{"article_title":"A","Title":"B","articleTimestamp":"2025-02-02"}}`,
			title:     "A",
			published: "2025-02-02",
		},
		{
			name:      "capitalised title and snake timestamp",
			raw:       `{"sys":{"id":"1","createdAt":"2025-01-01"},"fields":{"Title":"B","article_timestamp":"2025-03-03"}}`,
			title:     "B",
			published: "2025-03-03",
		},
		{
			name:      "defaults",
			raw:       `{"sys":{"id":"1","createdAt":"2025-01-01"},"fields":{}}`,
			title:     "Untitled Insight",
			published: "2025-01-01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Normalize(entryFromJSON(t, tt.raw))
			assert.Equal(t, tt.title, in.Title)
			assert.Equal(t, tt.published, in.PublishedAt)
			assert.Equal(t, "1", in.ID)
		})
	}
}

func TestNormalize_RichTextBodyAndEmbeddedPDF(t *testing.T) {
	raw := `{
	  "sys": {"id": "x"},
	  "fields": {
	    "title": "Career paths",
	    "article_Body": {
	      "nodeType": "document",
	      "content": [
	        {"nodeType": "heading-2", "content": [{"nodeType": "text", "value": "Overview"}]},
	        {"nodeType": "paragraph", "content": [
	          {"nodeType": "text", "value": "Nurses work "},
	          {"nodeType": "text", "value": "long shifts."}
	        ]},
	        {"nodeType": "unordered-list", "content": [
	          {"nodeType": "list-item", "content": [{"nodeType": "paragraph", "content": [{"nodeType": "text", "value": "Triage"}]}]}
	        ]},
	        {"nodeType": "embedded-asset-block", "data": {"target": {
	          "sys": {"id": "a"},
	          "fields": {"file": {"url": "//assets.ctfassets.net/guide.PDF", "contentType": "application/octet-stream"}}
	        }}}
	      ]
	    },
	    "bibliography": "  BLS, 2024  "
	  }
	}`

	in := Normalize(entryFromJSON(t, raw))
	assert.Equal(t, "Overview\nNurses work long shifts.\n- Triage", in.Body)
	assert.Equal(t, "BLS, 2024", in.Bibliography)
	assert.Equal(t, "https://assets.ctfassets.net/guide.PDF", in.PDFURL)
	assert.NotNil(t, in.BodyDocument)
}

func TestNormalize_PDFFromAssetField(t *testing.T) {
	raw := `{"sys":{"id":"x"},"fields":{
	  "attachments": [{"fields": {"file": {"url": "//cdn/report.bin", "contentType": "application/pdf"}}}]
	}}`
	assert.Equal(t, "https://cdn/report.bin", Normalize(entryFromJSON(t, raw)).PDFURL)
}

func TestNormalize_JSONDataTableAndDerivedFields(t *testing.T) {
	raw := `{"sys":{"id":"x"},"fields":{
	  "jsonData": [
	    {"key": "category", "value": "Health"},
	    {"key": "link", "value": "https://example.com/a"},
	    {"key": "salaries", "value": [{"role": "Nurse", "median": 81220}, {"role": "Doctor", "median": 229300, "note": "MD"}]},
	    {"key": "source", "value": "//files.example.com/data.pdf"}
	  ]
	}}`

	in := Normalize(entryFromJSON(t, raw))
	assert.Equal(t, "Health", in.Category)
	assert.Equal(t, "https://example.com/a", in.Link)
	require.NotNil(t, in.Table)
	assert.Equal(t, "salaries", in.Table.Title)
	assert.Equal(t, []string{"median", "role", "note"}, in.Table.Headers)
	assert.Len(t, in.Table.Rows, 2)
	assert.Equal(t, "https://files.example.com/data.pdf", in.PDFURL)
}

func TestNormalize_JSONDataString(t *testing.T) {
	raw := `{"sys":{"id":"x"},"fields":{"json_data":"{\"topic\":\"Tech\",\"image\":\"hero.png\"}"}}`
	in := Normalize(entryFromJSON(t, raw))
	assert.Equal(t, "Tech", in.Category)
	assert.Equal(t, "hero.png", in.HeroImage)
	assert.Nil(t, in.Table)
}

// ==========================
// Service
// ==========================

type stubSource struct {
	entries []contentful.Entry
	err     error
	query   contentful.Query
}

func (s *stubSource) AllEntries(ctx context.Context, q contentful.Query) ([]contentful.Entry, error) {
	s.query = q
	return s.entries, s.err
}

func TestService_List(t *testing.T) {
	source := &stubSource{entries: []contentful.Entry{
		{Sys: contentful.Sys{ID: "1"}, Fields: map[string]interface{}{"title": "First"}},
		{Sys: contentful.Sys{ID: "2"}, Fields: map[string]interface{}{"title": "Second"}},
	}}
	svc := NewService(source, "insight", nil, logger.NewTestLogger(t))

	got, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "First", got[0].Title)
	assert.Equal(t, contentful.Query{ContentType: "insight", Order: []string{"-sys.createdAt"}, Include: 2}, source.query)
}

func TestService_ListNotConfigured(t *testing.T) {
	_, err := NewService(nil, "insight", nil, nil).List(context.Background())
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeContentNotConfigured, stdErr.Code)

	_, err = NewService(&stubSource{}, "", nil, nil).List(context.Background())
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeContentNotConfigured, stdErr.Code)
}

func TestService_ListUpstreamFailure(t *testing.T) {
	svc := NewService(&stubSource{err: errors.New("401")}, "insight", nil, logger.NewTestLogger(t))
	_, err := svc.List(context.Background())

	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeContentRequestFailed, stdErr.Code)
}
