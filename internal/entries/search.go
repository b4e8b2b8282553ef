package entries

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"kurio/internal/common/database"
)

const entryMapping = `{
	"mappings": {
		"properties": {
			"id":          {"type": "keyword"},
			"job_title":   {"type": "text"},
			"typical_day": {"type": "text"},
			"category":    {"type": "keyword"},
			"image_url":   {"type": "keyword", "index": false},
			"source":      {"type": "keyword", "index": false},
			"created_at":  {"type": "date"}
		}
	}
}`

// Searcher indexes entries in Elasticsearch and runs full-text queries.
type Searcher struct {
	es    *database.ElasticsearchClient
	index string
}

func NewSearcher(es *database.ElasticsearchClient, index string) *Searcher {
	return &Searcher{es: es, index: index}
}

func (s *Searcher) EnsureIndex(ctx context.Context) error {
	return s.es.EnsureIndex(ctx, s.index, entryMapping)
}

func (s *Searcher) Index(ctx context.Context, e Entry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	client := s.es.Client
	res, err := client.Index(s.index, bytes.NewReader(body),
		client.Index.WithContext(ctx),
		client.Index.WithDocumentID(e.ID),
	)
	if err != nil {
		return fmt.Errorf("index entry %s: %w", e.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index entry %s: %s", e.ID, res.Status())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source Entry `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search matches text against job titles (boosted) and typical days.
func (s *Searcher) Search(ctx context.Context, text string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = ListLimit
	}
	query := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"job_title^2", "typical_day"},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	client := s.es.Client
	res, err := client.Search(
		client.Search.WithContext(ctx),
		client.Search.WithIndex(s.index),
		client.Search.WithBody(strings.NewReader(string(body))),
	)
	if err != nil {
		return nil, fmt.Errorf("search entries: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search entries: %s", res.Status())
	}

	var decoded searchResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]Entry, 0, len(decoded.Hits.Hits))
	for _, h := range decoded.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
