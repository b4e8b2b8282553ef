// Package insights turns editorial content entries into article summaries.
package insights

import (
	"encoding/json"
	"sort"
	"strings"

	"kurio/internal/common/contentful"
)

// Insight is an editorial article ready for rendering.
type Insight struct {
	ID           string                 `json:"id"`
	Title        string                 `json:"title"`
	Body         string                 `json:"body,omitempty"`
	BodyDocument interface{}            `json:"bodyDocument,omitempty"`
	PublishedAt  string                 `json:"publishedAt,omitempty"`
	Bibliography string                 `json:"bibliography,omitempty"`
	Category     string                 `json:"category,omitempty"`
	Link         string                 `json:"link,omitempty"`
	HeroImage    string                 `json:"heroImage,omitempty"`
	Data         map[string]interface{} `json:"data,omitempty"`
	Table        *Table                 `json:"table,omitempty"`
	PDFURL       string                 `json:"pdfUrl,omitempty"`
}

// Table is tabular data found in an entry's JSON payload.
type Table struct {
	Title   string                   `json:"title,omitempty"`
	Headers []string                 `json:"headers"`
	Rows    []map[string]interface{} `json:"rows"`
}

const untitled = "Untitled Insight"

// Normalize maps an entry with loosely named fields onto an Insight.
func Normalize(entry contentful.Entry) Insight {
	fields := entry.Fields
	if fields == nil {
		fields = map[string]interface{}{}
	}

	in := Insight{
		Title:       firstString(fields, "article_title", "Title", "title"),
		PublishedAt: firstString(fields, "articleTimestamp", "article_timestamp"),
	}
	if in.Title == "" {
		in.Title = untitled
	}
	if in.PublishedAt == "" {
		in.PublishedAt = entry.Sys.CreatedAt
	}
	in.ID = entry.Sys.ID
	if in.ID == "" {
		in.ID = in.Title
	}

	body := firstValue(fields, "article_body", "article_Body")
	if body != nil {
		in.BodyDocument = body
		in.Body = PlainText(body)
	}
	if bib := fields["bibliography"]; bib != nil {
		in.Bibliography = PlainText(bib)
	}

	raw := firstValue(fields, "jsonData", "json_data")
	in.Data = normalizeKeyValue(raw)
	in.Table = findTable(raw)
	if in.Table == nil && in.Data != nil {
		in.Table = findTable(in.Data)
	}
	if in.Data != nil {
		in.Category = firstString(in.Data, "category", "topic")
		in.Link = firstString(in.Data, "link", "url")
		in.HeroImage = firstString(in.Data, "heroImage", "image")
	}

	in.PDFURL = findPDF(fields, body, raw, in.Data)
	return in
}

func firstValue(m map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil && v != "" {
			return v
		}
	}
	return nil
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// normalizeKeyValue accepts an object, a [{key, value}] list or a JSON string.
func normalizeKeyValue(v interface{}) map[string]interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return val
	case []interface{}:
		out := map[string]interface{}{}
		for _, item := range val {
			kv, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			key, hasKey := kv["key"].(string)
			value, hasValue := kv["value"]
			if hasKey && hasValue {
				out[key] = value
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case string:
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(val), &parsed); err != nil {
			return nil
		}
		return parsed
	default:
		return nil
	}
}

// findTable returns the first list of row objects, preferring rows/data/value
// lists of titled containers.
func findTable(v interface{}) *Table {
	switch val := v.(type) {
	case []interface{}:
		for _, item := range val {
			if t := tableFromContainer(item); t != nil {
				return t
			}
		}
		if t := tableFromRows(val, ""); t != nil {
			return t
		}
		for _, item := range val {
			if t := findTable(item); t != nil {
				return t
			}
		}
	case map[string]interface{}:
		if t := tableFromContainer(val); t != nil {
			return t
		}
		for _, k := range sortedKeys(val) {
			if t := findTable(val[k]); t != nil {
				return t
			}
		}
	}
	return nil
}

func tableFromContainer(v interface{}) *Table {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	title := firstString(m, "title", "heading", "label", "key")
	for _, k := range []string{"rows", "data", "value"} {
		if rows, ok := m[k].([]interface{}); ok {
			return tableFromRows(rows, title)
		}
	}
	return nil
}

func tableFromRows(rows []interface{}, title string) *Table {
	if len(rows) == 0 {
		return nil
	}
	seen := map[string]bool{}
	var headers []string
	var out []map[string]interface{}
	for _, r := range rows {
		row, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, row)
		for _, k := range sortedKeys(row) {
			if !seen[k] {
				seen[k] = true
				headers = append(headers, k)
			}
		}
	}
	if len(headers) == 0 {
		return nil
	}
	return &Table{Title: title, Headers: headers, Rows: out}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
