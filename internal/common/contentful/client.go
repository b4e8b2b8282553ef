// Package contentful is a small client for the Contentful content delivery API.
package contentful

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	httpclient "kurio/internal/common/http"
	"kurio/internal/common/logger"
)

const (
	DefaultBaseURL     = "https://cdn.contentful.com"
	DefaultEnvironment = "master"

	// MaxPageSize is the largest limit the delivery API accepts.
	MaxPageSize = 1000
)

// ErrNotConfigured is returned when the space or token is missing.
var ErrNotConfigured = errors.New("contentful client is not configured")

type Config struct {
	BaseURL       string
	SpaceID       string
	DeliveryToken string
	Environment   string
	Timeout       time.Duration
}

// Sys is the system metadata shared by entries, assets and links.
type Sys struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	LinkType  string `json:"linkType,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// Entry is an entry or asset with its fields left untyped.
type Entry struct {
	Sys    Sys                    `json:"sys"`
	Fields map[string]interface{} `json:"fields"`
}

// Collection is one page of an entries query.
type Collection struct {
	Total    int     `json:"total"`
	Skip     int     `json:"skip"`
	Limit    int     `json:"limit"`
	Items    []Entry `json:"items"`
	Includes struct {
		Entry []Entry `json:"Entry"`
		Asset []Entry `json:"Asset"`
	} `json:"includes"`
}

// Query selects entries. Zero values are omitted.
type Query struct {
	ContentType string
	Order       []string
	Include     int
	Limit       int
	Skip        int
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.ContentType != "" {
		v.Set("content_type", q.ContentType)
	}
	if len(q.Order) > 0 {
		v.Set("order", strings.Join(q.Order, ","))
	}
	if q.Include > 0 {
		v.Set("include", strconv.Itoa(q.Include))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Skip > 0 {
		v.Set("skip", strconv.Itoa(q.Skip))
	}
	return v
}

type Client struct {
	http    *httpclient.Client
	baseURL string
	logger  logger.Logger
}

func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	if cfg.SpaceID == "" || cfg.DeliveryToken == "" {
		return nil, ErrNotConfigured
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = DefaultEnvironment
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	base := fmt.Sprintf("%s/spaces/%s/environments/%s",
		strings.TrimRight(cfg.BaseURL, "/"), url.PathEscape(cfg.SpaceID), url.PathEscape(cfg.Environment))

	return &Client{
		http:    httpclient.NewClient(cfg.Timeout).WithHeader("Authorization", "Bearer "+cfg.DeliveryToken),
		baseURL: base,
		logger:  log,
	}, nil
}

// Entries fetches one page and resolves links against its includes.
func (c *Client) Entries(ctx context.Context, q Query) (*Collection, error) {
	endpoint := c.baseURL + "/entries"
	if qs := q.values().Encode(); qs != "" {
		endpoint += "?" + qs
	}

	var col Collection
	if err := c.http.GetJSON(ctx, endpoint, &col); err != nil {
		return nil, fmt.Errorf("fetch entries: %w", err)
	}
	col.ResolveLinks()

	c.logger.Debug("Fetched content entries", map[string]interface{}{
		"content_type": q.ContentType,
		"total":        col.Total,
		"items":        len(col.Items),
	})
	return &col, nil
}

// AllEntries pages through every entry matching q.
func (c *Client) AllEntries(ctx context.Context, q Query) ([]Entry, error) {
	if q.Limit <= 0 || q.Limit > MaxPageSize {
		q.Limit = 100
	}

	var all []Entry
	for {
		col, err := c.Entries(ctx, q)
		if err != nil {
			return nil, err
		}
		all = append(all, col.Items...)

		q.Skip += len(col.Items)
		if len(col.Items) == 0 || q.Skip >= col.Total {
			return all, nil
		}
	}
}

// ResolveLinks replaces link objects inside item fields with the included
// entries and assets they point to. Unresolvable links are left as they are.
func (col *Collection) ResolveLinks() {
	index := make(map[string]Entry, len(col.Includes.Entry)+len(col.Includes.Asset))
	for _, e := range col.Includes.Entry {
		index["Entry:"+e.Sys.ID] = e
	}
	for _, a := range col.Includes.Asset {
		index["Asset:"+a.Sys.ID] = a
	}
	if len(index) == 0 {
		return
	}

	for i := range col.Items {
		for k, v := range col.Items[i].Fields {
			col.Items[i].Fields[k] = resolve(v, index, 0)
		}
	}
}

const maxResolveDepth = 10

func resolve(v interface{}, index map[string]Entry, depth int) interface{} {
	if depth > maxResolveDepth {
		return v
	}
	switch val := v.(type) {
	case map[string]interface{}:
		if target, ok := linkTarget(val, index); ok {
			resolvedFields := make(map[string]interface{}, len(target.Fields))
			for k, f := range target.Fields {
				resolvedFields[k] = resolve(f, index, depth+1)
			}
			return map[string]interface{}{
				"sys": map[string]interface{}{
					"id":        target.Sys.ID,
					"type":      target.Sys.Type,
					"createdAt": target.Sys.CreatedAt,
				},
				"fields": resolvedFields,
			}
		}
		out := make(map[string]interface{}, len(val))
		for k, f := range val {
			out[k] = resolve(f, index, depth+1)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, f := range val {
			out[i] = resolve(f, index, depth+1)
		}
		return out
	default:
		return v
	}
}

func linkTarget(m map[string]interface{}, index map[string]Entry) (Entry, bool) {
	sys, ok := m["sys"].(map[string]interface{})
	if !ok || sys["type"] != "Link" {
		return Entry{}, false
	}
	linkType, _ := sys["linkType"].(string)
	id, _ := sys["id"].(string)
	target, ok := index[linkType+":"+id]
	return target, ok
}
