package entries

import (
	"context"
	"fmt"

	"kurio/internal/common/database"
)

const (
	ListLimit     = 50
	CategoryLimit = 3
	TrendingLimit = 100
)

// Query selects curated entries, newest first.
type Query struct {
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// Store persists raw submissions and reads curated entries.
type Store interface {
	InsertRaw(ctx context.Context, e Entry) error
	Recent(ctx context.Context, q Query) ([]Entry, error)
}

type PostgresStore struct {
	db *database.PostgresClient
}

func NewPostgresStore(db *database.PostgresClient) *PostgresStore {
	return &PostgresStore{db: db}
}

const insertRawSQL = `INSERT INTO raw_entries (id, job_title, typical_day, category, image_url, source, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

const recentSQL = `SELECT id, job_title, typical_day, category, image_url, created_at
FROM job_entries
WHERE ($1 = '' OR category = $1)
ORDER BY created_at DESC
LIMIT $2`

func (s *PostgresStore) InsertRaw(ctx context.Context, e Entry) error {
	_, err := s.db.Exec(ctx, insertRawSQL,
		e.ID, e.JobTitle, e.TypicalDay, e.Category, e.ImageURL, e.Source, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert raw entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, q Query) ([]Entry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = ListLimit
	}

	rows, err := s.db.Query(ctx, recentSQL, q.Category, limit)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.JobTitle, &e.TypicalDay, &e.Category, &e.ImageURL, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if e.Category == "" {
			e.Category = DefaultCategory
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}
