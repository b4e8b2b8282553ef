package database

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kurio/internal/common/config"
)

// ==========================
// Postgres
// ==========================

func TestPostgres_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	for _, stmt := range Schema {
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	client := NewPostgresFromDB(db)
	require.NoError(t, client.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_WithTxRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	client := NewPostgresFromDB(db)
	err = client.WithTx(context.Background(), func(_ *sql.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Redis
// ==========================

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedis_JSONRoundTripAndTTL(t *testing.T) {
	mr, client := newMiniRedis(t)
	ctx := context.Background()

	type payload struct {
		Ticker string `json:"ticker"`
	}

	require.NoError(t, client.SetJSON(ctx, "financials:AAPL", payload{Ticker: "AAPL"}, time.Hour))
	assert.Equal(t, time.Hour, mr.TTL("financials:AAPL"))

	var got payload
	require.NoError(t, client.GetJSON(ctx, "financials:AAPL", &got))
	assert.Equal(t, "AAPL", got.Ticker)

	mr.FastForward(2 * time.Hour)
	assert.ErrorIs(t, client.GetJSON(ctx, "financials:AAPL", &got), ErrCacheMiss)
}

func TestRedis_PublishSubscribe(t *testing.T) {
	_, client := newMiniRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ps, err := client.Subscribe(ctx, "kurio:entries:changed")
	require.NoError(t, err)
	defer ps.Close()

	require.NoError(t, client.Publish(ctx, "kurio:entries:changed", "entry-1"))

	msg, err := ps.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "entry-1", msg.Payload)
}

func TestNewRedis_RequiresAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}

// ==========================
// Elasticsearch
// ==========================

func newTestElasticsearch(t *testing.T, handler http.HandlerFunc) *ElasticsearchClient {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return &ElasticsearchClient{Client: es}
}

func TestElasticsearch_EnsureIndexCreatesMissingIndex(t *testing.T) {
	var created bool
	client := newTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			created = true
			assert.Equal(t, "/job_entries", r.URL.Path)
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		}
	})

	require.NoError(t, client.EnsureIndex(context.Background(), "job_entries", `{"mappings":{}}`))
	assert.True(t, created)
}

func TestElasticsearch_EnsureIndexSkipsExisting(t *testing.T) {
	client := newTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.EnsureIndex(context.Background(), "job_entries", `{}`))
}

func TestElasticsearch_Ping(t *testing.T) {
	client := newTestElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	assert.Error(t, client.Ping(context.Background()))
}
