package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kurio/internal/common/logger"
)

// ==========================
// Test helpers
// ==========================

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// backend answers attempt n (1-based) with step(n, w, r).
type backend struct {
	server   *httptest.Server
	attempts atomic.Int32
	bodies   chan askRequest
}

func newBackend(t *testing.T, step func(n int, w http.ResponseWriter, r *http.Request)) *backend {
	t.Helper()
	b := &backend{bodies: make(chan askRequest, 16)}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(b.attempts.Add(1))
		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			select {
			case b.bodies <- req:
			default:
			}
		}
		step(n, w, r)
	}))
	t.Cleanup(b.server.Close)
	return b
}

func (b *backend) Attempts() int {
	return int(b.attempts.Load())
}

func respondJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// hang blocks until the client gives up on the request.
func hang(r *http.Request) {
	select {
	case <-r.Context().Done():
	case <-time.After(5 * time.Second):
	}
}

func newTestClient(t *testing.T, baseURL string, sleeper Sleeper) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL: baseURL,
		Timeout: 100 * time.Millisecond,
		Sleeper: sleeper,
	}, logger.NewTestLogger(t))
	require.NoError(t, err)
	return client
}

// ==========================
// Scenarios
// ==========================

func TestAsk_WhitespaceQuestionFailsWithoutNetwork(t *testing.T) {
	b := newBackend(t, func(n int, w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, `{"answer":"unused"}`)
	})
	sleeper := &recordingSleeper{}
	client := newTestClient(t, b.server.URL, sleeper)

	for _, question := range []string{"", "  ", "\t\n "} {
		answer, err := client.Ask(context.Background(), question)
		require.Error(t, err)
		assert.Nil(t, answer)
		assert.True(t, errors.Is(err, ErrValidation))

		var ragErr *Error
		require.True(t, errors.As(err, &ragErr))
		assert.Equal(t, KindValidation, ragErr.Kind)
		assert.False(t, ragErr.Transient())
	}

	assert.Equal(t, 0, b.Attempts())
	assert.Empty(t, sleeper.Delays())
}

func TestAsk_SuccessOnFirstAttempt(t *testing.T) {
	b := newBackend(t, func(n int, w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, AskPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		respondJSON(w, http.StatusOK, `{"answer":"42"}`)
	})
	sleeper := &recordingSleeper{}
	client := newTestClient(t, b.server.URL, sleeper)

	answer, err := client.Ask(context.Background(), "What is the answer?")
	require.NoError(t, err)
	assert.Equal(t, "42", answer.Answer)
	assert.Nil(t, answer.Metadata)
	assert.Equal(t, 1, b.Attempts())
	assert.Empty(t, sleeper.Delays())
}

func TestAsk_TimeoutThenSuccess(t *testing.T) {
	b := newBackend(t, func(n int, w http.ResponseWriter, r *http.Request) {
		if n == 1 {
			hang(r)
			return
		}
		respondJSON(w, http.StatusOK, `{"answer":"ok"}`)
	})
	sleeper := &recordingSleeper{}
	client := newTestClient(t, b.server.URL, sleeper)

	answer, err := client.Ask(context.Background(), "wake up", WithRetries(1))
	require.NoError(t, err)
	assert.Equal(t, "ok", answer.Answer)
	assert.Equal(t, 2, b.Attempts())
	assert.Equal(t, []time.Duration{2000 * time.Millisecond}, sleeper.Delays())
}

func TestAsk_ServerErrorIsNotRetried(t *testing.T) {
	b := newBackend(t, func(n int, w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusBadRequest, `{"detail":"bad request"}`)
	})
	sleeper := &recordingSleeper{}
	client := newTestClient(t, b.server.URL, sleeper)

	_, err := client.Ask(context.Background(), "question", WithRetries(3))
	require.Error(t, err)
	assert.Equal(t, "bad request", err.Error())
	assert.True(t, errors.Is(err, ErrServer))

	var ragErr *Error
	require.True(t, errors.As(err, &ragErr))
	assert.Equal(t, http.StatusBadRequest, ragErr.StatusCode)
	assert.Equal(t, b.server.URL+AskPath, ragErr.Endpoint)
	assert.Equal(t, 1, b.Attempts())
	assert.Empty(t, sleeper.Delays())
}

func TestAsk_AlwaysTimesOut(t *testing.T) {
	b := newBackend(t, func(n int, w http.ResponseWriter, r *http.Request) {
		hang(r)
	})
	sleeper := &recordingSleeper{}
	client := newTestClient(t, b.server.URL, sleeper)

	_, err := client.Ask(context.Background(), "question", WithRetries(2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Contains(t, err.Error(), b.server.URL)
	assert.Contains(t, err.Error(), "timed out")
	assert.Equal(t, 3, b.Attempts())
	assert.Equal(t, []time.Duration{2000 * time.Millisecond, 4000 * time.Millisecond}, sleeper.Delays())
}

// ==========================
// Properties
// ==========================

func TestAsk_TransientFailuresUseWholeBudget(t *testing.T) {
	for retries := 0; retries <= 3; retries++ {
		b := newBackend(t, func(n int, w http.ResponseWriter, r *http.Request) {
			hang(r)
		})
		sleeper := &recordingSleeper{}
		client := newTestClient(t, b.server.URL, sleeper)

		_, err := client.Ask(context.Background(), "question", WithRetries(retries))
		require.Error(t, err)
		assert.True(t, IsTransient(err))
		assert.Equal(t, retries+1, b.Attempts())

		delays := sleeper.Delays()
		require.Len(t, delays, retries)
		for i, d := range delays {
			assert.Equal(t, BackoffDelay(DefaultBackoffStep, i), d)
		}
	}
}

func TestAsk_ServerErrorWithoutDetail(t *testing.T) {
	statuses := []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusServiceUnavailable}
	for _, status := range statuses {
		b := newBackend(t, func(n int, w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte("upstream unavailable"))
		})
		client := newTestClient(t, b.server.URL, &recordingSleeper{})

		_, err := client.Ask(context.Background(), "question", WithRetries(5))
		require.Error(t, err)
		assert.Equal(t, fmt.Sprintf("request failed with status %d", status), err.Error())
		assert.Equal(t, 1, b.Attempts())
	}
}

func TestAsk_ConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	sleeper := &recordingSleeper{}
	client := newTestClient(t, baseURL, sleeper)

	_, err := client.Ask(context.Background(), "question", WithRetries(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnection))
	assert.Contains(t, err.Error(), "Failed to connect to API at "+baseURL)
	assert.Equal(t, []time.Duration{2 * time.Second}, sleeper.Delays())
}

func TestAsk_RepeatedCallsAreIndependent(t *testing.T) {
	b := newBackend(t, func(n int, w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, `{"answer":"same","sources":["a.md"]}`)
	})
	client := newTestClient(t, b.server.URL, &recordingSleeper{})

	first, err := client.Ask(context.Background(), "q")
	require.NoError(t, err)
	second, err := client.Ask(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotSame(t, first, second)
	assert.Equal(t, []interface{}{"a.md"}, first.Metadata["sources"])
	assert.Equal(t, 2, b.Attempts())
}

func TestAsk_RequestBody(t *testing.T) {
	b := newBackend(t, func(n int, w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, `{"answer":"fine"}`)
	})
	client := newTestClient(t, b.server.URL, &recordingSleeper{})

	_, err := client.Ask(context.Background(), "  what does a nurse do?  ",
		WithRetrievalMethod(MethodHybrid), WithK(8), WithRetries(0))
	require.NoError(t, err)

	req := <-b.bodies
	assert.Equal(t, askRequest{Question: "what does a nurse do?", RetrievalMethod: MethodHybrid, K: 8}, req)
}

func TestAsk_DefaultOptionsOnWire(t *testing.T) {
	var raw map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		respondJSON(w, http.StatusOK, `{"answer":"fine"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL+"/", &recordingSleeper{})
	_, err := client.Ask(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{
		"question":         "q",
		"retrieval_method": "llm_enhanced",
		"k":                float64(5),
	}, raw)
}

func TestAsk_InvalidOptions(t *testing.T) {
	b := newBackend(t, func(n int, w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, `{"answer":"unused"}`)
	})
	client := newTestClient(t, b.server.URL, &recordingSleeper{})

	tests := []struct {
		name string
		opt  Option
	}{
		{name: "unknown method", opt: WithRetrievalMethod("bm25")},
		{name: "zero k", opt: WithK(0)},
		{name: "negative retries", opt: WithRetries(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Ask(context.Background(), "q", tt.opt)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
	assert.Equal(t, 0, b.Attempts())
}

func TestAsk_MalformedSuccessBody(t *testing.T) {
	b := newBackend(t, func(n int, w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, `{"result":"no answer field"}`)
	})
	client := newTestClient(t, b.server.URL, &recordingSleeper{})

	_, err := client.Ask(context.Background(), "q", WithRetries(2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrServer))
	assert.Equal(t, 1, b.Attempts())
}

func TestAsk_CancelDuringBackoff(t *testing.T) {
	b := newBackend(t, func(n int, w http.ResponseWriter, r *http.Request) {
		hang(r)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sleeper := SleeperFunc(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	})
	client := newTestClient(t, b.server.URL, sleeper)

	_, err := client.Ask(ctx, "q", WithRetries(3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCanceled))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, IsTransient(err))
	assert.Equal(t, 1, b.Attempts())
}

func TestAsk_CancelDuringAttempt(t *testing.T) {
	started := make(chan struct{})
	b := newBackend(t, func(n int, w http.ResponseWriter, r *http.Request) {
		close(started)
		hang(r)
	})

	client, err := NewClient(Config{BaseURL: b.server.URL, Timeout: 5 * time.Second}, logger.NewNoOpLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err = client.Ask(ctx, "q", WithRetries(3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCanceled))
	assert.Equal(t, 1, b.Attempts())
}

func TestAsk_ConcurrentCalls(t *testing.T) {
	b := newBackend(t, func(n int, w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, `{"answer":"parallel"}`)
	})
	client := newTestClient(t, b.server.URL, &recordingSleeper{})

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			answer, err := client.Ask(context.Background(), "q")
			if err == nil && answer.Answer != "parallel" {
				err = errors.New("unexpected answer " + answer.Answer)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 10, b.Attempts())
}

// ==========================
// Construction
// ==========================

func TestNewClient(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "  "}, nil)
	require.Error(t, err)

	_, err = NewClient(Config{BaseURL: "http://localhost:8000", Defaults: Options{Method: "nope", K: 1}}, nil)
	require.Error(t, err)

	client, err := NewClient(Config{BaseURL: "http://localhost:8000/"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", client.BaseURL())
	assert.Equal(t, "http://localhost:8000/api/ask", client.Endpoint())
	assert.Equal(t, DefaultTimeout, client.timeout)
	assert.Equal(t, DefaultOptions(), client.defaults)
	assert.True(t, strings.HasPrefix(client.Endpoint(), client.BaseURL()))
}
