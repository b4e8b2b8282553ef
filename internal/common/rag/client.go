// Package rag is the client for the retrieval-augmented question-answering service.
//
// Ask sends one POST per attempt to {BaseURL}/api/ask. Timeouts and transport
// failures are retried with a linear backoff; any non-2xx response is final.
package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	commonhttp "kurio/internal/common/http"
	"kurio/internal/common/logger"
	"kurio/internal/common/metrics"
)

const (
	// AskPath is appended to the base URL for every attempt.
	AskPath = "/api/ask"

	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 60 * time.Second

	maxResponseBytes = 8 << 20
)

// Config is resolved once and handed to NewClient.
type Config struct {
	BaseURL     string
	Timeout     time.Duration // per attempt
	BackoffStep time.Duration
	Defaults    Options

	HTTPClient *http.Client
	Sleeper    Sleeper
}

// Answer is a successful response. Metadata holds every field other than answer.
type Answer struct {
	Answer   string                 `json:"answer"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Client is safe for concurrent use. Calls share nothing but the connection pool.
type Client struct {
	baseURL     string
	endpoint    string
	timeout     time.Duration
	backoffStep time.Duration
	defaults    Options
	httpClient  *http.Client
	sleeper     Sleeper
	logger      logger.Logger
}

func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("rag: base url is required")
	}

	defaults := cfg.Defaults
	if defaults == (Options{}) {
		defaults = DefaultOptions()
	}
	if err := defaults.validate(); err != nil {
		return nil, fmt.Errorf("rag: invalid default options: %w", err)
	}

	c := &Client{
		baseURL:     baseURL,
		endpoint:    baseURL + AskPath,
		timeout:     cfg.Timeout,
		backoffStep: cfg.BackoffStep,
		defaults:    defaults,
		httpClient:  cfg.HTTPClient,
		sleeper:     cfg.Sleeper,
		logger:      log,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.backoffStep <= 0 {
		c.backoffStep = DefaultBackoffStep
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Transport: commonhttp.NewTransport()}
	}
	if c.sleeper == nil {
		c.sleeper = TimerSleeper{}
	}
	if c.logger == nil {
		c.logger = logger.NewNoOpLogger()
	}
	return c, nil
}

// BaseURL returns the resolved base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Endpoint returns the full ask URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type askRequest struct {
	Question        string          `json:"question"`
	RetrievalMethod RetrievalMethod `json:"retrieval_method"`
	K               int             `json:"k"`
}

type callState int

const (
	stateIdle callState = iota
	stateAttempting
	stateWaiting
	stateSuccess
	stateTerminalFailure
)

// Ask sends question to the service. Cancelling ctx aborts the current attempt
// or backoff wait and returns an error wrapping ErrCanceled and ctx.Err().
func (c *Client) Ask(ctx context.Context, question string, opts ...Option) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		metrics.AskRequests.WithLabelValues(string(KindValidation)).Inc()
		return nil, validationError("Question cannot be empty")
	}

	o := c.defaults
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		metrics.AskRequests.WithLabelValues(string(KindValidation)).Inc()
		return nil, validationError(err.Error())
	}

	body, err := json.Marshal(askRequest{Question: question, RetrievalMethod: o.Method, K: o.K})
	if err != nil {
		return nil, fmt.Errorf("rag: encode request: %w", err)
	}

	var (
		state   = stateIdle
		retry   int
		answer  *Answer
		lastErr error
		start   = time.Now()
	)

	for {
		switch state {
		case stateIdle:
			state = stateAttempting

		case stateAttempting:
			answer, lastErr = c.attempt(ctx, body)
			switch {
			case lastErr == nil:
				state = stateSuccess
			case IsTransient(lastErr) && retry < o.Retries:
				state = stateWaiting
			default:
				state = stateTerminalFailure
			}

		case stateWaiting:
			delay := BackoffDelay(c.backoffStep, retry)
			c.logger.Warn("Ask attempt failed, retrying", map[string]interface{}{
				"endpoint": c.endpoint,
				"attempt":  retry + 1,
				"delay_ms": delay.Milliseconds(),
				"error":    lastErr.Error(),
			})
			metrics.AskBackoff.Observe(delay.Seconds())

			if err := c.sleeper.Sleep(ctx, delay); err != nil {
				lastErr = canceled(ctx, err)
				state = stateTerminalFailure
				continue
			}
			retry++
			state = stateAttempting

		case stateSuccess:
			c.observe("success", start)
			return answer, nil

		case stateTerminalFailure:
			c.observe(outcomeOf(lastErr), start)
			c.logger.Error("Ask failed", map[string]interface{}{
				"endpoint": c.endpoint,
				"attempts": retry + 1,
				"error":    lastErr.Error(),
			})
			return nil, lastErr
		}
	}
}

func (c *Client) observe(outcome string, start time.Time) {
	metrics.AskRequests.WithLabelValues(outcome).Inc()
	metrics.AskDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

func outcomeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return string(e.Kind)
	}
	return "canceled"
}

func canceled(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return fmt.Errorf("%w: %w", ErrCanceled, err)
}

// attempt performs one bounded request and classifies its failure.
func (c *Client) attempt(ctx context.Context, body []byte) (*Answer, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	answer, err := c.do(attemptCtx, body)
	if err == nil {
		metrics.AskAttempts.WithLabelValues("success").Inc()
		return answer, nil
	}

	var classified *Error
	switch {
	case errors.As(err, &classified):
	case ctx.Err() != nil:
		return nil, canceled(ctx, err)
	case errors.Is(attemptCtx.Err(), context.DeadlineExceeded) || isTimeout(err):
		classified = timeoutError(c.baseURL, c.endpoint, err)
	default:
		classified = connectionError(c.baseURL, c.endpoint, err)
	}

	metrics.AskAttempts.WithLabelValues(string(classified.Kind)).Inc()
	return nil, classified
}

func (c *Client) do(ctx context.Context, body []byte) (*Answer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindConnection, Message: fmt.Sprintf("Invalid API endpoint %s", c.endpoint), Endpoint: c.endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, serverError(c.endpoint, resp.StatusCode, detailOf(payload))
	}
	return decodeAnswer(c.endpoint, resp.StatusCode, payload)
}

func detailOf(payload []byte) string {
	var body struct {
		Detail interface{} `json:"detail"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	if s, ok := body.Detail.(string); ok {
		return s
	}
	return ""
}

func decodeAnswer(endpoint string, status int, payload []byte) (*Answer, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		e := serverError(endpoint, status, "API returned a malformed response")
		e.Err = err
		return nil, e
	}

	text, ok := fields["answer"].(string)
	if !ok {
		return nil, serverError(endpoint, status, "API response did not include an answer")
	}
	delete(fields, "answer")

	answer := &Answer{Answer: text}
	if len(fields) > 0 {
		answer.Metadata = fields
	}
	return answer, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
