package rag

import (
	"fmt"
	"strings"
)

// RetrievalMethod selects how the remote service gathers context for an answer.
type RetrievalMethod string

const (
	MethodSimilarity  RetrievalMethod = "similarity"
	MethodMMR         RetrievalMethod = "mmr"
	MethodMultiQuery  RetrievalMethod = "multi_query"
	MethodLLMEnhanced RetrievalMethod = "llm_enhanced"
	MethodHybrid      RetrievalMethod = "hybrid"
)

const (
	DefaultMethod  = MethodLLMEnhanced
	DefaultK       = 5
	DefaultRetries = 1
)

// Methods lists every supported retrieval method.
func Methods() []RetrievalMethod {
	return []RetrievalMethod{MethodSimilarity, MethodMMR, MethodMultiQuery, MethodLLMEnhanced, MethodHybrid}
}

// ParseMethod returns the method named by s. The empty string maps to DefaultMethod.
func ParseMethod(s string) (RetrievalMethod, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultMethod, nil
	}
	for _, m := range Methods() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unsupported retrieval method %q", s)
}

// Options are the per-call settings for Ask.
type Options struct {
	Method  RetrievalMethod
	K       int
	Retries int
}

// DefaultOptions returns the settings used when Ask receives no options.
func DefaultOptions() Options {
	return Options{Method: DefaultMethod, K: DefaultK, Retries: DefaultRetries}
}

// Option overrides one field of Options.
type Option func(*Options)

func WithRetrievalMethod(m RetrievalMethod) Option {
	return func(o *Options) { o.Method = m }
}

func WithK(k int) Option {
	return func(o *Options) { o.K = k }
}

// WithRetries sets how many times a transient failure is retried. Zero disables retrying.
func WithRetries(n int) Option {
	return func(o *Options) { o.Retries = n }
}

// WithOptions replaces every field at once.
func WithOptions(opts Options) Option {
	return func(o *Options) { *o = opts }
}

func (o Options) validate() error {
	if _, err := ParseMethod(string(o.Method)); err != nil || o.Method == "" {
		return fmt.Errorf("unsupported retrieval method %q", o.Method)
	}
	if o.K <= 0 {
		return fmt.Errorf("k must be a positive integer, got %d", o.K)
	}
	if o.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", o.Retries)
	}
	return nil
}
