package ai

import (
	"context"
	"time"

	"medquote/internal/metrics"
)

// LLMProvider defines the contract for interacting with AI models.
// This interface allows for swapping different AI providers (Gemini, OpenAI, etc.).
type LLMProvider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Complete runs one chat completion. When req.Tool is set and req.ForceTool
	// is true the model is constrained to answer with a call to that tool;
	// providers may still return plain text, which callers must tolerate.
	Complete(ctx context.Context, req Request) (*Response, error)
}

type instrumented struct {
	next    LLMProvider
	metrics *metrics.Collector
}

// WithMetrics records the latency and outcome of every completion.
func WithMetrics(p LLMProvider, m *metrics.Collector) LLMProvider {
	if m == nil {
		return p
	}
	return &instrumented{next: p, metrics: m}
}

func (i *instrumented) Name() string { return i.next.Name() }

func (i *instrumented) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := i.next.Complete(ctx, req)
	i.metrics.ObserveAI(i.next.Name(), err, time.Since(start))
	return resp, err
}

type timeoutProvider struct {
	next    LLMProvider
	timeout time.Duration
}

// WithTimeout bounds every completion by d. A non-positive d disables it.
func WithTimeout(p LLMProvider, d time.Duration) LLMProvider {
	if d <= 0 {
		return p
	}
	return &timeoutProvider{next: p, timeout: d}
}

func (t *timeoutProvider) Name() string { return t.next.Name() }

func (t *timeoutProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Complete(ctx, req)
}
