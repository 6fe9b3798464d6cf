// Package oracle abstracts the LLM endpoint used for batch classification.
// The classifier only sees the Provider interface, so tests run against a
// stub and the OpenAI wiring stays in one place.
package oracle

import "context"

// Request carries one classification prompt.
type Request struct {
	System string
	User   string
}

// Response holds the raw completion text before any parsing.
type Response struct {
	Content string
}

// Provider completes a prompt against some model endpoint.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Name() string
}
