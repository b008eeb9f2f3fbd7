// Package provider defines the backend-independent model for LLM requests
// and the interface every backend implements.
//
// A Provider translates the generic Message/ToolDef request shape into one
// backend's native API and normalizes the reply back into a Response. The
// Registry owns Provider lifecycle: lazy construction, credential checks
// and instance caching.
package provider

import "context"

// Provider is implemented once per backend.
//
// Complete issues a single blocking request. Both plain generation and
// tool-calling go through it: a request with a non-empty Tools set asks the
// backend to emit tool calls, which arrive normalized in Response.ToolCalls.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai", "anthropic").
	Name() string

	// Complete executes one request against the backend.
	Complete(ctx context.Context, req *Request) (*Response, error)
}
