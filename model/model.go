// Package model abstracts the reasoning service used by the decision step.
// Providers (OpenAI, Anthropic) adapt their APIs to the Model interface so
// the orchestration loop never branches per vendor.
package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/concierge/core"
)

// ToolDefinition declaratively exposes a callable capability to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual capability exposed to the model.
// Parameters is a minimal JSON-schema object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is the normalized reasoning-service input built by the decision
// step: system instructions, the message sequence to replay, and the tool
// definitions bound for this invocation.
type Request struct {
	Instructions string           `json:"instructions"`
	Messages     []core.Message   `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// TokenUsage captures token accounting when the provider reports it.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the reasoning service's answer: either free-text content or a
// set of structured tool call requests (both may be present on the wire; the
// decision step decides routing).
type Response struct {
	Content      string          `json:"content"`
	ToolCalls    []core.ToolCall `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason"`
	Usage        *TokenUsage     `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface the decision step needs to drive generation.
// Generate blocks until the provider answers or ctx is done.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// ReasoningError wraps a failed reasoning-service call (network, timeout,
// malformed response). The loop treats it as fatal for the turn but never
// for the process.
type ReasoningError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ReasoningError) Error() string {
	return fmt.Sprintf("reasoning service (%s) failed: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying provider error.
func (e *ReasoningError) Unwrap() error { return e.Err }

// MockModel is an in-memory Model for tests and demos. Responses and errors
// are consumed in enqueue order; when the script is exhausted it echoes the
// last message as a plain text answer.
type MockModel struct {
	mu       sync.Mutex
	info     Info
	script   []scripted
	requests []Request
}

type scripted struct {
	resp *Response
	err  error
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{info: Info{Name: name, Provider: "mock", SupportsTools: true}}
}

// Enqueue appends a scripted response.
func (m *MockModel) Enqueue(resp *Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scripted{resp: resp})
}

// EnqueueError appends a scripted failure.
func (m *MockModel) EnqueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scripted{err: err})
}

// Requests returns a copy of all requests seen so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	reqs := make([]Request, len(m.requests))
	copy(reqs, m.requests)
	return reqs
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ReasoningError{Provider: "mock", Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if len(m.script) == 0 {
		var last string
		if len(req.Messages) > 0 {
			last = req.Messages[len(req.Messages)-1].Content
		}
		return &Response{Content: fmt.Sprintf("Mock response to: %s", last), FinishReason: "stop"}, nil
	}
	next := m.script[0]
	m.script = m.script[1:]
	if next.err != nil {
		return nil, &ReasoningError{Provider: "mock", Err: next.err}
	}
	return next.resp, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
