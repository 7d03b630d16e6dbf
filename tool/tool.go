// Package tool implements the capability subsystem: a read-only registry
// mapping tool names to executable capabilities with declared input schemas,
// plus uniform error types so failures become transcript content instead of
// turn failures.
package tool

import (
	"context"
	"fmt"
	"sort"

	"github.com/hupe1980/concierge/core"
	"github.com/hupe1980/concierge/logging"
	"github.com/hupe1980/concierge/model"
)

// Tool is an executable capability invocable by the decision step.
//
// Implementations should:
//   - Provide clear, descriptive names (UPPER_SNAKE_CASE by convention here)
//   - Define a JSON schema for their arguments
//   - Be safe for concurrent use; calls in one batch may run in parallel
type Tool interface {
	// Name returns the unique identifier used in tool call requests.
	Name() string

	// Description is provided to the reasoning service so it can decide
	// when to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool. Arguments have been validated against the
	// declared schema. The Context carries the call ID and the implicit
	// inputs (conversation history) a capability may need.
	Call(ctx context.Context, toolCtx *Context, args map[string]any) (any, error)
}

// Context carries per-call correlation and the implicit inputs injected from
// conversation state. Capabilities that declare a history requirement (e.g.
// entity detection) read History; others ignore it.
type Context struct {
	callID  string
	history []core.Message
	logger  logging.Logger
}

// NewContext builds a tool context for one call.
func NewContext(callID string, history []core.Message, logger logging.Logger) *Context {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Context{callID: callID, history: history, logger: logger}
}

// CallID returns the correlation token of the originating tool call.
func (c *Context) CallID() string { return c.callID }

// History returns the conversation history snapshot taken when the batch
// started executing.
func (c *Context) History() []core.Message { return c.history }

// Logger returns the logger bound to this call.
func (c *Context) Logger() logging.Logger { return c.logger }

// NotFoundError reports a tool call naming a capability absent from the
// registry. It is isolated to that call and surfaced as transcript content.
type NotFoundError struct {
	Name string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool '%s' not found in registry", e.Name)
}

// ToolError represents errors raised during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Registry is the read-only lookup table from tool name to capability,
// assembled at process start.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry builds a registry from the given tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
	return r
}

// Resolve returns the capability registered under name, or *NotFoundError.
func (r *Registry) Resolve(name string) (Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return t, nil
}

// Tools returns all registered capabilities sorted by name.
func (r *Registry) Tools() []Tool {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	tools := make([]Tool, len(names))
	for i, name := range names {
		tools[i] = r.tools[name]
	}
	return tools
}

// Definitions renders the registry as model tool definitions, bound per
// decision step invocation.
func (r *Registry) Definitions() []model.ToolDefinition {
	tools := r.Tools()
	defs := make([]model.ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		}
	}
	return defs
}
