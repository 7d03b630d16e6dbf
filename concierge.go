// Package concierge provides a high-level façade over the orchestration
// loop and its collaborators (reasoning service, tool registry, prompt and
// state stores) for building a turn-based conversational assistant. Most
// applications:
//  1. Create an Assistant via New() (overriding the in-memory defaults)
//  2. Register tool capabilities
//  3. Drive turns via Turn() or serve them over HTTP (see package server)
//
// All defaults are safe for local development and testing; production
// deployments supply a real model, a durable state store and a structured
// logger.
package concierge

import (
	"context"

	"github.com/hupe1980/concierge/core"
	"github.com/hupe1980/concierge/logging"
	"github.com/hupe1980/concierge/loop"
	"github.com/hupe1980/concierge/model"
	"github.com/hupe1980/concierge/prompt"
	"github.com/hupe1980/concierge/state"
	"github.com/hupe1980/concierge/supervisor"
	"github.com/hupe1980/concierge/tool"
)

// DefaultSupervisorPrompt is used when the prompt store has no
// supervisor_prompt.txt of its own. It wires the end-of-conversation
// sentinel the supervisor package recognizes.
const DefaultSupervisorPrompt = `You are a supervising assistant. Decide whether to answer the user directly
or to call one of the available tools. Use tools only when the query needs
external information. When the user indicates the conversation is over,
answer briefly and append ` + supervisor.EndMarker + ` to your reply.`

// Options configure an Assistant instance.
type Options struct {
	// Model is the reasoning service client; defaults to a mock for local use.
	Model model.Model
	// Prompts resolves instruction templates; defaults to the built-in
	// supervisor prompt.
	Prompts prompt.Store
	// StateStore persists conversation state; defaults to in-memory.
	StateStore core.StateStore
	// Tools are the capabilities registered at construction.
	Tools []tool.Tool
	// Logger defaults to NoOp.
	Logger logging.Logger
	// MaxIterations caps decision steps per turn; 0 disables the cap.
	MaxIterations int
	// MaxParallelTools bounds concurrent tool executions per batch.
	MaxParallelTools int
}

// Assistant aggregates the loop and its collaborators.
type Assistant struct {
	loop     *loop.Loop
	registry *tool.Registry
	store    core.StateStore
}

// New creates a new Assistant with optional overrides. Any unset service is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Assistant {
	opts := Options{
		Model:            model.NewMockModel("local"),
		Prompts:          prompt.StaticStore{supervisor.PromptFile: DefaultSupervisorPrompt},
		StateStore:       state.NewInMemoryStore(),
		Logger:           logging.NoOpLogger{},
		MaxParallelTools: 4,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	registry := tool.NewRegistry(opts.Tools...)

	sup := supervisor.New(opts.Model, opts.Prompts, registry, func(o *supervisor.Options) {
		o.Logger = opts.Logger
	})
	executor := loop.NewExecutor(registry, opts.Logger, loop.ExecutorConfig{
		MaxParallel: opts.MaxParallelTools,
	})
	l := loop.New(sup, executor, opts.StateStore, func(o *loop.Options) {
		o.Logger = opts.Logger
		o.MaxIterations = opts.MaxIterations
	})

	return &Assistant{loop: l, registry: registry, store: opts.StateStore}
}

// Turn processes one inbound user message through to a final answer.
func (a *Assistant) Turn(ctx context.Context, conversationID, userInput string) (*loop.TurnResult, error) {
	return a.loop.Turn(ctx, conversationID, userInput)
}

// Registry exposes the tool registry (read-only lookup).
func (a *Assistant) Registry() *tool.Registry { return a.registry }

// StateStore exposes the conversation state store.
func (a *Assistant) StateStore() core.StateStore { return a.store }
