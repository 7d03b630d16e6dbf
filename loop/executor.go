package loop

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hupe1980/concierge/core"
	"github.com/hupe1980/concierge/logging"
	"github.com/hupe1980/concierge/tool"
)

// Executor runs a batch of tool calls, possibly in parallel, and produces
// exactly one tool message per call in the same order as the input batch.
// Failures (unknown tool, execution error, panic) are isolated per call and
// converted into transcript content; they never fail the turn.
type Executor struct {
	registry *tool.Registry
	logger   logging.Logger
	cfg      ExecutorConfig
}

// ExecutorConfig configures the parallel executor.
type ExecutorConfig struct {
	// MaxParallel bounds concurrent tool executions; 0 or <1 means one
	// goroutine per call.
	MaxParallel int
	// LogStartEvents logs a start line per call.
	LogStartEvents bool
}

// NewExecutor constructs an Executor over the given registry.
func NewExecutor(registry *tool.Registry, logger logging.Logger, cfg ExecutorConfig) *Executor {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Executor{registry: registry, logger: logger, cfg: cfg}
}

// Execute runs all calls and returns their tool messages in input order
// regardless of completion order. The conversation history snapshot is
// injected into every tool context for capabilities that require it.
func (e *Executor) Execute(ctx context.Context, calls []core.ToolCall, state *core.ConversationState) []core.Message {
	n := len(calls)
	if n == 0 {
		return nil
	}

	history := state.Clone().Messages

	// Fast path: single call, execute inline.
	if n == 1 {
		return []core.Message{e.executeOne(ctx, calls[0], history)}
	}

	maxPar := e.cfg.MaxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	results := make([]core.Message, n)
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxPar)

	batchStart := time.Now()
	for i := range calls {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, call core.ToolCall) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = e.executeOne(ctx, call, history)
		}(i, calls[i])
	}
	wg.Wait()

	e.logger.Debug("executor.batch.complete",
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return results
}

// executeOne resolves and invokes a single call, converting any failure into
// the error text of the resulting tool message.
func (e *Executor) executeOne(ctx context.Context, call core.ToolCall, history []core.Message) core.Message {
	if e.cfg.LogStartEvents {
		e.logger.Info("executor.call.start", "tool", call.Name, "call_id", call.ID)
	}

	start := time.Now()
	var (
		result any
		err    error
	)
	func() { // panic safety: a panicking tool must not take down the batch
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic recovered: %v", r)
				e.logger.Error("executor.call.panic",
					"tool", call.Name, "recover", r, "stack", string(debug.Stack()))
			}
		}()
		result, err = e.invoke(ctx, call, history)
	}()
	dur := time.Since(start)

	e.logger.Info("executor.call.executed",
		"tool", call.Name,
		"call_id", call.ID,
		"duration_ms", dur.Milliseconds(),
		"error", err != nil,
	)

	if err != nil {
		return core.NewToolMessage(call.ID, fmt.Sprintf("Error in tool '%s': %v", call.Name, err))
	}
	return core.NewToolMessage(call.ID, stringify(result))
}

func (e *Executor) invoke(ctx context.Context, call core.ToolCall, history []core.Message) (any, error) {
	impl, err := e.registry.Resolve(call.Name)
	if err != nil {
		return nil, err
	}
	toolCtx := tool.NewContext(call.ID, history, e.logger)
	args := call.Args
	if args == nil {
		args = map[string]any{}
	}
	return impl.Call(ctx, toolCtx, args)
}

// stringify renders a tool result for the transcript: strings pass through,
// everything else becomes compact JSON.
func stringify(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	}
	b, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(b)
}
