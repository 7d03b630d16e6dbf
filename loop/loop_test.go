package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hupe1980/concierge/core"
	"github.com/hupe1980/concierge/state"
	"github.com/hupe1980/concierge/supervisor"
	"github.com/hupe1980/concierge/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedDecider plays back a fixed sequence of decisions.
type scriptedDecider struct {
	decisions []supervisor.Decision
	errs      []error
	idx       int
}

func (d *scriptedDecider) Decide(_ context.Context, _ *core.ConversationState) (supervisor.Decision, error) {
	i := d.idx
	d.idx++
	if i < len(d.errs) && d.errs[i] != nil {
		return supervisor.Decision{}, d.errs[i]
	}
	if i < len(d.decisions) {
		return d.decisions[i], nil
	}
	return supervisor.Decision{Message: core.NewAssistantMessage("done"), Role: core.RoleSupervisor}, nil
}

func textDecision(text string, role core.Role) supervisor.Decision {
	return supervisor.Decision{Message: core.NewAssistantMessage(text), Role: role}
}

func toolDecision(calls ...core.ToolCall) supervisor.Decision {
	return supervisor.Decision{Message: core.NewToolCallMessage(calls), Role: core.RoleSupervisor}
}

func echoRegistry() *tool.Registry {
	echo := tool.NewFunctionTool("ECHO_TOOL", "echoes",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ *tool.Context, args map[string]any) (any, error) {
			return args["text"], nil
		})
	return tool.NewRegistry(echo)
}

func newLoop(decider Decider, store core.StateStore) *Loop {
	exec := NewExecutor(echoRegistry(), nil, ExecutorConfig{MaxParallel: 2})
	return New(decider, exec, store)
}

func TestTurnToolCallCycle(t *testing.T) {
	decider := &scriptedDecider{decisions: []supervisor.Decision{
		toolDecision(core.ToolCall{ID: "c1", Name: "ECHO_TOOL", Args: map[string]any{"text": "search results"}}),
		textDecision("Here is what I found.", core.RoleSupervisor),
	}}
	store := state.NewInMemoryStore()
	l := newLoop(decider, store)

	result, err := l.Turn(context.Background(), "conv-1", "find pizza")
	require.NoError(t, err)
	assert.Equal(t, "Here is what I found.", result.FinalText)
	assert.Equal(t, core.RoleSupervisor, result.CurrentRole)
	assert.False(t, result.Terminal)

	// user, tool-call assistant, tool response, final assistant
	saved, err := store.Load("conv-1")
	require.NoError(t, err)
	require.Len(t, saved.Messages, 4)
	assert.Equal(t, core.MessageRoleUser, saved.Messages[0].Role)
	assert.True(t, saved.Messages[1].HasToolCalls())
	assert.Equal(t, "search results", saved.Messages[2].Content)
	assert.Equal(t, "Here is what I found.", saved.Messages[3].Content)
	assert.Equal(t, "find pizza", saved.UserQuery)
}

func TestTurnsAccumulateAcrossCalls(t *testing.T) {
	decider := &scriptedDecider{decisions: []supervisor.Decision{
		textDecision("first answer", core.RoleSupervisor),
		textDecision("second answer", core.RoleSupervisor),
	}}
	store := state.NewInMemoryStore()
	l := newLoop(decider, store)

	_, err := l.Turn(context.Background(), "conv-1", "hello")
	require.NoError(t, err)
	result, err := l.Turn(context.Background(), "conv-1", "more please")
	require.NoError(t, err)
	assert.Equal(t, "second answer", result.FinalText)

	saved, _ := store.Load("conv-1")
	require.Len(t, saved.Messages, 4)
	assert.Equal(t, "hello", saved.Messages[0].Content)
	assert.Equal(t, "first answer", saved.Messages[1].Content)
	assert.Equal(t, "more please", saved.Messages[2].Content)
	assert.Equal(t, "second answer", saved.Messages[3].Content)
	assert.Equal(t, "more please", saved.UserQuery)
}

func TestTurnDecisionFailurePersistsTranscript(t *testing.T) {
	decider := &scriptedDecider{
		errs: []error{errors.New("reasoning service down")},
		decisions: []supervisor.Decision{
			{},
			textDecision("recovered answer", core.RoleSupervisor),
		},
	}
	store := state.NewInMemoryStore()
	l := newLoop(decider, store)

	_, err := l.Turn(context.Background(), "conv-1", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reasoning service down")

	// The user message survives the failed turn; the role never advanced.
	saved, _ := store.Load("conv-1")
	require.Len(t, saved.Messages, 1)
	assert.Equal(t, "hello", saved.Messages[0].Content)
	assert.Equal(t, core.RoleNone, saved.CurrentRole)

	// A subsequent turn on the same conversation replays the pre-failure
	// transcript, not a fresh one.
	result, err := l.Turn(context.Background(), "conv-1", "try again")
	require.NoError(t, err)
	assert.Equal(t, "recovered answer", result.FinalText)

	saved, _ = store.Load("conv-1")
	require.Len(t, saved.Messages, 3)
	assert.Equal(t, "hello", saved.Messages[0].Content)
	assert.Equal(t, "try again", saved.Messages[1].Content)
	assert.Equal(t, "recovered answer", saved.Messages[2].Content)
	assert.Equal(t, core.RoleSupervisor, saved.CurrentRole)
}

func TestTurnEndMarker(t *testing.T) {
	decider := &scriptedDecider{decisions: []supervisor.Decision{
		textDecision("Goodbye!", core.RoleEnd),
	}}
	l := newLoop(decider, state.NewInMemoryStore())

	result, err := l.Turn(context.Background(), "conv-1", "bye")
	require.NoError(t, err)
	assert.True(t, result.Terminal)
	assert.Equal(t, core.RoleEnd, result.CurrentRole)
	assert.Equal(t, FarewellText, result.FinalText)
}

func TestTurnDefaultFinalText(t *testing.T) {
	decider := &scriptedDecider{decisions: []supervisor.Decision{
		textDecision("", core.RoleSupervisor),
	}}
	l := newLoop(decider, state.NewInMemoryStore())

	result, err := l.Turn(context.Background(), "conv-1", "hmm")
	require.NoError(t, err)
	assert.Equal(t, DefaultFinalText, result.FinalText)
}

func TestTurnIterationCap(t *testing.T) {
	// A decider that always asks for tools would loop forever without a cap.
	looping := deciderFunc(func(_ context.Context, _ *core.ConversationState) (supervisor.Decision, error) {
		return toolDecision(core.ToolCall{ID: core.NewID(), Name: "ECHO_TOOL", Args: map[string]any{"text": "again"}}), nil
	})
	exec := NewExecutor(echoRegistry(), nil, ExecutorConfig{})
	l := New(looping, exec, state.NewInMemoryStore(), func(o *Options) {
		o.MaxIterations = 3
	})

	_, err := l.Turn(context.Background(), "conv-1", "go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decision limit reached after 3 iterations")
}

type deciderFunc func(ctx context.Context, state *core.ConversationState) (supervisor.Decision, error)

func (f deciderFunc) Decide(ctx context.Context, state *core.ConversationState) (supervisor.Decision, error) {
	return f(ctx, state)
}

func TestConversationLocksReleased(t *testing.T) {
	answer := deciderFunc(func(_ context.Context, _ *core.ConversationState) (supervisor.Decision, error) {
		return textDecision("ok", core.RoleSupervisor), nil
	})
	l := newLoop(answer, state.NewInMemoryStore())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := l.Turn(context.Background(), fmt.Sprintf("conv-%d", n%2), "hello")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// The lock table only holds conversations with a turn in flight.
	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.locks)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "AWAITING_DECISION", StateAwaitingDecision.String())
	assert.Equal(t, "EXECUTING_TOOLS", StateExecutingTools.String())
	assert.Equal(t, "DONE", StateDone.String())
}
