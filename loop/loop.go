// Package loop implements the turn-based orchestration state machine: it
// alternates the decision step and the tool executor until the decision step
// returns a final answer, persisting conversation state so the loop survives
// process restarts.
package loop

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/concierge/core"
	"github.com/hupe1980/concierge/logging"
	"github.com/hupe1980/concierge/supervisor"
)

// State enumerates the orchestration states of a single turn.
type State int

const (
	// StateAwaitingDecision waits on the decision step.
	StateAwaitingDecision State = iota
	// StateExecutingTools runs the pending tool call batch.
	StateExecutingTools
	// StateDone is terminal for the turn.
	StateDone
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateAwaitingDecision:
		return "AWAITING_DECISION"
	case StateExecutingTools:
		return "EXECUTING_TOOLS"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// DefaultFinalText is returned when no assistant answer exists yet.
const DefaultFinalText = "Please provide more details. I'm here to help!"

// FarewellText is returned once the conversation reaches RoleEnd, regardless
// of the last assistant message content.
const FarewellText = "Thanks for using the assistant. Have a great day!"

// TurnResult is the outbound summary of one completed turn.
type TurnResult struct {
	FinalText   string    `json:"final_text"`
	CurrentRole core.Role `json:"current_role"`
	Terminal    bool      `json:"terminal"`
}

// Decider is the decision step contract consumed by the loop. It must not
// mutate conversation state; the loop appends the returned message itself.
type Decider interface {
	Decide(ctx context.Context, state *core.ConversationState) (supervisor.Decision, error)
}

// Options configure a Loop.
type Options struct {
	Logger logging.Logger
	// MaxIterations caps decision steps per turn as a runaway guard.
	// 0 disables the cap, matching the unbounded original behavior.
	MaxIterations int
}

// Loop owns the per-turn state machine. It serializes turns per conversation
// ID so the load-mutate-save cycle cannot lose updates.
type Loop struct {
	decider       Decider
	executor      *Executor
	store         core.StateStore
	logger        logging.Logger
	maxIterations int

	mu    sync.Mutex
	locks map[string]*convLock
}

// convLock serializes turns for one conversation. The reference count tracks
// holders and waiters so the map entry can be dropped once nobody needs it.
type convLock struct {
	mu   sync.Mutex
	refs int
}

// New constructs a Loop.
func New(decider Decider, executor *Executor, store core.StateStore, optFns ...func(o *Options)) *Loop {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Loop{
		decider:       decider,
		executor:      executor,
		store:         store,
		logger:        opts.Logger,
		maxIterations: opts.MaxIterations,
		locks:         map[string]*convLock{},
	}
}

// Turn processes one inbound user message through to a final answer. The
// conversation state is loaded at the start, mutated for the duration of the
// turn, and saved at the end.
//
// Error semantics: tool-level failures are absorbed into the transcript and
// never surface here. A decision step failure ends the turn with an error
// after persisting everything appended so far; the next turn still sees the
// full transcript. A persistence failure is returned as-is and the turn's
// in-memory effects are lost.
func (l *Loop) Turn(ctx context.Context, conversationID, userInput string) (*TurnResult, error) {
	lock := l.acquireLock(conversationID)
	lock.mu.Lock()
	defer func() {
		lock.mu.Unlock()
		l.releaseLock(conversationID, lock)
	}()

	state, err := l.store.Load(conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", conversationID, err)
	}

	state.UserQuery = userInput
	state.Append(core.NewUserMessage(userInput))

	turnErr := l.run(ctx, state)

	// Persist even on a failed decision step: the transcript up to and
	// including the last appended message is the source of truth for the
	// next turn.
	if err := l.store.Save(state); err != nil {
		return nil, fmt.Errorf("save conversation %s: %w", conversationID, err)
	}
	if turnErr != nil {
		return nil, turnErr
	}
	return l.result(state), nil
}

// run drives the state machine for one turn. On return the turn is DONE.
func (l *Loop) run(ctx context.Context, state *core.ConversationState) error {
	var pending []core.ToolCall
	iterations := 0
	current := StateAwaitingDecision

	for current != StateDone {
		switch current {
		case StateAwaitingDecision:
			if l.maxIterations > 0 && iterations >= l.maxIterations {
				l.logger.Warn("loop.iteration_cap",
					"conversation_id", state.ConversationID, "iterations", iterations)
				return fmt.Errorf("decision limit reached after %d iterations", iterations)
			}
			iterations++

			decision, err := l.decider.Decide(ctx, state)
			if err != nil {
				// The turn ends without advancing the role; the
				// accumulated transcript is kept.
				return err
			}

			state.Append(decision.Message)
			state.CurrentRole = decision.Role

			if decision.HasToolCalls() {
				pending = decision.Message.ToolCalls
				current = StateExecutingTools
			} else {
				current = StateDone
			}
			l.logger.Debug("loop.transition",
				"conversation_id", state.ConversationID,
				"state", current.String(),
				"tool_calls", len(pending),
			)

		case StateExecutingTools:
			msgs := l.executor.Execute(ctx, pending, state)
			state.Append(msgs...)
			pending = nil
			current = StateAwaitingDecision
		}
	}
	return nil
}

// result derives the outbound summary from the persisted state.
func (l *Loop) result(state *core.ConversationState) *TurnResult {
	if state.CurrentRole == core.RoleEnd {
		return &TurnResult{FinalText: FarewellText, CurrentRole: core.RoleEnd, Terminal: true}
	}
	text, ok := state.LastAssistantText()
	if !ok {
		text = DefaultFinalText
	}
	return &TurnResult{FinalText: text, CurrentRole: state.CurrentRole}
}

// acquireLock returns the lock serializing turns for a conversation,
// incrementing its reference count so concurrent callers share one entry.
func (l *Loop) acquireLock(conversationID string) *convLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[conversationID]
	if !ok {
		lock = &convLock{}
		l.locks[conversationID] = lock
	}
	lock.refs++
	return lock
}

// releaseLock drops the map entry once the last holder or waiter is gone, so
// the lock table only holds conversations with a turn in flight.
func (l *Loop) releaseLock(conversationID string, lock *convLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, conversationID)
	}
}
