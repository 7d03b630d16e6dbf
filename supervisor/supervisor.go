// Package supervisor implements the decision step: given the running
// conversation and the current role, it asks the reasoning service whether to
// answer directly or to invoke tools, and returns the resulting assistant
// message without mutating conversation state itself.
package supervisor

import (
	"context"
	"strings"
	"time"

	"github.com/hupe1980/concierge/core"
	"github.com/hupe1980/concierge/internal/util"
	"github.com/hupe1980/concierge/logging"
	"github.com/hupe1980/concierge/model"
	"github.com/hupe1980/concierge/prompt"
	"github.com/hupe1980/concierge/tool"
)

// PromptFile names the supervisor instruction template in the prompt store.
const PromptFile = "supervisor_prompt.txt"

// EndMarker is the sentinel the supervisor prompt instructs the model to
// emit when the conversation should be considered concluded. It is stripped
// from the final content and translated into RoleEnd.
const EndMarker = "<END_OF_CONVERSATION>"

// Decision is the outcome of one decision step: the new assistant message to
// append (free text, or a batch of tool calls with empty content) and the
// role now driving the conversation.
type Decision struct {
	Message core.Message
	Role    core.Role
}

// HasToolCalls reports whether the decision requests tool execution.
func (d Decision) HasToolCalls() bool { return d.Message.HasToolCalls() }

// Options configure a Supervisor.
type Options struct {
	Logger logging.Logger
	// PromptVars are extra variables available to the instruction template.
	PromptVars map[string]any
}

// Supervisor drives decision steps against a reasoning service.
type Supervisor struct {
	llm        model.Model
	prompts    prompt.Store
	registry   *tool.Registry
	logger     logging.Logger
	promptVars map[string]any
}

// New constructs a Supervisor. The model client is passed in explicitly; its
// lifecycle is owned by process start/stop, not by this package.
func New(llm model.Model, prompts prompt.Store, registry *tool.Registry, optFns ...func(o *Options)) *Supervisor {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Supervisor{
		llm:        llm,
		prompts:    prompts,
		registry:   registry,
		logger:     opts.Logger,
		promptVars: opts.PromptVars,
	}
}

// Decide runs one decision step over the full conversation history. The
// returned message is appended by the caller; state is never mutated here.
func (s *Supervisor) Decide(ctx context.Context, state *core.ConversationState) (Decision, error) {
	instructions, err := s.prompts.Load(PromptFile)
	if err != nil {
		return Decision{}, err
	}

	vars := map[string]any{
		"query":         state.UserQuery,
		"current_agent": string(state.CurrentRole),
	}
	for k, v := range s.promptVars {
		vars[k] = v
	}
	rendered, err := util.RenderTemplate(instructions, vars)
	if err != nil {
		return Decision{}, err
	}

	req := model.Request{
		Instructions: rendered,
		Messages:     []core.Message{core.NewUserMessage(userContent(state))},
		Tools:        s.registry.Definitions(),
	}

	start := time.Now()
	resp, err := s.llm.Generate(ctx, req)
	if err != nil {
		s.logger.Error("supervisor.decide.failed",
			"conversation_id", state.ConversationID, "error", err.Error())
		return Decision{}, err
	}
	s.logger.Info("supervisor.decide.completed",
		"conversation_id", state.ConversationID,
		"tool_calls", len(resp.ToolCalls),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if len(resp.ToolCalls) > 0 {
		calls := make([]core.ToolCall, len(resp.ToolCalls))
		copy(calls, resp.ToolCalls)
		for i := range calls {
			if calls[i].ID == "" {
				calls[i].ID = core.NewID()
			}
		}
		// Content is cleared by contract: the tool calls are the payload.
		return Decision{Message: core.NewToolCallMessage(calls), Role: core.RoleSupervisor}, nil
	}

	content := resp.Content
	role := core.RoleSupervisor
	if strings.Contains(content, EndMarker) {
		content = strings.TrimSpace(strings.ReplaceAll(content, EndMarker, ""))
		role = core.RoleEnd
	}
	return Decision{Message: core.NewAssistantMessage(content), Role: role}, nil
}

// userContent composes the single user message replayed to the reasoning
// service: the latest query, the acting role, and the rendered transcript.
func userContent(state *core.ConversationState) string {
	var b strings.Builder
	b.WriteString("query:")
	b.WriteString(state.UserQuery)
	b.WriteString(",current_agent:")
	b.WriteString(string(state.CurrentRole))
	b.WriteString(",chat_history:")
	b.WriteString(state.Transcript())
	return b.String()
}
