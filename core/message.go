// Package core defines the shared conversation primitives used across the
// assistant: messages, tool calls, conversation state and the persistence
// contract. Higher layers (supervisor, loop, state stores, model adapters)
// all speak in terms of these types.
package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MessageRole identifies the conversational author of a Message.
type MessageRole string

const (
	// MessageRoleUser marks a message authored by the end user.
	MessageRoleUser MessageRole = "user"
	// MessageRoleAssistant marks a message authored by the assistant
	// (either free text or a batch of tool call requests).
	MessageRoleAssistant MessageRole = "assistant"
	// MessageRoleTool marks the result of a single tool call, correlated
	// back to its originating request via CallID.
	MessageRoleTool MessageRole = "tool"
	// MessageRoleSystem marks prompt-framing instruction content.
	MessageRoleSystem MessageRole = "system"
)

// Role tags which logical actor produced the last decision in a conversation.
type Role string

const (
	// RoleNone is the initial role of a fresh conversation.
	RoleNone Role = "NONE"
	// RoleSupervisor indicates the supervising decision step is driving.
	RoleSupervisor Role = "SUPERVISOR"
	// RoleEnd indicates the conversation should be considered concluded.
	RoleEnd Role = "END"
)

// ToolCall is a structured request naming a registered capability and its
// arguments, emitted by the decision step. ID is an opaque correlation token
// matched by the resulting tool message.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// Message is one entry of the conversation transcript. The variant is
// determined by Role:
//
//   - user/system: Content only
//   - assistant: Content or a non-empty ToolCalls batch (content is cleared
//     to "" when tool calls are present; the calls are the entire payload)
//   - tool: Content plus CallID correlating it to the originating ToolCall
//
// Success payloads and error descriptions are both valid tool contents and
// are not distinguished at the message level.
type Message struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	ToolCalls []ToolCall  `json:"tool_calls,omitempty"`
	CallID    string      `json:"call_id,omitempty"`
}

// NewUserMessage creates a user message with free-text content.
func NewUserMessage(content string) Message {
	return Message{Role: MessageRoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message carrying final free-text
// content and no tool calls.
func NewAssistantMessage(content string) Message {
	return Message{Role: MessageRoleAssistant, Content: content}
}

// NewToolCallMessage creates an assistant message whose payload is the given
// batch of tool call requests. Content is empty by contract.
func NewToolCallMessage(calls []ToolCall) Message {
	return Message{Role: MessageRoleAssistant, ToolCalls: calls}
}

// NewToolMessage creates a tool result message correlated by call ID.
func NewToolMessage(callID, content string) Message {
	return Message{Role: MessageRoleTool, Content: content, CallID: callID}
}

// NewSystemMessage creates a system instruction message.
func NewSystemMessage(content string) Message {
	return Message{Role: MessageRoleSystem, Content: content}
}

// HasToolCalls reports whether the message carries at least one tool call.
func (m Message) HasToolCalls() bool { return len(m.ToolCalls) > 0 }

// Render returns the single-line textual form of the message used in the
// transcript replayed into every decision step call. Each variant has its
// own convention; assistant tool-call messages render only the first call.
func (m Message) Render() string {
	switch m.Role {
	case MessageRoleUser:
		return fmt.Sprintf("Human: %s", m.Content)
	case MessageRoleAssistant:
		if m.HasToolCalls() {
			tc := m.ToolCalls[0]
			return fmt.Sprintf("AI (with tool calls): tool_name: '%s', tool arguments: '%s', call id: '%s'",
				tc.Name, renderArgs(tc.Args), tc.ID)
		}
		return fmt.Sprintf("AI: '%s'", m.Content)
	case MessageRoleTool:
		return fmt.Sprintf("Tool call id: '%s', Tool Response: '%s'", m.CallID, m.Content)
	case MessageRoleSystem:
		return fmt.Sprintf("System: %s", m.Content)
	default:
		return m.Content
	}
}

// renderArgs serializes tool call arguments deterministically (JSON object
// with sorted keys) for transcript rendering.
func renderArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(b)
}

// RenderTranscript joins the rendered form of the given messages with
// newlines, preserving conversation order.
func RenderTranscript(messages []Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, m.Render())
	}
	return strings.Join(lines, "\n")
}

// NewID generates a unique identifier for conversations and tool calls.
func NewID() string { return uuid.NewString() }
