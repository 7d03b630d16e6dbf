package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRender(t *testing.T) {
	assert.Equal(t, "Human: hi there", NewUserMessage("hi there").Render())
	assert.Equal(t, "AI: 'hello'", NewAssistantMessage("hello").Render())
	assert.Equal(t, "System: be helpful", NewSystemMessage("be helpful").Render())
	assert.Equal(t,
		"Tool call id: 'call-1', Tool Response: 'ok'",
		NewToolMessage("call-1", "ok").Render(),
	)
}

func TestMessageRenderToolCalls(t *testing.T) {
	msg := NewToolCallMessage([]ToolCall{
		{ID: "call-1", Name: "WEB_SEARCH_TOOL", Args: map[string]any{"userQuery": "pizza"}},
		{ID: "call-2", Name: "ENTITY_DETECTOR_TOOL"},
	})

	// Only the first call is rendered into the transcript line.
	rendered := msg.Render()
	assert.Equal(t,
		`AI (with tool calls): tool_name: 'WEB_SEARCH_TOOL', tool arguments: '{"userQuery":"pizza"}', call id: 'call-1'`,
		rendered,
	)
}

func TestRenderTranscriptJoinsInOrder(t *testing.T) {
	msgs := []Message{
		NewUserMessage("find pizza"),
		NewToolCallMessage([]ToolCall{{ID: "c1", Name: "WEB_SEARCH_TOOL"}}),
		NewToolMessage("c1", "results"),
		NewAssistantMessage("here you go"),
	}

	expected := "Human: find pizza\n" +
		"AI (with tool calls): tool_name: 'WEB_SEARCH_TOOL', tool arguments: '{}', call id: 'c1'\n" +
		"Tool call id: 'c1', Tool Response: 'results'\n" +
		"AI: 'here you go'"
	assert.Equal(t, expected, RenderTranscript(msgs))
}

func TestConversationStateDefaults(t *testing.T) {
	st := NewConversationState("conv-1")
	assert.Equal(t, "conv-1", st.ConversationID)
	assert.Equal(t, RoleNone, st.CurrentRole)
	assert.Empty(t, st.Messages)
}

func TestConversationStateAppendIsMonotonic(t *testing.T) {
	st := NewConversationState("conv-1")
	for i := 0; i < 5; i++ {
		before := len(st.Messages)
		st.Append(NewUserMessage("msg"))
		assert.Equal(t, before+1, len(st.Messages))
	}
}

func TestConversationStateClone(t *testing.T) {
	st := NewConversationState("conv-1")
	st.Append(NewToolCallMessage([]ToolCall{
		{ID: "c1", Name: "WEB_SEARCH_TOOL", Args: map[string]any{"userQuery": "pizza"}},
	}))

	clone := st.Clone()
	require.Equal(t, st, clone)

	// Mutating the clone must not affect the original.
	clone.Messages[0].ToolCalls[0].Args["userQuery"] = "sushi"
	clone.Append(NewUserMessage("extra"))
	clone.CurrentRole = RoleEnd

	assert.Equal(t, "pizza", st.Messages[0].ToolCalls[0].Args["userQuery"])
	assert.Len(t, st.Messages, 1)
	assert.Equal(t, RoleNone, st.CurrentRole)
}

func TestLastAssistantText(t *testing.T) {
	st := NewConversationState("conv-1")

	_, ok := st.LastAssistantText()
	assert.False(t, ok)

	st.Append(
		NewUserMessage("hi"),
		NewAssistantMessage("first answer"),
		NewUserMessage("more"),
		NewToolCallMessage([]ToolCall{{ID: "c1", Name: "WEB_SEARCH_TOOL"}}),
		NewToolMessage("c1", "results"),
	)

	// Tool-call assistant messages are skipped.
	text, ok := st.LastAssistantText()
	require.True(t, ok)
	assert.Equal(t, "first answer", text)

	st.Append(NewAssistantMessage("second answer"))
	text, ok = st.LastAssistantText()
	require.True(t, ok)
	assert.Equal(t, "second answer", text)
}
