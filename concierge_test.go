package concierge

import (
	"context"
	"testing"

	"github.com/hupe1980/concierge/core"
	"github.com/hupe1980/concierge/loop"
	"github.com/hupe1980/concierge/model"
	"github.com/hupe1980/concierge/supervisor"
	"github.com/hupe1980/concierge/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssistantToolCallTurn(t *testing.T) {
	llm := model.NewMockModel("scripted")
	llm.Enqueue(&model.Response{
		ToolCalls: []core.ToolCall{
			{ID: "c1", Name: "LOOKUP_TOOL", Args: map[string]any{"topic": "pizza"}},
		},
		FinishReason: "tool_calls",
	})
	llm.Enqueue(&model.Response{Content: "Pizza places found: Luigi's.", FinishReason: "stop"})

	lookup := tool.NewFunctionTool("LOOKUP_TOOL", "Looks up a topic",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"topic": map[string]any{"type": "string"},
			},
			"required": []string{"topic"},
		},
		func(_ context.Context, _ *tool.Context, args map[string]any) (any, error) {
			return map[string]any{"topic": args["topic"], "hits": 1}, nil
		})

	assistant := New(func(o *Options) {
		o.Model = llm
		o.Tools = []tool.Tool{lookup}
	})

	result, err := assistant.Turn(context.Background(), "conv-1", "find pizza near me")
	require.NoError(t, err)
	assert.Equal(t, "Pizza places found: Luigi's.", result.FinalText)
	assert.Equal(t, core.RoleSupervisor, result.CurrentRole)
	assert.False(t, result.Terminal)

	// Both decision steps saw the registered tool definitions.
	reqs := llm.Requests()
	require.Len(t, reqs, 2)
	for _, req := range reqs {
		require.Len(t, req.Tools, 1)
		assert.Equal(t, "LOOKUP_TOOL", req.Tools[0].Function.Name)
	}

	// The persisted transcript carries the full cycle.
	saved, err := assistant.StateStore().Load("conv-1")
	require.NoError(t, err)
	require.Len(t, saved.Messages, 4)
	assert.True(t, saved.Messages[1].HasToolCalls())
	assert.Equal(t, `{"hits":1,"topic":"pizza"}`, saved.Messages[2].Content)
}

func TestAssistantEndOfConversation(t *testing.T) {
	llm := model.NewMockModel("scripted")
	llm.Enqueue(&model.Response{
		Content:      "Goodbye! " + supervisor.EndMarker,
		FinishReason: "stop",
	})

	assistant := New(func(o *Options) { o.Model = llm })

	result, err := assistant.Turn(context.Background(), "conv-1", "that's all, thanks")
	require.NoError(t, err)
	assert.True(t, result.Terminal)
	assert.Equal(t, core.RoleEnd, result.CurrentRole)
	assert.Equal(t, loop.FarewellText, result.FinalText)
}

func TestAssistantDefaultsAnswerDirectly(t *testing.T) {
	// The unscripted mock echoes; the loop treats it as a direct answer.
	assistant := New()

	result, err := assistant.Turn(context.Background(), "conv-1", "hello")
	require.NoError(t, err)
	assert.Contains(t, result.FinalText, "hello")

	_, err = assistant.Registry().Resolve("ANY_TOOL")
	assert.Error(t, err)
}
