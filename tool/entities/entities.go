// Package entities provides the entity detector capability: an LLM call that
// extracts structured entities from the user query, with the conversation
// history injected from state rather than supplied by the caller.
package entities

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/concierge/core"
	"github.com/hupe1980/concierge/model"
	"github.com/hupe1980/concierge/prompt"
	"github.com/hupe1980/concierge/tool"
)

// ToolName is the registry key under which the capability is exposed.
const ToolName = "ENTITY_DETECTOR_TOOL"

// PromptFile names the instruction template loaded from the prompt store.
const PromptFile = "entity_detector_prompt.txt"

// Tool detects entities in the user query and returns them in a structured
// JSON format. The chat history requirement is implicit: it is satisfied
// from conversation state via the tool context, not from declared arguments.
type Tool struct {
	llm     model.Model
	prompts prompt.Store
}

var _ tool.Tool = (*Tool)(nil)

// New creates the entity detector with its model and prompt dependencies.
func New(llm model.Model, prompts prompt.Store) *Tool {
	return &Tool{llm: llm, prompts: prompts}
}

// Name implements tool.Tool.
func (t *Tool) Name() string { return ToolName }

// Description implements tool.Tool.
func (t *Tool) Description() string {
	return "Detects entities in the user query and returns them in a structured JSON format."
}

// Parameters implements tool.Tool.
func (t *Tool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"userQuery": map[string]any{
				"type":        "string",
				"description": "The raw user query to extract entities from",
			},
		},
		"required": []string{"userQuery"},
	}
}

// Call implements tool.Tool.
func (t *Tool) Call(ctx context.Context, toolCtx *tool.Context, args map[string]any) (any, error) {
	query, _ := args["userQuery"].(string)
	if query == "" {
		return nil, fmt.Errorf("userQuery must be a non-empty string")
	}

	instructions, err := t.prompts.Load(PromptFile)
	if err != nil {
		return nil, err
	}

	content := fmt.Sprintf("User Query: %s, Chat History: %s",
		query, core.RenderTranscript(toolCtx.History()))

	resp, err := t.llm.Generate(ctx, model.Request{
		Instructions: instructions,
		Messages:     []core.Message{core.NewUserMessage(content)},
	})
	if err != nil {
		return nil, err
	}

	// The detector prompt asks for a single JSON document; flatten any
	// pretty-printing before it lands in the transcript.
	return strings.ReplaceAll(resp.Content, "\n", ""), nil
}
