package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/quorumhq/minute/internal/notes"
)

// Enricher turns a raw transcript into structured meeting notes.
type Enricher interface {
	Enrich(ctx context.Context, transcript string) (*notes.Notes, error)
}

// ClaudeEnricher extracts structured notes via the Anthropic API using a
// forced tool call so the output shape is guaranteed.
type ClaudeEnricher struct {
	apiKey string
	model  anthropic.Model
}

func NewClaudeEnricher(apiKey string) *ClaudeEnricher {
	return &ClaudeEnricher{
		apiKey: apiKey,
		model:  anthropic.ModelClaudeSonnet4_5_20250929,
	}
}

// notesToolInput mirrors the save_meeting_notes tool schema.
type notesToolInput struct {
	Title     string       `json:"title"`
	Summary   string       `json:"summary"`
	Decisions []string     `json:"decisions"`
	Tasks     []notes.Task `json:"tasks"`
}

// getNotesTool returns the tool definition for structured notes output.
func getNotesTool() anthropic.ToolParam {
	return anthropic.ToolParam{
		Name: "save_meeting_notes",
		Description: anthropic.String(
			"Save the structured meeting notes: title, summary, decisions, and action items",
		),
		InputSchema: anthropic.ToolInputSchemaParam{
			Type: "object",
			Properties: map[string]interface{}{
				"title": map[string]interface{}{
					"type":        "string",
					"description": "A short descriptive title for the meeting",
				},
				"summary": map[string]interface{}{
					"type":        "string",
					"description": "A few paragraphs summarizing what was discussed",
				},
				"decisions": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
					},
					"description": "Decisions that were made, one per entry",
				},
				"tasks": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"description": map[string]interface{}{"type": "string"},
							"owner":       map[string]interface{}{"type": "string"},
						},
						"required": []string{"description"},
					},
					"description": "Action items, with an owner when one was named",
				},
			},
			Required: []string{"title", "summary", "decisions", "tasks"},
		},
	}
}

// Enrich sends the transcript to the Anthropic API and parses the forced
// tool call into structured notes.
func (e *ClaudeEnricher) Enrich(ctx context.Context, transcript string) (*notes.Notes, error) {
	if e.apiKey == "" {
		return nil, errors.New("API key required: set ANTHROPIC_API_KEY or use --anthropic-api-key")
	}

	client := anthropic.NewClient(option.WithAPIKey(e.apiKey))
	toolDef := getNotesTool()

	tool := anthropic.ToolUnionParamOfTool(toolDef.InputSchema, toolDef.Name)
	tool.OfTool.Description = toolDef.Description

	params := anthropic.MessageNewParams{
		Model:     e.model,
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: enrichSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(transcript)),
		},
		Tools:      []anthropic.ToolUnionParam{tool},
		ToolChoice: anthropic.ToolChoiceParamOfTool("save_meeting_notes"),
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to enrich transcript via Anthropic API: %w", err)
	}

	if len(resp.Content) == 0 {
		return nil, errors.New("empty response from Anthropic API")
	}

	input, err := parseNotesToolUse(resp.Content)
	if err != nil {
		return nil, err
	}

	return &notes.Notes{
		Title:     input.Title,
		Summary:   input.Summary,
		Decisions: input.Decisions,
		Tasks:     input.Tasks,
	}, nil
}

// parseNotesToolUse extracts the notesToolInput from response content blocks.
func parseNotesToolUse(content []anthropic.ContentBlockUnion) (*notesToolInput, error) {
	for _, block := range content {
		if toolUse, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			var input notesToolInput
			inputBytes, err := json.Marshal(toolUse.Input)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal tool input: %w", err)
			}
			if err := json.Unmarshal(inputBytes, &input); err != nil {
				return nil, fmt.Errorf("failed to parse tool input: %w", err)
			}

			return &input, nil
		}
	}

	return nil, errors.New("no tool use found in Anthropic API response")
}
