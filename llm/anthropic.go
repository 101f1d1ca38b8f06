package llm

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/tidwall/gjson"

	"chatterm/tool"
)

const (
	anthropicMaxTokens      = 16384
	anthropicThinkingBudget = 2048
	defaultTemperature      = 0.4
)

// Anthropic streams completions from the Anthropic Messages API, including
// extended thinking and tool use.
type Anthropic struct {
	client      anthropic.Client
	model       string
	temperature float64
}

// NewAnthropic creates an Anthropic provider for the given model.
func NewAnthropic(model, apiKey string, temperature float64) *Anthropic {
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	return &Anthropic{
		client:      anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:       model,
		temperature: temperature,
	}
}

// Stream implements Provider.
func (a *Anthropic) Stream(ctx context.Context, msgs []Message, opts StreamOptions) <-chan StreamEvent {
	out := make(chan StreamEvent, 8)

	go func() {
		defer close(out)

		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(a.model),
			MaxTokens: anthropicMaxTokens,
			Messages:  convertAnthropicMessages(msgs),
		}

		if system := systemPrompt(msgs); system != "" {
			params.System = []anthropic.TextBlockParam{{Text: system}}
		}
		if len(opts.Tools) > 0 {
			params.Tools = convertAnthropicTools(opts.Tools)
		}
		if opts.Think {
			// Thinking requires temperature 1.
			params.Temperature = anthropic.Float(1.0)
			params.Thinking = anthropic.ThinkingConfigParamOfEnabled(anthropicThinkingBudget)
		} else {
			params.Temperature = anthropic.Float(a.temperature)
		}

		stream := a.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		for stream.Next() {
			event := stream.Current()
			switch event.Type {
			case "content_block_start":
				block := event.AsContentBlockStart().ContentBlock
				if block.Type == "tool_use" {
					toolUse := block.AsToolUse()
					out <- StreamEvent{Tool: &ToolFragment{
						Name: toolUse.Name,
						ID:   toolUse.ID,
					}}
				}

			case "content_block_delta":
				delta := event.AsContentBlockDelta().Delta
				switch delta.Type {
				case "text_delta":
					if delta.Text != "" {
						out <- StreamEvent{Kind: ChunkText, Content: delta.Text}
					}
				case "thinking_delta":
					if delta.Thinking != "" {
						out <- StreamEvent{Kind: ChunkThinking, Content: delta.Thinking}
					}
				case "input_json_delta":
					if delta.PartialJSON != "" {
						out <- StreamEvent{Tool: &ToolFragment{Args: delta.PartialJSON}}
					}
				}

			case "message_stop":
				out <- StreamEvent{Done: true}
				return
			}
		}

		if err := stream.Err(); err != nil {
			out <- StreamEvent{Err: err}
			return
		}
		out <- StreamEvent{Done: true}
	}()

	return out
}

// systemPrompt extracts the leading system message; the Anthropic API takes
// it separately from the message list.
func systemPrompt(msgs []Message) string {
	for _, m := range msgs {
		if m.Role == RoleSystem {
			return m.Content
		}
	}
	return ""
}

func convertAnthropicMessages(msgs []Message) []anthropic.MessageParam {
	var params []anthropic.MessageParam
	for _, m := range msgs {
		switch m.Role {
		case RoleUser:
			params = append(params, anthropic.NewUserMessage(
				anthropic.NewTextBlock(m.Content),
			))
		case RoleAssistant:
			if call, ok := ParseToolCall(m.Content); ok {
				params = append(params, anthropic.NewAssistantMessage(
					anthropic.NewToolUseBlock(call.ID, json.RawMessage(call.Args), call.Name),
				))
				continue
			}
			params = append(params, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(m.Content),
			))
		case RoleTool:
			// Tool results travel as user messages with a tool_result block.
			isError := gjson.Get(m.Content, "success").Exists() && !gjson.Get(m.Content, "success").Bool()
			params = append(params, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(m.ToolCallID, m.Content, isError),
			))
		}
	}
	return params
}

func convertAnthropicTools(defs []tool.Definition) []anthropic.ToolUnionParam {
	apiTools := make([]anthropic.ToolUnionParam, len(defs))
	for i, def := range defs {
		properties := def.Schema["properties"]
		required, _ := def.Schema["required"].([]string)

		inputSchema := anthropic.ToolInputSchemaParam{
			Properties: properties,
			Required:   required,
			Type:       "object",
		}

		toolUnion := anthropic.ToolUnionParamOfTool(inputSchema, def.Name)
		if t := toolUnion.OfTool; t != nil {
			t.Description = anthropic.Opt(def.Description)
		}
		apiTools[i] = toolUnion
	}
	return apiTools
}
