package llm

import (
	"context"
	"errors"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"chatterm/tool"
)

// OpenAI streams completions from an OpenAI-compatible chat endpoint. The
// Think flag is silently ignored: reasoning models decide that server-side
// and the rest never think, which is the declared behavior.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAI creates an OpenAI provider for the given model.
func NewOpenAI(model, apiKey string, temperature float64) *OpenAI {
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	if strings.HasPrefix(model, "o") {
		// Reasoning models reject anything but the default temperature.
		temperature = 1.0
	}
	return &OpenAI{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: float32(temperature),
	}
}

// Stream implements Provider.
func (o *OpenAI) Stream(ctx context.Context, msgs []Message, opts StreamOptions) <-chan StreamEvent {
	out := make(chan StreamEvent, 8)

	go func() {
		defer close(out)

		req := openai.ChatCompletionRequest{
			Model:       o.model,
			Stream:      true,
			Temperature: o.temperature,
			Messages:    convertOpenAIMessages(msgs),
		}
		if len(opts.Tools) > 0 {
			req.Tools = convertOpenAITools(opts.Tools)
		}

		stream, err := o.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			out <- StreamEvent{Err: err}
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				out <- StreamEvent{Err: err}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}

			delta := resp.Choices[0].Delta
			if delta.Content != "" {
				out <- StreamEvent{Kind: ChunkText, Content: delta.Content}
			}
			for _, tc := range delta.ToolCalls {
				out <- StreamEvent{Tool: &ToolFragment{
					Name: tc.Function.Name,
					ID:   tc.ID,
					Args: tc.Function.Arguments,
				}}
			}
		}
		out <- StreamEvent{Done: true}
	}()

	return out
}

func convertOpenAIMessages(msgs []Message) []openai.ChatCompletionMessage {
	var params []openai.ChatCompletionMessage
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			params = append(params, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: m.Content,
			})
		case RoleUser:
			params = append(params, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: m.Content,
			})
		case RoleAssistant:
			if call, ok := ParseToolCall(m.Content); ok {
				params = append(params, openai.ChatCompletionMessage{
					Role: openai.ChatMessageRoleAssistant,
					ToolCalls: []openai.ToolCall{{
						ID:   call.ID,
						Type: openai.ToolTypeFunction,
						Function: openai.FunctionCall{
							Name:      call.Name,
							Arguments: call.Args,
						},
					}},
				})
				continue
			}
			params = append(params, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: m.Content,
			})
		case RoleTool:
			params = append(params, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})
		}
	}
	return params
}

func convertOpenAITools(defs []tool.Definition) []openai.Tool {
	apiTools := make([]openai.Tool, len(defs))
	for i, def := range defs {
		apiTools[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Schema,
			},
		}
	}
	return apiTools
}
