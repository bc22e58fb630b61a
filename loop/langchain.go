package loop

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/formpilot/tool"
	"github.com/tbxark/formpilot/transcript"
	"github.com/tmc/langchaingo/llms"
)

// LangChainProducer produces agent turns with a langchaingo model. The
// response is generated in one call and replayed as parts.
type LangChainProducer struct {
	llm          llms.Model
	systemPrompt string
}

var _ Producer = (*LangChainProducer)(nil)

func NewLangChainProducer(llm llms.Model, opts ...ProducerOption) (*LangChainProducer, error) {
	if llm == nil {
		return nil, errors.New("llm is required")
	}
	o, err := resolveProducerOptions(opts)
	if err != nil {
		return nil, err
	}
	return &LangChainProducer{llm: llm, systemPrompt: o.systemPrompt}, nil
}

func (p *LangChainProducer) Produce(ctx context.Context, req *Request) (*schema.StreamReader[transcript.Part], error) {
	tools, err := langChainTools(req.Tools)
	if err != nil {
		return nil, err
	}
	var callOpts []llms.CallOption
	if len(tools) > 0 {
		callOpts = append(callOpts, llms.WithTools(tools), llms.WithToolChoice(langChainToolChoice(req.ToolChoice)))
	}

	messages := langChainMessages(p.systemPrompt, req.History)
	resp, err := p.llm.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return nil, fmt.Errorf("LLM generate call failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return schema.StreamReaderFromArray([]transcript.Part{}), nil
	}

	choice := resp.Choices[0]
	var parts []transcript.Part
	if choice.Content != "" {
		parts = append(parts, transcript.TextPart(choice.Content))
	}
	for _, call := range choice.ToolCalls {
		if call.FunctionCall == nil {
			continue
		}
		parts = append(parts, transcript.ToolCallPart(transcript.ToolCall{
			ID:        call.ID,
			Name:      call.FunctionCall.Name,
			Arguments: call.FunctionCall.Arguments,
		}))
	}
	return schema.StreamReaderFromArray(parts), nil
}

func langChainTools(infos []*schema.ToolInfo) ([]llms.Tool, error) {
	tools := make([]llms.Tool, 0, len(infos))
	for _, info := range infos {
		params, err := tool.ParametersSchema(info)
		if err != nil {
			return nil, fmt.Errorf("convert parameters of %s failed: %w", info.Name, err)
		}
		tools = append(tools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        info.Name,
				Description: info.Desc,
				Parameters:  params,
			},
		})
	}
	return tools, nil
}

func langChainToolChoice(choice schema.ToolChoice) string {
	switch choice {
	case schema.ToolChoiceForced:
		return "required"
	case schema.ToolChoiceForbidden:
		return "none"
	default:
		return "auto"
	}
}

func langChainMessages(systemPrompt string, history []transcript.Turn) []llms.MessageContent {
	out := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt)}
	for _, msg := range transcript.ToMessages(history) {
		switch msg.Role {
		case schema.User:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, msg.Content))
		case schema.Assistant:
			content := llms.MessageContent{Role: llms.ChatMessageTypeAI}
			if msg.Content != "" {
				content.Parts = append(content.Parts, llms.TextContent{Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				content.Parts = append(content.Parts, llms.ToolCall{
					ID:   call.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      call.Function.Name,
						Arguments: call.Function.Arguments,
					},
				})
			}
			out = append(out, content)
		case schema.Tool:
			out = append(out, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: msg.ToolCallID,
					Content:    msg.Content,
				}},
			})
		}
	}
	return out
}
