package loop

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/formpilot/transcript"
)

// EinoProducer streams agent turns from an eino tool calling chat model.
// Text deltas are forwarded as they arrive; tool calls are emitted once the
// model stream is complete.
type EinoProducer struct {
	chatModel    model.ToolCallingChatModel
	systemPrompt string
}

var _ Producer = (*EinoProducer)(nil)

func NewEinoProducer(chatModel model.ToolCallingChatModel, opts ...ProducerOption) (*EinoProducer, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	o, err := resolveProducerOptions(opts)
	if err != nil {
		return nil, err
	}
	return &EinoProducer{chatModel: chatModel, systemPrompt: o.systemPrompt}, nil
}

func (p *EinoProducer) Produce(ctx context.Context, req *Request) (*schema.StreamReader[transcript.Part], error) {
	messages := make([]*schema.Message, 0, len(req.History)+1)
	messages = append(messages, schema.SystemMessage(p.systemPrompt))
	messages = append(messages, transcript.ToMessages(req.History)...)

	var opts []model.Option
	if len(req.Tools) > 0 {
		opts = append(opts, model.WithTools(req.Tools), model.WithToolChoice(req.ToolChoice))
	}
	stream, err := p.chatModel.Stream(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("LLM stream call failed: %w", err)
	}

	sr, sw := schema.Pipe[transcript.Part](8)
	go func() {
		defer sw.Close()
		defer stream.Close()
		var chunks []*schema.Message
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				sw.Send(transcript.Part{}, fmt.Errorf("LLM stream receive failed: %w", err))
				return
			}
			if chunk == nil {
				continue
			}
			chunks = append(chunks, chunk)
			if chunk.Content != "" {
				if closed := sw.Send(transcript.TextPart(chunk.Content), nil); closed {
					return
				}
			}
		}
		if len(chunks) == 0 {
			return
		}
		full, err := schema.ConcatMessages(chunks)
		if err != nil {
			sw.Send(transcript.Part{}, fmt.Errorf("concat LLM stream failed: %w", err))
			return
		}
		for _, call := range full.ToolCalls {
			part := transcript.ToolCallPart(transcript.ToolCall{
				ID:        call.ID,
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			})
			if closed := sw.Send(part, nil); closed {
				return
			}
		}
	}()
	return sr, nil
}
