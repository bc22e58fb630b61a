// Package agent wires the tool loop into a chat session and exposes it as an
// eino adk agent.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/formpilot/transcript"
)

var _ adk.Agent = (*Agent)(nil)

type Agent struct {
	name        string
	description string
	chat        *Chat
}

func NewAgent(name, description string, chat *Chat) *Agent {
	return &Agent{
		name:        name,
		description: description,
		chat:        chat,
	}
}

func (a *Agent) Name(ctx context.Context) string {
	return a.name
}

func (a *Agent) Description(ctx context.Context) string {
	return a.description
}

// Run answers the last input message. The reply is emitted as one assistant
// message; a quit command also carries an exit action.
func (a *Agent) Run(ctx context.Context, input *adk.AgentInput, options ...adk.AgentRunOption) *adk.AsyncIterator[*adk.AgentEvent] {
	iter, gen := adk.NewAsyncIteratorPair[*adk.AgentEvent]()
	go func() {
		defer func() {
			e := recover()
			if e != nil {
				gen.Send(&adk.AgentEvent{
					Err: fmt.Errorf("recover from panic: %v", e),
				})
			}
			gen.Close()
		}()
		if input == nil || len(input.Messages) == 0 {
			gen.Send(&adk.AgentEvent{
				Err: errors.New("no messages in input"),
			})
			return
		}
		user, ok := transcript.FromMessage(input.Messages[len(input.Messages)-1])
		if !ok || user.Role != transcript.RoleUser {
			gen.Send(&adk.AgentEvent{
				Err: errors.New("last input message is not a user message"),
			})
			return
		}
		reply, err := a.chat.Send(ctx, user.Text(), nil)
		if reply == nil {
			gen.Send(&adk.AgentEvent{
				Err: fmt.Errorf("chat send failed: %w", err),
			})
			return
		}
		event := &adk.AgentEvent{
			AgentName: a.name,
			Output: &adk.AgentOutput{
				MessageOutput: &adk.MessageVariant{
					IsStreaming: false,
					Message:     schema.AssistantMessage(reply.Message, nil),
					Role:        schema.Assistant,
				},
			},
		}
		if reply.Command == CommandQuit {
			event.Action = &adk.AgentAction{Exit: true}
		}
		gen.Send(event)
		if err != nil {
			gen.Send(&adk.AgentEvent{
				AgentName: a.name,
				Err:       fmt.Errorf("chat send failed: %w", err),
			})
		}
	}()
	return iter
}
