package transcript

import (
	"github.com/cloudwego/eino/schema"
)

// ToMessages converts turns into the message history an agent model expects.
// An assistant turn becomes one or more assistant messages, each followed by
// the tool messages answering its calls. Calls left without a result, as
// after a cancelled run, are dropped.
func ToMessages(turns []Turn) []*schema.Message {
	out := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case RoleUser:
			out = append(out, schema.UserMessage(turn.Text()))
		case RoleAssistant:
			out = append(out, assistantMessages(turn)...)
		}
	}
	return out
}

func answeredCalls(turn Turn) map[string]struct{} {
	answered := make(map[string]struct{})
	for _, p := range turn.Parts {
		if p.Type == PartToolResult && p.ToolResult != nil {
			answered[p.ToolResult.CallID] = struct{}{}
		}
	}
	return answered
}

func assistantMessages(turn Turn) []*schema.Message {
	answered := answeredCalls(turn)
	var out []*schema.Message
	var pending *schema.Message
	flush := func() {
		if pending != nil && (pending.Content != "" || len(pending.ToolCalls) > 0) {
			out = append(out, pending)
		}
		pending = nil
	}
	for _, p := range turn.Parts {
		switch p.Type {
		case PartText:
			if pending != nil && len(pending.ToolCalls) > 0 {
				flush()
			}
			if pending == nil {
				pending = schema.AssistantMessage("", nil)
			}
			pending.Content += p.Text
		case PartToolCall:
			if p.ToolCall == nil {
				continue
			}
			if _, ok := answered[p.ToolCall.ID]; !ok {
				continue
			}
			if pending == nil {
				pending = schema.AssistantMessage("", nil)
			}
			pending.ToolCalls = append(pending.ToolCalls, schema.ToolCall{
				ID:   p.ToolCall.ID,
				Type: "function",
				Function: schema.FunctionCall{
					Name:      p.ToolCall.Name,
					Arguments: p.ToolCall.Arguments,
				},
			})
		case PartToolResult:
			if p.ToolResult == nil {
				continue
			}
			flush()
			out = append(out, schema.ToolMessage(p.ToolResult.Content, p.ToolResult.CallID))
		}
	}
	flush()
	return out
}

// FromMessage converts a plain user or assistant message into a turn. Tool
// traffic is not carried over.
func FromMessage(msg *schema.Message) (Turn, bool) {
	if msg == nil {
		return Turn{}, false
	}
	switch msg.Role {
	case schema.User:
		return Turn{ID: NewID(), Role: RoleUser, Parts: []Part{TextPart(msg.Content)}}, true
	case schema.Assistant:
		if msg.Content == "" {
			return Turn{}, false
		}
		return Turn{ID: NewID(), Role: RoleAssistant, Parts: []Part{TextPart(msg.Content)}}, true
	default:
		return Turn{}, false
	}
}
