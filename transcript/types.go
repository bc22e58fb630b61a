package transcript

import (
	"strings"

	"github.com/google/uuid"
	"github.com/tbxark/formpilot/record"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type PartType string

const (
	PartText       PartType = "text"
	PartToolCall   PartType = "tool-call"
	PartToolResult PartType = "tool-result"
)

type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type ToolResult struct {
	CallID string                  `json:"call_id"`
	Name   string                  `json:"name"`
	Result record.ValidationResult `json:"result"`
	// Content is the payload handed back to the agent.
	Content string `json:"content"`
}

// Part is one element of a turn. Exactly one of Text, ToolCall or ToolResult
// is meaningful, selected by Type.
type Part struct {
	Type       PartType    `json:"type"`
	Text       string      `json:"text,omitempty"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

func TextPart(text string) Part {
	return Part{Type: PartText, Text: text}
}

func ToolCallPart(call ToolCall) Part {
	return Part{Type: PartToolCall, ToolCall: &call}
}

func ToolResultPart(result ToolResult) Part {
	return Part{Type: PartToolResult, ToolResult: &result}
}

type Turn struct {
	ID    string `json:"id"`
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

func NewID() string {
	return uuid.NewString()
}

// UserTurn builds a user turn with a fresh ID.
func UserTurn(text string) Turn {
	return Turn{ID: NewID(), Role: RoleUser, Parts: []Part{TextPart(text)}}
}

// Text joins the text parts of the turn.
func (t Turn) Text() string {
	var sb strings.Builder
	for _, p := range t.Parts {
		if p.Type == PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// ToolCalls returns the tool calls of the turn, in order.
func (t Turn) ToolCalls() []ToolCall {
	var out []ToolCall
	for _, p := range t.Parts {
		if p.Type == PartToolCall && p.ToolCall != nil {
			out = append(out, *p.ToolCall)
		}
	}
	return out
}

func (p Part) clone() Part {
	if p.ToolCall != nil {
		c := *p.ToolCall
		p.ToolCall = &c
	}
	if p.ToolResult != nil {
		r := *p.ToolResult
		p.ToolResult = &r
	}
	return p
}

func (t Turn) clone() Turn {
	parts := make([]Part, len(t.Parts))
	for i, p := range t.Parts {
		parts[i] = p.clone()
	}
	t.Parts = parts
	return t
}
