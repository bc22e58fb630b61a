package agent

import (
	"strings"
)

type Command string

const (
	CommandNone  Command = ""
	CommandReset Command = "reset"
	CommandQuit  Command = "quit"
)

// CommandParser recognizes chat inputs that are handled locally instead of
// being sent to the agent.
type CommandParser struct {
	ResetKeywords []string
	QuitKeywords  []string
}

func NewCommandParser() *CommandParser {
	return &CommandParser{
		ResetKeywords: []string{"/reset", "/clear", "/new"},
		QuitKeywords:  []string{"/quit", "/exit", "quit", "exit"},
	}
}

func (p *CommandParser) Parse(input string) Command {
	normalized := strings.ToLower(strings.TrimSpace(input))
	for _, keyword := range p.ResetKeywords {
		if normalized == keyword {
			return CommandReset
		}
	}
	for _, keyword := range p.QuitKeywords {
		if normalized == keyword {
			return CommandQuit
		}
	}
	return CommandNone
}
