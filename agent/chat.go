package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tbxark/formpilot/extract"
	"github.com/tbxark/formpilot/loop"
	"github.com/tbxark/formpilot/record"
	"github.com/tbxark/formpilot/transcript"
)

var ErrEmptyInput = errors.New("empty user input")

// Reply is the outcome of one user message. Message is the last assistant
// text with the embedded form data removed.
type Reply struct {
	Command Command           `json:"command,omitempty"`
	Turns   []transcript.Turn `json:"turns,omitempty"`
	Message string            `json:"message"`
	Record  *record.Record    `json:"record,omitempty"`
	Reason  loop.StopReason   `json:"reason,omitempty"`
}

// Chat runs user messages through the loop and keeps per-session history.
type Chat struct {
	loop     *loop.Loop
	sessions *SessionStore
	commands *CommandParser
}

func NewChat(l *loop.Loop, sessions *SessionStore) *Chat {
	return &Chat{
		loop:     l,
		sessions: sessions,
		commands: NewCommandParser(),
	}
}

func (c *Chat) Loop() *loop.Loop {
	return c.loop
}

func (c *Chat) Sessions() *SessionStore {
	return c.sessions
}

// Send handles one user message. observer, when not nil, sees every part
// the run appends. The session is saved with whatever the run produced,
// including partial output of a failed run.
func (c *Chat) Send(ctx context.Context, input string, observer loop.Observer) (*Reply, error) {
	switch cmd := c.commands.Parse(input); cmd {
	case CommandReset:
		if err := c.sessions.Reset(ctx); err != nil {
			return nil, fmt.Errorf("reset session failed: %w", err)
		}
		return &Reply{Command: cmd, Message: "Conversation cleared."}, nil
	case CommandQuit:
		return &Reply{Command: cmd, Message: "Bye."}, nil
	}
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}
	user := transcript.UserTurn(input)

	sess, err := c.sessions.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session failed: %w", err)
	}
	slog.Debug("chat message received", "history", len(sess.Turns))

	res, runErr := c.loop.RunWithObserver(ctx, sess.Turns, user, observer)
	if res == nil {
		return nil, runErr
	}

	reply := &Reply{Turns: res.Turns, Reason: res.Reason}
	if n := len(res.Turns); n > 0 {
		extracted := extract.Extract(res.Turns[n-1].Text())
		reply.Message = extracted.DisplayText
		reply.Record = extracted.Record
	}
	if reply.Record == nil && res.LastResult != nil && res.LastResult.OK {
		reply.Record = res.LastResult.Record
	}

	sess.Turns = res.Transcript.Turns()
	if reply.Record != nil {
		sess.Record = reply.Record
	}
	if err := c.sessions.Save(ctx, sess); err != nil {
		return nil, errors.Join(runErr, fmt.Errorf("save session failed: %w", err))
	}
	return reply, runErr
}
