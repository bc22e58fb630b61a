package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/tbxark/formpilot/agent"
	"github.com/tbxark/formpilot/extract"
	"github.com/tbxark/formpilot/loop"
	"github.com/tbxark/formpilot/record"
	"github.com/tbxark/formpilot/transcript"
	"github.com/tbxark/formpilot/types"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

// ChatRequest either names a session and carries one message, or carries
// the whole conversation with the new user turn last.
type ChatRequest struct {
	SessionID string            `json:"session_id,omitempty"`
	Message   string            `json:"message,omitempty"`
	Turns     []transcript.Turn `json:"turns,omitempty"`
}

// StreamEvent is one NDJSON line of a chat response.
type StreamEvent struct {
	Type       string                 `json:"type"`
	TurnID     string                 `json:"turn_id,omitempty"`
	Text       string                 `json:"text,omitempty"`
	ToolCall   *transcript.ToolCall   `json:"tool_call,omitempty"`
	ToolResult *transcript.ToolResult `json:"tool_result,omitempty"`
	Reason     loop.StopReason        `json:"reason,omitempty"`
	Message    string                 `json:"message,omitempty"`
	Record     *record.Record         `json:"record,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

const (
	EventTextDelta  = "text-delta"
	EventToolCall   = "tool-call"
	EventToolResult = "tool-result"
	EventFinish     = "finish"
	EventError      = "error"
)

type ValidateResponse struct {
	OK     bool              `json:"ok"`
	Record *record.Record    `json:"record,omitempty"`
	Errors types.FieldErrors `json:"errors,omitempty"`
}

func partEvent(turnID string, part transcript.Part) StreamEvent {
	event := StreamEvent{TurnID: turnID}
	switch part.Type {
	case transcript.PartText:
		event.Type = EventTextDelta
		event.Text = part.Text
	case transcript.PartToolCall:
		event.Type = EventToolCall
		event.ToolCall = part.ToolCall
	case transcript.PartToolResult:
		event.Type = EventToolResult
		event.ToolResult = part.ToolResult
	}
	return event
}

type ndjsonWriter struct {
	resp *echo.Response
	err  error
}

func (w *ndjsonWriter) write(event StreamEvent) {
	if w.err != nil {
		return
	}
	line, err := sonic.Marshal(event)
	if err != nil {
		w.err = err
		return
	}
	line = append(line, '\n')
	if _, err := w.resp.Write(line); err != nil {
		w.err = err
		return
	}
	w.resp.Flush()
}

// Chat streams the parts of one loop run as NDJSON. The stream always ends
// with a finish or an error event.
func (h *Handler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request body"})
	}
	if len(req.Turns) == 0 && (req.SessionID == "" || req.Message == "") {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Either turns or session_id and message are required"})
	}
	if n := len(req.Turns); n > 0 && req.Turns[n-1].Role != transcript.RoleUser {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "The last turn must be a user turn"})
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "application/x-ndjson")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.WriteHeader(http.StatusOK)
	out := &ndjsonWriter{resp: resp}
	observer := func(turnID string, part transcript.Part) {
		out.write(partEvent(turnID, part))
	}

	ctx := c.Request().Context()
	var (
		finish StreamEvent
		err    error
	)
	if len(req.Turns) > 0 {
		finish, err = h.runStateless(c, req.Turns, observer)
	} else {
		var reply *agent.Reply
		reply, err = h.chat.Send(agent.WithSessionKey(ctx, req.SessionID), req.Message, observer)
		if reply != nil {
			finish = StreamEvent{Type: EventFinish, Reason: reply.Reason, Message: reply.Message, Record: reply.Record}
		}
	}
	if err != nil {
		slog.Error("chat failed", "session", req.SessionID, "error", err)
		out.write(StreamEvent{Type: EventError, Reason: finish.Reason, Error: err.Error()})
		return out.err
	}
	out.write(finish)
	return out.err
}

func (h *Handler) runStateless(c echo.Context, turns []transcript.Turn, observer loop.Observer) (StreamEvent, error) {
	// Clients may resend their own turns without the ids the server
	// assigned; every turn gets one before seeding.
	seeded := make([]transcript.Turn, len(turns))
	for i, turn := range turns {
		if turn.ID == "" {
			turn.ID = transcript.NewID()
		}
		seeded[i] = turn
	}
	history := seeded[:len(seeded)-1]
	user := seeded[len(seeded)-1]
	res, err := h.chat.Loop().RunWithObserver(c.Request().Context(), history, user, observer)
	if res == nil {
		return StreamEvent{}, err
	}
	event := StreamEvent{Type: EventFinish, Reason: res.Reason}
	if n := len(res.Turns); n > 0 {
		extracted := extract.Extract(res.Turns[n-1].Text())
		event.Message = extracted.DisplayText
		event.Record = extracted.Record
	}
	if event.Record == nil && res.LastResult != nil && res.LastResult.OK {
		event.Record = res.LastResult.Record
	}
	return event, err
}

// Validate checks a posted record. Field problems are answered with 422.
func (h *Handler) Validate(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request body"})
	}
	res := record.Validate(body)
	status := http.StatusOK
	if !res.OK {
		status = http.StatusUnprocessableEntity
	}
	return c.JSON(status, ValidateResponse{OK: res.OK, Record: res.Record, Errors: res.Errors})
}

// Prefill merges a JSON merge patch into the session's form data.
func (h *Handler) Prefill(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request body"})
	}
	ctx := agent.WithSessionKey(c.Request().Context(), c.Param("sessionId"))
	res, err := h.chat.Sessions().Prefill(ctx, body)
	if err != nil {
		if errors.Is(err, agent.ErrNoSessionKey) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Session id is required"})
		}
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid form data: " + err.Error()})
	}
	return c.JSON(http.StatusOK, ValidateResponse{OK: res.OK, Record: res.Record, Errors: res.Errors})
}

func (h *Handler) ResetSession(c echo.Context) error {
	ctx := agent.WithSessionKey(c.Request().Context(), c.Param("sessionId"))
	if err := h.chat.Sessions().Reset(ctx); err != nil {
		c.Logger().Error("Handler.ResetSession: ", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Failed to reset session"})
	}
	return c.NoContent(http.StatusNoContent)
}
