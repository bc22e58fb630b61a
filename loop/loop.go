// Package loop drives an agent through a bounded sequence of turns, running
// the validation operation whenever the agent asks for it.
package loop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/formpilot/record"
	"github.com/tbxark/formpilot/tool"
	"github.com/tbxark/formpilot/transcript"
)

var (
	ErrTransport  = errors.New("agent transport failed")
	ErrTranscript = errors.New("transcript append failed")
)

// Observer receives every part appended to the transcript, in order. Text
// parts carry the delta, not the accumulated text.
type Observer func(turnID string, part transcript.Part)

// Recorder collects loop counters.
type Recorder interface {
	StepStarted()
	OperationExecuted(ok bool)
	Finished(reason StopReason, steps int)
}

type Option func(*Loop)

func WithBudget(steps int) Option {
	return func(l *Loop) {
		if steps > 0 {
			l.budget = Budget(steps)
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(l *Loop) {
		l.observer = observer
	}
}

func WithRecorder(recorder Recorder) Option {
	return func(l *Loop) {
		l.recorder = recorder
	}
}

type Loop struct {
	producer  Producer
	operation tool.Operation
	budget    Budget
	observer  Observer
	recorder  Recorder
}

func New(producer Producer, operation tool.Operation, opts ...Option) *Loop {
	l := &Loop{
		producer:  producer,
		operation: operation,
		budget:    DefaultBudget,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loop) Budget() Budget {
	return l.budget
}

type Result struct {
	Transcript *transcript.Transcript
	// Turns holds the assistant turns added by this run.
	Turns  []transcript.Turn
	Steps  int
	State  State
	Reason StopReason
	// LastResult is the most recent operation result, if any.
	LastResult *record.ValidationResult
}

type run struct {
	*Loop
	observer Observer
	tr       *transcript.Transcript
	result   *Result
	turnID   string
	calls    []transcript.ToolCall
}

// Run appends user to a snapshot of history and drives the agent until it
// answers without a tool call, the budget is spent, the transport fails or
// ctx is cancelled. The returned Result is non-nil whenever the transcript
// could be seeded, including on transport failure and cancellation.
func (l *Loop) Run(ctx context.Context, history []transcript.Turn, user transcript.Turn) (*Result, error) {
	return l.RunWithObserver(ctx, history, user, l.observer)
}

// RunWithObserver is Run with a per-run observer in place of the configured one.
func (l *Loop) RunWithObserver(ctx context.Context, history []transcript.Turn, user transcript.Turn, observer Observer) (res *Result, err error) {
	ctx = callbacks.EnsureRunInfo(ctx, "ToolInvocationLoop", "Agent")
	ctx = callbacks.OnStart(ctx, user)
	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
			return
		}
		callbacks.OnEnd(ctx, res)
	}()

	seed := make([]transcript.Turn, 0, len(history)+1)
	seed = append(seed, history...)
	seed = append(seed, user)
	tr, err := transcript.New(seed...)
	if err != nil {
		return nil, fmt.Errorf("seed transcript failed: %w", err)
	}

	r := &run{Loop: l, observer: observer, tr: tr, result: &Result{Transcript: tr, State: AwaitingAgent}}
	var fatal error
	for r.result.State != Done {
		var event Event
		switch r.result.State {
		case AwaitingAgent:
			event, fatal = r.awaitAgent(ctx)
		case ExecutingOperation:
			event, fatal = r.executeOperation(ctx)
		}
		next, terr := Next(r.result.State, event)
		if terr != nil {
			return r.result, terr
		}
		slog.Debug("loop transition", "from", r.result.State, "event", event, "to", next, "step", r.result.Steps)
		r.result.State = next
		if next == Done {
			r.result.Reason = stopReason(event)
		}
	}

	if l.recorder != nil {
		l.recorder.Finished(r.result.Reason, r.result.Steps)
	}
	slog.Info("loop finished", "reason", r.result.Reason, "steps", r.result.Steps)
	return r.result, fatal
}

func (r *run) toolChoice(step int) schema.ToolChoice {
	if r.budget.Final(step) {
		return schema.ToolChoiceAllowed
	}
	return schema.ToolChoiceForced
}

func (r *run) awaitAgent(ctx context.Context) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Cancelled, fmt.Errorf("loop cancelled: %w", err)
	}
	r.result.Steps++
	step := r.result.Steps
	if r.recorder != nil {
		r.recorder.StepStarted()
	}
	slog.Debug("agent turn started", "step", step)

	req := &Request{
		History:    r.tr.Turns(),
		Tools:      []*schema.ToolInfo{r.operation.Info()},
		ToolChoice: r.toolChoice(step),
		Step:       step,
	}
	stream, err := r.producer.Produce(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return Cancelled, fmt.Errorf("loop cancelled: %w", ctx.Err())
		}
		slog.Error("agent turn failed", "step", step, "error", err)
		return TransportFailed, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer stream.Close()

	r.turnID = ""
	r.calls = nil
	for {
		part, err := stream.Recv()
		if ctx.Err() != nil {
			return Cancelled, fmt.Errorf("loop cancelled: %w", ctx.Err())
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.Error("agent stream failed", "step", step, "error", err)
			return TransportFailed, fmt.Errorf("%w: %w", ErrTransport, err)
		}
		if err := r.appendAgentPart(part); err != nil {
			return AppendFailed, fmt.Errorf("%w: %w", ErrTranscript, err)
		}
	}

	if len(r.calls) == 0 {
		return TextOnly, nil
	}
	slog.Debug("agent requested operations", "step", step, "calls", len(r.calls))
	return ToolCallRequested, nil
}

func (r *run) appendAgentPart(part transcript.Part) error {
	switch part.Type {
	case transcript.PartText:
		if part.Text == "" {
			return nil
		}
	case transcript.PartToolCall:
		if part.ToolCall == nil {
			return nil
		}
		call := *part.ToolCall
		if call.ID == "" {
			call.ID = transcript.NewID()
		}
		part = transcript.ToolCallPart(call)
	default:
		// Only the loop produces results.
		return nil
	}

	if r.turnID == "" {
		turn := transcript.Turn{ID: transcript.NewID(), Role: transcript.RoleAssistant}
		if err := r.tr.Append(turn); err != nil {
			return err
		}
		r.turnID = turn.ID
		r.result.Turns = append(r.result.Turns, turn)
	}

	var err error
	if part.Type == transcript.PartText {
		err = r.tr.AppendText(r.turnID, part.Text)
	} else {
		err = r.tr.AppendPart(r.turnID, part)
		r.calls = append(r.calls, *part.ToolCall)
	}
	if err != nil {
		return err
	}
	r.syncTurn()
	r.notify(part)
	return nil
}

func (r *run) executeOperation(ctx context.Context) (Event, error) {
	for _, call := range r.calls {
		if err := ctx.Err(); err != nil {
			return Cancelled, fmt.Errorf("loop cancelled: %w", err)
		}
		res := r.invoke(call)
		part := transcript.ToolResultPart(transcript.ToolResult{
			CallID:  call.ID,
			Name:    call.Name,
			Result:  res,
			Content: tool.Payload(res),
		})
		if err := r.tr.AppendPart(r.turnID, part); err != nil {
			return AppendFailed, fmt.Errorf("%w: %w", ErrTranscript, err)
		}
		r.result.LastResult = &res
		if r.recorder != nil {
			r.recorder.OperationExecuted(res.OK)
		}
		slog.Info("operation executed", "name", call.Name, "call_id", call.ID, "ok", res.OK, "errors", len(res.Errors))
		r.notify(part)
	}
	r.syncTurn()
	r.calls = nil

	if r.budget.Exhausted(r.result.Steps) {
		return BudgetExhausted, nil
	}
	return OperationCompleted, nil
}

func (r *run) invoke(call transcript.ToolCall) (res record.ValidationResult) {
	info := r.operation.Info()
	if call.Name != info.Name {
		return tool.ErrorResult("Unknown operation %q; the only operation is %q.", call.Name, info.Name)
	}
	defer func() {
		if p := recover(); p != nil {
			slog.Error("operation panicked", "name", call.Name, "panic", p)
			res = tool.ErrorResult("Operation %s failed: %v", call.Name, p)
		}
	}()
	return r.operation.Run(call.Arguments)
}

func (r *run) syncTurn() {
	turn, ok := r.tr.Turn(r.turnID)
	if !ok {
		return
	}
	for i := range r.result.Turns {
		if r.result.Turns[i].ID == turn.ID {
			r.result.Turns[i] = turn
			return
		}
	}
}

func (r *run) notify(part transcript.Part) {
	if r.observer != nil {
		r.observer(r.turnID, part)
	}
}
