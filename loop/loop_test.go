package loop

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/formpilot/record"
	"github.com/tbxark/formpilot/tool"
	"github.com/tbxark/formpilot/transcript"
)

const validArgs = `{"name":"Ada","email":"ada@example.com","address":{"line1":"1 Main","street":"Main St","city":"Springfield","state":"IL","country":"usa","zipCode":"62701"}}`

func call(id, args string) transcript.Part {
	return transcript.ToolCallPart(transcript.ToolCall{ID: id, Name: tool.ValidateFormDataName, Arguments: args})
}

func newLoop(t *testing.T, producer Producer, opts ...Option) *Loop {
	t.Helper()
	op, err := tool.NewValidateFormData()
	require.NoError(t, err)
	return New(producer, op, opts...)
}

type countingRecorder struct {
	steps, ok, failed int
	reason            StopReason
}

func (c *countingRecorder) StepStarted() { c.steps++ }

func (c *countingRecorder) OperationExecuted(ok bool) {
	if ok {
		c.ok++
	} else {
		c.failed++
	}
}

func (c *countingRecorder) Finished(reason StopReason, steps int) { c.reason = reason }

func TestRun_TextOnlyEndsAfterOneStep(t *testing.T) {
	producer := NewScriptedProducer(ScriptStep{Parts: []transcript.Part{
		transcript.TextPart("Hello! "),
		transcript.TextPart("What is your name?"),
	}})
	l := newLoop(t, producer)

	res, err := l.Run(context.Background(), nil, transcript.UserTurn("hi"))
	require.NoError(t, err)
	assert.Equal(t, Done, res.State)
	assert.Equal(t, StopAgentDone, res.Reason)
	assert.Equal(t, 1, res.Steps)
	require.Len(t, res.Turns, 1)
	assert.Equal(t, "Hello! What is your name?", res.Turns[0].Text())
	assert.Len(t, res.Turns[0].Parts, 1, "text deltas merge into one part")
	assert.Nil(t, res.LastResult)
	assert.Equal(t, 2, res.Transcript.Len())
}

func TestRun_BudgetExhaustedAfterThreeToolCalls(t *testing.T) {
	producer := NewScriptedProducer(
		ScriptStep{Parts: []transcript.Part{call("c1", `{"name":""}`)}},
		ScriptStep{Parts: []transcript.Part{call("c2", `{"name":"Ada"}`)}},
		ScriptStep{Parts: []transcript.Part{call("c3", validArgs)}},
	)
	rec := &countingRecorder{}
	l := newLoop(t, producer, WithRecorder(rec))

	res, err := l.Run(context.Background(), nil, transcript.UserTurn("fill it"))
	require.NoError(t, err)
	assert.Equal(t, Done, res.State)
	assert.Equal(t, StopBudget, res.Reason)
	assert.Equal(t, 3, res.Steps)
	require.Len(t, res.Turns, 3)
	for i, turn := range res.Turns {
		require.Len(t, turn.Parts, 2, "turn %d", i)
		assert.Equal(t, transcript.PartToolCall, turn.Parts[0].Type)
		assert.Equal(t, transcript.PartToolResult, turn.Parts[1].Type)
		assert.Equal(t, turn.Parts[0].ToolCall.ID, turn.Parts[1].ToolResult.CallID)
	}
	require.NotNil(t, res.LastResult)
	assert.True(t, res.LastResult.OK)
	assert.Equal(t, record.CountryUnitedStates, res.LastResult.Record.Address.Country)
	assert.Len(t, producer.Requests(), 3, "no fourth agent turn")
	assert.Equal(t, 3, rec.steps)
	assert.Equal(t, 1, rec.ok)
	assert.Equal(t, 2, rec.failed)
	assert.Equal(t, StopBudget, rec.reason)
}

func TestRun_ToolChoiceForcedUntilFinalStep(t *testing.T) {
	producer := NewScriptedProducer(
		ScriptStep{Parts: []transcript.Part{call("c1", validArgs)}},
		ScriptStep{Parts: []transcript.Part{call("c2", validArgs)}},
		ScriptStep{Parts: []transcript.Part{transcript.TextPart("done")}},
	)
	l := newLoop(t, producer)

	res, err := l.Run(context.Background(), nil, transcript.UserTurn("go"))
	require.NoError(t, err)
	assert.Equal(t, StopAgentDone, res.Reason)

	reqs := producer.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, schema.ToolChoiceForced, reqs[0].ToolChoice)
	assert.Equal(t, schema.ToolChoiceForced, reqs[1].ToolChoice)
	assert.Equal(t, schema.ToolChoiceAllowed, reqs[2].ToolChoice)
	require.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, tool.ValidateFormDataName, reqs[0].Tools[0].Name)
	assert.Len(t, reqs[0].History, 1)
	assert.Len(t, reqs[1].History, 2, "second turn sees the first call and its result")
}

func TestRun_ResultsVisibleToNextTurn(t *testing.T) {
	producer := NewScriptedProducer(
		ScriptStep{Parts: []transcript.Part{transcript.TextPart("Checking."), call("c1", `{"name":""}`)}},
		ScriptStep{Parts: []transcript.Part{transcript.TextPart("Your name is missing.")}},
	)
	l := newLoop(t, producer)

	res, err := l.Run(context.Background(), nil, transcript.UserTurn("my email is ada@example.com"))
	require.NoError(t, err)
	require.Len(t, res.Turns, 2)

	second := producer.Requests()[1]
	last := second.History[len(second.History)-1]
	require.Len(t, last.Parts, 3)
	result := last.Parts[2].ToolResult
	require.NotNil(t, result)
	assert.False(t, result.Result.OK)
	assert.True(t, result.Result.Errors.Has("name"))
	assert.Contains(t, result.Content, `"error"`)
}

func TestRun_MalformedArgumentsAndUnknownTool(t *testing.T) {
	producer := NewScriptedProducer(
		ScriptStep{Parts: []transcript.Part{
			call("bad", `{"name": `),
			transcript.ToolCallPart(transcript.ToolCall{ID: "other", Name: "deleteEverything", Arguments: "{}"}),
			call("empty", ""),
		}},
		ScriptStep{Parts: []transcript.Part{transcript.TextPart("Sorry about that.")}},
	)
	l := newLoop(t, producer)

	res, err := l.Run(context.Background(), nil, transcript.UserTurn("hi"))
	require.NoError(t, err)
	require.Len(t, res.Turns, 2)
	parts := res.Turns[0].Parts
	require.Len(t, parts, 6)
	for _, p := range parts[3:] {
		require.Equal(t, transcript.PartToolResult, p.Type)
		assert.False(t, p.ToolResult.Result.OK)
		assert.Contains(t, p.ToolResult.Content, `"error"`)
	}
	assert.Equal(t, "other", parts[4].ToolResult.CallID)
	assert.Contains(t, parts[4].ToolResult.Content, "deleteEverything")
}

func TestRun_MissingCallIDIsAssigned(t *testing.T) {
	producer := NewScriptedProducer(
		ScriptStep{Parts: []transcript.Part{call("", validArgs)}},
		ScriptStep{Parts: []transcript.Part{transcript.TextPart("ok")}},
	)
	l := newLoop(t, producer)

	res, err := l.Run(context.Background(), nil, transcript.UserTurn("hi"))
	require.NoError(t, err)
	parts := res.Turns[0].Parts
	require.Len(t, parts, 2)
	assert.NotEmpty(t, parts[0].ToolCall.ID)
	assert.Equal(t, parts[0].ToolCall.ID, parts[1].ToolResult.CallID)
}

func TestRun_TransportFailureOnOpen(t *testing.T) {
	boom := errors.New("connection refused")
	producer := NewScriptedProducer(
		ScriptStep{Parts: []transcript.Part{call("c1", validArgs)}},
		ScriptStep{OpenErr: boom},
	)
	rec := &countingRecorder{}
	l := newLoop(t, producer, WithRecorder(rec))

	res, err := l.Run(context.Background(), nil, transcript.UserTurn("hi"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, res)
	assert.Equal(t, Done, res.State)
	assert.Equal(t, StopTransport, res.Reason)
	assert.Len(t, res.Turns, 1, "no empty turn for the failed step")
	assert.Equal(t, 3, res.Transcript.Len())
	assert.Equal(t, StopTransport, rec.reason)
}

func TestRun_TransportFailureMidStream(t *testing.T) {
	boom := errors.New("stream reset")
	producer := NewScriptedProducer(ScriptStep{
		Parts:     []transcript.Part{transcript.TextPart("partial")},
		StreamErr: boom,
	})
	l := newLoop(t, producer)

	res, err := l.Run(context.Background(), nil, transcript.UserTurn("hi"))
	assert.ErrorIs(t, err, ErrTransport)
	require.NotNil(t, res)
	assert.Equal(t, StopTransport, res.Reason)
	require.Len(t, res.Turns, 1)
	assert.Equal(t, "partial", res.Turns[0].Text(), "already appended parts stay intact")
}

func TestRun_CancellationStopsMutation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	producer := NewScriptedProducer(ScriptStep{Parts: []transcript.Part{
		transcript.TextPart("first"),
		transcript.TextPart(" second"),
		call("c1", validArgs),
	}})
	var seen []transcript.Part
	l := newLoop(t, producer, WithObserver(func(turnID string, part transcript.Part) {
		seen = append(seen, part)
		cancel()
	}))

	res, err := l.Run(ctx, nil, transcript.UserTurn("hi"))
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, Done, res.State)
	assert.Equal(t, StopCancelled, res.Reason)
	require.Len(t, res.Turns, 1)
	assert.Equal(t, "first", res.Turns[0].Text())
	assert.Len(t, seen, 1)
	assert.Nil(t, res.LastResult, "no operation after cancellation")
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	producer := NewScriptedProducer(ScriptStep{Parts: []transcript.Part{transcript.TextPart("never")}})
	l := newLoop(t, producer)

	res, err := l.Run(ctx, nil, transcript.UserTurn("hi"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StopCancelled, res.Reason)
	assert.Equal(t, 0, res.Steps)
	assert.Empty(t, producer.Requests())
	assert.Equal(t, 1, res.Transcript.Len())
}

func TestRun_ObserverSeesPartsInOrder(t *testing.T) {
	producer := NewScriptedProducer(
		ScriptStep{Parts: []transcript.Part{transcript.TextPart("a"), call("c1", validArgs)}},
		ScriptStep{Parts: []transcript.Part{transcript.TextPart("b")}},
	)
	var types []transcript.PartType
	var turnIDs []string
	l := newLoop(t, producer, WithObserver(func(turnID string, part transcript.Part) {
		types = append(types, part.Type)
		turnIDs = append(turnIDs, turnID)
	}))

	_, err := l.Run(context.Background(), nil, transcript.UserTurn("hi"))
	require.NoError(t, err)
	assert.Equal(t, []transcript.PartType{
		transcript.PartText, transcript.PartToolCall, transcript.PartToolResult, transcript.PartText,
	}, types)
	assert.Equal(t, turnIDs[0], turnIDs[2])
	assert.NotEqual(t, turnIDs[0], turnIDs[3])
}

func TestRun_HistoryIsNotMutated(t *testing.T) {
	history := []transcript.Turn{
		transcript.UserTurn("earlier"),
		{ID: "a1", Role: transcript.RoleAssistant, Parts: []transcript.Part{transcript.TextPart("hello")}},
	}
	producer := NewScriptedProducer(ScriptStep{Parts: []transcript.Part{transcript.TextPart("again")}})
	l := newLoop(t, producer)

	res, err := l.Run(context.Background(), history, transcript.UserTurn("now"))
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, 4, res.Transcript.Len())
}

func TestRun_DuplicateHistoryIDs(t *testing.T) {
	turn := transcript.UserTurn("x")
	l := newLoop(t, NewScriptedProducer())
	res, err := l.Run(context.Background(), []transcript.Turn{turn}, turn)
	assert.ErrorIs(t, err, transcript.ErrDuplicateTurn)
	assert.Nil(t, res)
}

func TestRun_CustomBudget(t *testing.T) {
	producer := NewScriptedProducer(
		ScriptStep{Parts: []transcript.Part{call("c1", validArgs)}},
	)
	l := newLoop(t, producer, WithBudget(1))
	assert.Equal(t, Budget(1), l.Budget())

	res, err := l.Run(context.Background(), nil, transcript.UserTurn("hi"))
	require.NoError(t, err)
	assert.Equal(t, StopBudget, res.Reason)
	assert.Equal(t, schema.ToolChoiceAllowed, producer.Requests()[0].ToolChoice)
	require.NotNil(t, res.LastResult)
	assert.True(t, res.LastResult.OK, "a call on the final step still runs")
}

func TestFailbackProducer(t *testing.T) {
	failing := NewScriptedProducer(ScriptStep{OpenErr: errors.New("down")})
	working := NewScriptedProducer(ScriptStep{Parts: []transcript.Part{transcript.TextPart("hi there")}})
	l := newLoop(t, NewFailbackProducer(failing, working))

	res, err := l.Run(context.Background(), nil, transcript.UserTurn("hi"))
	require.NoError(t, err)
	assert.Equal(t, "hi there", res.Turns[0].Text())

	_, err = NewFailbackProducer().Produce(context.Background(), &Request{})
	assert.Error(t, err)
}
