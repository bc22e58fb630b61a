package loop

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/formpilot/tool"
	"github.com/tbxark/formpilot/transcript"
)

type fakeChatModel struct {
	chunks  []*schema.Message
	err     error
	gotMsgs []*schema.Message
	gotOpts *model.Options
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return schema.ConcatMessages(f.chunks)
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	f.gotMsgs = input
	f.gotOpts = model.GetCommonOptions(nil, opts...)
	if f.err != nil {
		return nil, f.err
	}
	return schema.StreamReaderFromArray(f.chunks), nil
}

func (f *fakeChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return f, nil
}

func collect(t *testing.T, sr *schema.StreamReader[transcript.Part]) []transcript.Part {
	t.Helper()
	defer sr.Close()
	var parts []transcript.Part
	for {
		part, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			return parts
		}
		require.NoError(t, err)
		parts = append(parts, part)
	}
}

func TestEinoProducer_StreamsTextThenCalls(t *testing.T) {
	idx := 0
	cm := &fakeChatModel{chunks: []*schema.Message{
		{Role: schema.Assistant, Content: "Let me "},
		{Role: schema.Assistant, Content: "check."},
		{Role: schema.Assistant, ToolCalls: []schema.ToolCall{{Index: &idx, ID: "c1", Type: "function", Function: schema.FunctionCall{Name: tool.ValidateFormDataName, Arguments: `{"na`}}}},
		{Role: schema.Assistant, ToolCalls: []schema.ToolCall{{Index: &idx, Function: schema.FunctionCall{Arguments: `me":"Ada"}`}}}},
	}}
	producer, err := NewEinoProducer(cm, WithSystemPrompt("be brief"))
	require.NoError(t, err)
	op, err := tool.NewValidateFormData()
	require.NoError(t, err)

	sr, err := producer.Produce(context.Background(), &Request{
		History:    []transcript.Turn{transcript.UserTurn("hi")},
		Tools:      []*schema.ToolInfo{op.Info()},
		ToolChoice: schema.ToolChoiceForced,
	})
	require.NoError(t, err)
	parts := collect(t, sr)

	require.Len(t, parts, 3)
	assert.Equal(t, "Let me ", parts[0].Text)
	assert.Equal(t, "check.", parts[1].Text)
	require.NotNil(t, parts[2].ToolCall)
	assert.Equal(t, "c1", parts[2].ToolCall.ID)
	assert.Equal(t, `{"name":"Ada"}`, parts[2].ToolCall.Arguments)

	require.Len(t, cm.gotMsgs, 2)
	assert.Equal(t, schema.System, cm.gotMsgs[0].Role)
	assert.Equal(t, "be brief", cm.gotMsgs[0].Content)
	require.NotNil(t, cm.gotOpts.ToolChoice)
	assert.Equal(t, schema.ToolChoiceForced, *cm.gotOpts.ToolChoice)
	assert.Len(t, cm.gotOpts.Tools, 1)
}

func TestEinoProducer_OpenError(t *testing.T) {
	cm := &fakeChatModel{err: errors.New("401")}
	producer, err := NewEinoProducer(cm, WithSystemPrompt("x"))
	require.NoError(t, err)
	_, err = producer.Produce(context.Background(), &Request{})
	assert.Error(t, err)

	_, err = NewEinoProducer(nil)
	assert.Error(t, err)
}
