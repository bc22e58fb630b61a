package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/formpilot/transcript"
)

// Request is what a producer sees for one agent turn.
type Request struct {
	History    []transcript.Turn
	Tools      []*schema.ToolInfo
	ToolChoice schema.ToolChoice
	Step       int
}

// Producer yields the parts of one agent turn. Text parts may be deltas.
// The stream ends with io.EOF; any other error is a transport failure.
type Producer interface {
	Produce(ctx context.Context, req *Request) (*schema.StreamReader[transcript.Part], error)
}

var ErrScriptExhausted = errors.New("scripted producer has no more turns")

// ScriptStep is one canned agent turn.
type ScriptStep struct {
	Parts []transcript.Part
	// OpenErr fails the turn before any part is produced.
	OpenErr error
	// StreamErr is delivered after Parts.
	StreamErr error
}

// ScriptedProducer replays canned turns in order and records every request.
type ScriptedProducer struct {
	mu       sync.Mutex
	steps    []ScriptStep
	requests []*Request
}

var _ Producer = (*ScriptedProducer)(nil)

func NewScriptedProducer(steps ...ScriptStep) *ScriptedProducer {
	return &ScriptedProducer{steps: steps}
}

func (p *ScriptedProducer) Produce(ctx context.Context, req *Request) (*schema.StreamReader[transcript.Part], error) {
	p.mu.Lock()
	idx := len(p.requests)
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if idx >= len(p.steps) {
		return nil, fmt.Errorf("%w: turn %d", ErrScriptExhausted, idx+1)
	}
	step := p.steps[idx]
	if step.OpenErr != nil {
		return nil, step.OpenErr
	}
	if step.StreamErr == nil {
		return schema.StreamReaderFromArray(step.Parts), nil
	}
	sr, sw := schema.Pipe[transcript.Part](len(step.Parts) + 1)
	go func() {
		defer sw.Close()
		for _, part := range step.Parts {
			if sw.Send(part, nil) {
				return
			}
		}
		sw.Send(transcript.Part{}, step.StreamErr)
	}()
	return sr, nil
}

// Requests returns the requests received so far.
func (p *ScriptedProducer) Requests() []*Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Request, len(p.requests))
	copy(out, p.requests)
	return out
}

// FailbackProducer tries each producer in turn until one opens a stream.
type FailbackProducer struct {
	producers []Producer
}

var _ Producer = (*FailbackProducer)(nil)

func NewFailbackProducer(producers ...Producer) *FailbackProducer {
	return &FailbackProducer{producers: producers}
}

func (p *FailbackProducer) Produce(ctx context.Context, req *Request) (*schema.StreamReader[transcript.Part], error) {
	var lastErr error
	for _, producer := range p.producers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stream, err := producer.Produce(ctx, req)
		if err == nil {
			return stream, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		return nil, errors.New("no producer configured")
	}
	return nil, lastErr
}
