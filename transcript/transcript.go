// Package transcript holds the ordered, append-only log of a chat session.
package transcript

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrDuplicateTurn = errors.New("duplicate turn id")
	ErrUnknownTurn   = errors.New("unknown turn id")
	ErrEmptyTurnID   = errors.New("empty turn id")
)

// Transcript is safe for concurrent use. Turns and parts can only be added;
// Reset discards everything at once.
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
	index map[string]int
}

func New(turns ...Turn) (*Transcript, error) {
	t := &Transcript{index: make(map[string]int)}
	for _, turn := range turns {
		if err := t.Append(turn); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Transcript) Append(turn Turn) error {
	if turn.ID == "" {
		return ErrEmptyTurnID
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.index[turn.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTurn, turn.ID)
	}
	t.index[turn.ID] = len(t.turns)
	t.turns = append(t.turns, turn.clone())
	return nil
}

func (t *Transcript) AppendPart(turnID string, part Part) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[turnID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTurn, turnID)
	}
	t.turns[i].Parts = append(t.turns[i].Parts, part.clone())
	return nil
}

// AppendText extends the trailing text part of the turn, or starts a new one
// when the last part is not text. Streamed deltas go through here.
func (t *Transcript) AppendText(turnID, delta string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[turnID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTurn, turnID)
	}
	parts := t.turns[i].Parts
	if n := len(parts); n > 0 && parts[n-1].Type == PartText {
		parts[n-1].Text += delta
		return nil
	}
	t.turns[i].Parts = append(parts, TextPart(delta))
	return nil
}

// Turns returns a deep copy of the log.
func (t *Transcript) Turns() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Turn, len(t.turns))
	for i, turn := range t.turns {
		out[i] = turn.clone()
	}
	return out
}

func (t *Transcript) Turn(id string) (Turn, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.index[id]
	if !ok {
		return Turn{}, false
	}
	return t.turns[i].clone(), true
}

func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

func (t *Transcript) Reset() {
	t.mu.Lock()
	t.turns = nil
	t.index = make(map[string]int)
	t.mu.Unlock()
}
