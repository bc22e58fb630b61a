package agent

import (
	"github.com/tbxark/formpilot/transcript"
)

type Trimmer interface {
	Trim(turns []transcript.Turn) []transcript.Turn
}

// KeepLastNTurns keeps at most the last N turns and drops assistant turns
// left at the front, so the kept history always opens with a user turn.
// When N <= 0 nothing is trimmed.
type KeepLastNTurns struct {
	N int
}

func (t KeepLastNTurns) Trim(turns []transcript.Turn) []transcript.Turn {
	if t.N <= 0 || len(turns) <= t.N {
		return turns
	}
	kept := turns[len(turns)-t.N:]
	for len(kept) > 0 && kept[0].Role != transcript.RoleUser {
		kept = kept[1:]
	}
	out := make([]transcript.Turn, len(kept))
	copy(out, kept)
	return out
}
