package loop

import (
	"errors"
	"fmt"
)

type State int

const (
	AwaitingAgent State = iota
	ExecutingOperation
	Done
)

func (s State) String() string {
	switch s {
	case AwaitingAgent:
		return "awaiting_agent"
	case ExecutingOperation:
		return "executing_operation"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Event int

const (
	// ToolCallRequested: the agent turn ended with at least one tool call.
	ToolCallRequested Event = iota
	// TextOnly: the agent turn ended without a tool call.
	TextOnly
	// OperationCompleted: every requested call has a result and budget remains.
	OperationCompleted
	// BudgetExhausted: results were appended on the last allowed step.
	BudgetExhausted
	TransportFailed
	Cancelled
	// AppendFailed: the transcript refused a part.
	AppendFailed
)

func (e Event) String() string {
	switch e {
	case ToolCallRequested:
		return "tool_call_requested"
	case TextOnly:
		return "text_only"
	case OperationCompleted:
		return "operation_completed"
	case BudgetExhausted:
		return "budget_exhausted"
	case TransportFailed:
		return "transport_failed"
	case Cancelled:
		return "cancelled"
	case AppendFailed:
		return "append_failed"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

var ErrInvalidTransition = errors.New("invalid loop transition")

// Transitions is the complete transition table. Done has no way out.
var Transitions = map[State]map[Event]State{
	AwaitingAgent: {
		ToolCallRequested: ExecutingOperation,
		TextOnly:          Done,
		TransportFailed:   Done,
		Cancelled:         Done,
		AppendFailed:      Done,
	},
	ExecutingOperation: {
		OperationCompleted: AwaitingAgent,
		BudgetExhausted:    Done,
		Cancelled:          Done,
		AppendFailed:       Done,
	},
}

func Next(s State, e Event) (State, error) {
	if next, ok := Transitions[s][e]; ok {
		return next, nil
	}
	return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, s)
}

const DefaultBudget Budget = 3

// Budget is the maximum number of agent turns in one run.
type Budget int

// Exhausted reports whether no agent turn is left after steps turns.
func (b Budget) Exhausted(steps int) bool {
	return steps >= int(b)
}

// Final reports whether step (1-based) is the last allowed agent turn.
func (b Budget) Final(step int) bool {
	return step >= int(b)
}

type StopReason string

const (
	StopAgentDone StopReason = "agent_done"
	StopBudget    StopReason = "budget_exhausted"
	StopTransport StopReason = "transport_failed"
	StopCancelled StopReason = "cancelled"
	StopFailed    StopReason = "append_failed"
)

func stopReason(e Event) StopReason {
	switch e {
	case TextOnly:
		return StopAgentDone
	case BudgetExhausted:
		return StopBudget
	case TransportFailed:
		return StopTransport
	case AppendFailed:
		return StopFailed
	default:
		return StopCancelled
	}
}
