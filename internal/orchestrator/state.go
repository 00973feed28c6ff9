package orchestrator

import (
	"github.com/Vishal-code-E/banking-data-assistance/internal/agent"
	"github.com/Vishal-code-E/banking-data-assistance/internal/executor"
)

// State enumerates the stages of the request state machine.
type State int

const (
	StateStart State = iota
	StateIntent
	StateSynthesize
	StateValidate
	StateExecute
	StateInsight
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateIntent:
		return "intent"
	case StateSynthesize:
		return "synthesize"
	case StateValidate:
		return "validate"
	case StateExecute:
		return "execute"
	case StateInsight:
		return "insight"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RequestState is the per-request record. It is owned by a single worker
// for the lifetime of one request and discarded after the envelope is
// emitted; no locking is needed.
//
// Invariants held after every transition:
//   - ValidatedSQL != "" implies ErrorMessage == ""
//   - RetryCount never exceeds the configured budget + 1
//   - a non-nil ExecutionResult corresponds to the current ValidatedSQL
type RequestState struct {
	Stage State

	UserQuery         string // immutable after creation
	InterpretedIntent string
	GeneratedSQL      string // overwritten on each SQL-agent invocation
	ValidatedSQL      string // set only on validator acceptance
	ExecutionResult   *executor.Result
	RetryCount        int
	ErrorMessage      string
	Summary           string
	ChartSuggestion   agent.ChartKind
}

func newRequestState(userQuery string) *RequestState {
	return &RequestState{Stage: StateStart, UserQuery: userQuery}
}

// recordFailure is the single mutation site for retry accounting. It
// clears the acceptance-dependent fields, stores the failure detail, and
// reports whether another SQL-agent invocation is within budget.
func (st *RequestState) recordFailure(msg string, maxRetries int) bool {
	st.ErrorMessage = msg
	st.ValidatedSQL = ""
	st.ExecutionResult = nil
	st.RetryCount++
	return st.RetryCount <= maxRetries
}

// recordAcceptance applies the validator's acceptance transition.
func (st *RequestState) recordAcceptance(normalizedSQL string) {
	st.ValidatedSQL = normalizedSQL
	st.ErrorMessage = ""
}
