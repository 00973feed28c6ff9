package orchestrator

import "github.com/Vishal-code-E/banking-data-assistance/internal/executor"

// ResultPayload is the execution result as it appears on the wire. The row
// list is keyed "data" to match the frontend contract.
type ResultPayload struct {
	Data      []map[string]any `json:"data"`
	RowCount  int              `json:"row_count"`
	ElapsedMS float64          `json:"elapsed_ms"`
}

// Envelope is the unified response emitted for every request, success or
// failure. On success Error is null; on failure only Error is populated.
type Envelope struct {
	ValidatedSQL    *string        `json:"validated_sql"`
	ExecutionResult *ResultPayload `json:"execution_result"`
	Summary         *string        `json:"summary"`
	ChartSuggestion *string        `json:"chart_suggestion"`
	Error           *string        `json:"error"`
}

// FailureEnvelope builds the failure shape: every field null except error.
func FailureEnvelope(msg string) Envelope {
	return Envelope{Error: &msg}
}

func successEnvelope(st *RequestState) Envelope {
	env := Envelope{
		ValidatedSQL:    &st.ValidatedSQL,
		ExecutionResult: payload(st.ExecutionResult),
	}
	if st.Summary != "" {
		env.Summary = &st.Summary
	}
	chart := string(st.ChartSuggestion)
	env.ChartSuggestion = &chart
	return env
}

func payload(res *executor.Result) *ResultPayload {
	if res == nil {
		return nil
	}
	data := res.Rows
	if data == nil {
		data = []map[string]any{}
	}
	return &ResultPayload{
		Data:      data,
		RowCount:  res.RowCount,
		ElapsedMS: res.ElapsedMS,
	}
}
