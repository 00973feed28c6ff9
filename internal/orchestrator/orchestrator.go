// Package orchestrator drives a request through intent extraction, SQL
// synthesis, validation, execution and insight generation as a bounded-
// retry state machine. Validator and executor failures feed back into SQL
// regeneration until the retry budget is exhausted.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Vishal-code-E/banking-data-assistance/internal/agent"
	"github.com/Vishal-code-E/banking-data-assistance/internal/executor"
	"github.com/Vishal-code-E/banking-data-assistance/internal/sqlcheck"
)

// IntentAgent extracts structured intent from a natural-language query.
type IntentAgent interface {
	Interpret(ctx context.Context, userQuery string) (string, error)
}

// SQLGenerator synthesizes a candidate SQL statement from an intent.
type SQLGenerator interface {
	Generate(ctx context.Context, intent, prevError string) (string, error)
}

// Insighter produces the summary and chart recommendation for a result.
type Insighter interface {
	Summarize(ctx context.Context, validatedSQL string, result *executor.Result) (agent.Insight, error)
}

// Validator is the SQL safety gate. It must be pure and never error.
type Validator interface {
	Validate(sql string) sqlcheck.Verdict
}

// Executor runs validator-accepted statements.
type Executor interface {
	Execute(ctx context.Context, sql string) (*executor.Result, error)
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Logger     *slog.Logger
	Intent     IntentAgent
	SQL        SQLGenerator
	Insight    Insighter
	Validator  Validator
	Executor   Executor
	MaxRetries int // SQL-agent re-invocations after a failure (default 2)
}

// Orchestrator owns the per-request state machine. The orchestrator itself
// is stateless and safe for concurrent use; each request gets its own
// RequestState.
type Orchestrator struct {
	cfg Config
	log *slog.Logger
}

// New validates the wiring and creates an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Validator == nil {
		return nil, fmt.Errorf("validator is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	return &Orchestrator{cfg: cfg, log: cfg.Logger}, nil
}

const (
	msgLLMUnavailable = "The AI service is currently unavailable. Please try again later."
	msgInternal       = "An unexpected error occurred while processing the request."
)

// Ask runs the full pipeline for a natural-language question. It always
// returns an envelope, never an error: every failure mode maps to the
// envelope's error slot.
func (o *Orchestrator) Ask(ctx context.Context, userQuery string) Envelope {
	if o.cfg.Intent == nil || o.cfg.SQL == nil {
		return FailureEnvelope(msgInternal)
	}
	st := newRequestState(userQuery)

	// S1: intent extraction. LLM transport failures are not retried;
	// the same call with the same input would fail the same way.
	st.Stage = StateIntent
	intent, err := o.cfg.Intent.Interpret(ctx, userQuery)
	if err != nil {
		return o.fail(st, llmErrorMessage(err))
	}
	st.InterpretedIntent = intent

	for {
		// S2: SQL synthesis. The previous failure detail, if any, is
		// fed back so the model can self-correct.
		st.Stage = StateSynthesize
		generated, err := o.cfg.SQL.Generate(ctx, st.InterpretedIntent, st.ErrorMessage)
		if err != nil {
			return o.fail(st, llmErrorMessage(err))
		}
		st.GeneratedSQL = generated

		// S3: validation.
		st.Stage = StateValidate
		verdict := o.cfg.Validator.Validate(generated)
		if !verdict.Accepted {
			if o.log != nil {
				o.log.Warn("generated SQL rejected",
					"reason", string(verdict.Reason), "detail", verdict.Detail, "retry", st.RetryCount)
			}
			if st.recordFailure("validation error: "+verdict.Detail, o.cfg.MaxRetries) {
				continue
			}
			return o.fail(st, retryExhaustedMessage(st.ErrorMessage))
		}
		st.recordAcceptance(verdict.NormalizedSQL)

		// S4: execution.
		st.Stage = StateExecute
		result, err := o.cfg.Executor.Execute(ctx, st.ValidatedSQL)
		if err != nil {
			if st.recordFailure(executionErrorMessage(err), o.cfg.MaxRetries) {
				continue
			}
			return o.fail(st, retryExhaustedMessage(st.ErrorMessage))
		}
		st.ExecutionResult = result

		// S5: insight. Failures here never fail the request; the rows
		// are already computed.
		st.Stage = StateInsight
		if o.cfg.Insight != nil {
			insight, err := o.cfg.Insight.Summarize(ctx, st.ValidatedSQL, result)
			if err != nil {
				if o.log != nil {
					o.log.Warn("insight generation failed", "error", err)
				}
				st.Summary = ""
				st.ChartSuggestion = agent.ChartTable
			} else {
				st.Summary = insight.Summary
				st.ChartSuggestion = insight.Chart
			}
		} else {
			st.ChartSuggestion = agent.ChartTable
		}

		st.Stage = StateDone
		return successEnvelope(st)
	}
}

// Query runs the raw-SQL path: validation and execution only, no LLM and
// no retries, since there is no regeneration source. The summary and chart
// come from shape heuristics instead of the insight agent.
func (o *Orchestrator) Query(ctx context.Context, rawSQL string) Envelope {
	st := newRequestState(rawSQL)
	st.GeneratedSQL = rawSQL

	st.Stage = StateValidate
	verdict := o.cfg.Validator.Validate(rawSQL)
	if !verdict.Accepted {
		if o.log != nil {
			o.log.Warn("raw SQL rejected", "reason", string(verdict.Reason), "detail", verdict.Detail)
		}
		return o.fail(st, "validation error: "+verdict.Detail)
	}
	st.recordAcceptance(verdict.NormalizedSQL)

	st.Stage = StateExecute
	result, err := o.cfg.Executor.Execute(ctx, st.ValidatedSQL)
	if err != nil {
		return o.fail(st, executionErrorMessage(err))
	}
	st.ExecutionResult = result

	st.Summary = fmt.Sprintf("Query returned %d row(s)", result.RowCount)
	st.ChartSuggestion = suggestChart(result)

	st.Stage = StateDone
	return successEnvelope(st)
}

func (o *Orchestrator) fail(st *RequestState, msg string) Envelope {
	st.Stage = StateFailed
	if o.log != nil {
		o.log.Info("request failed", "stage", st.Stage.String(), "retries", st.RetryCount, "error", msg)
	}
	return FailureEnvelope(msg)
}

// suggestChart picks a chart kind from the result shape: a single
// one-column row reads as a metric, two columns as a categorical chart,
// anything else as a table.
func suggestChart(result *executor.Result) agent.ChartKind {
	if result.RowCount == 0 {
		return agent.ChartTable
	}
	cols := len(result.Rows[0])
	if result.RowCount == 1 && cols == 1 {
		return agent.ChartMetric
	}
	if cols == 2 {
		if result.RowCount > 5 {
			return agent.ChartBar
		}
		return agent.ChartPie
	}
	return agent.ChartTable
}

func llmErrorMessage(err error) string {
	if errors.Is(err, agent.ErrUnavailable) {
		return msgLLMUnavailable
	}
	if errors.Is(err, agent.ErrInvalidResponse) {
		return "The AI service returned an unusable response. Please rephrase your question."
	}
	return msgInternal
}

func executionErrorMessage(err error) string {
	if typed, ok := executor.AsError(err); ok {
		switch typed.Kind {
		case executor.ErrTimeout:
			return "execution error: " + typed.Message
		case executor.ErrDatabase:
			return "execution error: " + typed.Message
		}
	}
	return msgInternal
}

func retryExhaustedMessage(last string) string {
	return fmt.Sprintf("Unable to produce a valid query after retries. Last error: %s", last)
}
