package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Vishal-code-E/banking-data-assistance/internal/executor"
)

// Insight is the summary and chart recommendation for a result set.
type Insight struct {
	Summary string
	Chart   ChartKind
}

// InsightAgent produces a human-readable summary and a chart suggestion
// for an executed query. Its prompt contract is two lines: "SUMMARY: ..."
// then "CHART: <kind>".
type InsightAgent struct {
	llm     LLMClient
	prompts *PromptStore
	log     *slog.Logger
}

// NewInsightAgent creates the insight transformer.
func NewInsightAgent(llm LLMClient, prompts *PromptStore, log *slog.Logger) *InsightAgent {
	return &InsightAgent{llm: llm, prompts: prompts, log: log}
}

// Summarize generates the insight for a validated statement and its result.
// Only a preview of the rows is sent to the model; the full result set
// never leaves the process.
func (a *InsightAgent) Summarize(ctx context.Context, validatedSQL string, result *executor.Result) (Insight, error) {
	systemPrompt, err := a.prompts.Get(PromptInsight)
	if err != nil {
		return Insight{}, err
	}

	userPrompt := fmt.Sprintf("SQL: %s\n\nRow count: %d\n\nRows (preview):\n%s",
		validatedSQL, result.RowCount, previewRows(result.Rows, 20))

	response, err := a.llm.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return Insight{}, err
	}
	return ParseInsight(response), nil
}

var (
	summaryRe = regexp.MustCompile(`(?is)SUMMARY:\s*(.*?)\s*(?:CHART:|$)`)
	chartRe   = regexp.MustCompile(`(?i)CHART:\s*([a-zA-Z]+)`)
)

// ParseInsight extracts the SUMMARY and CHART lines. A missing SUMMARY
// falls back to the whole content; a missing or unknown CHART falls back
// to table.
func ParseInsight(response string) Insight {
	response = strings.TrimSpace(response)

	summary := response
	if m := summaryRe.FindStringSubmatch(response); m != nil && strings.TrimSpace(m[1]) != "" {
		summary = strings.TrimSpace(m[1])
	}

	chart := ChartTable
	if m := chartRe.FindStringSubmatch(response); m != nil {
		chart = ParseChartKind(m[1])
	}
	return Insight{Summary: summary, Chart: chart}
}

// previewRows renders at most n rows as JSON lines for the prompt.
func previewRows(rows []map[string]any, n int) string {
	if len(rows) == 0 {
		return "(no rows)"
	}
	if len(rows) > n {
		rows = rows[:n]
	}
	var sb strings.Builder
	for _, row := range rows {
		b, err := json.Marshal(row)
		if err != nil {
			continue
		}
		sb.Write(b)
		sb.WriteByte('\n')
	}
	return sb.String()
}
