package agent

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Vishal-code-E/banking-data-assistance/internal/schema"
)

// SQLAgent turns an interpreted intent into a single SELECT statement over
// the catalog tables. On retries the previous validator or executor error
// is injected verbatim so the model can self-correct.
type SQLAgent struct {
	llm     LLMClient
	prompts *PromptStore
	catalog *schema.Catalog
	log     *slog.Logger
}

// NewSQLAgent creates the SQL transformer.
func NewSQLAgent(llm LLMClient, prompts *PromptStore, catalog *schema.Catalog, log *slog.Logger) *SQLAgent {
	return &SQLAgent{llm: llm, prompts: prompts, catalog: catalog, log: log}
}

// Generate produces a candidate SQL statement. prevError is empty on the
// first attempt and carries the last failure detail on retries.
func (a *SQLAgent) Generate(ctx context.Context, intent, prevError string) (string, error) {
	template, err := a.prompts.Get(PromptSQL)
	if err != nil {
		return "", err
	}
	systemPrompt := template + "\n\n## Database Schema\n\n" + a.catalog.PromptText()

	if prevError == "" {
		prevError = "None"
	}
	userPrompt := fmt.Sprintf("Interpreted intent: %s\n\nPrevious error: %s", intent, prevError)

	response, err := a.llm.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}

	sql := CleanSQL(response)
	if sql == "" {
		return "", fmt.Errorf("%w: no SQL in response", ErrInvalidResponse)
	}
	if a.log != nil {
		a.log.Info("sql generated", "sql", sql, "retry", prevError != "None")
	}
	return sql, nil
}

var codeFenceRe = regexp.MustCompile("(?s)```(?:sql|SQL)?\\s*(.*?)```")

// CleanSQL strips markdown code fences and a trailing semicolon and
// collapses whitespace runs to single spaces.
func CleanSQL(response string) string {
	sql := strings.TrimSpace(response)
	if m := codeFenceRe.FindStringSubmatch(sql); m != nil {
		sql = m[1]
	}
	sql = strings.Join(strings.Fields(sql), " ")
	sql = strings.TrimSuffix(sql, ";")
	return strings.TrimSpace(sql)
}
