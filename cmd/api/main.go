// Command api runs the Banking Data Assistant HTTP service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/Vishal-code-E/banking-data-assistance/internal/agent"
	"github.com/Vishal-code-E/banking-data-assistance/internal/config"
	"github.com/Vishal-code-E/banking-data-assistance/internal/db"
	"github.com/Vishal-code-E/banking-data-assistance/internal/executor"
	"github.com/Vishal-code-E/banking-data-assistance/internal/metrics"
	"github.com/Vishal-code-E/banking-data-assistance/internal/orchestrator"
	"github.com/Vishal-code-E/banking-data-assistance/internal/schema"
	"github.com/Vishal-code-E/banking-data-assistance/internal/server"
	"github.com/Vishal-code-E/banking-data-assistance/internal/sqlcheck"
)

const llmMaxTokens = 1024

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := newLogger(cfg.Debug)

	if cfg.LLMAPIKey == "" {
		return fmt.Errorf("LLM_API_KEY (or ANTHROPIC_API_KEY) is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Open(ctx, cfg.DatabaseURL, cfg.DBPoolSize, cfg.DBMaxOverflow, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.SeedData {
		if err := db.Seed(ctx, pool, log); err != nil {
			return err
		}
	}

	catalog := schema.Default()

	validator := instrumentedValidator{sqlcheck.New(catalog, sqlcheck.Config{
		MaxQueryLength: cfg.MaxQueryLength,
		DefaultLimit:   cfg.DefaultLimit,
		MaxLimit:       cfg.MaxLimit,
	})}

	exec, err := executor.New(pool, executor.Config{
		Logger:  log,
		Timeout: cfg.QueryTimeout,
		MaxRows: cfg.MaxResultRows,
	})
	if err != nil {
		return err
	}

	llm := agent.NewAnthropicClient(cfg.LLMAPIKey, anthropic.ModelClaude3_5Haiku20241022, llmMaxTokens, log)
	prompts := agent.NewPromptStore(cfg.PromptsDir)
	intentAgent := agent.NewIntentAgent(instrumentedLLM{llm, "intent"}, prompts, log)
	sqlAgent := agent.NewSQLAgent(instrumentedLLM{llm, "sql"}, prompts, catalog, log)
	insightAgent := agent.NewInsightAgent(instrumentedLLM{llm, "insight"}, prompts, log)

	orch, err := orchestrator.New(orchestrator.Config{
		Logger:     log,
		Intent:     intentAgent,
		SQL:        sqlAgent,
		Insight:    insightAgent,
		Validator:  validator,
		Executor:   instrumentedExecutor{exec},
		MaxRetries: cfg.MaxRetries,
	})
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Logger:         log,
		Pipeline:       orch,
		Catalog:        catalog,
		Pool:           pool,
		AIReady:        true,
		AllowedOrigins: cfg.AllowedOrigins,
		MaxSQLLength:   cfg.MaxQueryLength,
		MaxQueryLength: 2000,
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: srv.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("API server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339))
			}
			return a
		},
	}))
}

// instrumentedValidator counts verdicts by outcome and rejection kind.
type instrumentedValidator struct {
	inner *sqlcheck.Validator
}

func (v instrumentedValidator) Validate(sql string) sqlcheck.Verdict {
	verdict := v.inner.Validate(sql)
	metrics.RecordVerdict(verdict.Accepted, string(verdict.Reason))
	return verdict
}

// instrumentedLLM labels LLM call metrics with the calling agent.
type instrumentedLLM struct {
	inner agent.LLMClient
	name  string
}

func (l instrumentedLLM) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	start := time.Now()
	text, err := l.inner.Complete(ctx, systemPrompt, userPrompt)
	metrics.RecordLLMCall(l.name, time.Since(start), err)
	return text, err
}

// instrumentedExecutor observes query durations.
type instrumentedExecutor struct {
	inner *executor.Executor
}

func (e instrumentedExecutor) Execute(ctx context.Context, sql string) (*executor.Result, error) {
	start := time.Now()
	res, err := e.inner.Execute(ctx, sql)
	metrics.QueryDuration.Observe(time.Since(start).Seconds())
	return res, err
}
