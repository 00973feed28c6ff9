package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vishal-code-E/banking-data-assistance/internal/agent"
	"github.com/Vishal-code-E/banking-data-assistance/internal/executor"
	"github.com/Vishal-code-E/banking-data-assistance/internal/orchestrator"
	"github.com/Vishal-code-E/banking-data-assistance/internal/schema"
	"github.com/Vishal-code-E/banking-data-assistance/internal/sqlcheck"
)

type stubIntent struct{ intent string }

func (s stubIntent) Interpret(ctx context.Context, q string) (string, error) { return s.intent, nil }

type stubSQL struct {
	responses []string
	calls     int
}

func (s *stubSQL) Generate(ctx context.Context, intent, prevError string) (string, error) {
	s.calls++
	idx := s.calls - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx], nil
}

type stubInsight struct{ insight agent.Insight }

func (s stubInsight) Summarize(ctx context.Context, sql string, res *executor.Result) (agent.Insight, error) {
	return s.insight, nil
}

// stubExecutor returns canned rows keyed by a substring of the statement.
type stubExecutor struct {
	byFragment map[string]*executor.Result
	calls      int
}

func (s *stubExecutor) Execute(ctx context.Context, sql string) (*executor.Result, error) {
	s.calls++
	for frag, res := range s.byFragment {
		if strings.Contains(sql, frag) {
			return res, nil
		}
	}
	return &executor.Result{Rows: []map[string]any{}, RowCount: 0}, nil
}

type envelope struct {
	ValidatedSQL    *string          `json:"validated_sql"`
	ExecutionResult *json.RawMessage `json:"execution_result"`
	Summary         *string          `json:"summary"`
	ChartSuggestion *string          `json:"chart_suggestion"`
	Error           *string          `json:"error"`
}

type resultPayload struct {
	Data      []map[string]any `json:"data"`
	RowCount  int              `json:"row_count"`
	ElapsedMS float64          `json:"elapsed_ms"`
}

func newTestServer(t *testing.T, sqlResponses []string, exec *stubExecutor) *Server {
	t.Helper()
	if exec == nil {
		exec = &stubExecutor{}
	}
	orch, err := orchestrator.New(orchestrator.Config{
		Intent:    stubIntent{intent: "interpreted"},
		SQL:       &stubSQL{responses: sqlResponses},
		Insight:   stubInsight{insight: agent.Insight{Summary: "summary", Chart: agent.ChartMetric}},
		Validator: sqlcheck.New(schema.Default(), sqlcheck.Config{}),
		Executor:  exec,
	})
	require.NoError(t, err)

	return New(Config{
		Pipeline:       orch,
		Catalog:        schema.Default(),
		AIReady:        true,
		AllowedOrigins: []string{"http://localhost:5173"},
	})
}

func doPost(t *testing.T, h http.Handler, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func decodeResult(t *testing.T, raw *json.RawMessage) resultPayload {
	t.Helper()
	require.NotNil(t, raw)
	var payload resultPayload
	require.NoError(t, json.Unmarshal(*raw, &payload))
	return payload
}

func TestQueryCountCustomers(t *testing.T) {
	exec := &stubExecutor{byFragment: map[string]*executor.Result{
		"COUNT(*)": {Rows: []map[string]any{{"n": int64(5)}}, RowCount: 1, ElapsedMS: 2.5},
	}}
	srv := newTestServer(t, nil, exec)

	rec, env := doPost(t, srv.Router(), "/query", `{"sql":"SELECT COUNT(*) AS n FROM customers"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, env.Error)
	require.NotNil(t, env.ValidatedSQL)
	assert.True(t, strings.HasSuffix(*env.ValidatedSQL, "LIMIT 100"), *env.ValidatedSQL)

	payload := decodeResult(t, env.ExecutionResult)
	require.Equal(t, 1, payload.RowCount)
	assert.Equal(t, float64(5), payload.Data[0]["n"])
}

func TestQueryRejectsMultipleStatements(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec, env := doPost(t, srv.Router(), "/query", `{"sql":"SELECT * FROM customers; DROP TABLE accounts"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.Error)
	assert.Contains(t, *env.Error, "multiple statements")
	assert.Nil(t, env.ValidatedSQL)
	assert.Nil(t, env.ExecutionResult)
	assert.Nil(t, env.Summary)
	assert.Nil(t, env.ChartSuggestion)
}

func TestQueryRejectsUnknownTable(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	_, env := doPost(t, srv.Router(), "/query", `{"sql":"SELECT name FROM users"}`)
	require.NotNil(t, env.Error)
	assert.Contains(t, *env.Error, "not authorized")
	assert.Nil(t, env.ExecutionResult)
}

func TestQueryRejectsComment(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	_, env := doPost(t, srv.Router(), "/query", `{"sql":"SELECT * FROM accounts -- comment"}`)
	require.NotNil(t, env.Error)
	assert.Contains(t, *env.Error, "comment")
}

func TestQueryRejectsUnion(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	_, env := doPost(t, srv.Router(), "/query", `{"sql":"SELECT * FROM accounts UNION SELECT * FROM customers"}`)
	require.NotNil(t, env.Error)
	assert.Contains(t, *env.Error, "UNION")
}

func TestQueryRewritesExcessiveLimit(t *testing.T) {
	exec := &stubExecutor{byFragment: map[string]*executor.Result{
		"transactions": {Rows: []map[string]any{}, RowCount: 0},
	}}
	srv := newTestServer(t, nil, exec)

	_, env := doPost(t, srv.Router(), "/query", `{"sql":"SELECT * FROM transactions LIMIT 5000"}`)
	require.Nil(t, env.Error)
	require.NotNil(t, env.ValidatedSQL)
	assert.Equal(t, "SELECT * FROM transactions LIMIT 1000", *env.ValidatedSQL)
}

func TestQueryMalformedBody(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec, env := doPost(t, srv.Router(), "/query", `{"sql": 42`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
	assert.Contains(t, *env.Error, "malformed")
}

func TestQueryEmptySQL(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec, env := doPost(t, srv.Router(), "/query", `{"sql":"   "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
}

func TestQueryTooLong(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	sql := "SELECT * FROM customers WHERE name = '" + strings.Repeat("a", 5100) + "'"
	body, err := json.Marshal(map[string]string{"sql": sql})
	require.NoError(t, err)

	rec, env := doPost(t, srv.Router(), "/query", string(body))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
	assert.Contains(t, *env.Error, "length")
}

func TestAskFullPipeline(t *testing.T) {
	exec := &stubExecutor{byFragment: map[string]*executor.Result{
		"COUNT(*)": {Rows: []map[string]any{{"count": int64(5)}}, RowCount: 1, ElapsedMS: 1.0},
	}}
	srv := newTestServer(t, []string{"SELECT COUNT(*) FROM customers"}, exec)

	rec, env := doPost(t, srv.Router(), "/ask", `{"query":"How many customers are there?"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, env.Error)

	payload := decodeResult(t, env.ExecutionResult)
	assert.Equal(t, float64(5), payload.Data[0]["count"])
	require.NotNil(t, env.ChartSuggestion)
	assert.Equal(t, "metric", *env.ChartSuggestion)
	require.NotNil(t, env.Summary)
}

func TestAskRetriesThenSucceeds(t *testing.T) {
	exec := &stubExecutor{byFragment: map[string]*executor.Result{
		"customers": {Rows: []map[string]any{{"id": int64(1)}}, RowCount: 1},
	}}
	sqlStub := &stubSQL{responses: []string{"SELECT * FROM users", "SELECT * FROM customers"}}
	orch, err := orchestrator.New(orchestrator.Config{
		Intent:    stubIntent{intent: "list"},
		SQL:       sqlStub,
		Insight:   stubInsight{insight: agent.Insight{Summary: "ok", Chart: agent.ChartTable}},
		Validator: sqlcheck.New(schema.Default(), sqlcheck.Config{}),
		Executor:  exec,
	})
	require.NoError(t, err)
	srv := New(Config{Pipeline: orch, Catalog: schema.Default()})

	_, env := doPost(t, srv.Router(), "/ask", `{"query":"show me the users"}`)
	require.Nil(t, env.Error)
	assert.Equal(t, 2, sqlStub.calls)
	require.NotNil(t, env.ValidatedSQL)
	assert.Equal(t, "SELECT * FROM customers LIMIT 100", *env.ValidatedSQL)
}

func TestAskEmptyQuery(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	rec, env := doPost(t, srv.Router(), "/ask", `{"query":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
}

func TestAskTooLong(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	body, err := json.Marshal(map[string]string{"query": strings.Repeat("q", 2100)})
	require.NoError(t, err)
	rec, _ := doPost(t, srv.Router(), "/ask", string(body))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHealth(t *testing.T) {
	pool, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	mock.ExpectPing()

	srv := New(Config{
		Pipeline: nil,
		Catalog:  schema.Default(),
		Pool:     pool,
		AIReady:  true,
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "connected", resp.Database)
	assert.Equal(t, []string{"accounts", "customers", "transactions"}, resp.Tables)
	assert.True(t, resp.AIReady)
}

func TestHealthWithoutDatabase(t *testing.T) {
	srv := New(Config{Catalog: schema.Default()})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "disconnected", resp.Database)
}

func TestTables(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/tables", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Tables []TableInfo `json:"tables"`
		Count  int         `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, "customers", resp.Tables[0].Name)
	assert.Contains(t, resp.Tables[0].Columns, "created_at")
}
