package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Vishal-code-E/banking-data-assistance/internal/db"
	"github.com/Vishal-code-E/banking-data-assistance/internal/orchestrator"
)

// QueryRequest is the raw-SQL request body.
type QueryRequest struct {
	SQL string `json:"sql"`
}

// AskRequest is the natural-language request body.
type AskRequest struct {
	Query string `json:"query"`
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status   string   `json:"status"`
	Database string   `json:"database"`
	Tables   []string `json:"tables"`
	AIReady  bool     `json:"ai_ready"`
	Error    string   `json:"error,omitempty"`
}

// TableInfo is one entry of the /tables payload.
type TableInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Columns     []string `json:"columns"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Banking Data Assistant API",
		"health":  "/health",
		"tables":  "/tables",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "healthy",
		Database: "connected",
		Tables:   s.cfg.Catalog.AllowedTables(),
		AIReady:  s.cfg.AIReady,
	}
	if s.cfg.Pool == nil {
		resp.Status = "unhealthy"
		resp.Database = "disconnected"
	} else if err := db.Ping(r.Context(), s.cfg.Pool); err != nil {
		resp.Status = "unhealthy"
		resp.Database = "disconnected"
		resp.Error = "database is not reachable"
		if s.log != nil {
			s.log.Error("health check failed", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	tables := make([]TableInfo, 0, len(s.cfg.Catalog.Tables()))
	for _, t := range s.cfg.Catalog.Tables() {
		cols := make([]string, 0, len(t.Columns))
		for _, c := range t.Columns {
			cols = append(cols, c.Name)
		}
		tables = append(tables, TableInfo{Name: t.Name, Description: t.Description, Columns: cols})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tables": tables,
		"count":  len(tables),
	})
}

// handleQuery is the raw-SQL path: validator and executor only, no LLM.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusUnprocessableEntity,
			orchestrator.FailureEnvelope("malformed request body"))
		return
	}
	sqlText := strings.TrimSpace(req.SQL)
	if sqlText == "" {
		writeEnvelope(w, http.StatusUnprocessableEntity,
			orchestrator.FailureEnvelope("sql must not be empty"))
		return
	}
	if len(req.SQL) > s.cfg.MaxSQLLength {
		writeEnvelope(w, http.StatusUnprocessableEntity,
			orchestrator.FailureEnvelope("sql exceeds the maximum query length"))
		return
	}

	env := s.cfg.Pipeline.Query(r.Context(), sqlText)
	writeEnvelope(w, http.StatusOK, env)
}

// handleAsk is the full pipeline: intent, SQL synthesis, validation,
// execution, insight.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusUnprocessableEntity,
			orchestrator.FailureEnvelope("malformed request body"))
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeEnvelope(w, http.StatusUnprocessableEntity,
			orchestrator.FailureEnvelope("query must not be empty"))
		return
	}
	if len(req.Query) > s.cfg.MaxQueryLength {
		writeEnvelope(w, http.StatusUnprocessableEntity,
			orchestrator.FailureEnvelope("query exceeds the maximum length"))
		return
	}

	env := s.cfg.Pipeline.Ask(r.Context(), query)
	writeEnvelope(w, http.StatusOK, env)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeEnvelope(w http.ResponseWriter, status int, env orchestrator.Envelope) {
	writeJSON(w, status, env)
}
