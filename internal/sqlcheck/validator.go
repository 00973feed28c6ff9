// Package sqlcheck implements the SQL safety validator. Every statement
// that reaches the database passes through Validate first; it is the only
// authorization source the executor trusts.
//
// The validator is pure: it never touches the network or the database,
// the same input always produces the same verdict, and failures are
// reported as rejections rather than errors.
package sqlcheck

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Vishal-code-E/banking-data-assistance/internal/schema"
)

// RejectionKind identifies why a statement failed validation. The values
// are stable strings safe to surface to callers.
type RejectionKind string

const (
	RejectTooLong            RejectionKind = "too_long"
	RejectContainsComment    RejectionKind = "contains_comment"
	RejectMultipleStatements RejectionKind = "multiple_statements"
	RejectNotSelect          RejectionKind = "not_select"
	RejectForbiddenKeyword   RejectionKind = "forbidden_keyword"
	RejectInjectionPattern   RejectionKind = "injection_pattern"
	RejectUnauthorizedTable  RejectionKind = "unauthorized_table"
	RejectUnknownTable       RejectionKind = "schema_unknown_table"
)

// Verdict is the validator's result. Either Accepted is true and
// NormalizedSQL carries the statement to execute, or Accepted is false and
// Reason/Detail describe the rejection.
type Verdict struct {
	Accepted      bool
	NormalizedSQL string
	Reason        RejectionKind
	Detail        string
}

func accepted(sql string) Verdict {
	return Verdict{Accepted: true, NormalizedSQL: sql}
}

func rejected(reason RejectionKind, detail string) Verdict {
	return Verdict{Reason: reason, Detail: detail}
}

var (
	selectPrefixRe = regexp.MustCompile(`(?i)^select\b`)

	// Keywords that mutate data or the schema, or invoke procedures.
	// Word-boundary matching avoids false positives on identifiers such
	// as created_at.
	forbiddenKeywordRe = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|create|alter|truncate|replace|merge|grant|revoke|exec|execute|call|pragma|procedure|function)\b`)

	injectionPatterns = []struct {
		re     *regexp.Regexp
		detail string
	}{
		{regexp.MustCompile(`(?i)\bor\s+\d+\s*=\s*\d+`), "tautology pattern (OR n=n) detected"},
		{regexp.MustCompile(`(?i)\bor\s+'[^']*'\s*=\s*'[^']*'`), "tautology pattern (OR 'a'='a') detected"},
		{regexp.MustCompile(`(?i)\bunion\s+(?:all|select)\b`), "UNION-based injection pattern detected"},
		{regexp.MustCompile(`(?i)\b0x[0-9a-f]+\b`), "hex literal detected"},
		{regexp.MustCompile(`(?i)\b(?:xp|sp)_\w+`), "stored procedure reference detected"},
		{regexp.MustCompile(`(?i)\binformation_schema\b`), "system catalog reference detected"},
		{regexp.MustCompile(`(?i)\bsqlite_master\b`), "system catalog reference detected"},
		{regexp.MustCompile(`(?i);\s*(?:drop|delete|update)\b`), "chained statement injection detected"},
		{regexp.MustCompile(`(?i)\bwaitfor\s+delay\b`), "time-based injection pattern detected"},
		{regexp.MustCompile(`(?i)\bbenchmark\s*\(`), "time-based injection pattern detected"},
		{regexp.MustCompile(`(?i)\bsleep\s*\(`), "time-based injection pattern detected"},
	}

	tableRefRe = regexp.MustCompile(`(?i)\b(?:from|join)\s+([a-zA-Z_][a-zA-Z0-9_]*)`)
	limitRe    = regexp.MustCompile(`(?i)\blimit\s+(\d+)\b`)
)

// Validator runs the ordered rejection pipeline against candidate SQL.
type Validator struct {
	catalog      *schema.Catalog
	maxLength    int
	defaultLimit int
	maxLimit     int
}

// Config bounds the validator. Zero values fall back to the defaults from
// the service configuration (5000 / 100 / 1000).
type Config struct {
	MaxQueryLength int
	DefaultLimit   int
	MaxLimit       int
}

// New creates a validator over the given catalog.
func New(catalog *schema.Catalog, cfg Config) *Validator {
	if cfg.MaxQueryLength == 0 {
		cfg.MaxQueryLength = 5000
	}
	if cfg.DefaultLimit == 0 {
		cfg.DefaultLimit = 100
	}
	if cfg.MaxLimit == 0 {
		cfg.MaxLimit = 1000
	}
	return &Validator{
		catalog:      catalog,
		maxLength:    cfg.MaxQueryLength,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
	}
}

// Validate runs the pipeline and short-circuits on the first rejection.
// Cheap lexical checks run first; table authorization runs last so that
// catastrophic patterns are reported in preference. The only place the
// statement's semantics are changed is the LIMIT enforcement at the end.
func (v *Validator) Validate(sql string) Verdict {
	// 1. Length bound on the raw input.
	if len(sql) > v.maxLength {
		return rejected(RejectTooLong, fmt.Sprintf("query length exceeds maximum of %d characters", v.maxLength))
	}

	// 2. Whitespace normalization. Everything after this point operates
	// on the single-spaced form.
	norm := strings.Join(strings.Fields(sql), " ")
	if norm == "" {
		return rejected(RejectNotSelect, "only SELECT statements are allowed")
	}

	// 3. Comments can hide payloads from later checks, so they are
	// forbidden outright and checked before statement splitting.
	if strings.Contains(norm, "--") || strings.Contains(norm, "/*") || strings.Contains(norm, "*/") {
		return rejected(RejectContainsComment, "SQL comments are not allowed")
	}

	// 4. A single optional trailing semicolon is tolerated; any other
	// semicolon means a chained statement.
	norm = strings.TrimSuffix(norm, ";")
	norm = strings.TrimSpace(norm)
	if strings.Contains(norm, ";") {
		return rejected(RejectMultipleStatements, "multiple statements are not allowed")
	}

	// 5. Statement type.
	if !selectPrefixRe.MatchString(norm) {
		return rejected(RejectNotSelect, "only SELECT statements are allowed")
	}

	// 6. Forbidden keywords, word-bounded and case-insensitive.
	if m := forbiddenKeywordRe.FindString(norm); m != "" {
		return rejected(RejectForbiddenKeyword, fmt.Sprintf("forbidden keyword %q is not allowed", strings.ToUpper(m)))
	}

	// 7. Injection patterns.
	for _, p := range injectionPatterns {
		if p.re.MatchString(norm) {
			return rejected(RejectInjectionPattern, p.detail)
		}
	}

	// 8. Table authorization. Every table referenced after FROM or JOIN
	// must be on the whitelist; a SELECT that reads from nowhere is
	// rejected too.
	tables := referencedTables(norm)
	if len(tables) == 0 {
		return rejected(RejectUnauthorizedTable, "no table referenced in query")
	}
	for _, table := range tables {
		if !v.catalog.IsAllowed(table) {
			return rejected(RejectUnauthorizedTable,
				fmt.Sprintf("table %q is not authorized; allowed tables: %s", table, strings.Join(v.catalog.AllowedTables(), ", ")))
		}
		if !v.catalog.TableExists(table) {
			return rejected(RejectUnknownTable, fmt.Sprintf("table %q is not present in the schema", table))
		}
	}

	// 9. LIMIT enforcement. Guarantees a row bound before execution.
	return accepted(v.enforceLimit(norm))
}

// referencedTables extracts the identifiers following FROM and JOIN,
// lowercased and deduplicated. Aliases are irrelevant because only the
// first token after the keyword is captured.
func referencedTables(sql string) []string {
	seen := make(map[string]struct{})
	var tables []string
	for _, m := range tableRefRe.FindAllStringSubmatch(sql, -1) {
		name := strings.ToLower(m[1])
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		tables = append(tables, name)
	}
	return tables
}

// enforceLimit appends LIMIT defaultLimit when absent, rewrites a LIMIT
// above maxLimit down to maxLimit, and replaces a LIMIT below 1 with
// defaultLimit.
func (v *Validator) enforceLimit(sql string) string {
	m := limitRe.FindStringSubmatchIndex(sql)
	if m == nil {
		return fmt.Sprintf("%s LIMIT %d", sql, v.defaultLimit)
	}
	n, err := strconv.Atoi(sql[m[2]:m[3]])
	if err != nil || n < 1 {
		return sql[:m[0]] + fmt.Sprintf("LIMIT %d", v.defaultLimit) + sql[m[1]:]
	}
	if n > v.maxLimit {
		return sql[:m[0]] + fmt.Sprintf("LIMIT %d", v.maxLimit) + sql[m[1]:]
	}
	return sql
}
