// Package schema holds the immutable catalog of tables the assistant may
// query. The catalog is the single source of truth for both the SQL
// validator's whitelist and the schema text injected into LLM prompts, so
// the two can never drift.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Column describes a single column of a catalog table.
type Column struct {
	Name string
	Type string
}

// Table describes a catalog table.
type Table struct {
	Name        string
	Description string
	Columns     []Column
}

// Catalog is the process-wide description of allowed tables and columns.
// It is built once at startup and never mutated; concurrent reads are safe.
type Catalog struct {
	tables  []Table
	byName  map[string]Table
	allowed map[string]struct{}
}

// New builds a catalog from the given tables. All tables are allowed unless
// narrowed with a non-empty whitelist. Lookups are case-insensitive;
// canonical casing is lowercase.
func New(tables []Table, whitelist []string) *Catalog {
	c := &Catalog{
		tables:  tables,
		byName:  make(map[string]Table, len(tables)),
		allowed: make(map[string]struct{}, len(tables)),
	}
	for _, t := range tables {
		c.byName[strings.ToLower(t.Name)] = t
	}
	if len(whitelist) == 0 {
		for _, t := range tables {
			c.allowed[strings.ToLower(t.Name)] = struct{}{}
		}
	} else {
		for _, name := range whitelist {
			c.allowed[strings.ToLower(name)] = struct{}{}
		}
	}
	return c
}

// Default returns the banking schema catalog.
func Default() *Catalog {
	return New([]Table{
		{
			Name:        "customers",
			Description: "Customer information including name and email",
			Columns: []Column{
				{Name: "id", Type: "INTEGER PRIMARY KEY"},
				{Name: "name", Type: "VARCHAR(255)"},
				{Name: "email", Type: "VARCHAR(255)"},
				{Name: "created_at", Type: "TIMESTAMP"},
			},
		},
		{
			Name:        "accounts",
			Description: "Bank accounts associated with customers",
			Columns: []Column{
				{Name: "id", Type: "INTEGER PRIMARY KEY"},
				{Name: "customer_id", Type: "INTEGER REFERENCES customers(id)"},
				{Name: "account_number", Type: "VARCHAR(50)"},
				{Name: "balance", Type: "DECIMAL(15,2)"},
				{Name: "created_at", Type: "TIMESTAMP"},
			},
		},
		{
			Name:        "transactions",
			Description: "All banking transactions (credits and debits)",
			Columns: []Column{
				{Name: "id", Type: "INTEGER PRIMARY KEY"},
				{Name: "account_id", Type: "INTEGER REFERENCES accounts(id)"},
				{Name: "type", Type: "VARCHAR(10) CHECK (type IN ('credit','debit'))"},
				{Name: "amount", Type: "DECIMAL(15,2)"},
				{Name: "created_at", Type: "TIMESTAMP"},
			},
		},
	}, nil)
}

// Tables returns the catalog tables in declaration order.
func (c *Catalog) Tables() []Table {
	return c.tables
}

// AllowedTables returns the sorted whitelist of queryable table names.
func (c *Catalog) AllowedTables() []string {
	names := make([]string, 0, len(c.allowed))
	for name := range c.allowed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsAllowed reports whether the named table is on the whitelist.
func (c *Catalog) IsAllowed(name string) bool {
	_, ok := c.allowed[strings.ToLower(name)]
	return ok
}

// TableExists reports whether the named table is known to the catalog.
func (c *Catalog) TableExists(name string) bool {
	_, ok := c.byName[strings.ToLower(name)]
	return ok
}

// PromptText renders the catalog as markdown for injection into LLM prompts.
func (c *Catalog) PromptText() string {
	var sb strings.Builder
	sb.WriteString("# Banking Database Schema\n\n")
	for _, t := range c.tables {
		sb.WriteString(fmt.Sprintf("## Table: %s\n", t.Name))
		sb.WriteString(fmt.Sprintf("Description: %s\n", t.Description))
		sb.WriteString("Columns:\n")
		for _, col := range t.Columns {
			sb.WriteString(fmt.Sprintf("  - %s: %s\n", col.Name, col.Type))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
