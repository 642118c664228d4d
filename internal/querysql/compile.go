package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/simkernel/internal/queryir"
)

// CommandColumns is the column list every compiled journal query selects,
// in scan order.
const CommandColumns = "run_id, step, seq, kind, target, origin, process, outcome, error_code, error, created, payload"

// SQLCompiler compiles journal queries to parameterized SQL for SQLite.
//
// All queries are ordered by the logical clock with a binary-collated run
// tiebreaker. All values are parameterized, never interpolated.
type SQLCompiler struct {
	// Table is the command journal table. Defaults to "commands".
	Table string
}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{Table: "commands"}
}

// Compile converts a JournalQuery to parameterized SQL.
// Returns (sql, params, error) tuple.
func (c *SQLCompiler) Compile(q queryir.JournalQuery) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, fmt.Errorf("invalid journal query: %w", err)
	}

	table := c.Table
	if table == "" {
		table = "commands"
	}

	where, params := c.compileFilters(q)

	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s",
		CommandColumns,
		table,
		strings.Join(where, " AND "),
		stableOrderKey())

	if q.Limit > 0 {
		sql += " LIMIT ?"
		params = append(params, q.Limit)
	}

	return sql, params, nil
}

// compileFilters returns the conjuncts of the WHERE clause and their params.
// The run filter is always first.
func (c *SQLCompiler) compileFilters(q queryir.JournalQuery) ([]string, []any) {
	where := []string{"run_id = ?"}
	params := []any{q.RunID}

	if len(q.Kinds) > 0 {
		placeholders := make([]string, len(q.Kinds))
		for i, k := range q.Kinds {
			placeholders[i] = "?"
			params = append(params, k)
		}
		where = append(where, fmt.Sprintf("kind IN (%s)", strings.Join(placeholders, ", ")))
	}
	if q.FromStep > 0 {
		where = append(where, "step >= ?")
		params = append(params, q.FromStep)
	}
	if q.ToStep > 0 {
		where = append(where, "step <= ?")
		params = append(params, q.ToStep)
	}
	if q.Outcome != queryir.OutcomeAny {
		where = append(where, "outcome = ?")
		params = append(params, string(q.Outcome))
	}
	if q.Target != "" {
		where = append(where, "target = ?")
		params = append(params, q.Target)
	}

	return where, params
}

// stableOrderKey returns the ORDER BY clause body.
// Every compiled query must use it.
func stableOrderKey() string {
	return "seq ASC, run_id ASC COLLATE BINARY"
}
