package sqlutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Migrate executes idempotent schema statements in order.
func Migrate(ctx context.Context, db *sql.DB, stmts []string) error {
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}

// Dollar rewrites ? placeholders into $1, $2, ... for PostgreSQL. Queries
// containing literal question marks must not use it.
func Dollar(q string) string {
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// InClause returns "?, ?, ..." for n placeholders and the ids as args.
func InClause(ids []int64) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ", "), args
}
