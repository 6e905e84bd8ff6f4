// Package dialect isolates the SQL differences between the databases the
// portal runs on: identifier quoting, bind placeholders, case-insensitive
// matching, insert-id retrieval and column types.
package dialect

import (
	"fmt"
	"strings"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/schema"
)

// Dialect generates database-specific SQL fragments.
type Dialect interface {
	Name() string
	// Quote quotes an identifier. Callers still restrict identifiers to
	// schema-declared names; quoting only protects reserved words.
	Quote(ident string) string
	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder(n int) string
	// Like is the case-insensitive pattern match operator.
	Like() string
	// ReturningID reports whether INSERT must use RETURNING to obtain the
	// generated key instead of sql.Result.LastInsertId.
	ReturningID() bool
	// PrimaryKeyColumn is the column definition of the generated id.
	PrimaryKeyColumn() string
	// ColumnType maps a schema field to a column type.
	ColumnType(f *schema.Field) string
}

// ForDriver returns the dialect for a database/sql driver name.
func ForDriver(driver string) (Dialect, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return SQLite(), nil
	case "postgres", "pgx":
		return Postgres(), nil
	}
	return nil, fmt.Errorf("dialect: unsupported driver %q", driver)
}

func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// QuoteList quotes and joins identifiers with ", ".
func QuoteList(d Dialect, idents []string) string {
	var b strings.Builder
	for i, id := range idents {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.Quote(id))
	}
	return b.String()
}
