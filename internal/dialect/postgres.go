package dialect

import (
	"fmt"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/schema"
)

type postgres struct{}

// Postgres returns the PostgreSQL dialect, shared by the lib/pq and pgx
// drivers.
func Postgres() Dialect {
	return postgres{}
}

func (postgres) Name() string { return "postgres" }

func (postgres) Quote(ident string) string { return quoteIdent(ident) }

func (postgres) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (postgres) Like() string { return "ILIKE" }

func (postgres) ReturningID() bool { return true }

func (postgres) PrimaryKeyColumn() string { return "SERIAL PRIMARY KEY" }

func (postgres) ColumnType(f *schema.Field) string {
	if f.IsTimestamp() {
		return "TIMESTAMPTZ"
	}
	switch f.BaseType() {
	case schema.TypeInteger:
		return "INTEGER"
	case schema.TypeNumber:
		return "DECIMAL"
	case schema.TypeBoolean:
		return "BOOLEAN"
	default:
		if f.MaxLength != nil && *f.MaxLength > 0 {
			return fmt.Sprintf("VARCHAR(%d)", *f.MaxLength)
		}
		return "TEXT"
	}
}
