package dialect

import "github.com/parisxmas/OxiDB/OxiPortal/internal/schema"

type sqlite struct{}

// SQLite returns the SQLite dialect.
func SQLite() Dialect {
	return sqlite{}
}

func (sqlite) Name() string { return "sqlite" }

func (sqlite) Quote(ident string) string { return quoteIdent(ident) }

func (sqlite) Placeholder(int) string { return "?" }

// LIKE is already case-insensitive for ASCII in SQLite.
func (sqlite) Like() string { return "LIKE" }

func (sqlite) ReturningID() bool { return false }

func (sqlite) PrimaryKeyColumn() string { return "INTEGER PRIMARY KEY AUTOINCREMENT" }

// Timestamps stay TEXT: the store writes ISO-8601 strings and the driver
// would otherwise hand back time.Time for DATETIME affinity.
func (sqlite) ColumnType(f *schema.Field) string {
	if f.IsTimestamp() {
		return "TEXT"
	}
	switch f.BaseType() {
	case schema.TypeInteger, schema.TypeBoolean:
		return "INTEGER"
	case schema.TypeNumber:
		return "REAL"
	default:
		return "TEXT"
	}
}
