// Package ddl derives CREATE TABLE statements from table schemas.
package ddl

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/dialect"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/schema"
)

// Table returns the statements creating s and its indexes. The id column
// is always the generated primary key and created_at/updated_at are added
// when the schema does not declare them.
func Table(d dialect.Dialect, s *schema.Schema) []string {
	name := s.Name()
	var cols []string
	cols = append(cols, d.Quote(schema.ColumnID)+" "+d.PrimaryKeyColumn())

	for _, f := range s.Properties {
		if f.Name == schema.ColumnID {
			continue
		}
		cols = append(cols, column(d, s, f))
	}
	for _, f := range s.ImplicitTimestamps() {
		cols = append(cols, column(d, s, f))
	}

	stmts := []string{fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", d.Quote(name), strings.Join(cols, ",\n  "))}
	stmts = append(stmts, index(d, name, schema.ColumnCreatedAt))
	for _, f := range s.Properties {
		if f.Index && !f.Unique && f.Name != schema.ColumnCreatedAt {
			stmts = append(stmts, index(d, name, f.Name))
		}
	}
	return stmts
}

func column(d dialect.Dialect, s *schema.Schema, f *schema.Field) string {
	var b strings.Builder
	b.WriteString(d.Quote(f.Name))
	b.WriteByte(' ')
	b.WriteString(d.ColumnType(f))
	if s.IsRequired(f.Name) && !f.Immutable() {
		b.WriteString(" NOT NULL")
	}
	if f.Unique {
		b.WriteString(" UNIQUE")
	}
	if lit, ok := defaultLiteral(d, f); ok {
		b.WriteString(" DEFAULT ")
		b.WriteString(lit)
	}
	return b.String()
}

func index(d dialect.Dialect, table, col string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		d.Quote("idx_"+table+"_"+col), d.Quote(table), d.Quote(col))
}

func defaultLiteral(d dialect.Dialect, f *schema.Field) (string, bool) {
	switch v := f.DefaultValue().(type) {
	case nil:
		return "", false
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'", true
	case bool:
		if d.Name() == "postgres" {
			return strings.ToUpper(strconv.FormatBool(v)), true
		}
		if v {
			return "1", true
		}
		return "0", true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	}
	return "", false
}

// Script renders every schema's statements as one SQL script.
func Script(d dialect.Dialect, schemas []*schema.Schema) string {
	var b strings.Builder
	for i, s := range schemas {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "-- %s\n", s.DisplayTitle())
		for _, stmt := range Table(d, s) {
			b.WriteString(stmt)
			b.WriteString(";\n")
		}
	}
	return b.String()
}

// Migrate creates every missing table and index.
func Migrate(ctx context.Context, db *sql.DB, d dialect.Dialect, schemas []*schema.Schema) error {
	for _, s := range schemas {
		for _, stmt := range Table(d, s) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migrate %s: %w", s.Name(), err)
			}
		}
		log.Printf("Migrate: table %s ready", s.Name())
	}
	return nil
}
