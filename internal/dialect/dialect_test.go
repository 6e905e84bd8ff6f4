package dialect

import (
	"testing"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/schema"
)

func TestForDriver(t *testing.T) {
	for driver, want := range map[string]string{"sqlite": "sqlite", "postgres": "postgres", "pgx": "postgres"} {
		d, err := ForDriver(driver)
		if err != nil {
			t.Fatalf("ForDriver(%q): %v", driver, err)
		}
		if d.Name() != want {
			t.Errorf("ForDriver(%q).Name() = %q, want %q", driver, d.Name(), want)
		}
	}
	if _, err := ForDriver("mysql"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestQuote(t *testing.T) {
	d := Postgres()
	if got := d.Quote(`order`); got != `"order"` {
		t.Fatalf("Quote = %s", got)
	}
	if got := d.Quote(`a"b`); got != `"a""b"` {
		t.Fatalf("Quote escaping = %s", got)
	}
	if got := QuoteList(SQLite(), []string{"id", "name"}); got != `"id", "name"` {
		t.Fatalf("QuoteList = %s", got)
	}
}

func TestPlaceholders(t *testing.T) {
	if SQLite().Placeholder(3) != "?" {
		t.Fatal("sqlite placeholder")
	}
	if Postgres().Placeholder(3) != "$3" {
		t.Fatal("postgres placeholder")
	}
}

func TestColumnType(t *testing.T) {
	n := 120
	tests := []struct {
		field      schema.Field
		sqlite, pg string
	}{
		{schema.Field{Type: "string", Format: "date-time"}, "TEXT", "TIMESTAMPTZ"},
		{schema.Field{Type: "string", MaxLength: &n}, "TEXT", "VARCHAR(120)"},
		{schema.Field{Type: "string"}, "TEXT", "TEXT"},
		{schema.Field{Type: "integer"}, "INTEGER", "INTEGER"},
		{schema.Field{Type: "number"}, "REAL", "DECIMAL"},
		{schema.Field{Type: "boolean"}, "INTEGER", "BOOLEAN"},
		{schema.Field{Type: "object"}, "TEXT", "TEXT"},
	}
	for _, tt := range tests {
		if got := SQLite().ColumnType(&tt.field); got != tt.sqlite {
			t.Errorf("sqlite %+v = %s, want %s", tt.field, got, tt.sqlite)
		}
		if got := Postgres().ColumnType(&tt.field); got != tt.pg {
			t.Errorf("postgres %+v = %s, want %s", tt.field, got, tt.pg)
		}
	}
}
