// Package store translates table operations into parameterised SQL over
// the tables a schema registry declares.
//
// Table names must be registry identifiers and every column name must be
// declared by the table's schema before it reaches a statement; values
// are always bound. Each operation takes one connection from the pool and
// returns it before the call ends.
package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/dialect"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/errs"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/schema"
)

// TimestampLayout is how created_at and updated_at are written and how
// scanned times are returned.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

type Store struct {
	db  *sql.DB
	d   dialect.Dialect
	reg *schema.Registry
	now func() time.Time
}

func New(db *sql.DB, d dialect.Dialect, reg *schema.Registry) *Store {
	return &Store{db: db, d: d, reg: reg, now: time.Now}
}

// WithClock replaces the time source used for timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Registry() *schema.Registry { return s.reg }

func (s *Store) Dialect() dialect.Dialect { return s.d }

// Now is the current time in TimestampLayout.
func (s *Store) Now() string {
	return s.now().UTC().Format(TimestampLayout)
}

func (s *Store) table(name string) (*schema.Schema, error) {
	if !s.reg.Has(name) {
		return nil, errs.NotFound("table %q not found", name)
	}
	return s.reg.Get(name)
}

func (s *Store) conn(ctx context.Context, table string) (*sql.Conn, error) {
	c, err := s.db.Conn(ctx)
	if err != nil {
		return nil, errs.Store(table, err)
	}
	return c, nil
}

// parseID accepts only base-10 integer identifiers.
func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return 0, errs.BadRequest("invalid id %q", id)
	}
	return n, nil
}

// bindValue converts a normalised value to the argument bound for f.
// Empty timestamps are stored as NULL.
func (s *Store) bindValue(f *schema.Field, v any) any {
	if !f.IsTimestamp() {
		return v
	}
	str, ok := v.(string)
	if !ok {
		return v
	}
	if strings.TrimSpace(str) == "" {
		return nil
	}
	if s.d.Name() == "postgres" {
		if t, err := time.Parse(time.RFC3339Nano, str); err == nil {
			return t
		}
	}
	return str
}

// scanned converts a driver value to the JSON-friendly value of f.
func scanned(f *schema.Field, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		v = string(x)
	case time.Time:
		return x.UTC().Format(TimestampLayout)
	}
	if f == nil {
		return v
	}
	switch f.BaseType() {
	case schema.TypeInteger:
		switch x := v.(type) {
		case string:
			if n, err := strconv.ParseInt(x, 10, 64); err == nil {
				return n
			}
		case float64:
			return int64(x)
		case bool:
			if x {
				return int64(1)
			}
			return int64(0)
		}
	case schema.TypeNumber:
		switch x := v.(type) {
		case string:
			if n, err := strconv.ParseFloat(x, 64); err == nil {
				return n
			}
		case int64:
			return float64(x)
		}
	case schema.TypeBoolean:
		switch x := v.(type) {
		case int64:
			return x != 0
		case string:
			if b, err := strconv.ParseBool(x); err == nil {
				return b
			}
		}
	}
	return v
}
