package store

import (
	"context"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/errs"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/schema"
)

// writable drops identity and other immutable keys the server owns, then
// validates and normalises the remaining values.
func writable(sc *schema.Schema, payload map[string]any, partial bool) (map[string]any, error) {
	values := make(map[string]any, len(payload))
	for k, v := range payload {
		if f := sc.Field(k); f != nil && f.Immutable() {
			continue
		}
		if k == schema.ColumnCreatedAt || k == schema.ColumnUpdatedAt {
			continue
		}
		values[k] = v
	}
	if problems := sc.Validate(values, partial); problems != nil {
		return nil, errs.Validation(problems)
	}
	for k, v := range values {
		norm, err := sc.Field(k).Normalize(v)
		if err != nil {
			return nil, errs.Validation(map[string]string{k: err.Error()})
		}
		values[k] = norm
	}
	return values, nil
}

// writeColumns is every column a write may set, including the timestamps
// the table carries without declaring them.
func writeColumns(sc *schema.Schema) []*schema.Field {
	cols := make([]*schema.Field, 0, len(sc.Properties)+2)
	cols = append(cols, sc.Properties...)
	return append(cols, sc.ImplicitTimestamps()...)
}

// Create inserts payload into table and returns the generated id. Any
// client-supplied id is discarded and created_at/updated_at are stamped
// with the current time.
func (s *Store) Create(ctx context.Context, table string, payload map[string]any) (int64, error) {
	sc, err := s.table(table)
	if err != nil {
		return 0, err
	}
	values, err := writable(sc, payload, false)
	if err != nil {
		return 0, err
	}
	now := s.Now()
	values[schema.ColumnCreatedAt] = now
	values[schema.ColumnUpdatedAt] = now

	b := &builder{d: s.d}
	b.write("INSERT INTO " + s.d.Quote(table) + " (")
	var placeholders string
	n := 0
	for _, f := range writeColumns(sc) {
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		if n > 0 {
			b.write(", ")
			placeholders += ", "
		}
		b.write(s.d.Quote(f.Name))
		placeholders += b.bind(s.bindValue(f, v))
		n++
	}
	b.write(") VALUES (" + placeholders + ")")

	conn, err := s.conn(ctx, table)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	if s.d.ReturningID() {
		b.write(" RETURNING " + s.d.Quote(schema.ColumnID))
		var id int64
		if err := conn.QueryRowContext(ctx, b.String(), b.args...).Scan(&id); err != nil {
			return 0, errs.Store(table, err)
		}
		return id, nil
	}
	res, err := conn.ExecContext(ctx, b.String(), b.args...)
	if err != nil {
		return 0, errs.Store(table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errs.Store(table, err)
	}
	return id, nil
}

// Update sets the payload columns of row id and stamps updated_at. id and
// created_at are never changed. A row that does not exist is NotFound.
func (s *Store) Update(ctx context.Context, table, id string, payload map[string]any) (int64, error) {
	sc, err := s.table(table)
	if err != nil {
		return 0, err
	}
	rowID, err := parseID(id)
	if err != nil {
		return 0, err
	}
	values, err := writable(sc, payload, true)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, errs.BadRequest("no columns to update in %s", table)
	}
	values[schema.ColumnUpdatedAt] = s.Now()

	b := &builder{d: s.d}
	b.write("UPDATE " + s.d.Quote(table) + " SET ")
	n := 0
	for _, f := range writeColumns(sc) {
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		if n > 0 {
			b.write(", ")
		}
		b.write(s.d.Quote(f.Name) + " = " + b.bind(s.bindValue(f, v)))
		n++
	}
	b.write(" WHERE " + s.d.Quote(schema.ColumnID) + " = " + b.bind(rowID))

	conn, err := s.conn(ctx, table)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	res, err := conn.ExecContext(ctx, b.String(), b.args...)
	if err != nil {
		return 0, errs.Store(table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, errs.Store(table, err)
	}
	if affected == 0 {
		return 0, errs.NotFound("%s: row %d not found", table, rowID)
	}
	return affected, nil
}

// Delete removes row id and returns the number of rows removed. A missing
// row is not an error.
func (s *Store) Delete(ctx context.Context, table, id string) (int64, error) {
	if _, err := s.table(table); err != nil {
		return 0, err
	}
	rowID, err := parseID(id)
	if err != nil {
		return 0, err
	}
	b := &builder{d: s.d}
	b.write("DELETE FROM " + s.d.Quote(table) + " WHERE " + s.d.Quote(schema.ColumnID) + " = " + b.bind(rowID))

	conn, err := s.conn(ctx, table)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	res, err := conn.ExecContext(ctx, b.String(), b.args...)
	if err != nil {
		return 0, errs.Store(table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, errs.Store(table, err)
	}
	return affected, nil
}
