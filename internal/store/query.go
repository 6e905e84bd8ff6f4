package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/dialect"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/errs"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/models"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/schema"
)

// builder accumulates a statement and its bound arguments.
type builder struct {
	d    dialect.Dialect
	sql  strings.Builder
	args []any
}

func (b *builder) write(s string) *builder {
	b.sql.WriteString(s)
	return b
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, v)
	return b.d.Placeholder(len(b.args))
}

func (b *builder) String() string { return b.sql.String() }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// searchClause ORs a substring match for every declared column in search.
// Undeclared columns are ignored.
func (s *Store) searchClause(b *builder, sc *schema.Schema, search map[string]string) {
	cols := make([]string, 0, len(search))
	for col, term := range search {
		if sc.Has(col) && term != "" {
			cols = append(cols, col)
		}
	}
	if len(cols) == 0 {
		return
	}
	sort.Strings(cols)
	b.write(" WHERE ")
	for i, col := range cols {
		if i > 0 {
			b.write(" OR ")
		}
		pattern := "%" + likeEscaper.Replace(search[col]) + "%"
		b.write(fmt.Sprintf(`CAST(%s AS TEXT) %s %s ESCAPE '\'`, s.d.Quote(col), s.d.Like(), b.bind(pattern)))
	}
}

// orderClause parses "field:direction". Anything malformed, or naming an
// undeclared column, falls back to id descending.
func (s *Store) orderClause(sc *schema.Schema, sortParam string) string {
	def := " ORDER BY " + s.d.Quote(schema.ColumnID) + " DESC"
	field, dir, ok := strings.Cut(sortParam, ":")
	if !ok || !sc.Has(field) {
		return def
	}
	switch strings.ToLower(dir) {
	case "asc":
		dir = "ASC"
	case "desc":
		dir = "DESC"
	default:
		return def
	}
	clause := " ORDER BY " + s.d.Quote(field) + " " + dir
	if field != schema.ColumnID {
		clause += ", " + s.d.Quote(schema.ColumnID) + " DESC"
	}
	return clause
}

func (s *Store) selectList(sc *schema.Schema) string {
	return "SELECT " + dialect.QuoteList(s.d, sc.Columns()) + " FROM " + s.d.Quote(sc.Name())
}

// List returns one page of table ordered by q.Sort and filtered by
// q.Search.
func (s *Store) List(ctx context.Context, table string, q models.ListQuery) (models.ListResult, error) {
	sc, err := s.table(table)
	if err != nil {
		return models.ListResult{}, err
	}
	q = q.Normalized()

	count := &builder{d: s.d}
	count.write("SELECT COUNT(*) FROM " + s.d.Quote(table))
	s.searchClause(count, sc, q.Search)

	sel := &builder{d: s.d}
	sel.write(s.selectList(sc))
	s.searchClause(sel, sc, q.Search)
	sel.write(s.orderClause(sc, q.Sort))
	sel.write(" LIMIT " + sel.bind(q.Limit) + " OFFSET " + sel.bind(q.Offset()))

	conn, err := s.conn(ctx, table)
	if err != nil {
		return models.ListResult{}, err
	}
	defer conn.Close()

	var total int
	if err := conn.QueryRowContext(ctx, count.String(), count.args...).Scan(&total); err != nil {
		return models.ListResult{}, errs.Store(table, err)
	}
	rows, err := s.scanRows(ctx, conn, sc, sel)
	if err != nil {
		return models.ListResult{}, err
	}
	return models.ListResult{Data: rows, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

func (s *Store) scanRows(ctx context.Context, conn *sql.Conn, sc *schema.Schema, b *builder) ([]models.TableRow, error) {
	rows, err := conn.QueryContext(ctx, b.String(), b.args...)
	if err != nil {
		return nil, errs.Store(sc.Name(), err)
	}
	defer rows.Close()

	out := []models.TableRow{}
	err = eachRow(rows, sc, func(r models.TableRow) error {
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, errs.Store(sc.Name(), err)
	}
	return out, nil
}

// eachRow scans every row of the select list built by selectList.
func eachRow(rows *sql.Rows, sc *schema.Schema, fn func(models.TableRow) error) error {
	cols := sc.Columns()
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		row := make(models.TableRow, len(cols))
		for i, col := range cols {
			row[col] = scanned(sc.Properties[i], vals[i])
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Filter selects rows by column equality.
type Filter struct {
	Where map[string]any
	// Sort is "field:direction" as in ListQuery.
	Sort  string
	Limit int
}

// Query returns the rows of table matching every Where pair.
func (s *Store) Query(ctx context.Context, table string, f Filter) ([]models.TableRow, error) {
	sc, err := s.table(table)
	if err != nil {
		return nil, err
	}
	b := &builder{d: s.d}
	b.write(s.selectList(sc))

	cols := make([]string, 0, len(f.Where))
	for col := range f.Where {
		if !sc.Has(col) {
			return nil, errs.BadRequest("%s is not a column of %s", col, table)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for i, col := range cols {
		if i == 0 {
			b.write(" WHERE ")
		} else {
			b.write(" AND ")
		}
		b.write(s.d.Quote(col) + " = " + b.bind(f.Where[col]))
	}
	b.write(s.orderClause(sc, f.Sort))
	if f.Limit > 0 {
		b.write(" LIMIT " + b.bind(f.Limit))
	}

	conn, err := s.conn(ctx, table)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return s.scanRows(ctx, conn, sc, b)
}

// FindOne returns the first row whose column equals value.
func (s *Store) FindOne(ctx context.Context, table, column string, value any) (models.TableRow, error) {
	rows, err := s.Query(ctx, table, Filter{Where: map[string]any{column: value}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errs.NotFound("%s: no row with %s = %v", table, column, value)
	}
	return rows[0], nil
}

// Get returns the row with the given id.
func (s *Store) Get(ctx context.Context, table, id string) (models.TableRow, error) {
	n, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.FindOne(ctx, table, schema.ColumnID, n)
}
