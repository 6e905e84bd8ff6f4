package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/errs"
	"github.com/parisxmas/OxiDB/OxiPortal/internal/models"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// csvCell renders one value. Markup is stripped from strings; values
// containing a comma, quote or newline are quoted with quotes doubled.
func csvCell(v any) string {
	var s string
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		s = x
		if strings.Contains(s, "<") {
			s = tagPattern.ReplaceAllString(s, "")
		}
	case int64:
		s = strconv.FormatInt(x, 10)
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(x)
	default:
		s = fmt.Sprint(x)
	}
	if strings.ContainsAny(s, ",\"\n") {
		s = `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func csvLine(cells []string) string {
	return strings.Join(cells, ",")
}

// ExportTo writes every row of table matching q.Search, ordered by q.Sort,
// as CSV. The header row is written with the first row, so nothing is
// written when the table is empty; that case returns NotFound. Rows are
// separated by "\n" without a trailing newline.
func (s *Store) ExportTo(ctx context.Context, w io.Writer, table string, q models.ListQuery) (int, error) {
	sc, err := s.table(table)
	if err != nil {
		return 0, err
	}
	b := &builder{d: s.d}
	b.write(s.selectList(sc))
	s.searchClause(b, sc, q.Search)
	b.write(s.orderClause(sc, q.Sort))

	conn, err := s.conn(ctx, table)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, b.String(), b.args...)
	if err != nil {
		return 0, errs.Store(table, err)
	}
	defer rows.Close()

	cols := sc.Columns()
	cells := make([]string, len(cols))
	n := 0
	err = eachRow(rows, sc, func(r models.TableRow) error {
		if n == 0 {
			if _, err := io.WriteString(w, csvLine(cols)); err != nil {
				return err
			}
		}
		for i, c := range cols {
			cells[i] = csvCell(r[c])
		}
		n++
		_, err := io.WriteString(w, "\n"+csvLine(cells))
		return err
	})
	if err != nil {
		return n, errs.Store(table, err)
	}
	if n == 0 {
		return 0, errs.NotFound("no data to export")
	}
	return n, nil
}

// Export returns the CSV produced by ExportTo.
func (s *Store) Export(ctx context.Context, table string, q models.ListQuery) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.ExportTo(ctx, &buf, table, q); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
