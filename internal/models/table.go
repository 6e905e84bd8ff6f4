package models

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// TableRow is one persisted record keyed by column name.
type TableRow map[string]any

// ID returns the row's identifier, or nil before it is persisted.
func (r TableRow) ID() any {
	return r["id"]
}

// Default list paging.
const (
	DefaultPage  = 1
	DefaultLimit = 50
	MaxLimit     = 500
)

const likeSuffix = "_like"

// ListQuery carries the paging, ordering and search parameters of a table
// listing. Search maps a column to a substring; entries are OR'ed.
type ListQuery struct {
	Page   int
	Limit  int
	Sort   string
	Search map[string]string
}

// ParseListQuery reads page, limit, sort and <column>_like parameters.
// Invalid numbers fall back to the defaults.
func ParseListQuery(v url.Values) ListQuery {
	q := ListQuery{Page: DefaultPage, Limit: DefaultLimit, Sort: v.Get("sort")}
	if n, err := strconv.Atoi(v.Get("page")); err == nil && n > 0 {
		q.Page = n
	}
	if n, err := strconv.Atoi(v.Get("limit")); err == nil && n > 0 {
		q.Limit = min(n, MaxLimit)
	}
	for key, vals := range v {
		col, ok := strings.CutSuffix(key, likeSuffix)
		if !ok || col == "" || len(vals) == 0 || vals[0] == "" {
			continue
		}
		if q.Search == nil {
			q.Search = map[string]string{}
		}
		q.Search[col] = vals[0]
	}
	return q
}

// Normalized fills zero page and limit with the defaults.
func (q ListQuery) Normalized() ListQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

// Offset is the number of rows skipped before the current page.
func (q ListQuery) Offset() int {
	q = q.Normalized()
	return (q.Page - 1) * q.Limit
}

// Values encodes the query as URL parameters.
func (q ListQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	cols := make([]string, 0, len(q.Search))
	for col := range q.Search {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		v.Set(col+likeSuffix, q.Search[col])
	}
	return v
}

// SearchAll builds a Search map that looks for term in every column.
func SearchAll(columns []string, term string) map[string]string {
	if strings.TrimSpace(term) == "" {
		return nil
	}
	m := make(map[string]string, len(columns))
	for _, c := range columns {
		m[c] = term
	}
	return m
}

// ListResult is one page of a table listing.
type ListResult struct {
	Data  []TableRow `json:"data"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}

// TotalPages is ceil(Total/Limit), at least 1.
func (r ListResult) TotalPages() int {
	if r.Limit <= 0 || r.Total <= 0 {
		return 1
	}
	return (r.Total + r.Limit - 1) / r.Limit
}

// CreateResult is the response body of a successful insert.
type CreateResult struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id"`
}

// SuccessResult is returned by update and delete.
type SuccessResult struct {
	Success bool `json:"success"`
}

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// UploadResult is returned by the upload endpoints.
type UploadResult struct {
	URL string `json:"url"`
}
