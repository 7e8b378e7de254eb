// Package query implements the minimal read layer over the table store:
// select, filtered select, inner join, and union. Every operation
// materializes a fresh QueryResult and leaves the store untouched.
package query

import (
	"strings"

	"github.com/pastatools/pasta/expr"
	"github.com/pastatools/pasta/table"
)

// JoinType selects the join algorithm. Only JoinInner is implemented; the
// enum exists as a bounded extension point.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinFull
)

// Engine runs queries against a table store.
type Engine struct {
	store *table.Store
}

// NewEngine creates a query engine over the given store.
func NewEngine(store *table.Store) *Engine {
	return &Engine{store: store}
}

// Select returns the chosen columns of a table. With no columns, the
// table's own headers define the result; otherwise the given columns are
// used verbatim, and a column absent from the table comes back empty in
// every row. Returns nil if the table does not exist.
func (e *Engine) Select(tableName string, columns []string) *table.QueryResult {
	t := e.store.Get(tableName)
	if t == nil {
		return nil
	}
	result := &table.QueryResult{Headers: resultHeaders(t, columns)}
	for i := range t.Records {
		result.Rows = append(result.Rows, projectRecord(t, i, result.Headers))
	}
	return result
}

// SelectWhere is Select with rows kept only when the condition (a single
// binary comparison, see package expr) evaluates true. A valid empty result
// is returned when no rows match.
func (e *Engine) SelectWhere(tableName string, columns []string, condition string) *table.QueryResult {
	t := e.store.Get(tableName)
	if t == nil {
		return nil
	}
	result := &table.QueryResult{Headers: resultHeaders(t, columns), Rows: [][]string{}}
	for i, rec := range t.Records {
		if !expr.EvalCondition(condition, rec.Fields, t.Headers) {
			continue
		}
		result.Rows = append(result.Rows, projectRecord(t, i, result.Headers))
	}
	return result
}

func resultHeaders(t *table.Table, columns []string) []string {
	if len(columns) == 0 {
		headers := make([]string, len(t.Headers))
		copy(headers, t.Headers)
		return headers
	}
	headers := make([]string, len(columns))
	copy(headers, columns)
	return headers
}

func projectRecord(t *table.Table, recordIdx int, headers []string) []string {
	row := make([]string, len(headers))
	for i, h := range headers {
		row[i] = t.GetField(recordIdx, h)
	}
	return row
}

// Join combines two tables on an equality condition of the form
// "field = field" or "table.field = table.field" (prefixes are stripped).
// Output headers are both tables' headers prefixed with their table name.
// Row pairs are kept when the two referenced fields are equal and
// non-empty. Returns nil if either table is missing, the condition does
// not parse, or the join type is not JoinInner.
func (e *Engine) Join(leftName, rightName, condition string, joinType JoinType) *table.QueryResult {
	left := e.store.Get(leftName)
	right := e.store.Get(rightName)
	if left == nil || right == nil {
		return nil
	}

	leftField, rightField, ok := parseJoinCondition(condition)
	if !ok {
		return nil
	}
	if joinType != JoinInner {
		return nil
	}

	result := &table.QueryResult{}
	for _, h := range left.Headers {
		result.Headers = append(result.Headers, leftName+"."+h)
	}
	for _, h := range right.Headers {
		result.Headers = append(result.Headers, rightName+"."+h)
	}

	for li, lrec := range left.Records {
		leftValue := left.GetField(li, leftField)
		if leftValue == "" {
			continue
		}
		for ri, rrec := range right.Records {
			if right.GetField(ri, rightField) != leftValue {
				continue
			}
			row := make([]string, 0, len(lrec.Fields)+len(rrec.Fields))
			row = append(row, lrec.Fields...)
			row = append(row, rrec.Fields...)
			result.Rows = append(result.Rows, row)
		}
	}
	return result
}

// parseJoinCondition extracts the two field names from an equality join
// condition, stripping optional "table." prefixes.
func parseJoinCondition(condition string) (leftField, rightField string, ok bool) {
	eq := strings.IndexByte(condition, '=')
	if eq < 0 {
		return "", "", false
	}
	leftField, lok := joinField(condition[:eq])
	rightField, rok := joinField(condition[eq+1:])
	if !lok || !rok {
		return "", "", false
	}
	return leftField, rightField, true
}

// joinField validates a bare or table-prefixed field reference and returns
// the field name.
func joinField(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return "", false
	}
	name := parts[len(parts)-1]
	if name == "" {
		return "", false
	}
	for i := 0; i < len(name); i++ {
		if !isWordByte(name[i]) {
			return "", false
		}
	}
	if len(parts) == 2 {
		prefix := parts[0]
		if prefix == "" {
			return "", false
		}
		for i := 0; i < len(prefix); i++ {
			if !isWordByte(prefix[i]) {
				return "", false
			}
		}
	}
	return name, true
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// Union concatenates tables onto the first table's schema. Rows from later
// tables are remapped by header name; columns a table lacks come back
// empty. Missing tables are skipped. Returns nil for empty input or when
// the first table is missing.
func (e *Engine) Union(tableNames []string) *table.QueryResult {
	if len(tableNames) == 0 {
		return nil
	}
	first := e.store.Get(tableNames[0])
	if first == nil {
		return nil
	}

	result := &table.QueryResult{Headers: make([]string, len(first.Headers))}
	copy(result.Headers, first.Headers)

	for _, name := range tableNames {
		t := e.store.Get(name)
		if t == nil {
			continue
		}
		for i := range t.Records {
			result.Rows = append(result.Rows, projectRecord(t, i, result.Headers))
		}
	}
	return result
}
