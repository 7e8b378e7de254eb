package table

import (
	"fmt"
	"sort"
	"strings"
)

// Record is a single data row: an ordered sequence of field values aligned
// positionally to the owning table's headers. A record may carry fewer or
// more fields than there are headers; out-of-range access yields "".
type Record struct {
	Fields []string
}

// Table holds one loaded data file: its name (derived from the file's base
// name), the ordered header list, and all records. Tables are built once at
// load time and never mutated afterwards.
type Table struct {
	Name    string
	Headers []string
	Records []Record

	headerIndex map[string]int
}

// NewTable creates an empty table with the given name and headers.
func NewTable(name string, headers []string) *Table {
	t := &Table{Name: name, Headers: headers}
	t.buildHeaderIndex()
	return t
}

// buildHeaderIndex maps header names to their first index. Duplicate header
// names resolve to the first occurrence only.
func (t *Table) buildHeaderIndex() {
	t.headerIndex = make(map[string]int, len(t.Headers))
	for i, h := range t.Headers {
		if _, exists := t.headerIndex[h]; !exists {
			t.headerIndex[h] = i
		}
	}
}

// AddRecord appends a record to the table.
func (t *Table) AddRecord(fields []string) {
	t.Records = append(t.Records, Record{Fields: fields})
}

// HeaderIndex returns the first index of a header by name, or -1.
func (t *Table) HeaderIndex(name string) int {
	if t.headerIndex == nil {
		t.buildHeaderIndex()
	}
	if idx, ok := t.headerIndex[name]; ok {
		return idx
	}
	return -1
}

// GetField returns the value at a given record index and header name.
// Any unresolvable lookup returns the empty string, never an error.
func (t *Table) GetField(recordIdx int, header string) string {
	if recordIdx < 0 || recordIdx >= len(t.Records) {
		return ""
	}
	idx := t.HeaderIndex(header)
	if idx < 0 {
		return ""
	}
	fields := t.Records[recordIdx].Fields
	if idx >= len(fields) {
		return ""
	}
	return fields[idx]
}

// QueryResult is the value returned by every query and transformation:
// ordered headers plus rows. Rows are not required to match the header
// length; consumers index defensively. A QueryResult is never mutated
// after it is returned.
type QueryResult struct {
	Headers []string
	Rows    [][]string
}

// String returns a compact representation for diagnostics.
func (r *QueryResult) String() string {
	return fmt.Sprintf("[%s] (%d rows)", strings.Join(r.Headers, ", "), len(r.Rows))
}

// Store is the in-memory table store: a mapping from table name to loaded
// table. The orchestrator finishes all loads before any query runs, so the
// store needs no internal locking during the transform phase.
type Store struct {
	tables map[string]*Table
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{tables: make(map[string]*Table)}
}

// Load inserts or replaces a table by name. A nil table or a table with an
// empty name is rejected as a no-op.
func (s *Store) Load(t *Table) {
	if t == nil || t.Name == "" {
		return
	}
	s.tables[t.Name] = t
}

// Get returns the table with the given name, or nil.
func (s *Store) Get(name string) *Table {
	return s.tables[name]
}

// Names returns all table names in lexicographic order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TotalRecords returns the record count summed across all tables.
func (s *Store) TotalRecords() int {
	total := 0
	for _, t := range s.tables {
		total += len(t.Records)
	}
	return total
}

// Clear removes all tables.
func (s *Store) Clear() {
	s.tables = make(map[string]*Table)
}
