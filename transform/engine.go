// Package transform implements the rule-driven transformation engine:
// rule parsing, source-table selection, global filtering, and per-field
// expression evaluation producing one output table per rules/headers pair.
package transform

import (
	"log/slog"

	"github.com/pastatools/pasta/expr"
	"github.com/pastatools/pasta/query"
	"github.com/pastatools/pasta/table"
)

// Engine transforms loaded tables into one output table according to a
// rule list and an output header list. Each output target gets its own
// Engine; the table store is shared read-only.
type Engine struct {
	store   *table.Store
	queries *query.Engine
	log     *slog.Logger

	rules         []Rule
	outputHeaders []string
}

// NewEngine creates a transformation engine. Diagnostics (skipped rule
// lines, unmapped output fields) go to the given logger.
func NewEngine(store *table.Store, queries *query.Engine, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: store, queries: queries, log: log}
}

// LoadOutputHeaders replaces the output header list from a header file.
// A missing or unreadable file is an error; an empty file yields an empty
// header list, which makes Transform a graceful no-op.
func (e *Engine) LoadOutputHeaders(path string) error {
	headers, err := ParseHeaderFile(path)
	if err != nil {
		return err
	}
	e.outputHeaders = headers
	return nil
}

// LoadRules replaces the rule list from a rules file. Malformed lines are
// logged and skipped; only an unreadable file is an error.
func (e *Engine) LoadRules(path string) error {
	rules, invalid, err := ParseRuleFile(path)
	if err != nil {
		return err
	}
	for _, bad := range invalid {
		e.log.Warn("invalid rule ignored", "line", bad.Line, "error", bad.Err)
	}
	e.rules = rules
	return nil
}

// OutputHeaders returns the currently loaded output header list.
func (e *Engine) OutputHeaders() []string {
	return e.outputHeaders
}

// Transform runs the single-pass transformation: pick a source table,
// filter rows through every GLOBAL rule, then compute each output column
// per row from its first matching FIELD rule, a same-named source column,
// or the empty string. With no output headers loaded the result is empty,
// not an error.
func (e *Engine) Transform() *table.QueryResult {
	result := &table.QueryResult{}
	if len(e.outputHeaders) == 0 {
		return result
	}
	result.Headers = e.outputHeaders

	source, sourceHeaders := e.selectSource()

	var filtered [][]string
	for _, row := range source.Rows {
		if e.passesGlobalFilters(row, sourceHeaders) {
			filtered = append(filtered, row)
		}
	}

	e.warnUnmapped(sourceHeaders)

	for _, row := range filtered {
		out := make([]string, len(e.outputHeaders))
		for i, header := range e.outputHeaders {
			out[i] = e.computeField(header, row, sourceHeaders)
		}
		result.Rows = append(result.Rows, out)
	}
	return result
}

// selectSource picks the table whose headers are referenced by the most
// FIELD rules (whole-word matches, each rule counted once per table), ties
// going to the first table in sorted name order. When no FIELD rule
// references any table, a single empty row with no headers is synthesized
// so purely static rules still produce exactly one output row.
func (e *Engine) selectSource() (*table.QueryResult, []string) {
	bestName := ""
	bestMatches := 0

	for _, name := range e.store.Names() {
		t := e.store.Get(name)
		if t == nil {
			continue
		}
		matches := 0
		for _, rule := range e.rules {
			field, ok := rule.(*FieldRule)
			if !ok {
				continue
			}
			for _, header := range t.Headers {
				if expr.ContainsWord(field.Expression, header) {
					matches++
					break
				}
			}
		}
		if matches > bestMatches {
			bestName = name
			bestMatches = matches
		}
	}

	if bestName == "" {
		return &table.QueryResult{Rows: [][]string{{}}}, nil
	}
	return e.queries.Select(bestName, nil), e.store.Get(bestName).Headers
}

func (e *Engine) passesGlobalFilters(row, headers []string) bool {
	for _, rule := range e.rules {
		global, ok := rule.(*GlobalRule)
		if !ok {
			continue
		}
		if !expr.EvalCondition(global.Condition, row, headers) {
			return false
		}
	}
	return true
}

// warnUnmapped reports output headers that have neither a FIELD rule nor a
// same-named source header; those columns render empty in every row.
func (e *Engine) warnUnmapped(sourceHeaders []string) {
	var unmapped []string
	for _, header := range e.outputHeaders {
		if e.fieldRuleFor(header) != nil {
			continue
		}
		if headerIndex(sourceHeaders, header) >= 0 {
			continue
		}
		unmapped = append(unmapped, header)
	}
	if len(unmapped) > 0 {
		e.log.Warn("output fields have no transformation rule and no matching input header; they will be empty",
			"fields", unmapped)
	}
}

func (e *Engine) computeField(header string, row, sourceHeaders []string) string {
	if rule := e.fieldRuleFor(header); rule != nil {
		return expr.EvalFieldExpr(rule.Expression, row, sourceHeaders)
	}
	if idx := headerIndex(sourceHeaders, header); idx >= 0 && idx < len(row) {
		return row[idx]
	}
	return ""
}

// fieldRuleFor returns the first FIELD rule targeting the given output
// header. First match wins; later rules for the same target are shadowed.
func (e *Engine) fieldRuleFor(header string) *FieldRule {
	for _, rule := range e.rules {
		if field, ok := rule.(*FieldRule); ok && field.TargetField == header {
			return field
		}
	}
	return nil
}

func headerIndex(headers []string, name string) int {
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return -1
}
