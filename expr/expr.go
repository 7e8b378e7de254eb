// Package expr evaluates the rule language's conditions and field
// expressions against one row of tabular data.
//
// The grammar is deliberately tiny and is recognized form by form with a
// hand-written quote-aware scanner rather than a tokenizer/AST pipeline:
// a condition is a single binary comparison, optionally wrapped in a
// ternary, and a field expression is one of a handful of fixed shapes.
package expr

import (
	"strconv"
	"strings"
)

// Comparison operators accepted in simple conditions, longest first so the
// scanner never splits ">=" into ">" and "=".
var comparisonOps = []string{"!=", ">=", "<=", "=", ">", "<"}

const (
	acceptToken = "ACCEPT"
	rejectToken = "REJECT"
)

// EvalCondition evaluates a GLOBAL rule's condition against one row.
//
// The condition is either a ternary "<cond> ? ACCEPT : REJECT" (literal
// case-sensitive tokens) or a simple comparison "<field> <op> '<literal>'".
// Anything that fits neither shape evaluates to false, never an error.
func EvalCondition(condition string, row, headers []string) bool {
	if cond, trueVal, falseVal, ok := splitTernary(condition); ok {
		trueVal = strings.TrimSpace(trueVal)
		falseVal = strings.TrimSpace(falseVal)
		if isVerdict(trueVal) && isVerdict(falseVal) {
			chosen := falseVal
			if evalSimpleCondition(strings.TrimSpace(cond), row, headers) {
				chosen = trueVal
			}
			return chosen == acceptToken
		}
	}
	return evalSimpleCondition(condition, row, headers)
}

func isVerdict(s string) bool {
	return s == acceptToken || s == rejectToken
}

// evalSimpleCondition evaluates "<field> <op> '<literal>'". A condition
// that does not fit the shape, references an unknown field, or indexes past
// the row's fields is false (fail-closed).
func evalSimpleCondition(condition string, row, headers []string) bool {
	field, op, literal, ok := parseComparison(strings.TrimSpace(condition))
	if !ok {
		return false
	}

	idx := headerIndex(headers, field)
	if idx < 0 || idx >= len(row) {
		return false
	}
	fieldValue := row[idx]

	// Numeric comparison when both sides parse cleanly, string otherwise.
	fieldNum, ferr := strconv.ParseFloat(fieldValue, 64)
	litNum, lerr := strconv.ParseFloat(literal, 64)
	if ferr == nil && lerr == nil {
		return compareFloats(op, fieldNum, litNum)
	}
	return compareStrings(op, fieldValue, literal)
}

// parseComparison scans "<field> <op> '<literal>'" and returns its parts.
// The whole input must be consumed; trailing characters reject the match.
func parseComparison(s string) (field, op, literal string, ok bool) {
	i := 0

	start := i
	for i < len(s) && isWordByte(s[i]) {
		i++
	}
	if i == start {
		return "", "", "", false
	}
	field = s[start:i]

	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}

	for _, candidate := range comparisonOps {
		if strings.HasPrefix(s[i:], candidate) {
			op = candidate
			i += len(candidate)
			break
		}
	}
	if op == "" {
		return "", "", "", false
	}

	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}

	if i >= len(s) || s[i] != '\'' {
		return "", "", "", false
	}
	i++
	start = i
	for i < len(s) && s[i] != '\'' {
		i++
	}
	if i >= len(s) {
		return "", "", "", false
	}
	literal = s[start:i]
	i++

	if i != len(s) {
		return "", "", "", false
	}
	return field, op, literal, true
}

func compareFloats(op string, a, b float64) bool {
	switch op {
	case "=":
		return a == b
	case "!=":
		return a != b
	case ">":
		return a > b
	case "<":
		return a < b
	case ">=":
		return a >= b
	case "<=":
		return a <= b
	}
	return false
}

func compareStrings(op string, a, b string) bool {
	switch op {
	case "=":
		return a == b
	case "!=":
		return a != b
	case ">":
		return a > b
	case "<":
		return a < b
	case ">=":
		return a >= b
	case "<=":
		return a <= b
	}
	return false
}

// splitTernary splits "<cond> ? <v1> : <v2>" on the first '?' and the first
// following ':' that sit outside quoted literals. A '?' or ':' inside a
// quoted value never triggers the ternary form.
func splitTernary(s string) (cond, trueVal, falseVal string, ok bool) {
	q := indexOutsideQuotes(s, 0, '?')
	if q < 0 {
		return "", "", "", false
	}
	c := indexOutsideQuotes(s, q+1, ':')
	if c < 0 {
		return "", "", "", false
	}
	cond = s[:q]
	trueVal = s[q+1 : c]
	falseVal = s[c+1:]
	if strings.TrimSpace(cond) == "" || strings.TrimSpace(trueVal) == "" || strings.TrimSpace(falseVal) == "" {
		return "", "", "", false
	}
	return cond, trueVal, falseVal, true
}

// indexOutsideQuotes returns the index of the first occurrence of target at
// or after from that is not inside a single- or double-quoted span.
func indexOutsideQuotes(s string, from int, target byte) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		if ch == '\'' || ch == '"' {
			quote = ch
			continue
		}
		if i >= from && ch == target {
			return i
		}
	}
	return -1
}

// headerIndex returns the first index of name in headers, or -1.
func headerIndex(headers []string, name string) int {
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return -1
}

// isWordByte reports whether b is part of an identifier: alphanumeric or
// underscore.
func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// ContainsWord reports whether word occurs in text as a whole word: the
// characters before and after the match are neither alphanumeric nor
// underscore. An identifier that merely contains word as a substring (e.g.
// "age" inside "average") does not count.
func ContainsWord(text, word string) bool {
	if word == "" {
		return false
	}
	for pos := 0; ; {
		rel := strings.Index(text[pos:], word)
		if rel < 0 {
			return false
		}
		at := pos + rel
		startOK := at == 0 || !isWordByte(text[at-1])
		endOK := at+len(word) == len(text) || !isWordByte(text[at+len(word)])
		if startOK && endOK {
			return true
		}
		pos = at + len(word)
	}
}
