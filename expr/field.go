package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// EvalFieldExpr evaluates a FIELD rule's expression against one row and
// returns the output value. Unrecognized syntax falls through to the
// substituted text itself; evaluation never fails.
//
// Shapes, in recognition order:
//
//	<cond> ? <v1> : <v2>      ternary, branches returned literally
//	<header>                  bare field reference
//	a + b + ...               concatenation after substitution
//	a * b                     float multiplication after substitution
//	UPPER(x) LOWER(x) TITLE(x)  case transforms after substitution
func EvalFieldExpr(expression string, row, headers []string) string {
	// Ternary: evaluate the condition, return the chosen branch with its
	// surrounding quotes stripped. The branch text is final; no further
	// substitution is applied to it.
	if cond, trueVal, falseVal, ok := splitTernary(expression); ok {
		chosen := falseVal
		if evalSimpleCondition(strings.TrimSpace(cond), row, headers) {
			chosen = trueVal
		}
		return stripQuotes(strings.TrimSpace(chosen))
	}

	// Bare field reference.
	if idx := headerIndex(headers, expression); idx >= 0 {
		if idx < len(row) {
			return row[idx]
		}
		return ""
	}

	substituted := substituteFields(expression, row, headers)

	switch {
	case strings.Contains(substituted, " + "):
		return evalConcat(substituted)
	case strings.Contains(substituted, " * "):
		return evalMultiply(substituted)
	case strings.HasPrefix(substituted, "UPPER("):
		if arg, ok := parenArg(substituted); ok {
			return strings.ToUpper(arg)
		}
	case strings.HasPrefix(substituted, "LOWER("):
		if arg, ok := parenArg(substituted); ok {
			return strings.ToLower(arg)
		}
	case strings.HasPrefix(substituted, "TITLE("):
		if arg, ok := parenArg(substituted); ok {
			return titleCase(arg)
		}
	}
	return substituted
}

// substituteFields replaces every whole-word occurrence of a header name
// with the row's value at that position. Quoted string literals are lifted
// out first so operators or identifiers inside them are never touched, then
// restored afterwards.
func substituteFields(expression string, row, headers []string) string {
	result, literals := extractLiterals(expression)

	for i := 0; i < len(headers) && i < len(row); i++ {
		result = replaceWord(result, headers[i], row[i], literals)
	}

	for _, lit := range literals {
		result = strings.Replace(result, lit.placeholder, lit.value, 1)
	}
	return result
}

type literal struct {
	placeholder string
	value       string
}

// extractLiterals replaces each quoted literal with an opaque placeholder.
// Double quotes are handled first, single quotes second for compatibility
// with the older rule syntax.
func extractLiterals(s string) (string, []literal) {
	var literals []literal
	counter := 0
	for _, quote := range []byte{'"', '\''} {
		for {
			open := strings.IndexByte(s, quote)
			if open < 0 {
				break
			}
			close := strings.IndexByte(s[open+1:], quote)
			if close < 0 {
				break
			}
			close += open + 1
			placeholder := fmt.Sprintf("__STRING_LITERAL_%d__", counter)
			counter++
			literals = append(literals, literal{placeholder, s[open+1 : close]})
			s = s[:open] + placeholder + s[close+1:]
		}
	}
	return s, literals
}

// replaceWord substitutes value for every whole-word occurrence of word,
// skipping any span that belongs to a literal placeholder.
func replaceWord(s, word, value string, literals []literal) string {
	if word == "" {
		return s
	}
	for pos := 0; ; {
		rel := strings.Index(s[pos:], word)
		if rel < 0 {
			return s
		}
		at := pos + rel
		startOK := at == 0 || !isWordByte(s[at-1])
		endOK := at+len(word) == len(s) || !isWordByte(s[at+len(word)])
		if startOK && endOK && !insidePlaceholder(s, at, literals) {
			s = s[:at] + value + s[at+len(word):]
			pos = at + len(value)
		} else {
			pos = at + len(word)
		}
	}
}

func insidePlaceholder(s string, pos int, literals []literal) bool {
	for _, lit := range literals {
		at := strings.Index(s, lit.placeholder)
		if at >= 0 && pos >= at && pos < at+len(lit.placeholder) {
			return true
		}
	}
	return false
}

// evalConcat joins the '+'-separated segments. A segment that is entirely
// whitespace sits between two '+' operators and stands for one literal
// space, so "first + ' ' + last" keeps exactly one space after the quoted
// segment is substituted in.
func evalConcat(s string) string {
	var sb strings.Builder
	for _, part := range strings.Split(s, "+") {
		if part != "" && strings.TrimSpace(part) == "" {
			sb.WriteByte(' ')
			continue
		}
		sb.WriteString(strings.TrimSpace(part))
	}
	return sb.String()
}

// evalMultiply parses "a * b" as floats and returns the product. If either
// side does not parse, the input is returned unchanged.
func evalMultiply(s string) string {
	fields := strings.Fields(s)
	if len(fields) != 3 || fields[1] != "*" {
		return s
	}
	left, lerr := strconv.ParseFloat(fields[0], 64)
	right, rerr := strconv.ParseFloat(fields[2], 64)
	if lerr != nil || rerr != nil {
		return s
	}
	return strconv.FormatFloat(left*right, 'f', -1, 64)
}

// parenArg extracts the argument between the first '(' and the next ')'.
func parenArg(s string) (string, bool) {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return "", false
	}
	close := strings.IndexByte(s[open+1:], ')')
	if close < 0 {
		return "", false
	}
	return s[open+1 : open+1+close], true
}

// titleCase lowercases the string and capitalizes the first letter of every
// space-separated word.
func titleCase(s string) string {
	runes := []rune(strings.ToLower(s))
	for i, r := range runes {
		if (i == 0 || runes[i-1] == ' ') && unicode.IsLetter(r) {
			runes[i] = unicode.ToUpper(r)
		}
	}
	return string(runes)
}

// stripQuotes removes one pair of matching surrounding quotes, single or
// double.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
