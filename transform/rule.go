package transform

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Rule is one parsed transformation rule: either a GlobalRule filter or a
// FieldRule expression. The interface is sealed so both variants are
// handled exhaustively.
type Rule interface {
	ruleNode()
}

// GlobalRule filters source rows. A row survives only if the condition
// evaluates true.
type GlobalRule struct {
	Condition string
}

func (r *GlobalRule) ruleNode() {}

// FieldRule computes one output column from a source row.
type FieldRule struct {
	TargetField string
	Expression  string
}

func (r *FieldRule) ruleNode() {}

// ParseRule parses one trimmed, comment-stripped rule line:
//
//	GLOBAL|<condition>|<description>
//	FIELD|<target_field>|<expression>|<description>
//
// The description part is accepted and discarded.
func ParseRule(line string) (Rule, error) {
	parts := strings.Split(line, "|")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}

	if len(parts) < 3 {
		return nil, fmt.Errorf("invalid rule format: %q", line)
	}

	switch parts[0] {
	case "GLOBAL":
		return &GlobalRule{Condition: parts[1]}, nil
	case "FIELD":
		return &FieldRule{TargetField: parts[1], Expression: parts[2]}, nil
	default:
		return nil, fmt.Errorf("unknown rule type %q", parts[0])
	}
}

// InvalidRule records a rule line that failed to parse. Such lines are
// skipped, never fatal.
type InvalidRule struct {
	Line string
	Err  error
}

// ParseRuleFile parses every line of a rules file independently. Comments
// start at '#' (whole-line or trailing) and blank lines are ignored.
// Malformed lines are collected, not fatal; only an unreadable file is an
// error.
func ParseRuleFile(path string) ([]Rule, []InvalidRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &ConfigError{Path: path, Err: err}
	}
	defer f.Close()

	var rules []Rule
	var invalid []InvalidRule

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rule, err := ParseRule(line)
		if err != nil {
			invalid = append(invalid, InvalidRule{Line: line, Err: err})
			continue
		}
		rules = append(rules, rule)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, &ConfigError{Path: path, Err: err}
	}
	return rules, invalid, nil
}

// ParseHeaderFile reads the single pipe-delimited line of an output header
// file. An empty file yields an empty header list; a missing or unreadable
// file is an error.
func ParseHeaderFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
		return nil, nil
	}

	var headers []string
	for _, h := range strings.Split(sc.Text(), "|") {
		h = strings.TrimSpace(h)
		if h != "" {
			headers = append(headers, h)
		}
	}
	return headers, nil
}

// ConfigError marks a rules or headers file that could not be read. It is
// fatal to the one output target it belongs to; the batch driver reports it
// and moves on to the next target.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("cannot read config file %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
