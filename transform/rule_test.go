package transform

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseRuleGlobal(t *testing.T) {
	rule, err := ParseRule("GLOBAL|salary >= '75000'|High earners only")
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}
	global, ok := rule.(*GlobalRule)
	if !ok {
		t.Fatalf("got %T, want *GlobalRule", rule)
	}
	if global.Condition != "salary >= '75000'" {
		t.Errorf("Condition = %q", global.Condition)
	}
}

func TestParseRuleField(t *testing.T) {
	rule, err := ParseRule("FIELD|annual_salary|salary * 12|Monthly to annual")
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}
	field, ok := rule.(*FieldRule)
	if !ok {
		t.Fatalf("got %T, want *FieldRule", rule)
	}
	if field.TargetField != "annual_salary" {
		t.Errorf("TargetField = %q", field.TargetField)
	}
	if field.Expression != "salary * 12" {
		t.Errorf("Expression = %q", field.Expression)
	}
}

func TestParseRuleNoDescription(t *testing.T) {
	// The description part is optional for FIELD rules.
	if _, err := ParseRule("FIELD|name|UPPER(name)"); err != nil {
		t.Errorf("three-part FIELD rule rejected: %v", err)
	}
}

func TestParseRuleErrors(t *testing.T) {
	for _, line := range []string{
		"",
		"GLOBAL",
		"GLOBAL|condition only",
		"OUTPUT|a|b|c",
		"field|name|expr|lowercase type",
	} {
		if _, err := ParseRule(line); err == nil {
			t.Errorf("ParseRule(%q) should fail", line)
		}
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseRuleFile(t *testing.T) {
	path := writeFile(t, "out_Rules.psv", `# High-earner report
GLOBAL|salary >= '75000' ? ACCEPT : REJECT|Filter

FIELD|full_name|first_name + ' ' + last_name|Name  # trailing comment
BOGUS|oops|oops
FIELD|tier
`)

	rules, invalid, err := ParseRuleFile(path)
	if err != nil {
		t.Fatalf("ParseRuleFile: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rules))
	}
	if _, ok := rules[0].(*GlobalRule); !ok {
		t.Errorf("rules[0] is %T, want *GlobalRule", rules[0])
	}
	field, ok := rules[1].(*FieldRule)
	if !ok {
		t.Fatalf("rules[1] is %T, want *FieldRule", rules[1])
	}
	if field.Expression != "first_name + ' ' + last_name" {
		t.Errorf("trailing comment not stripped: %q", field.Expression)
	}

	if len(invalid) != 2 {
		t.Fatalf("got %d invalid lines, want 2: %v", len(invalid), invalid)
	}
}

func TestParseRuleFileMissing(t *testing.T) {
	_, _, err := ParseRuleFile(filepath.Join(t.TempDir(), "nope_Rules.psv"))
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("got %v, want *ConfigError", err)
	}
}

func TestParseHeaderFile(t *testing.T) {
	path := writeFile(t, "out_Headers.psv", "full_name| annual_salary |department\n")

	headers, err := ParseHeaderFile(path)
	if err != nil {
		t.Fatalf("ParseHeaderFile: %v", err)
	}
	want := []string{"full_name", "annual_salary", "department"}
	if len(headers) != len(want) {
		t.Fatalf("headers = %v, want %v", headers, want)
	}
	for i := range want {
		if headers[i] != want[i] {
			t.Fatalf("headers = %v, want %v", headers, want)
		}
	}
}

func TestParseHeaderFileEmpty(t *testing.T) {
	path := writeFile(t, "out_Headers.psv", "")

	headers, err := ParseHeaderFile(path)
	if err != nil {
		t.Fatalf("empty headers file should not error: %v", err)
	}
	if len(headers) != 0 {
		t.Errorf("headers = %v, want none", headers)
	}
}

func TestParseHeaderFileMissing(t *testing.T) {
	_, err := ParseHeaderFile(filepath.Join(t.TempDir(), "nope_Headers.psv"))
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("got %v, want *ConfigError", err)
	}
}
