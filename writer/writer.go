// Package writer serializes a query result as Excel-compatible CSV.
//
// encoding/csv is deliberately not used: Excel wants fields with leading
// or trailing whitespace quoted, which the standard writer never does.
package writer

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pastatools/pasta/table"
)

// WriteCSV writes the result to outputPath, headers first, one row per
// record. Column order follows the result's header order; ragged rows are
// written as-is.
func WriteCSV(result *table.QueryResult, outputPath string) error {
	return writeCSV(result, outputPath, nil)
}

// WriteCSVProgress is WriteCSV with a per-row progress callback; onRow is
// called with the number of rows written so far.
func WriteCSVProgress(result *table.QueryResult, outputPath string, onRow func(written int)) error {
	return writeCSV(result, outputPath, onRow)
}

func writeCSV(result *table.QueryResult, outputPath string, onRow func(int)) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", outputPath, err)
	}

	w := bufio.NewWriter(f)
	writeRow(w, result.Headers)
	for i, row := range result.Rows {
		writeRow(w, row)
		if onRow != nil && (i%100 == 0 || i == len(result.Rows)-1) {
			onRow(i + 1)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("error writing %s: %w", outputPath, err)
	}
	return f.Close()
}

func writeRow(w *bufio.Writer, fields []string) {
	for i, field := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteString(EscapeField(field))
	}
	w.WriteByte('\n')
}

// EscapeField quotes a field when it contains a comma, quote, newline, or
// carriage return, or starts or ends with whitespace. Quotes are escaped
// by doubling.
func EscapeField(field string) string {
	if !needsQuoting(field) {
		return field
	}
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(field); i++ {
		if field[i] == '"' {
			sb.WriteString(`""`)
		} else {
			sb.WriteByte(field[i])
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func needsQuoting(field string) bool {
	if field == "" {
		return false
	}
	if strings.ContainsAny(field, ",\"\n\r") {
		return true
	}
	return isSpaceByte(field[0]) || isSpaceByte(field[len(field)-1])
}

func isSpaceByte(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
