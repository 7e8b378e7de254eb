// Package loader reads data files into tables. Pipe-separated files carry
// their column names in a sidecar headers file; avro and parquet files are
// self-describing. Compressed PSV (.psv.gz, .psv.zst) is transparently
// decompressed.
package loader

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	goavro "github.com/linkedin/goavro/v2"
	parquet "github.com/parquet-go/parquet-go"

	"github.com/pastatools/pasta/table"
)

// Load reads a data file into a table. headersPath names the sidecar
// header file for PSV inputs and is ignored for self-describing formats.
// The table name derives from the data file's base name.
func Load(dataPath, headersPath string) (*table.Table, error) {
	switch {
	case strings.HasSuffix(dataPath, ".psv"):
		return loadPSV(dataPath, headersPath, nil)
	case strings.HasSuffix(dataPath, ".psv.gz"):
		return loadPSV(dataPath, headersPath, gzipReader)
	case strings.HasSuffix(dataPath, ".psv.zst"):
		return loadPSV(dataPath, headersPath, zstdReader)
	case strings.HasSuffix(dataPath, ".avro"):
		return loadAvro(dataPath)
	case strings.HasSuffix(dataPath, ".parquet"):
		return loadParquet(dataPath)
	default:
		return nil, fmt.Errorf("unsupported file format %q (supported: .psv, .psv.gz, .psv.zst, .avro, .parquet)", filepath.Ext(dataPath))
	}
}

// TableName returns the table name for a data file path: the base name
// with every recognized extension stripped.
func TableName(dataPath string) string {
	name := filepath.Base(dataPath)
	for _, suffix := range []string{".gz", ".zst", ".psv", ".avro", ".parquet"} {
		name = strings.TrimSuffix(name, suffix)
	}
	return name
}

type decompressor func(io.Reader) (io.ReadCloser, error)

func gzipReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

func zstdReader(r io.Reader) (io.ReadCloser, error) {
	d, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return d.IOReadCloser(), nil
}

func loadPSV(dataPath, headersPath string, decompress decompressor) (*table.Table, error) {
	headers, err := ParseHeaders(headersPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(dataPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", dataPath, err)
	}
	defer f.Close()

	var r io.Reader = f
	if decompress != nil {
		dr, err := decompress(f)
		if err != nil {
			return nil, fmt.Errorf("cannot decompress %s: %w", dataPath, err)
		}
		defer dr.Close()
		r = dr
	}

	t := table.NewTable(TableName(dataPath), headers)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		t.AddRecord(SplitLine(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", dataPath, err)
	}
	return t, nil
}

// ParseHeaders reads the single pipe-delimited line of a headers file.
func ParseHeaders(headersPath string) ([]string, error) {
	f, err := os.Open(headersPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open headers file %s: %w", headersPath, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("error reading headers file %s: %w", headersPath, err)
		}
		return nil, fmt.Errorf("headers file is empty: %s", headersPath)
	}
	return SplitLine(sc.Text()), nil
}

// SplitLine splits one PSV line into trimmed fields.
func SplitLine(line string) []string {
	parts := strings.Split(line, "|")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func loadAvro(dataPath string) (*table.Table, error) {
	f, err := os.Open(dataPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", dataPath, err)
	}
	defer f.Close()

	ocfr, err := goavro.NewOCFReader(f)
	if err != nil {
		return nil, fmt.Errorf("cannot read Avro OCF from %s: %w", dataPath, err)
	}

	// Column names come from the writer schema.
	var schemaDef struct {
		Fields []struct {
			Name string `json:"name"`
		} `json:"fields"`
	}
	if err := json.Unmarshal([]byte(ocfr.Codec().Schema()), &schemaDef); err != nil {
		return nil, fmt.Errorf("cannot parse Avro schema: %w", err)
	}

	headers := make([]string, len(schemaDef.Fields))
	for i, field := range schemaDef.Fields {
		headers[i] = field.Name
	}

	t := table.NewTable(TableName(dataPath), headers)

	for ocfr.Scan() {
		datum, err := ocfr.Read()
		if err != nil {
			return nil, fmt.Errorf("error reading Avro record: %w", err)
		}
		rec, ok := datum.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unexpected Avro record type %T", datum)
		}

		fields := make([]string, len(headers))
		for i, col := range headers {
			fields[i] = avroString(rec[col])
		}
		t.AddRecord(fields)
	}
	if err := ocfr.Err(); err != nil {
		return nil, fmt.Errorf("error reading Avro file: %w", err)
	}
	return t, nil
}

// avroString renders a decoded Avro value as a field string.
func avroString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case map[string]interface{}:
		// Unions decode as {"type": value}; unwrap the single entry.
		for _, inner := range val {
			return avroString(inner)
		}
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

func loadParquet(dataPath string) (*table.Table, error) {
	f, err := os.Open(dataPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", dataPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("cannot stat %s: %w", dataPath, err)
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("cannot read parquet file %s: %w", dataPath, err)
	}

	schemaFields := pf.Schema().Fields()
	headers := make([]string, len(schemaFields))
	for i, field := range schemaFields {
		headers[i] = field.Name()
	}

	t := table.NewTable(TableName(dataPath), headers)

	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		buf := make([]parquet.Row, 256)
		for {
			n, err := rows.ReadRows(buf)
			for _, prow := range buf[:n] {
				fields := make([]string, len(headers))
				for _, v := range prow {
					if col := v.Column(); col >= 0 && col < len(fields) {
						fields[col] = parquetString(v)
					}
				}
				t.AddRecord(fields)
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("error reading parquet rows: %w", err)
			}
		}
		if err := rows.Close(); err != nil {
			return nil, fmt.Errorf("error closing parquet row reader: %w", err)
		}
	}
	return t, nil
}

// parquetString renders a parquet value as a field string.
func parquetString(v parquet.Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind() {
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'f', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}
