package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	goavro "github.com/linkedin/goavro/v2"
	parquet "github.com/parquet-go/parquet-go"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTableName(t *testing.T) {
	cases := []struct{ path, want string }{
		{"/data/employees.psv", "employees"},
		{"/data/employees.psv.gz", "employees"},
		{"/data/employees.psv.zst", "employees"},
		{"/data/employees.avro", "employees"},
		{"/data/employees.parquet", "employees"},
		{"relative.psv", "relative"},
	}
	for _, c := range cases {
		if got := TableName(c.path); got != c.want {
			t.Errorf("TableName(%q) = %q, want %q", c.path, got, c.want)
		}
	}
}

func TestLoadPSV(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "employees_Headers.psv", "emp_id|name|salary\n")
	dataPath := writeTestFile(t, dir, "employees.psv", `1001|John Doe|75000
1002| Jane Smith |82000

1003|Bob
`)

	tab, err := Load(dataPath, filepath.Join(dir, "employees_Headers.psv"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if tab.Name != "employees" {
		t.Errorf("Name = %q, want employees", tab.Name)
	}
	if len(tab.Headers) != 3 || tab.Headers[1] != "name" {
		t.Errorf("Headers = %v", tab.Headers)
	}
	// The blank line is skipped; the short row is kept as-is.
	if len(tab.Records) != 3 {
		t.Fatalf("got %d records, want 3", len(tab.Records))
	}
	if got := tab.GetField(1, "name"); got != "Jane Smith" {
		t.Errorf("fields are not trimmed: %q", got)
	}
	if got := tab.GetField(2, "salary"); got != "" {
		t.Errorf("short record salary = %q, want empty", got)
	}
}

func TestLoadPSVMissingHeaders(t *testing.T) {
	dir := t.TempDir()
	dataPath := writeTestFile(t, dir, "employees.psv", "1|a\n")

	if _, err := Load(dataPath, filepath.Join(dir, "nope_Headers.psv")); err == nil {
		t.Fatal("missing headers file should be an error")
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	if _, err := Load("data.xlsx", ""); err == nil {
		t.Fatal("unsupported extension should be an error")
	}
}

func TestLoadGzipPSV(t *testing.T) {
	dir := t.TempDir()
	headersPath := writeTestFile(t, dir, "cities_Headers.psv", "city|state\n")

	dataPath := filepath.Join(dir, "cities.psv.gz")
	f, err := os.Create(dataPath)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte("Austin|TX\nBoise|ID\n")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	tab, err := Load(dataPath, headersPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tab.Name != "cities" {
		t.Errorf("Name = %q, want cities", tab.Name)
	}
	if len(tab.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(tab.Records))
	}
	if got := tab.GetField(1, "city"); got != "Boise" {
		t.Errorf("city = %q, want Boise", got)
	}
}

func TestLoadZstdPSV(t *testing.T) {
	dir := t.TempDir()
	headersPath := writeTestFile(t, dir, "cities_Headers.psv", "city|state\n")

	dataPath := filepath.Join(dir, "cities.psv.zst")
	f, err := os.Create(dataPath)
	if err != nil {
		t.Fatal(err)
	}
	zw, err := zstd.NewWriter(f)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := zw.Write([]byte("Austin|TX\n")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	tab, err := Load(dataPath, headersPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tab.Records) != 1 || tab.GetField(0, "state") != "TX" {
		t.Errorf("unexpected table contents: %v", tab.Records)
	}
}

func TestLoadAvro(t *testing.T) {
	const schema = `{
		"type": "record",
		"name": "employee",
		"fields": [
			{"name": "name", "type": "string"},
			{"name": "age", "type": "long"},
			{"name": "nickname", "type": ["null", "string"]}
		]
	}`

	codec, err := goavro.NewCodec(schema)
	if err != nil {
		t.Fatal(err)
	}

	dataPath := filepath.Join(t.TempDir(), "employees.avro")
	f, err := os.Create(dataPath)
	if err != nil {
		t.Fatal(err)
	}
	w, err := goavro.NewOCFWriter(goavro.OCFConfig{W: f, Codec: codec})
	if err != nil {
		t.Fatal(err)
	}
	err = w.Append([]interface{}{
		map[string]interface{}{
			"name":     "Alice",
			"age":      int64(30),
			"nickname": map[string]interface{}{"string": "Al"},
		},
		map[string]interface{}{
			"name":     "Bob",
			"age":      int64(41),
			"nickname": nil,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	tab, err := Load(dataPath, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if tab.Name != "employees" {
		t.Errorf("Name = %q, want employees", tab.Name)
	}
	want := []string{"name", "age", "nickname"}
	for i, h := range want {
		if tab.Headers[i] != h {
			t.Fatalf("Headers = %v, want %v", tab.Headers, want)
		}
	}
	if len(tab.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(tab.Records))
	}
	if got := tab.GetField(0, "age"); got != "30" {
		t.Errorf("age = %q, want 30", got)
	}
	// Union values unwrap to their inner value; null becomes empty.
	if got := tab.GetField(0, "nickname"); got != "Al" {
		t.Errorf("nickname = %q, want Al", got)
	}
	if got := tab.GetField(1, "nickname"); got != "" {
		t.Errorf("null nickname = %q, want empty", got)
	}
}

func TestLoadParquet(t *testing.T) {
	type employee struct {
		Name  string  `parquet:"name"`
		Age   int32   `parquet:"age"`
		Score float64 `parquet:"score"`
	}

	dataPath := filepath.Join(t.TempDir(), "employees.parquet")
	f, err := os.Create(dataPath)
	if err != nil {
		t.Fatal(err)
	}
	w := parquet.NewGenericWriter[employee](f)
	_, err = w.Write([]employee{
		{Name: "Alice", Age: 30, Score: 91.5},
		{Name: "Bob", Age: 41, Score: 78},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	tab, err := Load(dataPath, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(tab.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(tab.Records))
	}
	// Look fields up by name; the schema defines the column order.
	if got := tab.GetField(0, "name"); got != "Alice" {
		t.Errorf("name = %q, want Alice", got)
	}
	if got := tab.GetField(0, "age"); got != "30" {
		t.Errorf("age = %q, want 30", got)
	}
	if got := tab.GetField(0, "score"); got != "91.5" {
		t.Errorf("score = %q, want 91.5", got)
	}
	if got := tab.GetField(1, "score"); got != "78" {
		t.Errorf("score = %q, want 78", got)
	}
}
