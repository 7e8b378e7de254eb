// Package scanner discovers input data files and output configuration
// pairs beneath a directory tree.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	headersSuffix = "_Headers.psv"
	rulesSuffix   = "_Rules.psv"
)

// InputFile is one discovered data file. PSV files (plain or compressed)
// carry a sidecar headers file; avro and parquet files are self-describing
// and HeadersPath is empty.
type InputFile struct {
	Path        string
	HeadersPath string
	NamePrefix  string
	SizeBytes   int64
}

// OutputFile is one discovered output configuration pair: the output
// header list plus the rule file sharing its name prefix.
type OutputFile struct {
	HeadersPath string
	RulesPath   string
	NamePrefix  string
}

// ScanInputFiles walks root recursively and returns every data file that
// can be loaded: .psv (with its sidecar headers file), .psv.gz, .psv.zst,
// .avro, and .parquet. PSV files without a headers sidecar are skipped.
// Results are sorted by path for deterministic processing order.
func ScanInputFiles(root string) ([]InputFile, error) {
	if err := checkDir(root); err != nil {
		return nil, err
	}

	var files []InputFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()

		var prefix string
		needHeaders := false
		switch {
		case strings.HasSuffix(name, headersSuffix) || strings.HasSuffix(name, rulesSuffix):
			return nil
		case strings.HasSuffix(name, ".psv"):
			prefix = strings.TrimSuffix(name, ".psv")
			needHeaders = true
		case strings.HasSuffix(name, ".psv.gz"):
			prefix = strings.TrimSuffix(name, ".psv.gz")
			needHeaders = true
		case strings.HasSuffix(name, ".psv.zst"):
			prefix = strings.TrimSuffix(name, ".psv.zst")
			needHeaders = true
		case strings.HasSuffix(name, ".avro"):
			prefix = strings.TrimSuffix(name, ".avro")
		case strings.HasSuffix(name, ".parquet"):
			prefix = strings.TrimSuffix(name, ".parquet")
		default:
			return nil
		}

		info := InputFile{Path: path, NamePrefix: prefix}
		if needHeaders {
			headersPath := filepath.Join(filepath.Dir(path), prefix+headersSuffix)
			if _, err := os.Stat(headersPath); err != nil {
				return nil
			}
			info.HeadersPath = headersPath
		}
		if fi, err := d.Info(); err == nil {
			info.SizeBytes = fi.Size()
		}
		files = append(files, info)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning input files: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// ScanOutputFiles walks root recursively and returns every output
// configuration pair: an X_Headers.psv with its X_Rules.psv next to it.
// Results are sorted by name prefix.
func ScanOutputFiles(root string) ([]OutputFile, error) {
	if err := checkDir(root); err != nil {
		return nil, err
	}

	var files []OutputFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), headersSuffix) {
			return nil
		}
		prefix := strings.TrimSuffix(d.Name(), headersSuffix)
		rulesPath := filepath.Join(filepath.Dir(path), prefix+rulesSuffix)
		if _, err := os.Stat(rulesPath); err != nil {
			return nil
		}
		files = append(files, OutputFile{
			HeadersPath: path,
			RulesPath:   rulesPath,
			NamePrefix:  prefix,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning output files: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].NamePrefix < files[j].NamePrefix })
	return files, nil
}

func checkDir(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("path does not exist: %s", root)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", root)
	}
	return nil
}

// FormatFileSize renders a byte count with a binary unit suffix.
func FormatFileSize(bytes int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(bytes)
	unit := 0
	for size >= 1024.0 && unit < len(units)-1 {
		size /= 1024.0
		unit++
	}
	return fmt.Sprintf("%.1f %s", size, units[unit])
}
