package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/pastatools/pasta/config"
	"github.com/pastatools/pasta/loader"
	"github.com/pastatools/pasta/progress"
	"github.com/pastatools/pasta/query"
	"github.com/pastatools/pasta/scanner"
	"github.com/pastatools/pasta/table"
	"github.com/pastatools/pasta/transform"
	"github.com/pastatools/pasta/writer"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	log := cfg.NewLogger()
	slog.SetDefault(log)

	switch os.Args[1] {
	case "help", "--help", "-h":
		printHelp()

	case "transform":
		in, out, ok := parseTransformArgs(os.Args[2:])
		if !ok {
			printUsage()
			os.Exit(1)
		}
		if err := runTransform(cfg, log, in, out); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

	case "check", "sanity-check":
		out, ok := parseCheckArgs(os.Args[2:])
		if !ok {
			printUsage()
			os.Exit(1)
		}
		if err := runCheck(out); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func parseTransformArgs(args []string) (in, out string, ok bool) {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--in":
			if i+1 >= len(args) {
				return "", "", false
			}
			i++
			in = args[i]
		case "--out":
			if i+1 >= len(args) {
				return "", "", false
			}
			i++
			out = args[i]
		default:
			return "", "", false
		}
	}
	return in, out, in != "" && out != ""
}

func parseCheckArgs(args []string) (out string, ok bool) {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--out":
			if i+1 >= len(args) {
				return "", false
			}
			i++
			out = args[i]
		default:
			return "", false
		}
	}
	return out, out != ""
}

func runTransform(cfg *config.Config, log *slog.Logger, inputPath, outputPath string) error {
	inputs, err := scanner.ScanInputFiles(inputPath)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no input data files found in %s", inputPath)
	}
	for _, in := range inputs {
		log.Info("found input file", "path", in.Path, "size", scanner.FormatFileSize(in.SizeBytes))
	}

	store := table.NewStore()
	bars := progress.NewManager(os.Stderr, cfg.Quiet)
	if err := loadTables(cfg, bars, store, inputs); err != nil {
		return err
	}
	log.Info("data loaded", "tables", len(store.Names()), "records", store.TotalRecords())

	outputs, err := scanner.ScanOutputFiles(outputPath)
	if err != nil {
		return err
	}
	if len(outputs) == 0 {
		return fmt.Errorf("no output rule files found in %s", outputPath)
	}

	queries := query.NewEngine(store)
	failed := 0

	// One output's failure must not abort the rest of the batch.
	for _, out := range outputs {
		if err := processOutput(store, queries, log, bars, out); err != nil {
			log.Error("transformation failed", "output", out.NamePrefix, "error", err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d transformations failed", failed, len(outputs))
	}
	log.Info("transformation complete", "outputs", len(outputs))
	return nil
}

// loadTables loads every input file concurrently, then installs the tables
// into the store. No store write happens after this function returns, so
// the query phase runs over an immutable snapshot.
func loadTables(cfg *config.Config, bars *progress.Manager, store *table.Store, inputs []scanner.InputFile) error {
	tables := make([]*table.Table, len(inputs))

	var g errgroup.Group
	g.SetLimit(cfg.LoadWorkers)
	for i, in := range inputs {
		g.Go(func() error {
			bar := bars.FileBar(filepath.Base(in.Path), in.SizeBytes)
			t, err := loader.Load(in.Path, in.HeadersPath)
			if err != nil {
				return err
			}
			bar.Complete()
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, t := range tables {
		store.Load(t)
	}
	return nil
}

func processOutput(store *table.Store, queries *query.Engine, log *slog.Logger, bars *progress.Manager, out scanner.OutputFile) error {
	log.Info("processing transformation", "output", out.NamePrefix)

	engine := transform.NewEngine(store, queries, log)
	if err := engine.LoadOutputHeaders(out.HeadersPath); err != nil {
		return err
	}
	if err := engine.LoadRules(out.RulesPath); err != nil {
		return err
	}

	result := engine.Transform()
	csvPath := filepath.Join(filepath.Dir(out.HeadersPath), out.NamePrefix+".csv")

	bar := bars.CountBar("writing "+out.NamePrefix+".csv", len(result.Rows))
	err := writer.WriteCSVProgress(result, csvPath, func(written int) {
		bar.Update(int64(written))
	})
	if err != nil {
		return err
	}
	bar.Complete()

	log.Info("output written", "path", csvPath, "rows", len(result.Rows))
	return nil
}

// runCheck validates every output configuration pair without running any
// transformation.
func runCheck(outputPath string) error {
	outputs, err := scanner.ScanOutputFiles(outputPath)
	if err != nil {
		return err
	}
	if len(outputs) == 0 {
		fmt.Printf("no output configuration files found in %s\n", outputPath)
		return nil
	}

	passed, failed := 0, 0
	for _, out := range outputs {
		fmt.Printf("checking %s\n", out.NamePrefix)
		ok := true

		headers, err := transform.ParseHeaderFile(out.HeadersPath)
		switch {
		case err != nil:
			fmt.Printf("  FAIL headers file unreadable: %v\n", err)
			ok = false
		case len(headers) == 0:
			fmt.Printf("  FAIL headers file is empty: %s\n", out.HeadersPath)
			ok = false
		default:
			fmt.Printf("  ok   headers file valid (%d headers)\n", len(headers))
		}

		rules, invalid, err := transform.ParseRuleFile(out.RulesPath)
		switch {
		case err != nil:
			fmt.Printf("  FAIL rules file unreadable: %v\n", err)
			ok = false
		case len(invalid) > 0:
			for _, bad := range invalid {
				fmt.Printf("  FAIL invalid rule: %s (%v)\n", bad.Line, bad.Err)
			}
			ok = false
		default:
			fmt.Printf("  ok   rules file valid (%d rules)\n", len(rules))
		}

		if ok {
			passed++
		} else {
			failed++
		}
	}

	fmt.Printf("\nsanity check summary: %d passed, %d failed, %d total\n", passed, failed, len(outputs))
	if failed > 0 {
		return fmt.Errorf("%d configuration(s) failed validation", failed)
	}
	return nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: pasta help")
	fmt.Fprintln(os.Stderr, "       pasta transform --in <input_path> --out <output_path>")
	fmt.Fprintln(os.Stderr, "       pasta check --out <output_path>")
	fmt.Fprintln(os.Stderr, "try 'pasta help' for more information")
}

func printHelp() {
	fmt.Print(`pasta - PSV to CSV transformation tool

Transforms pipe-separated value (PSV) data files into Excel-compatible CSV
output using declarative transformation rules.

SYNOPSIS
    pasta help
    pasta transform --in <input_path> --out <output_path>
    pasta check --out <output_path>

COMMANDS
    help        Show this help message
    transform   Transform data files to CSV format
    check       Validate output configuration files without transforming

OPTIONS
    --in <path>    Input directory (searched recursively for data files)
    --out <path>   Output directory (searched recursively for rule files)

INPUT FILES
    Data files pair with a sidecar header file:

        employees.psv            1001|John Doe|Engineer|2023-01-15|85000
        employees_Headers.psv    emp_id|name|position|hire_date|salary

    Compressed PSV (.psv.gz, .psv.zst) pairs the same way. Avro (.avro)
    and Parquet (.parquet) files are self-describing and need no sidecar.

OUTPUT FILES
    Each output is configured by a pair of files; the result is written
    next to them as <name>.csv:

        summary_Headers.psv      employee_name|annual_salary
        summary_Rules.psv        GLOBAL|hire_date >= '2023-01-01'|2023 hires only
                                 FIELD|annual_salary|salary * 12|Monthly to annual
                                 FIELD|employee_name|UPPER(name)|Uppercase name

RULE FORMAT
    GLOBAL|<condition>|<description>
        Filters every source row. The condition is a comparison
        (field = 'value', field >= 'value', ...) or a ternary:
        GLOBAL|salary >= '75000' ? ACCEPT : REJECT|High earners only

    FIELD|<output_field>|<expression>|<description>
        Computes one output column. Expressions support bare field
        references, concatenation (first_name + ' ' + last_name),
        multiplication (salary * 12), the functions UPPER(), LOWER()
        and TITLE(), and ternaries:
        FIELD|tier|salary >= '80000' ? 'High' : 'Standard'|Salary tier

    '#' starts a comment; blank lines are ignored.

ENVIRONMENT
    PASTA_LOG_LEVEL     debug, info, warn, error (default info)
    PASTA_LOG_FORMAT    text, json (default text)
    PASTA_LOAD_WORKERS  parallel table loads (default: number of CPUs)
    PASTA_QUIET         disable progress bars
    Variables may also be placed in a .env file in the working directory.
`)
}
