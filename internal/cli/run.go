package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/beentity/internal/config"
	"github.com/roach88/beentity/internal/harness"
	"github.com/roach88/beentity/internal/schema"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database   string
	SchemaDir  string
	CommitMode string
	Filter     string // scenario filter (glob pattern)
	Update     bool   // regenerate golden files
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name     string            `json:"name"`
	File     string            `json:"file"`
	Pass     bool              `json:"pass"`
	Errors   []string          `json:"errors,omitempty"`
	Failures []harness.Failure `json:"-"`
}

// fail records a failure that stopped the scenario before its checks ran.
func (sr *ScenarioResult) fail(format string, args ...any) {
	f := harness.Failure{Message: fmt.Sprintf(format, args...)}
	sr.Errors = []string{f.Message}
	sr.Failures = []harness.Failure{f}
}

// StepFailure is one failed check of a run, as listed in the details of a
// JSON error response.
type StepFailure struct {
	Scenario string `json:"scenario"`
	File     string `json:"file"`
	harness.Failure
}

// RunResult holds the overall run result.
type RunResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenarios-dir>",
		Short: "Run fixture scenarios",
		Long: `Run every scenario file in a directory.

Each scenario provisions and asserts entities through the same steps
scenario files use. When <scenarios-dir>/golden/<file>.golden exists the
scenario's trace must match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, bad config, etc.)

Examples:
  beentity run ./scenarios
  beentity run ./scenarios --schema ./schema --filter "users*"
  beentity run ./scenarios --update
  beentity run ./scenarios --config beentity.toml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database path (default from config, else :memory:)")
	cmd.Flags().StringVar(&opts.SchemaDir, "schema", "", "directory of CUE entity declarations")
	cmd.Flags().StringVar(&opts.CommitMode, "commit-mode", "", "bulk commit mode (batch|row)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")

	return cmd
}

// settings merges the config file with flags. Flags win.
func (o *RunOptions) settings(cmd *cobra.Command) (config.Config, error) {
	cfg, err := o.LoadConfig()
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("db") {
		cfg.Database = o.Database
	}
	if cmd.Flags().Changed("schema") {
		cfg.SchemaDir = o.SchemaDir
	}
	if cmd.Flags().Changed("commit-mode") {
		cfg.CommitMode = o.CommitMode
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid settings", err)
	}
	return cfg, nil
}

func runScenarios(opts *RunOptions, scenariosDir string, cmd *cobra.Command) error {
	cfg, err := opts.settings(cmd)
	if err != nil {
		return err
	}
	logger := opts.Logger(cmd.ErrOrStderr(), cfg)
	formatter := opts.Formatter(cmd)

	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	var defs []schema.EntityDef
	if cfg.SchemaDir != "" {
		loaded, errs := schema.Load(cfg.SchemaDir, schema.LoadModeFailFast)
		if len(errs) > 0 {
			if opts.Format == "json" {
				_ = formatter.Fail(nil, ErrorFor(errs[0]))
			}
			return WrapExitError(ExitCommandError, "failed to load schema", errs[0])
		}
		defs = loaded.Entities
		logger.Debug("schema loaded", "dir", cfg.SchemaDir, "types", len(defs))
	}

	files, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	if len(files) == 0 {
		if opts.Format == "json" {
			return outputRunJSON(formatter, RunResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	runOpts := []harness.Option{
		harness.WithDatabase(cfg.Database),
		harness.WithDefinitions(defs...),
		harness.WithCommitMode(cfg.Mode()),
		harness.WithLogger(logger),
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := RunResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		sr := runScenarioFile(ctx, file, opts, runOpts, logger)
		if opts.Format != "json" {
			printScenarioResult(cmd, sr)
		}
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputRunJSON(formatter, result)
	}
	return outputRunText(cmd, result)
}

// findScenarioFiles finds all YAML scenario files in a directory tree.
// Files under golden/ directories are skipped.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if info.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// runScenarioFile loads, runs and golden-checks one scenario file.
func runScenarioFile(ctx context.Context, file string, opts *RunOptions, runOpts []harness.Option, logger *slog.Logger) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(file), File: file}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		sr.fail("failed to load scenario: %v", err)
		return sr
	}
	sr.Name = scenario.Name

	result, err := harness.Run(ctx, scenario, runOpts...)
	if err != nil {
		sr.fail("execution failed: %v", err)
		return sr
	}
	logger.Info("scenario executed", "name", scenario.Name, "steps", len(result.Trace), "pass", result.Pass)

	snapshot, err := harness.Snapshot(scenario.Name, result)
	if err != nil {
		sr.fail("failed to render trace: %v", err)
		return sr
	}

	goldenPath := goldenFilePath(file)
	if opts.Update {
		if err := writeGoldenFile(goldenPath, snapshot); err != nil {
			sr.fail("failed to update golden file: %v", err)
			return sr
		}
		logger.Info("golden updated", "path", goldenPath)
	} else {
		golden, err := os.ReadFile(goldenPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// No golden file: the scenario's own checks decide.
		case err != nil:
			sr.fail("failed to read golden file: %v", err)
			return sr
		case !bytes.Equal(golden, snapshot):
			result.AddError("trace does not match golden file (run with --update to regenerate)")
		}
	}

	sr.Pass = result.Pass
	sr.Errors = result.Errors
	sr.Failures = result.Failures
	return sr
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func writeGoldenFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

func printScenarioResult(cmd *cobra.Command, sr ScenarioResult) {
	w := cmd.OutOrStdout()
	if sr.Pass {
		fmt.Fprintf(w, "✓ %s\n", sr.Name)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", sr.Name)
	for _, e := range sr.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// outputRunJSON outputs the run result as JSON. A failed run lists every
// failed check in the error details.
func outputRunJSON(formatter *OutputFormatter, result RunResult) error {
	if result.Failed == 0 {
		return formatter.Success(result)
	}

	message := fmt.Sprintf("%d scenario(s) failed", result.Failed)
	cliErr := &CLIError{Code: CodeScenarioFailed, Message: message, Details: stepFailures(result)}
	if err := formatter.Fail(result, cliErr); err != nil {
		return err
	}
	return NewExitError(ExitFailure, message)
}

func stepFailures(result RunResult) []StepFailure {
	var out []StepFailure
	for _, sr := range result.Scenarios {
		for _, f := range sr.Failures {
			out = append(out, StepFailure{Scenario: sr.Name, File: sr.File, Failure: f})
		}
	}
	return out
}

// outputRunText outputs the run summary as text.
func outputRunText(cmd *cobra.Command, result RunResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
