package cli

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/beentity/internal/schema"
)

// ValidationError is one problem found in a schema directory.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Types  []string          `json:"types,omitempty"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema-dir>",
		Short: "Validate CUE entity declarations",
		Long: `Compile every CUE entity declaration in a directory and report all
problems at once: float or composite field types, missing identifiers,
identifiers naming undeclared fields and duplicate stored kinds.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, schemaDir string, cmd *cobra.Command) error {
	formatter := opts.Formatter(cmd)

	result, errs := schema.Load(schemaDir, schema.LoadModeCollectAll)

	// Nothing compiled at all: directory missing, no files, broken CUE.
	if result == nil {
		return outputValidateError(formatter, errs[0])
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", result.FileCount, schemaDir)

	if len(errs) > 0 {
		return outputValidationErrors(formatter, toValidationErrors(errs))
	}

	names := make([]string, 0, len(result.Entities))
	for _, def := range result.Entities {
		formatter.VerboseLog("Entity %s: kind %s, identifier %s, %d field(s)", def.Name, def.Kind, def.Identifier, len(def.Fields))
		names = append(names, def.Name)
	}
	return outputValidateSuccess(formatter, names)
}

func toValidationErrors(errs []error) []ValidationError {
	out := make([]ValidationError, 0, len(errs))
	for _, err := range errs {
		var loadErr *schema.LoadError
		if !errors.As(err, &loadErr) {
			out = append(out, ValidationError{Code: schema.ErrCodeGeneric, Message: err.Error()})
			continue
		}
		out = append(out, ValidationError{
			Code:    loadErr.Code,
			Message: loadErr.Message,
			File:    fileFromPos(loadErr.Pos),
			Line:    lineFromPos(loadErr.Pos),
		})
	}
	return out
}

func fileFromPos(pos token.Pos) string {
	if pos.IsValid() {
		return pos.Filename()
	}
	return ""
}

func lineFromPos(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, names []string) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Types: names})
	}

	fmt.Fprintf(formatter.Writer, "✓ %d entity type(s) valid\n", len(names))
	return nil
}

// outputValidateError outputs an error that stopped validation.
func outputValidateError(formatter *OutputFormatter, err error) error {
	cliErr := ErrorFor(err)
	if cliErr.Code == CodeCommand {
		cliErr.Code = schema.ErrCodeGeneric
	}
	_ = formatter.Fail(nil, cliErr)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", cliErr.Code, cliErr.Message))
}

// outputValidationErrors outputs every declaration error.
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationError) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		cliErr := &CLIError{Code: errs[0].Code, Message: errs[0].Message}
		if err := formatter.Fail(ValidationResult{Valid: false, Errors: errs}, cliErr); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", err.File, err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	return exitErr
}
