package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/beentity/internal/fixture"
	"github.com/roach88/beentity/internal/schema"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Every scenario passed, or the schema is valid
	ExitFailure      = 1 // A scenario or declaration failed
	ExitCommandError = 2 // Bad arguments, paths or config
)

// Response codes that do not come from a schema.LoadError.
const (
	CodeScenarioFailed = "E_SCENARIO_FAILED"
	CodeCommand        = "E_COMMAND"
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError wrapping err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the exit code carried by err, or ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the envelope of every JSON response.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError describes why a command failed.
//
// Code is a schema E-code, "E_" plus an upper-cased fixture error kind
// (E_MISSING_ENTITY, E_EXPECTATION, ...), or one of the Code constants.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorFor maps err to a response error. Schema load errors keep their code
// and source position; fixture errors are coded by kind and detail the
// entity they concern.
func ErrorFor(err error) *CLIError {
	var loadErr *schema.LoadError
	if errors.As(err, &loadErr) {
		out := &CLIError{Code: loadErr.Code, Message: loadErr.Message}
		if loadErr.Pos.IsValid() {
			out.Details = ValidationError{
				Code:    loadErr.Code,
				Message: loadErr.Message,
				File:    loadErr.Pos.Filename(),
				Line:    loadErr.Pos.Line(),
			}
		}
		return out
	}

	if kind := fixture.Kind(err); kind != "" {
		return &CLIError{Code: kindCode(kind), Message: err.Error(), Details: fixtureDetails(err)}
	}
	return &CLIError{Code: CodeCommand, Message: err.Error()}
}

func kindCode(kind string) string {
	return "E_" + strings.ToUpper(kind)
}

// EntityDetails names the entity a fixture error concerns.
type EntityDetails struct {
	Type       string   `json:"type"`
	Identifier string   `json:"identifier,omitempty"`
	Row        int      `json:"row,omitempty"`
	Failed     int      `json:"failed,omitempty"`
	Fields     []string `json:"fields,omitempty"` // mismatching fields
}

func fixtureDetails(err error) *EntityDetails {
	var (
		missingFactory *fixture.MissingFactoryError
		missingEntity  *fixture.MissingEntityError
		unexpected     *fixture.UnexpectedEntityError
		expectation    *fixture.ExpectationError
	)
	switch {
	case errors.As(err, &expectation):
		return &EntityDetails{
			Type:       expectation.Type,
			Identifier: expectation.Identifier,
			Row:        expectation.Row,
			Failed:     expectation.Failed,
			Fields:     expectation.Diff.Fields(),
		}
	case errors.As(err, &unexpected):
		return &EntityDetails{Type: unexpected.Type, Identifier: unexpected.Identifier}
	case errors.As(err, &missingEntity):
		return &EntityDetails{Type: missingEntity.Factory, Identifier: missingEntity.Identifier}
	case errors.As(err, &missingFactory):
		return &EntityDetails{Type: missingFactory.Type}
	default:
		return nil
	}
}

// OutputFormatter writes command results as text or JSON. Diagnostics go to
// ErrWriter so JSON on Writer stays parseable.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// Success writes data with status "ok". Text mode prints data with %v.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Fail writes a failed result. Data is the partial result, if any, and is
// only rendered in JSON; text callers print their own summary first.
func (f *OutputFormatter) Fail(data any, cliErr *CLIError) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "error", Data: data, Error: cliErr})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", cliErr.Code, cliErr.Message)
	if f.Verbose && cliErr.Details != nil {
		fmt.Fprintf(f.Writer, "Details: %+v\n", cliErr.Details)
	}
	return nil
}

// Error writes a failure with no partial result.
func (f *OutputFormatter) Error(code, message string, details any) error {
	return f.Fail(nil, &CLIError{Code: code, Message: message, Details: details})
}

// VerboseLog writes a diagnostic line when verbose output is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
