package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/sieve/internal/filtererr"
	"github.com/roach88/sieve/internal/schemaload"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Filter failure (unsupported shape, invalid URL state, etc.)
	ExitCommandError = 2 // Command error (unreadable input, database not opened, etc.)
)

// Error codes for command-level failures. Filter failures report their
// filtererr code (E2xx).
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeLoadFailed  = "E004" // Input file could not be read or decoded
	ErrCodeNotFound    = "E005" // Path or view not found
	ErrCodeStoreFailed = "E006" // View database error
	ErrCodeWriteFailed = "E007" // Output write error
	ErrCodeUsage       = "E008" // Invalid flag combination
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
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

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E201", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format. Text
// output prints data with fmt; commands with structured results print
// their own text and call Success only for JSON.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err and returns the matching ExitError. Filter errors exit
// with ExitFailure and carry their own code; load errors exit with
// ExitCommandError.
func (f *OutputFormatter) Fail(err error) error {
	var fe *filtererr.Error
	if errors.As(err, &fe) {
		_ = f.Error(string(fe.Code), err.Error(), errorDetails(fe))
		return WrapExitError(ExitFailure, string(fe.Code), err)
	}
	var loadErr *schemaload.LoadError
	if errors.As(err, &loadErr) {
		_ = f.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeLoadFailed, err)
	}
	return f.FailCode(ExitCommandError, ErrCodeGeneric, err)
}

// FailCode reports err under code and returns an ExitError with exitCode.
func (f *OutputFormatter) FailCode(exitCode int, code string, err error) error {
	_ = f.Error(code, err.Error(), nil)
	return WrapExitError(exitCode, code, err)
}

func errorDetails(fe *filtererr.Error) map[string]string {
	d := map[string]string{}
	if fe.Field != "" {
		d["field"] = fe.Field
	}
	if fe.RefPath != "" {
		d["ref_path"] = fe.RefPath
	}
	if fe.Operator != "" {
		d["operator"] = fe.Operator
	}
	if len(d) == 0 {
		return nil
	}
	return d
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
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

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
