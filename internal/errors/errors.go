// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

// Package errors provides structured error handling for the tia CLI.
//
// It defines UserError, a type that carries structured error information
// including what went wrong, why it happened, and how to fix it, plus
// exit codes for the seven error kinds this system distinguishes
// (ParseFailure, AcquisitionFailure, StoreUnavailable, SchemaMissing,
// VectorBackendUnavailable, ArtifactMissing, InputMalformed). Only the
// kinds that are fatal for a command (StoreUnavailable, SchemaMissing,
// ArtifactMissing, InputMalformed) construct a UserError; the per-item
// recoverable kinds (ParseFailure, AcquisitionFailure,
// VectorBackendUnavailable) are logged and the caller continues.
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes for the fatal error kinds.
const (
	ExitSuccess = 0

	// ExitInput signals a malformed diff or other bad user input.
	ExitInput = 4

	// ExitStore signals the fact store could not be reached.
	ExitStore = 2

	// ExitSchema signals the fact store exists but lacks required schema.
	ExitSchema = 3

	// ExitArtifact signals a pipeline stage ran before its upstream artifact.
	ExitArtifact = 6

	// ExitInternal signals a bug: an assertion failure or unexpected nil.
	ExitInternal = 10
)

// UserError represents an error with structured context for end users:
// what went wrong (Message), why (Cause), and how to fix it (Fix).
type UserError struct {
	Message  string
	Cause    string
	Fix      string
	ExitCode int
	Err      error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewStoreUnavailableError reports that the fact store cannot be reached.
// Fatal for the current command.
func NewStoreUnavailableError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitStore, Err: err}
}

// NewSchemaMissingError reports that the required schema is not present.
func NewSchemaMissingError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitSchema}
}

// NewArtifactMissingError reports that a pipeline stage ran before the
// upstream artifact it depends on exists.
func NewArtifactMissingError(artifactName, fix string) *UserError {
	return &UserError{
		Message:  fmt.Sprintf("Required artifact %q is missing", artifactName),
		Cause:    "A pipeline stage was asked to run before its upstream stage produced this artifact.",
		Fix:      fix,
		ExitCode: ExitArtifact,
	}
}

// NewInputMalformedError reports that a diff or other input file does not
// contain a recognizable structure. Input errors never wrap an underlying
// error - the problem is the content, not the I/O.
func NewInputMalformedError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitInput}
}

// NewInternalError reports a bug: an assertion failure or unexpected nil.
func NewInternalError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitInternal, Err: err}
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
	colorWarn  = color.New(color.FgYellow, color.Bold)
)

// Format returns a formatted error message for terminal display, colored
// unless noColor is set or NO_COLOR is present in the environment.
func (e *UserError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}

	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}

	return out.String()
}

// ErrorJSON is the JSON-serializable form of UserError, for --json mode.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{Error: e.Message, Cause: e.Cause, Fix: e.Fix, ExitCode: e.ExitCode}
}

// FatalError prints the error and exits with the appropriate code. It
// never returns.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	if ue, ok := err.(*UserError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			_ = enc.Encode(ue.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, ue.Format(false))
		}
		os.Exit(ue.ExitCode)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitInternal)
}

// WarnParseFailure logs a non-fatal ParseFailure: the file is skipped and
// the pipeline continues.
func WarnParseFailure(filePath string, cause error) {
	fmt.Fprintf(os.Stderr, "%s %s: %v (skipped)\n", colorWarn.Sprint("warning: parse failure"), filePath, cause)
}

// WarnAcquisitionExhausted logs that retries for a transient file-lock
// were exhausted and the failure has become a ParseFailure.
func WarnAcquisitionExhausted(filePath string, attempts int, cause error) {
	fmt.Fprintf(os.Stderr, "%s %s after %d attempts: %v (treated as parse failure, skipped)\n",
		colorWarn.Sprint("warning: acquisition failed"), filePath, attempts, cause)
}

// WarnVectorBackendUnavailable logs that the semantic match strategy is
// being skipped for this run; the rest of the query proceeds.
func WarnVectorBackendUnavailable(cause error) {
	fmt.Fprintf(os.Stderr, "%s: %v (semantic strategy skipped)\n", colorWarn.Sprint("warning: vector backend unavailable"), cause)
}
