package errors

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"os"
)

// Category represents the type of error.
type Category string

const (
	CategoryLock     Category = "lock"
	CategoryRegistry Category = "registry"
	CategoryPorts    Category = "ports"
	CategoryProject  Category = "project"
	CategoryExternal Category = "external"
	CategoryConfig   Category = "config"
	CategoryCLI      Category = "cli"
)

// Location represents a position in a file, typically the registry or an
// env file that failed to parse.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// BerthError is a structured error with a code, a suggestion, and the
// process exit status for its failure kind.
type BerthError struct {
	// Code is a unique error identifier (e.g., "E001").
	Code string

	// Category is the error type (lock, registry, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the file position where the error occurred, if any.
	Location *Location

	// Context contains surrounding lines from the offending file.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Example is a command or snippet showing the fix.
	Example string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Exit is the process exit status for this failure kind.
	Exit int

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *BerthError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *BerthError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a file position to the error and loads surrounding
// lines for display.
func (e *BerthError) WithLocation(file string, line, column int) *BerthError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *BerthError) WithSuggestion(s string) *BerthError {
	e.Suggestion = s
	return e
}

// WithExample adds a command example to the error.
func (e *BerthError) WithExample(ex string) *BerthError {
	e.Example = ex
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *BerthError) WithDetail(d string) *BerthError {
	e.Detail = d
	return e
}

// WithDetailf adds a formatted detailed explanation to the error.
func (e *BerthError) WithDetailf(format string, args ...any) *BerthError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithContext adds custom context lines to the error.
func (e *BerthError) WithContext(lines []string) *BerthError {
	e.Context = lines
	return e
}

// Wrap wraps another error.
func (e *BerthError) Wrap(err error) *BerthError {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around the specified line number from a file.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates a BerthError from a registered error code.
func New(code string) *BerthError {
	template, ok := registry[code]
	if !ok {
		return &BerthError{
			Code:    code,
			Message: "Unknown error",
			Exit:    1,
		}
	}
	return &BerthError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
		Exit:     template.Exit,
	}
}

// Newf creates a new BerthError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *BerthError {
	return &BerthError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
		Exit:     1,
	}
}

// FromError wraps a standard error in a BerthError.
func FromError(err error, code string) *BerthError {
	if err == nil {
		return nil
	}
	if be, ok := err.(*BerthError); ok {
		return be
	}
	return New(code).Wrap(err)
}

// Is reports whether err carries the given error code.
func Is(err error, code string) bool {
	var be *BerthError
	if stderrors.As(err, &be) {
		return be.Code == code
	}
	return false
}

// ExitStatus maps an error to the process exit status for its failure
// kind. Coded errors carry their own status, cancellation maps to 130,
// and anything else is a general error.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	if stderrors.Is(err, context.Canceled) {
		return 130
	}
	var be *BerthError
	if stderrors.As(err, &be) && be.Exit > 0 {
		return be.Exit
	}
	return 1
}
