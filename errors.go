// Completion: 100% - Error handling complete, clear and helpful messages
package main

import (
	"fmt"
	"strings"
)

// ErrorLevel indicates the severity of an error.
type ErrorLevel int

const (
	LevelWarning ErrorLevel = iota
	LevelError
	LevelFatal
)

func (l ErrorLevel) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal error"
	default:
		return "unknown"
	}
}

// ErrorCategory classifies the type of error.
type ErrorCategory int

const (
	CategorySyntax ErrorCategory = iota
	CategorySemantic
	CategoryCodegen
	CategoryInternal
)

func (c ErrorCategory) String() string {
	switch c {
	case CategorySyntax:
		return "syntax"
	case CategorySemantic:
		return "semantic"
	case CategoryCodegen:
		return "codegen"
	case CategoryInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// SourceLocation is a position in source code.
type SourceLocation struct {
	File   string
	Line   int
	Column int
	Length int // length of the offending span, for the caret underline
}

func (loc SourceLocation) String() string {
	if loc.File == "" {
		return fmt.Sprintf("%d:%d", loc.Line, loc.Column)
	}
	return fmt.Sprintf("%s:%d:%d", loc.File, loc.Line, loc.Column)
}

// ErrorContext carries the type-error payload (Expected/Found)
// on top of a plain syntactic/semantic CompilerError.
type ErrorContext struct {
	SourceLine string
	Expected   string // non-empty only for a TypeError
	Found      string
}

// CompilerError is the pipeline's single error type: a plain location error when
// Context.Expected is empty, a TypeError otherwise. It implements the
// error interface so every pass can just `return nil, err`.
type CompilerError struct {
	Level    ErrorLevel
	Category ErrorCategory
	Message  string
	Location SourceLocation
	Context  ErrorContext
}

func (e *CompilerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Location, e.Message)
}

// IsTypeError reports whether this error carries expected/found type
// payload.
func (e *CompilerError) IsTypeError() bool {
	return e.Context.Expected != "" || e.Context.Found != ""
}

// Report formats a single error the way the driver prints it: the
// offending source line, a caret underline of the span, the message,
// and — for a TypeError — the expected/found types.
func Report(err *CompilerError, source string) string {
	var sb strings.Builder
	if err.Context.SourceLine == "" && source != "" {
		err.Context.SourceLine = sourceLine(source, err.Location.Line)
	}

	sb.WriteString(err.Level.String())
	sb.WriteString(": ")
	sb.WriteString(err.Message)
	sb.WriteString("\n")
	sb.WriteString("  --> ")
	sb.WriteString(err.Location.String())
	sb.WriteString("\n")

	if err.Context.SourceLine != "" {
		lineNum := fmt.Sprintf("%d", err.Location.Line)
		pad := strings.Repeat(" ", len(lineNum)+1)
		sb.WriteString(pad + "|\n")
		sb.WriteString(lineNum + " | " + err.Context.SourceLine + "\n")
		sb.WriteString(pad + "| ")
		if err.Location.Column > 0 {
			sb.WriteString(strings.Repeat(" ", err.Location.Column))
		}
		length := err.Location.Length
		if length < 1 {
			length = 1
		}
		sb.WriteString(strings.Repeat("^", length))
		sb.WriteString("\n")
	}

	if err.IsTypeError() {
		sb.WriteString(fmt.Sprintf("  expected %s, found %s\n", err.Context.Expected, err.Context.Found))
	}
	return sb.String()
}

func sourceLine(source string, line int) string {
	if line <= 0 {
		return ""
	}
	lines := strings.Split(source, "\n")
	if line > len(lines) {
		return ""
	}
	return lines[line-1]
}

// TypeErrorAt builds a type error with an expected/found payload at
// the given location.
func TypeErrorAt(message, expected, found string, loc SourceLocation) *CompilerError {
	return &CompilerError{
		Level:    LevelError,
		Category: CategorySemantic,
		Message:  message,
		Location: loc,
		Context:  ErrorContext{Expected: expected, Found: found},
	}
}

// LocationErrorAt builds a plain location error at the given location.
func LocationErrorAt(category ErrorCategory, message string, loc SourceLocation) *CompilerError {
	return &CompilerError{Level: LevelError, Category: category, Message: message, Location: loc}
}

// InternalError builds a fatal, downstream-of-the-type-checker bug
// report.
func InternalError(message string) *CompilerError {
	return &CompilerError{Level: LevelFatal, Category: CategoryInternal, Message: message}
}
