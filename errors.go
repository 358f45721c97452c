package scrub

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrEmptyFields indicates a request named no fields to obfuscate.
	ErrEmptyFields = errors.New("no target fields")

	// ErrInvalidField indicates a requested field name is empty.
	ErrInvalidField = errors.New("invalid field name")

	// ErrNilSource indicates a request has no source stream.
	ErrNilSource = errors.New("nil source")

	// ErrNilSink indicates a run was given no output stream.
	ErrNilSink = errors.New("nil sink")

	// ErrUnsupportedFormat indicates no codec is registered for the format.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrInvalidDepth indicates an unknown matching depth.
	ErrInvalidDepth = errors.New("invalid matching depth")

	// ErrInvalidPolicy indicates an unknown policy or mask type in a config.
	ErrInvalidPolicy = errors.New("invalid policy")

	// ErrInvalidKey indicates a hash key has an invalid size.
	ErrInvalidKey = errors.New("invalid key")

	// ErrInvalidDialect indicates unusable CSV delimiter or quote settings.
	ErrInvalidDialect = errors.New("invalid csv dialect")

	// ErrMissingHeader indicates a delimited stream has no header row.
	ErrMissingHeader = errors.New("missing header row")

	// ErrColumnCount indicates a row's field count differs from the header.
	ErrColumnCount = errors.New("column count mismatch")

	// ErrQuote indicates a quoting fault in a delimited row.
	ErrQuote = errors.New("malformed quoting")

	// ErrNotObject indicates a unit that is not an object where one was expected.
	ErrNotObject = errors.New("unit is not an object")

	// ErrMalformed indicates the stream could not be parsed.
	ErrMalformed = errors.New("malformed input")

	// ErrStream indicates reading the source or writing the sink failed.
	ErrStream = errors.New("stream failure")

	// ErrCancelled indicates the run's context was cancelled.
	ErrCancelled = errors.New("run cancelled")

	// ErrUnmatched indicates a requested field never matched any unit.
	ErrUnmatched = errors.New("field never matched")
)

// ValidationError represents a rejected request.
// It is always fatal and is raised before the source is read.
type ValidationError struct {
	Err   error  // Underlying sentinel error (ErrEmptyFields, etc.)
	Field string // Request field that failed validation (Fields, Format, Source)
	Value string // Offending value, if any
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid request: %s %q: %s", e.Field, e.Value, e.Err.Error())
	}
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Err.Error())
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StructuralError represents a soft, per-unit problem.
// Unless Recovered is set, the unit is passed through unobfuscated.
type StructuralError struct {
	Err   error // Underlying sentinel error (ErrColumnCount, ErrQuote, ...)
	Unit  int   // 1-based unit index within the stream
	Line  int   // 1-based line the unit starts on, 0 if unknown
	Cause error // Original error from the parser, if any

	// Recovered is set when the unit could still be parsed field by field.
	// Recovered units are obfuscated; others pass through unchanged.
	Recovered bool
}

func (e *StructuralError) Error() string {
	msg := fmt.Sprintf("unit %d", e.Unit)
	if e.Line > 0 {
		msg = fmt.Sprintf("unit %d (line %d)", e.Unit, e.Line)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", msg, e.Err.Error(), e.Cause)
	}
	return fmt.Sprintf("%s: %s", msg, e.Err.Error())
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

// FatalError represents an error that aborts a run.
// Any output written before it must be discarded.
type FatalError struct {
	Err   error // Underlying sentinel error (ErrMalformed, ErrStream, ErrCancelled)
	Cause error // Original error
}

func (e *FatalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Err.Error(), e.Cause)
	}
	return e.Err.Error()
}

func (e *FatalError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// ConfigError represents an invalid policy configuration.
// It wraps a sentinel error with the offending setting.
type ConfigError struct {
	Err     error  // Underlying sentinel error (ErrInvalidPolicy, etc.)
	Setting string // Configuration key, e.g. "depth" or "fields[2].mask"
	Value   string // Offending value, if any
}

func (e *ConfigError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("config %s %q: %s", e.Setting, e.Value, e.Err.Error())
	}
	return fmt.Sprintf("config %s: %s", e.Setting, e.Err.Error())
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// UnmatchedFieldError is an informational warning: a requested field was
// never found in any unit.
type UnmatchedFieldError struct {
	Field string
}

func (e *UnmatchedFieldError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnmatched.Error(), e.Field)
}

func (e *UnmatchedFieldError) Unwrap() error {
	return ErrUnmatched
}

// newValidationError creates a ValidationError.
func newValidationError(sentinel error, field, value string) error {
	return &ValidationError{
		Err:   sentinel,
		Field: field,
		Value: value,
	}
}

// newConfigError creates a ConfigError for a rejected setting.
func newConfigError(sentinel error, setting, value string) error {
	return &ConfigError{
		Err:     sentinel,
		Setting: setting,
		Value:   value,
	}
}

// newStructuralError creates a StructuralError for a unit.
func newStructuralError(sentinel error, unit, line int, cause error) *StructuralError {
	return &StructuralError{
		Err:   sentinel,
		Unit:  unit,
		Line:  line,
		Cause: cause,
	}
}

// newFatalError creates a FatalError, keeping an existing one intact.
func newFatalError(sentinel error, cause error) error {
	var fe *FatalError
	if errors.As(cause, &fe) {
		return fe
	}
	return &FatalError{
		Err:   sentinel,
		Cause: cause,
	}
}
