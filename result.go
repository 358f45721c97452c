package scrub

import (
	"errors"
	"time"
)

// Status is the terminal state of a run.
type Status uint8

const (
	// Success means every unit was processed. Soft errors may be present.
	Success Status = iota
	// Failed means a fatal error stopped the run. Output must be discarded.
	Failed
)

// String returns the status name.
func (s Status) String() string {
	if s == Success {
		return "success"
	}
	return "failed"
}

// Result reports the outcome of a run.
type Result struct {
	Status Status
	RunID  string
	Format Format

	// Units is the number of units read and written.
	Units int

	// Matched maps each field that was replaced to the number of units it
	// was replaced in.
	Matched map[string]int

	// Unmatched lists, sorted, the requested fields found in no unit.
	Unmatched []string

	// Errors holds soft errors in stream order on Success, or the single
	// fatal error on Failed.
	Errors []error

	// Output holds the obfuscated stream. Only Pipeline.Obfuscate sets it,
	// and only on Success.
	Output []byte

	Duration time.Duration
}

// OK reports whether the run succeeded.
func (r *Result) OK() bool {
	return r.Status == Success
}

// Fatal returns the error that failed the run, or nil on Success.
func (r *Result) Fatal() error {
	if r.Status == Success || len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

// Err converts the result into a caller-level error. A failed run returns its
// fatal error. When requireAll is set, every unmatched field is returned as
// an *UnmatchedFieldError.
func (r *Result) Err(requireAll bool) error {
	if r.Status == Failed {
		return r.Fatal()
	}
	if !requireAll || len(r.Unmatched) == 0 {
		return nil
	}
	errs := make([]error, len(r.Unmatched))
	for i, f := range r.Unmatched {
		errs[i] = &UnmatchedFieldError{Field: f}
	}
	return errors.Join(errs...)
}

// failed builds a Failed result holding only err.
func failed(runID string, format Format, err error, start time.Time) *Result {
	return &Result{
		Status:   Failed,
		RunID:    runID,
		Format:   format,
		Matched:  map[string]int{},
		Errors:   []error{err},
		Duration: time.Since(start),
	}
}
