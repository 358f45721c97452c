package scrub

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for pipeline events.
var (
	SignalRunStart       = capitan.NewSignal("scrub.run.start", "Obfuscation run beginning")
	SignalRunComplete    = capitan.NewSignal("scrub.run.complete", "Obfuscation run finished")
	SignalUnitError      = capitan.NewSignal("scrub.unit.error", "Unit passed through after a structural error")
	SignalFieldUnmatched = capitan.NewSignal("scrub.field.unmatched", "Requested field never matched")
	SignalBatchComplete  = capitan.NewSignal("scrub.batch.complete", "Batch of runs finished")
)

// Keys for typed event data.
var (
	KeyRunID      = capitan.NewStringKey("run_id")
	KeyFormat     = capitan.NewStringKey("format")
	KeyField      = capitan.NewStringKey("field")
	KeyFields     = capitan.NewIntKey("fields")
	KeyUnits      = capitan.NewIntKey("units")
	KeyMatched    = capitan.NewIntKey("matched")
	KeySoftErrors = capitan.NewIntKey("soft_errors")
	KeyLine       = capitan.NewIntKey("line")
	KeyJobs       = capitan.NewIntKey("jobs")
	KeyFailed     = capitan.NewIntKey("failed")
	KeyDuration   = capitan.NewDurationKey("duration")
	KeyError      = capitan.NewErrorKey("error")
)

// emitRunStart emits an event when a run begins.
func emitRunStart(ctx context.Context, runID string, format Format, fields int) {
	capitan.Emit(ctx, SignalRunStart,
		KeyRunID.Field(runID),
		KeyFormat.Field(string(format)),
		KeyFields.Field(fields),
	)
}

// emitRunComplete emits an event when a run finishes.
func emitRunComplete(ctx context.Context, r *Result) {
	fields := []capitan.Field{
		KeyRunID.Field(r.RunID),
		KeyFormat.Field(string(r.Format)),
		KeyUnits.Field(r.Units),
		KeyMatched.Field(len(r.Matched)),
		KeyDuration.Field(r.Duration),
	}
	if r.Status == Failed {
		fields = append(fields, KeyError.Field(r.Fatal()))
		capitan.Error(ctx, SignalRunComplete, fields...)
		return
	}
	fields = append(fields, KeySoftErrors.Field(len(r.Errors)))
	capitan.Emit(ctx, SignalRunComplete, fields...)
}

// emitUnitError emits an event for a soft per-unit error.
func emitUnitError(ctx context.Context, runID string, se *StructuralError) {
	capitan.Emit(ctx, SignalUnitError,
		KeyRunID.Field(runID),
		KeyUnits.Field(se.Unit),
		KeyLine.Field(se.Line),
		KeyError.Field(se),
	)
}

// emitFieldUnmatched emits an event for a field no unit contained.
func emitFieldUnmatched(ctx context.Context, runID, field string) {
	capitan.Emit(ctx, SignalFieldUnmatched,
		KeyRunID.Field(runID),
		KeyField.Field(field),
	)
}

// emitBatchComplete emits an event when RunAll finishes.
func emitBatchComplete(ctx context.Context, jobs, failed int, duration time.Duration) {
	capitan.Emit(ctx, SignalBatchComplete,
		KeyJobs.Field(jobs),
		KeyFailed.Field(failed),
		KeyDuration.Field(duration),
	)
}
