package logging

import (
	"context"
	"log/slog"

	"tonearm/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldTrackID is the standardized structured logging key for queue track identifiers.
	FieldTrackID = "track_id"
	// FieldStage is the standardized structured logging key for workflow stage names.
	FieldStage = "stage"
	// FieldLane is the standardized structured logging key for workflow lane names.
	FieldLane = "lane"
	// FieldBatchID is the standardized structured logging key for batch identifiers.
	FieldBatchID = "batch_id"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
	// FieldEventType labels machine-parsable lifecycle events (stage_started, track_failed, ...).
	FieldEventType = "event_type"
	// FieldDecisionType labels candidate selection and filtering decisions.
	FieldDecisionType = "decision_type"
	// FieldErrorKind carries the classified failure kind attached to stage errors.
	FieldErrorKind = "error_kind"
	// FieldErrorCode carries a short stable identifier for an error condition.
	FieldErrorCode = "error_code"
	// FieldErrorHint carries the remediation hint attached to stage errors.
	FieldErrorHint = "error_hint"
	// FieldErrorOperation names the operation that produced a stage error.
	FieldErrorOperation = "error_operation"
	// FieldProgressStage is the coarse progress label stored on queue tracks.
	FieldProgressStage = "progress_stage"
	// FieldProgressPercent is the numeric progress percentage for a track.
	FieldProgressPercent = "progress_percent"
	// FieldProgressMessage is the human-readable progress detail for a track.
	FieldProgressMessage = "progress_message"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.TrackIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldTrackID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if lane, ok := services.LaneFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldLane, lane))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
