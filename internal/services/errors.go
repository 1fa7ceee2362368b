package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")

	// Acquisition-specific markers. SearchUnavailable degrades to an empty
	// candidate set at the resolver; the rest surface as track failures.
	ErrSearchUnavailable = errors.New("search unavailable")
	ErrNoCandidate       = errors.New("no acceptable candidate")
	ErrAntiBot           = errors.New("anti-bot block")
	ErrHardAuth          = errors.New("credential store failure")
	ErrPostProcess       = errors.New("post-process failure")
)

// Kind labels the error taxonomy for structured logging and API payloads.
type Kind string

const (
	KindExternalTool      Kind = "external_tool"
	KindValidation        Kind = "validation"
	KindConfiguration     Kind = "configuration"
	KindNotFound          Kind = "not_found"
	KindTimeout           Kind = "timeout"
	KindTransient         Kind = "transient"
	KindSearchUnavailable Kind = "search_unavailable"
	KindNoCandidate       Kind = "no_candidate"
	KindAntiBot           Kind = "anti_bot"
	KindHardAuth          Kind = "hard_auth"
	KindPostProcess       Kind = "post_process"
	KindUnknown           Kind = "unknown"
)

var markerKinds = []struct {
	marker error
	kind   Kind
}{
	{ErrSearchUnavailable, KindSearchUnavailable},
	{ErrNoCandidate, KindNoCandidate},
	{ErrAntiBot, KindAntiBot},
	{ErrHardAuth, KindHardAuth},
	{ErrPostProcess, KindPostProcess},
	{ErrValidation, KindValidation},
	{ErrConfiguration, KindConfiguration},
	{ErrNotFound, KindNotFound},
	{ErrTimeout, KindTimeout},
	{ErrExternalTool, KindExternalTool},
	{ErrTransient, KindTransient},
}

// StageError carries the marker, stage context, and cause of a stage failure.
// Wrap is the only constructor used by stage code.
type StageError struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Hint      string
	Err       error
}

func (e *StageError) Error() string {
	detail := buildDetail(e.Stage, e.Operation, e.Message)
	marker := e.Marker
	if marker == nil {
		marker = ErrTransient
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", marker.Error(), detail, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s", marker.Error(), detail)
}

func (e *StageError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Marker != nil {
		out = append(out, e.Marker)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap builds an error that includes stage context while tagging it with the
// provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &StageError{
		Marker:    marker,
		Stage:     stage,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// WrapHint is Wrap with an operator-facing next step attached. The hint lands
// in structured logs, not in Error().
func WrapHint(marker error, stage, operation, message, hint string, err error) error {
	wrapped := Wrap(marker, stage, operation, message, err).(*StageError)
	wrapped.Hint = hint
	return wrapped
}

// ErrorDetails is the flattened view of a stage error used by the workflow
// manager when logging and persisting failures.
type ErrorDetails struct {
	Kind      Kind
	Stage     string
	Operation string
	Message   string
	Hint      string
	Cause     error
}

// Details extracts structured fields from a stage error. Plain errors yield
// KindUnknown with the error text as message.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{Kind: KindUnknown}
	}
	details := ErrorDetails{Kind: classify(err), Message: err.Error()}
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		details.Stage = stageErr.Stage
		details.Operation = stageErr.Operation
		details.Hint = stageErr.Hint
		details.Cause = stageErr.Err
		details.Message = buildDetail(stageErr.Stage, stageErr.Operation, stageErr.Message)
	}
	return details
}

func classify(err error) Kind {
	for _, entry := range markerKinds {
		if errors.Is(err, entry.marker) {
			return entry.kind
		}
	}
	return KindUnknown
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
