package workflow

import (
	"context"
	"log/slog"

	"tonearm/internal/logging"
	"tonearm/internal/queue"
	"tonearm/internal/services"
)

// handleStageFailure classifies the error, fails the track, and notifies.
// The failed track stays in the queue for retry-failed to resurrect.
func (m *Manager) handleStageFailure(ctx context.Context, lane *laneState, st pipelineStage, item *queue.Item, stageErr error, logger *slog.Logger) {
	kind, message, hint := classifyStageFailure(stageErr)
	item.SetFailed(kind, message, hint)

	attrs := []logging.Attr{
		logging.Error(stageErr),
		logging.String(logging.FieldEventType, "track_failed"),
		logging.String("stage", st.name),
		logging.String(logging.FieldErrorKind, kind),
	}
	if hint != "" {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, hint))
	}
	logger.Error("stage failed", logging.Args(attrs...)...)

	if err := m.store.Update(ctx, item); err != nil {
		lane.logger.Error("persist failed track",
			logging.Int64(logging.FieldTrackID, item.ID),
			logging.Error(err),
		)
	}

	if err := m.notifier.NotifyTrackFailed(ctx, trackDisplayTitle(item), message); err != nil {
		lane.logger.Warn("failure notification failed", logging.Error(err))
	}

	m.setLastError(stageErr)
	m.setLastItem(item)
	m.checkQueueCompletion(ctx)
}

// classifyStageFailure extracts the persisted failure fields from a stage
// error. Plain errors land as unknown with their message preserved.
func classifyStageFailure(err error) (kind, message, hint string) {
	details := services.Details(err)
	kind = string(details.Kind)
	if kind == "" {
		kind = string(services.KindUnknown)
	}
	message = details.Message
	if message == "" && err != nil {
		message = err.Error()
	}
	if message == "" {
		message = "stage failed"
	}
	return kind, message, details.Hint
}
