package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"tonearm/internal/logging"
	"tonearm/internal/queue"
	"tonearm/internal/services"
)

// processItem drives one track through the stage matching its status. A
// canceled context leaves the track in its processing state for the
// startup rollback to return to the stage start.
func (m *Manager) processItem(ctx context.Context, lane *laneState, item *queue.Item) {
	st, ok := lane.stageForStatus(item.Status)
	if !ok {
		lane.logger.Error("no stage registered for status",
			logging.Int64(logging.FieldTrackID, item.ID),
			logging.String("status", string(item.Status)),
		)
		return
	}

	stageCtx := withStageContext(ctx, lane, st, item, uuid.NewString())
	itemLogger := m.stageLoggerForLane(stageCtx, lane, item)

	if err := m.transitionToProcessing(stageCtx, lane, st, item); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		m.setLastError(err)
		lane.logger.Error("stage transition failed", logging.Error(err))
		return
	}
	if err := m.executeStage(stageCtx, lane, st, item, itemLogger); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		m.setLastError(err)
		lane.logger.Error("stage persistence failed", logging.Error(err))
	}
}

func withStageContext(ctx context.Context, lane *laneState, st pipelineStage, item *queue.Item, requestID string) context.Context {
	ctx = services.WithTrackID(ctx, item.ID)
	ctx = services.WithStage(ctx, st.name)
	ctx = services.WithLane(ctx, lane.name)
	return services.WithRequestID(ctx, requestID)
}

// transitionToProcessing claims the track for its stage and persists the
// flip before any work happens, so a concurrent status reader never sees a
// track being worked on in a claimable state.
func (m *Manager) transitionToProcessing(ctx context.Context, lane *laneState, st pipelineStage, item *queue.Item) error {
	now := time.Now().UTC()
	item.Status = st.processingStatus
	item.SetProgress(deriveStageLabel(st.processingStatus), "", 0)
	item.ErrorMessage = ""
	item.ErrorKind = ""
	item.ErrorHint = ""
	item.LastHeartbeat = &now
	if err := m.store.Update(ctx, item); err != nil {
		return fmt.Errorf("move track %d to %s: %w", item.ID, st.processingStatus, err)
	}
	if lane.notificationsEnabled {
		m.onItemStarted(ctx, item)
	}
	return nil
}

// executeStage runs Prepare and Execute with a heartbeat, then advances the
// track. Stage failures are classified and persisted here; only store
// errors propagate to the caller.
func (m *Manager) executeStage(ctx context.Context, lane *laneState, st pipelineStage, item *queue.Item, logger *slog.Logger) error {
	start := time.Now()
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_started"),
		logging.String("stage", st.name),
	)

	if err := st.handler.Prepare(ctx, item); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.handleStageFailure(ctx, lane, st, item, err, logger)
		return nil
	}
	if err := m.store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist prepared track %d: %w", item.ID, err)
	}

	if execErr := m.executeWithHeartbeat(ctx, st, item); execErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.handleStageFailure(ctx, lane, st, item, execErr, logger)
		return nil
	}

	if item.Status == st.processingStatus {
		item.Status = st.doneStatus
	}
	item.LastHeartbeat = nil
	if item.Status == queue.StatusCompleted && item.ProgressPercent != 100 {
		item.SetProgressComplete("Completed", "Track processed")
	}
	if err := m.store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist track %d after %s: %w", item.ID, st.name, err)
	}

	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_completed"),
		logging.String("stage", st.name),
		logging.String("status", string(item.Status)),
		logging.Duration("duration", time.Since(start)),
	)
	m.setLastItem(item)
	m.checkQueueCompletion(ctx)
	return nil
}

// executeWithHeartbeat runs the handler while a companion goroutine keeps
// the track's heartbeat fresh. The heartbeat stops before control returns
// so no update races the final status write.
func (m *Manager) executeWithHeartbeat(ctx context.Context, st pipelineStage, item *queue.Item) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go func() {
		defer hbWG.Done()
		m.heartbeat.StartLoop(hbCtx, item.ID)
	}()

	err := st.handler.Execute(ctx, item)

	hbCancel()
	hbWG.Wait()
	return err
}

// deriveStageLabel turns a queue status into the display label stored in
// the progress fields, e.g. "resolving" becomes "Resolving".
func deriveStageLabel(status queue.Status) string {
	label := strings.ReplaceAll(string(status), "_", " ")
	return cases.Title(language.English).String(label)
}
