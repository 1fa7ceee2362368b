package workflow

import (
	"context"
	"time"

	"tonearm/internal/logging"
	"tonearm/internal/queue"
)

// runLane is the claim loop for one lane. It reclaims stale tracks, claims
// the oldest eligible track, paces downloads, and hands the track to
// processItem. The loop exits only when ctx is canceled.
func (m *Manager) runLane(ctx context.Context, lane *laneState) {
	defer m.wg.Done()
	lane.logger.Info("lane started", logging.Int("stages", len(lane.stages)))
	for {
		if ctx.Err() != nil {
			lane.logger.Info("lane stopped")
			return
		}
		if lane.runReclaimer {
			m.heartbeat.ReclaimStaleItems(ctx, lane.logger)
		}
		item, err := m.store.NextForStatuses(ctx, lane.statusOrder...)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			m.handleNextItemError(ctx, lane, err)
			continue
		}
		if item == nil {
			m.waitForItemOrShutdown(ctx)
			continue
		}
		if err := m.waitForPacing(ctx, lane, item); err != nil {
			continue
		}
		m.processItem(ctx, lane, item)
	}
}

// waitForPacing blocks until the lane's limiter admits the next download.
// Only paced stages wait, so a track never pauses between its own resolve
// and fetch, and idle polling stays unthrottled.
func (m *Manager) waitForPacing(ctx context.Context, lane *laneState, item *queue.Item) error {
	if lane.limiter == nil {
		return nil
	}
	st, ok := lane.stageForStatus(item.Status)
	if !ok || !st.paced {
		return nil
	}
	reservation := lane.limiter.Reserve()
	delay := reservation.Delay()
	if delay <= 0 {
		return nil
	}
	lane.logger.Debug("pacing download",
		logging.Duration("delay", delay),
		logging.Int64(logging.FieldTrackID, item.ID),
	)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		reservation.Cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (m *Manager) handleNextItemError(ctx context.Context, lane *laneState, err error) {
	m.setLastError(err)
	lane.logger.Error("queue poll failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check queue database health"),
	)
	if notifyErr := m.notifier.NotifyError(ctx, err, "queue poll"); notifyErr != nil {
		lane.logger.Warn("error notification failed", logging.Error(notifyErr))
	}
	select {
	case <-ctx.Done():
	case <-time.After(m.retryDelay):
	}
}

func (m *Manager) waitForItemOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}
