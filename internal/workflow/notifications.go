package workflow

import (
	"context"
	"strings"
	"time"

	"tonearm/internal/logging"
	"tonearm/internal/queue"
)

// onItemStarted marks the batch active on the first claimed track and
// announces how many tracks are waiting. Tracks queued while the batch is
// already running fold into it silently.
func (m *Manager) onItemStarted(ctx context.Context, item *queue.Item) {
	m.mu.RLock()
	active := m.queueActive
	m.mu.RUnlock()
	if active {
		return
	}

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("queue stats unavailable", logging.Error(err))
		return
	}

	m.mu.Lock()
	if m.queueActive {
		m.mu.Unlock()
		return
	}
	m.queueActive = true
	m.queueStart = time.Now().UTC()
	m.baseCompleted = stats[queue.StatusCompleted]
	m.baseFailed = stats[queue.StatusFailed]
	m.mu.Unlock()

	count := countWorkItems(stats)
	m.logger.Info("batch started",
		logging.Int("tracks", count),
		logging.Int64(logging.FieldTrackID, item.ID),
		logging.String(logging.FieldEventType, "batch_started"),
	)
	if err := m.notifier.NotifyBatchStarted(ctx, count); err != nil {
		m.logger.Warn("batch notification failed", logging.Error(err))
	}
}

// checkQueueCompletion fires the batch summary once the queue drains. Both
// lanes call it after every terminal transition; the queueActive gate keeps
// it from firing more than once per batch.
func (m *Manager) checkQueueCompletion(ctx context.Context) {
	m.mu.RLock()
	active := m.queueActive
	m.mu.RUnlock()
	if !active {
		return
	}

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("queue stats unavailable", logging.Error(err))
		return
	}
	if countWorkItems(stats) > 0 {
		return
	}

	m.mu.Lock()
	if !m.queueActive {
		m.mu.Unlock()
		return
	}
	m.queueActive = false
	duration := time.Since(m.queueStart)
	since := m.queueStart
	processed := stats[queue.StatusCompleted] - m.baseCompleted
	failed := stats[queue.StatusFailed] - m.baseFailed
	m.mu.Unlock()

	if processed < 0 {
		processed = 0
	}
	if failed < 0 {
		failed = 0
	}

	m.logger.Info("batch completed",
		logging.Int("processed", processed),
		logging.Int("failed", failed),
		logging.Duration("duration", duration),
		logging.String(logging.FieldEventType, "batch_completed"),
	)
	if failed > 0 {
		m.logFailedTracks(ctx, since)
	}
	if err := m.notifier.NotifyBatchCompleted(ctx, processed, failed, duration); err != nil {
		m.logger.Warn("batch notification failed", logging.Error(err))
	}
}

// logFailedTracks summarizes this batch's failures by title so the daemon
// log answers "which ones" without a queue query.
func (m *Manager) logFailedTracks(ctx context.Context, since time.Time) {
	items, err := m.store.ItemsByStatus(ctx, queue.StatusFailed)
	if err != nil {
		m.logger.Warn("failed track lookup failed", logging.Error(err))
		return
	}
	var titles []string
	for _, item := range items {
		if item.UpdatedAt.Before(since) {
			continue
		}
		titles = append(titles, trackDisplayTitle(item))
	}
	if len(titles) == 0 {
		return
	}
	m.logger.Warn("batch finished with failures",
		logging.Int("failed", len(titles)),
		logging.String("tracks", strings.Join(titles, ", ")),
		logging.Alert("failed_tracks"),
	)
}

// countWorkItems counts tracks that still need lane attention: everything
// except the two terminal states.
func countWorkItems(stats map[queue.Status]int) int {
	count := 0
	for status, n := range stats {
		if status == queue.StatusCompleted || status == queue.StatusFailed {
			continue
		}
		count += n
	}
	return count
}
