package workflow

import (
	"context"

	"tonearm/internal/logging"
	"tonearm/internal/queue"
	"tonearm/internal/stage"
)

// StatusSummary is the manager snapshot served by the status API.
type StatusSummary struct {
	Running     bool
	QueueActive bool
	LastError   string
	LastItem    *queue.Item
	QueueStats  map[queue.Status]int
	StageHealth []stage.Health
}

// Status reports lane state, queue statistics, and per-stage readiness.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running:     m.running,
		QueueActive: m.queueActive,
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastItem != nil {
		cp := *m.lastItem
		summary.LastItem = &cp
	}
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("queue stats unavailable", logging.Error(err))
	} else {
		summary.QueueStats = stats
	}

	for _, kind := range m.laneOrder {
		lane := m.lanes[kind]
		for _, st := range lane.stages {
			summary.StageHealth = append(summary.StageHealth, st.handler.HealthCheck(ctx))
		}
	}
	return summary
}
