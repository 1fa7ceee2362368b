package workflow

import (
	"context"
	"log/slog"
	"time"

	"tonearm/internal/logging"
	"tonearm/internal/queue"
)

const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultHeartbeatTimeout  = 5 * time.Minute
)

// HeartbeatMonitor keeps in-flight tracks visibly alive and reclaims
// tracks whose worker died without unwinding.
type HeartbeatMonitor struct {
	store    *queue.Store
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

func NewHeartbeatMonitor(store *queue.Store, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	if interval <= 0 {
		interval = defaultHeartbeatInterval
	}
	if timeout <= 0 {
		timeout = defaultHeartbeatTimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HeartbeatMonitor{store: store, logger: logger, interval: interval, timeout: timeout}
}

// StartLoop refreshes the heartbeat for one track until ctx is canceled.
// Runs as a companion goroutine to stage execution.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, id int64) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.UpdateHeartbeat(ctx, id); err != nil {
				if ctx.Err() != nil {
					return
				}
				h.logger.Warn("heartbeat update failed",
					logging.Int64(logging.FieldTrackID, id),
					logging.Error(err),
				)
			}
		}
	}
}

// ReclaimStaleItems rolls tracks with expired heartbeats back to the start
// of their stage so a lane can pick them up again.
func (h *HeartbeatMonitor) ReclaimStaleItems(ctx context.Context, logger *slog.Logger) {
	cutoff := time.Now().Add(-h.timeout)
	reclaimed, err := h.store.ReclaimStaleProcessing(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("stale track reclaim failed", logging.Error(err))
		}
		return
	}
	if reclaimed > 0 {
		logger.Warn("reclaimed stale tracks",
			logging.Int64("count", reclaimed),
			logging.String(logging.FieldEventType, "stale_reclaimed"),
		)
	}
}
