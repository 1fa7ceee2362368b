package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"tonearm/internal/logging"
	"tonearm/internal/queue"
	"tonearm/internal/services"
)

func (m *Manager) laneLogger(name string) *slog.Logger {
	logger := logging.NewComponentLogger(m.logger, fmt.Sprintf("workflow-%s-runner", name))
	return logger.With(logging.String(logging.FieldLane, name))
}

// stageLoggerForLane returns the logger stage execution reports through.
// When a per-track log file can be provisioned, stage output goes there
// (and to the hub); otherwise it falls back to the lane logger so nothing
// is lost.
func (m *Manager) stageLoggerForLane(ctx context.Context, lane *laneState, item *queue.Item) *slog.Logger {
	logger := lane.logger
	if err := m.bgLogger.Ensure(item); err != nil {
		lane.logger.Warn("background log unavailable",
			logging.Int64(logging.FieldTrackID, item.ID),
			logging.Error(err),
		)
	} else if item.BackgroundLogPath != "" {
		handler, err := m.bgLogger.CreateHandler(item.BackgroundLogPath)
		if err != nil {
			lane.logger.Warn("background log handler failed",
				logging.Int64(logging.FieldTrackID, item.ID),
				logging.Error(err),
			)
		} else {
			logger = slog.New(handler)
		}
	}
	logger = logging.WithContext(ctx, logger)
	return m.applyStageLevelOverride(ctx, logger)
}

// applyStageLevelOverride honors per-stage log level configuration, e.g.
// turning the fetcher up to debug while the rest of the daemon stays at
// info.
func (m *Manager) applyStageLevelOverride(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if m.cfg == nil || len(m.cfg.Logging.StageOverrides) == 0 {
		return logger
	}
	stageName, ok := services.StageFromContext(ctx)
	if !ok {
		return logger
	}
	levelName, ok := m.cfg.Logging.StageOverrides[stageName]
	if !ok {
		return logger
	}
	level, ok := parseStageLevel(levelName)
	if !ok {
		m.logger.Warn("unknown stage log level",
			logging.String("stage", stageName),
			logging.String("level", levelName),
		)
		return logger
	}
	return logging.WithLevelOverride(logger, level)
}

func parseStageLevel(value string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}
