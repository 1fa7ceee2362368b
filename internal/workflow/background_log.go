package workflow

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tonearm/internal/config"
	"tonearm/internal/logging"
	"tonearm/internal/queue"
)

// BackgroundLogger provisions per-track log files under the daemon log
// directory. A noisy download logs to its own file instead of drowning the
// daemon log, while the shared hub still receives every event for API
// followers.
type BackgroundLogger struct {
	cfg     *config.Config
	hub     *logging.StreamHub
	baseDir string
}

func NewBackgroundLogger(cfg *config.Config, hub *logging.StreamHub) *BackgroundLogger {
	baseDir := ""
	if cfg != nil && strings.TrimSpace(cfg.Paths.LogDir) != "" {
		baseDir = filepath.Join(cfg.Paths.LogDir, "background")
	}
	return &BackgroundLogger{cfg: cfg, hub: hub, baseDir: baseDir}
}

// Ensure assigns a log file path to the track if it does not already carry
// one. The path sticks across stages so one track reads as one file.
func (b *BackgroundLogger) Ensure(item *queue.Item) error {
	if b == nil || b.baseDir == "" || item == nil {
		return nil
	}
	if strings.TrimSpace(item.BackgroundLogPath) != "" {
		return nil
	}
	if err := os.MkdirAll(b.baseDir, 0o755); err != nil {
		return fmt.Errorf("create background log dir: %w", err)
	}
	slug := sanitizeSlug(item.Title)
	if slug == "" {
		slug = "track"
	}
	name := fmt.Sprintf("%s-%d-%s.log", time.Now().UTC().Format("20060102-150405"), item.ID, slug)
	item.BackgroundLogPath = filepath.Join(b.baseDir, name)
	return nil
}

// CreateHandler opens a slog handler that writes to the per-track file and
// mirrors records into the hub.
func (b *BackgroundLogger) CreateHandler(path string) (slog.Handler, error) {
	if b == nil {
		return nil, errors.New("background logger not configured")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("background log path is empty")
	}
	opts := logging.Options{
		OutputPaths:      []string{path},
		ErrorOutputPaths: []string{path},
		Stream:           b.hub,
	}
	if b.cfg != nil {
		opts.Level = b.cfg.Logging.Level
		opts.Format = b.cfg.Logging.Format
	}
	logger, err := logging.New(opts)
	if err != nil {
		return nil, fmt.Errorf("open background log %s: %w", path, err)
	}
	return logger.Handler(), nil
}

// sanitizeSlug reduces a track title to a filesystem-safe token.
func sanitizeSlug(value string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ' || r == '-' || r == '_' || r == '.':
			sb.WriteByte('-')
		}
	}
	return strings.Trim(sb.String(), "-")
}
