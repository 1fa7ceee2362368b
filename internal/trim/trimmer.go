package trim

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"log/slog"

	"tonearm/internal/config"
	"tonearm/internal/logging"
	"tonearm/internal/queue"
	"tonearm/internal/services/ffmpeg"
	"tonearm/internal/stage"
)

// AudioTrimmer is the lossless copy-trim operation the stage depends on.
type AudioTrimmer interface {
	TrimCopy(ctx context.Context, path string, targetMS int) (string, bool, error)
}

// Trimmer is the stage handler that aligns artifact length with the catalog.
type Trimmer struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	client AudioTrimmer
}

// NewTrimmer constructs the trim handler using default dependencies.
func NewTrimmer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Trimmer {
	var client AudioTrimmer
	ffmpegClient, err := ffmpeg.NewFromConfig(cfg)
	if err != nil {
		if logger != nil {
			logger.Warn("ffmpeg client unavailable", logging.Error(err))
		}
	} else {
		client = ffmpegClient
	}
	return NewTrimmerWithDependencies(cfg, store, logger, client)
}

// NewTrimmerWithDependencies allows injecting the trim client (used in tests).
func NewTrimmerWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, client AudioTrimmer) *Trimmer {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "trimmer"))
	}
	return &Trimmer{store: store, cfg: cfg, logger: stageLogger, client: client}
}

func (t *Trimmer) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, t.logger)
	item.InitProgress("Trimming", "Checking track duration")
	logger.Info("starting trim preparation", logging.String("track_title", strings.TrimSpace(item.Title)))
	return nil
}

func (t *Trimmer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, t.logger)
	path, err := stage.RequireArtifact(item)
	if err != nil {
		return err
	}

	meta := item.Metadata()
	if meta.DurationMS <= 0 {
		item.ProgressStage = "Trimmed"
		item.ProgressPercent = 100
		item.ProgressMessage = "No catalog duration, keeping audio as delivered"
		logger.Info("no target duration, skipping trim", logging.String("artifact_path", path))
		return nil
	}
	if t.client == nil {
		item.ProgressStage = "Trimmed"
		item.ProgressPercent = 100
		item.ProgressMessage = "Trim unavailable, keeping audio as delivered"
		logger.Warn("ffmpeg unavailable, skipping trim", logging.String("artifact_path", path))
		return nil
	}

	t.updateProgress(ctx, item, "Trimming audio to catalog duration", 30)
	newPath, trimmed, err := t.client.TrimCopy(ctx, path, meta.DurationMS)
	switch {
	case err != nil:
		// Best effort: the untrimmed artifact is still deliverable.
		item.ProgressMessage = "Trim failed, keeping original audio"
		logger.Warn(
			"trim failed, keeping original artifact",
			logging.String("artifact_path", path),
			logging.Int("target_duration_ms", meta.DurationMS),
			logging.Error(err),
		)
	case !trimmed:
		item.ProgressMessage = "No trim required"
	case newPath != path:
		item.ArtifactPath = newPath
		item.ProgressMessage = "Trimmed audio kept under temporary name"
		logger.Warn(
			"trimmed artifact could not replace original",
			logging.String("artifact_path", newPath),
		)
	default:
		item.ProgressMessage = fmt.Sprintf("Trimmed to %.1fs", float64(meta.DurationMS)/1000)
		logger.Info(
			"trim completed",
			logging.String("artifact_path", newPath),
			logging.Int("target_duration_ms", meta.DurationMS),
		)
	}

	item.ProgressStage = "Trimmed"
	item.ProgressPercent = 100
	return nil
}

// HealthCheck verifies the trim tooling is available.
func (t *Trimmer) HealthCheck(ctx context.Context) stage.Health {
	const name = "trimmer"
	if t.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if t.client == nil {
		return stage.Unhealthy(name, "ffmpeg client unavailable")
	}
	binary := strings.TrimSpace(t.cfg.FFmpegBinary())
	if binary == "" {
		return stage.Unhealthy(name, "ffmpeg binary not configured")
	}
	if _, err := exec.LookPath(binary); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("ffmpeg binary %q not found", binary))
	}
	return stage.Healthy(name)
}

func (t *Trimmer) updateProgress(ctx context.Context, item *queue.Item, message string, percent float64) {
	logger := logging.WithContext(ctx, t.logger)
	copy := *item
	copy.ProgressMessage = message
	copy.ProgressPercent = percent
	if err := t.store.Update(ctx, &copy); err != nil {
		logger.Warn("failed to persist trim progress", logging.Error(err))
		return
	}
	*item = copy
}
