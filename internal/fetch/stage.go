package fetch

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"log/slog"

	"tonearm/internal/config"
	"tonearm/internal/logging"
	"tonearm/internal/match"
	"tonearm/internal/queue"
	"tonearm/internal/services"
	"tonearm/internal/services/ytdlp"
	"tonearm/internal/stage"
)

// Stage is the queue handler that drives acquisition for one track.
type Stage struct {
	store   *queue.Store
	cfg     *config.Config
	logger  *slog.Logger
	fetcher *Fetcher
}

// NewStage constructs the fetch handler using default dependencies.
func NewStage(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Stage {
	var fetcher *Fetcher
	tool, err := ytdlp.NewFromConfig(cfg)
	if err != nil {
		if logger != nil {
			logger.Warn("yt-dlp client unavailable", logging.Error(err))
		}
	} else {
		fetcher = NewFetcherFromConfig(tool, cfg, logger)
	}
	return NewStageWithFetcher(cfg, store, logger, fetcher)
}

// NewStageWithFetcher allows injecting the acquisition engine (used in tests).
func NewStageWithFetcher(cfg *config.Config, store *queue.Store, logger *slog.Logger, fetcher *Fetcher) *Stage {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "fetch"))
	}
	return &Stage{store: store, cfg: cfg, logger: stageLogger, fetcher: fetcher}
}

func (s *Stage) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)
	item.InitProgress("Fetching", "Starting audio acquisition")
	logger.Info(
		"starting fetch preparation",
		logging.String("track_title", strings.TrimSpace(item.Title)),
		logging.Int("candidates", len(item.CandidateURLs())),
	)
	return nil
}

func (s *Stage) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)
	meta, err := stage.RequireMetadata(item)
	if err != nil {
		return err
	}
	if s.fetcher == nil {
		return services.WrapHint(
			services.ErrConfiguration,
			"fetching",
			"download client",
			"download client unavailable",
			"install yt-dlp and make sure it is on PATH",
			nil,
		)
	}

	s.updateProgress(ctx, item, "Downloading audio", 10)
	result, err := s.fetcher.Acquire(ctx, Request{
		Target: match.Target{
			Title:      meta.Title,
			Artists:    meta.Artists,
			DurationMS: meta.DurationMS,
			CoverURL:   meta.CoverURL,
		},
		Candidates: item.CandidateURLs(),
		OutputDir:  s.cfg.Paths.StagingDir,
	})
	if err != nil {
		return err
	}

	item.ArtifactPath = result.ArtifactPath
	if result.SourceURL != "" {
		item.VideoURL = result.SourceURL
	}
	item.ProgressStage = "Fetched"
	item.ProgressPercent = 100
	item.ProgressMessage = "Audio downloaded"
	if result.Reused {
		item.ProgressMessage = "Reused existing artifact"
	}
	logger.Info(
		"fetch completed",
		logging.String("artifact_path", result.ArtifactPath),
		logging.Bool("reused", result.Reused),
		logging.Int("attempts", result.Attempts),
	)
	return nil
}

// HealthCheck verifies the download tooling is available.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	const name = "fetch"
	if s.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(s.cfg.Paths.StagingDir) == "" {
		return stage.Unhealthy(name, "staging directory not configured")
	}
	if s.fetcher == nil {
		return stage.Unhealthy(name, "download client unavailable")
	}
	binary := strings.TrimSpace(s.cfg.YtDlpBinary())
	if binary == "" {
		return stage.Unhealthy(name, "yt-dlp binary not configured")
	}
	if _, err := exec.LookPath(binary); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("yt-dlp binary %q not found", binary))
	}
	return stage.Healthy(name)
}

func (s *Stage) updateProgress(ctx context.Context, item *queue.Item, message string, percent float64) {
	logger := logging.WithContext(ctx, s.logger)
	copy := *item
	copy.ProgressMessage = message
	copy.ProgressPercent = percent
	if err := s.store.Update(ctx, &copy); err != nil {
		logger.Warn("failed to persist fetch progress", logging.Error(err))
		return
	}
	*item = copy
}
