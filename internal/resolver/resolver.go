package resolver

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"log/slog"

	"tonearm/internal/config"
	"tonearm/internal/coverart"
	"tonearm/internal/logging"
	"tonearm/internal/match"
	"tonearm/internal/queue"
	"tonearm/internal/services"
	"tonearm/internal/services/ytdlp"
	"tonearm/internal/stage"
)

// Resolver is the stage handler that locates candidate audio for a track.
type Resolver struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	searcher match.Searcher
	matcher  *match.Resolver
}

// NewResolver constructs the resolve handler using default dependencies.
func NewResolver(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Resolver {
	var searcher match.Searcher
	client, err := ytdlp.NewFromConfig(cfg)
	if err != nil {
		if logger != nil {
			logger.Warn("yt-dlp client unavailable", logging.Error(err))
		}
	} else {
		searcher = searchAdapter{client: client}
	}
	covers := coverart.NewSource(time.Duration(cfg.Search.ThumbnailTimeout) * time.Second)
	return NewResolverWithDependencies(cfg, store, logger, searcher, covers)
}

// NewResolverWithDependencies allows injecting collaborators (used in tests).
func NewResolverWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, searcher match.Searcher, covers match.CoverSource) *Resolver {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "resolver"))
	}
	matchCfg := match.Config{
		PickLimit:        cfg.Search.ResultLimit,
		GatherLimit:      cfg.Search.FallbackLimit,
		MaxCoverDistance: cfg.Search.MaxHashDistance,
	}
	return &Resolver{
		store:    store,
		cfg:      cfg,
		logger:   stageLogger,
		searcher: searcher,
		matcher:  match.NewResolver(searcher, covers, matchCfg, stageLogger),
	}
}

func (r *Resolver) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, r.logger)
	item.InitProgress("Resolving", "Searching for matching audio")
	logger.Info("starting candidate resolution", logging.String("track_title", strings.TrimSpace(item.Title)))
	return nil
}

func (r *Resolver) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, r.logger)
	meta, err := stage.RequireMetadata(item)
	if err != nil {
		return err
	}
	if r.searcher == nil {
		return services.WrapHint(
			services.ErrConfiguration,
			"resolving",
			"search client",
			"search client unavailable",
			"install yt-dlp and make sure it is on PATH",
			nil,
		)
	}

	target := match.Target{
		Title:      meta.Title,
		Artists:    meta.Artists,
		DurationMS: meta.DurationMS,
		CoverURL:   meta.CoverURL,
	}
	if !meta.CoverMatch {
		// Playlist batches skip artwork-enforced matching; without a
		// cover the art stage stands down on its own.
		target.CoverURL = ""
	}

	r.updateProgress(ctx, item, "Searching for candidates", 10)
	resolution, err := r.matcher.Resolve(ctx, target)
	if err != nil {
		return services.Wrap(services.ErrTransient, "resolving", "resolve candidates", "Candidate search interrupted", err)
	}

	urls := resolution.CandidateURLs()
	item.SetCandidateURLs(urls)
	if resolution.Primary != nil {
		item.MatchedURL = resolution.Primary.URL
		item.MatchStrategy = resolution.Primary.Stage
		item.MatchScore = 0
		if !resolution.Primary.Trusted {
			item.MatchScore = resolution.Primary.Score
		}
	} else {
		item.MatchedURL = ""
		item.MatchStrategy = ""
		item.MatchScore = 0
	}

	item.ProgressStage = "Resolved"
	item.ProgressPercent = 100
	switch {
	case resolution.Primary != nil:
		item.ProgressMessage = fmt.Sprintf("Matched %s", resolution.Primary.URL)
		logger.Info(
			"candidate plan resolved",
			logging.String("matched_url", resolution.Primary.URL),
			logging.String("strategy", resolution.Primary.Stage),
			logging.Bool("trusted", resolution.Primary.Trusted),
			logging.Int("candidates", len(urls)),
		)
	case len(urls) > 0:
		item.ProgressMessage = fmt.Sprintf("No direct match, %d fallback candidates", len(urls))
		logger.Info("no strategy winner, fallback plan recorded", logging.Int("candidates", len(urls)))
	default:
		item.ProgressMessage = "No candidates found, fetch will search directly"
		logger.Warn("empty candidate plan", logging.String("query", resolution.Query))
	}
	return nil
}

// HealthCheck verifies the search tooling is available.
func (r *Resolver) HealthCheck(ctx context.Context) stage.Health {
	const name = "resolver"
	if r.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if r.searcher == nil {
		return stage.Unhealthy(name, "search client unavailable")
	}
	binary := strings.TrimSpace(r.cfg.YtDlpBinary())
	if binary == "" {
		return stage.Unhealthy(name, "yt-dlp binary not configured")
	}
	if _, err := exec.LookPath(binary); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("yt-dlp binary %q not found", binary))
	}
	return stage.Healthy(name)
}

func (r *Resolver) updateProgress(ctx context.Context, item *queue.Item, message string, percent float64) {
	logger := logging.WithContext(ctx, r.logger)
	copy := *item
	copy.ProgressMessage = message
	copy.ProgressPercent = percent
	if err := r.store.Update(ctx, &copy); err != nil {
		logger.Warn("failed to persist resolver progress", logging.Error(err))
		return
	}
	*item = copy
}

// searchAdapter bridges the yt-dlp client to the match searcher contract.
type searchAdapter struct {
	client *ytdlp.Client
}

func (a searchAdapter) Search(ctx context.Context, query string, limit int, mode match.Extraction) ([]match.Candidate, error) {
	searchMode := ytdlp.SearchFlat
	if mode == match.ExtractionFull {
		searchMode = ytdlp.SearchFull
	}
	videos, err := a.client.Search(ctx, query, limit, searchMode)
	if err != nil {
		return nil, err
	}
	candidates := make([]match.Candidate, 0, len(videos))
	for _, video := range videos {
		candidates = append(candidates, match.Candidate{
			Title:        video.Title,
			Channel:      video.Channel,
			URL:          video.URL,
			Duration:     video.Duration,
			ThumbnailURL: video.ThumbnailURL,
		})
	}
	return candidates, nil
}
