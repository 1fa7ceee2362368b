package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tonearm/internal/config"
	"tonearm/internal/logging"
	"tonearm/internal/match"
	"tonearm/internal/services"
	"tonearm/internal/services/ytdlp"
	"tonearm/internal/textutil"
)

const (
	defaultAudioFormat   = "mp3"
	backoffBaseSeconds   = 2.5
	progressLogBucketPct = 20.0
)

// Downloader is the slice of the yt-dlp client the acquisition loop needs.
type Downloader interface {
	Probe(ctx context.Context, target string) (*ytdlp.Video, error)
	Download(ctx context.Context, req ytdlp.DownloadRequest) (string, error)
}

// Config tunes the acquisition loop.
type Config struct {
	// Retries is the number of additional attempts after the first one,
	// per candidate.
	Retries int
	// AudioFormat is the artifact extension the download tool produces.
	AudioFormat string
	// FallbackPlayerClient is the alternate extraction profile used once
	// per candidate after an anti-bot challenge. Empty disables the
	// alternate attempt.
	FallbackPlayerClient string
}

func (c Config) withDefaults() Config {
	if c.Retries < 0 {
		c.Retries = 0
	}
	if strings.TrimSpace(c.AudioFormat) == "" {
		c.AudioFormat = defaultAudioFormat
	}
	return c
}

// Request describes one track acquisition.
type Request struct {
	// Target supplies naming, the duration gate, and the raw-query last
	// resort.
	Target match.Target
	// Candidates is the ordered URL plan from resolution, best first.
	Candidates []string
	// OutputDir receives the artifact.
	OutputDir string
}

// Result reports a successful acquisition.
type Result struct {
	// ArtifactPath is the downloaded (or reused) audio file.
	ArtifactPath string
	// SourceURL is the candidate that produced the artifact, empty when an
	// existing artifact was reused.
	SourceURL string
	// Reused is true when the artifact already existed and no network
	// activity occurred.
	Reused bool
	// Attempts counts download tool invocations, including alternate-client
	// retries.
	Attempts int
}

// Fetcher drives candidate fallback, retries, and challenge recovery around
// the download tool.
type Fetcher struct {
	tool       Downloader
	classifier Classifier
	cfg        Config
	sleep      func(ctx context.Context, d time.Duration) error
	logger     *slog.Logger
}

// Option adjusts fetcher construction.
type Option func(*Fetcher)

// WithClassifier replaces the failure classifier.
func WithClassifier(classifier Classifier) Option {
	return func(f *Fetcher) {
		if classifier != nil {
			f.classifier = classifier
		}
	}
}

// WithSleep replaces the backoff sleep, primarily for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Fetcher) {
		if sleep != nil {
			f.sleep = sleep
		}
	}
}

// NewFetcher builds a fetcher around the download tool.
func NewFetcher(tool Downloader, cfg Config, logger *slog.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	fetcher := &Fetcher{
		tool:       tool,
		classifier: NewClassifier(),
		cfg:        cfg.withDefaults(),
		sleep:      sleepContext,
		logger:     logger.With(logging.String("component", "fetcher")),
	}
	for _, opt := range opts {
		opt(fetcher)
	}
	return fetcher
}

// NewFetcherFromConfig builds a fetcher using application configuration.
func NewFetcherFromConfig(tool Downloader, cfg *config.Config, logger *slog.Logger, opts ...Option) *Fetcher {
	fetchCfg := Config{}
	if cfg != nil {
		fetchCfg = Config{
			Retries:              cfg.Fetch.Retries,
			AudioFormat:          cfg.Fetch.AudioFormat,
			FallbackPlayerClient: cfg.Fetch.FallbackPlayerClient,
		}
	}
	return NewFetcher(tool, fetchCfg, logger, opts...)
}

// ArtifactBaseName returns the sanitized file stem used for a track's
// artifact.
func ArtifactBaseName(target match.Target) string {
	return textutil.SanitizeFileName(target.ArtistTitleQuery())
}

// Acquire walks the candidate plan until exactly one artifact exists on disk.
// If the expected artifact is already present the call returns immediately
// without touching the network.
func (f *Fetcher) Acquire(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Target.Title) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "fetch", "acquire", "track title is required", nil)
	}
	if strings.TrimSpace(req.OutputDir) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "fetch", "acquire", "output directory is required", nil)
	}

	baseName := ArtifactBaseName(req.Target)
	artifactPath := filepath.Join(req.OutputDir, baseName+"."+f.cfg.AudioFormat)

	if info, err := os.Stat(artifactPath); err == nil && info.Mode().IsRegular() {
		f.logger.Info("existing artifact found, skipping acquisition",
			logging.String("artifact_path", artifactPath))
		return Result{ArtifactPath: artifactPath, Reused: true}, nil
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "fetch", "acquire", "create output directory", err)
	}

	candidates := req.Candidates
	if len(candidates) == 0 {
		// Last resort: hand the search query itself to the download tool.
		candidates = []string{req.Target.ArtistTitleQuery()}
	}

	var (
		totalAttempts int
		lastErr       error
		sawAntiBot    bool
		sawHardAuth   bool
	)
	for _, target := range candidates {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if f.preflightRejects(ctx, target, req.Target.DurationMS) {
			continue
		}

		outcome := f.tryCandidate(ctx, target, req.OutputDir, baseName)
		totalAttempts += outcome.attempts
		if outcome.path != "" {
			f.logger.Info("artifact acquired",
				logging.String("artifact_path", outcome.path),
				logging.String("candidate_url", target),
				logging.Int("attempts", totalAttempts))
			return Result{ArtifactPath: outcome.path, SourceURL: target, Attempts: totalAttempts}, nil
		}
		if outcome.lastErr != nil {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			lastErr = outcome.lastErr
		}
		sawAntiBot = sawAntiBot || outcome.antiBot
		sawHardAuth = sawHardAuth || outcome.hardAuth
	}

	switch {
	case sawHardAuth:
		return Result{}, services.WrapHint(services.ErrHardAuth, "fetch", "download",
			"browser cookie store could not be decrypted",
			"remove fetch.cookies_from_browser or run as the browser profile owner", lastErr)
	case sawAntiBot:
		return Result{}, services.WrapHint(services.ErrAntiBot, "fetch", "download",
			"every candidate hit a verification challenge",
			"set fetch.cookies_from_browser to reuse a signed-in browser session", lastErr)
	default:
		return Result{}, services.Wrap(services.ErrNoCandidate, "fetch", "download",
			fmt.Sprintf("no candidate produced an artifact for %q", baseName), lastErr)
	}
}

// preflightRejects probes candidate metadata without downloading and reports
// whether the probed duration fails the track's duration gate. Probe errors
// never reject: the download attempt decides.
func (f *Fetcher) preflightRejects(ctx context.Context, target string, targetMS int) bool {
	if targetMS <= 0 {
		return false
	}
	video, err := f.tool.Probe(ctx, target)
	if err != nil {
		f.logger.Debug("metadata preflight failed, attempting download anyway",
			logging.String("candidate_url", target),
			logging.Error(err))
		return false
	}
	if video == nil || video.Duration == nil {
		return false
	}
	if !match.DurationOK(targetMS, video.Duration) {
		f.logger.Info("candidate rejected by duration preflight",
			logging.String("candidate_url", target),
			logging.Float64("duration_seconds", *video.Duration),
			logging.Int("target_duration_ms", targetMS))
		return true
	}
	return false
}

type candidateOutcome struct {
	path     string
	attempts int
	antiBot  bool
	hardAuth bool
	lastErr  error
}

// tryCandidate runs the bounded attempt loop for one candidate. An empty
// path with a nil-or-set lastErr means the candidate was abandoned.
func (f *Fetcher) tryCandidate(ctx context.Context, target, outputDir, baseName string) candidateOutcome {
	logger := f.logger.With(logging.String("candidate_url", target))
	maxAttempts := f.cfg.Retries + 1
	outcome := candidateOutcome{}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		path, err := f.download(ctx, target, outputDir, baseName, "")
		outcome.attempts++
		if err == nil {
			outcome.path = path
			return outcome
		}
		outcome.lastErr = err
		if ctx.Err() != nil {
			return outcome
		}

		kind := f.classifier.Classify(err)
		switch kind {
		case FailureHardAuth:
			outcome.hardAuth = true
			logger.Warn("cookie store unreadable, abandoning candidate",
				logging.String(logging.FieldErrorKind, kind.String()),
				logging.Error(err))
			return outcome
		case FailureAntiBot:
			outcome.antiBot = true
			if f.cfg.FallbackPlayerClient == "" {
				logger.Warn("verification challenge, abandoning candidate",
					logging.String(logging.FieldErrorKind, kind.String()),
					logging.Error(err))
				return outcome
			}
			logger.Warn("verification challenge, retrying with alternate player client",
				logging.String(logging.FieldErrorKind, kind.String()),
				logging.String("player_client", f.cfg.FallbackPlayerClient))
			path, err = f.download(ctx, target, outputDir, baseName, f.cfg.FallbackPlayerClient)
			outcome.attempts++
			if err == nil {
				outcome.path = path
				return outcome
			}
			outcome.lastErr = err
			logger.Warn("alternate player client failed, abandoning candidate",
				logging.Error(err))
			return outcome
		default:
			if attempt+1 >= maxAttempts {
				logger.Warn("candidate exhausted retry budget",
					logging.Int("attempts", outcome.attempts),
					logging.Error(err))
				return outcome
			}
			delay := time.Duration(backoffBaseSeconds * float64(attempt+1) * float64(time.Second))
			logger.Debug("download attempt failed, backing off",
				logging.Int("attempt", attempt+1),
				logging.Duration("backoff", delay),
				logging.Error(err))
			if err := f.sleep(ctx, delay); err != nil {
				outcome.lastErr = err
				return outcome
			}
		}
	}
	return outcome
}

func (f *Fetcher) download(ctx context.Context, target, outputDir, baseName, playerClient string) (string, error) {
	sampler := logging.NewProgressSampler(progressLogBucketPct)
	return f.tool.Download(ctx, ytdlp.DownloadRequest{
		Target:       target,
		OutputDir:    outputDir,
		BaseName:     baseName,
		PlayerClient: playerClient,
		OnProgress: func(percent float64) {
			if sampler.ShouldLog(percent, "fetching", "downloading audio") {
				f.logger.Debug("download progress",
					logging.Float64(logging.FieldProgressPercent, percent))
			}
		},
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
