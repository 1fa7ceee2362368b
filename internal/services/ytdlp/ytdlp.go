package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tonearm/internal/config"
)

const (
	defaultSearchTimeout   = 2 * time.Minute
	defaultDownloadTimeout = 30 * time.Minute
	defaultAudioFormat     = "mp3"
	defaultAudioQuality    = "0"

	// Mobile profile; the desktop web client trips bot checks far more often.
	browserUserAgent = "Mozilla/5.0 (Linux; Android 12; Pixel 6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0 Mobile Safari/537.36"
)

// Video is one entry from a search or metadata probe.
type Video struct {
	ID           string
	Title        string
	Channel      string
	URL          string
	Duration     *float64 // seconds, nil when the extractor omitted it
	ThumbnailURL string
}

// SearchMode selects flat or full extraction.
type SearchMode int

const (
	// SearchFlat lists results without resolving each video. Fast, but
	// thumbnails and some durations are missing.
	SearchFlat SearchMode = iota
	// SearchFull resolves every result, including thumbnails.
	SearchFull
)

// Config captures the runtime settings for the yt-dlp wrapper.
type Config struct {
	Binary             string
	SearchTimeout      time.Duration
	DownloadTimeout    time.Duration
	AudioFormat        string
	AudioQuality       string
	CookiesFromBrowser string
	// PlayerClient is the default extraction profile for probes and
	// downloads. Empty uses the tool default.
	PlayerClient string
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	cfg  Config
	exec Executor
}

// New constructs a yt-dlp client.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.Binary = strings.TrimSpace(cfg.Binary)
	if cfg.Binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = defaultSearchTimeout
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = defaultDownloadTimeout
	}
	if strings.TrimSpace(cfg.AudioFormat) == "" {
		cfg.AudioFormat = defaultAudioFormat
	}
	if strings.TrimSpace(cfg.AudioQuality) == "" {
		cfg.AudioQuality = defaultAudioQuality
	}
	client := &Client{cfg: cfg, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig builds a client from application configuration.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("configuration required")
	}
	return New(Config{
		Binary:             cfg.YtDlpBinary(),
		SearchTimeout:      time.Duration(cfg.Fetch.SearchTimeout) * time.Second,
		DownloadTimeout:    time.Duration(cfg.Fetch.DownloadTimeout) * time.Second,
		AudioFormat:        cfg.Fetch.AudioFormat,
		AudioQuality:       cfg.Fetch.AudioQuality,
		CookiesFromBrowser: cfg.Fetch.CookiesFromBrowser,
		PlayerClient:       cfg.Fetch.PlayerClient,
	}, opts...)
}

// Search runs a ytsearch query and returns parsed entries in result order.
func (c *Client) Search(ctx context.Context, query string, limit int, mode SearchMode) ([]Video, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query required")
	}
	if limit <= 0 {
		limit = 10
	}
	searchCtx, cancel := context.WithTimeout(ctx, c.cfg.SearchTimeout)
	defer cancel()

	args := []string{"--dump-json", "--no-warnings", "--ignore-config", "--no-cache-dir"}
	if mode == SearchFlat {
		args = append(args, "--flat-playlist")
	}
	args = append(args, fmt.Sprintf("ytsearch%d:%s", limit, query))

	var videos []Video
	err := c.exec.Run(searchCtx, c.cfg.Binary, args, func(line string) {
		if video, ok := parseVideoLine(line); ok {
			videos = append(videos, video)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("yt-dlp search: %w", err)
	}
	return videos, nil
}

// Probe resolves metadata for a candidate URL or raw search query without
// downloading anything.
func (c *Client) Probe(ctx context.Context, target string) (*Video, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.New("probe target required")
	}
	probeCtx, cancel := context.WithTimeout(ctx, c.cfg.SearchTimeout)
	defer cancel()

	args := []string{
		"--dump-json",
		"--no-download",
		"--no-warnings",
		"--ignore-config",
		"--no-cache-dir",
		"--no-playlist",
		"--default-search", "ytsearch",
	}
	if client := strings.TrimSpace(c.cfg.PlayerClient); client != "" {
		args = append(args, "--extractor-args", "youtube:player_client="+client)
	}
	args = append(args, target)

	var first *Video
	err := c.exec.Run(probeCtx, c.cfg.Binary, args, func(line string) {
		if first != nil {
			return
		}
		if video, ok := parseVideoLine(line); ok {
			first = &video
		}
	})
	if err != nil {
		return nil, fmt.Errorf("yt-dlp probe: %w", err)
	}
	if first == nil {
		return nil, fmt.Errorf("yt-dlp probe returned no metadata for %s", target)
	}
	return first, nil
}

// DownloadRequest describes one download attempt.
type DownloadRequest struct {
	// Target is a candidate URL or a raw search query.
	Target    string
	OutputDir string
	// BaseName is the artifact name without extension.
	BaseName string
	// PlayerClient overrides the configured extraction profile for this
	// attempt.
	PlayerClient string
	// OnProgress receives download percentages parsed from tool output.
	OnProgress func(percent float64)
}

// Download fetches the target and extracts audio, returning the artifact
// path. The artifact lands at OutputDir/BaseName.<format>.
func (c *Client) Download(ctx context.Context, req DownloadRequest) (string, error) {
	if strings.TrimSpace(req.Target) == "" {
		return "", errors.New("download target required")
	}
	if strings.TrimSpace(req.OutputDir) == "" || strings.TrimSpace(req.BaseName) == "" {
		return "", errors.New("output directory and base name required")
	}

	base := filepath.Join(req.OutputDir, req.BaseName)
	template := base + ".%(ext)s"
	artifact := base + "." + c.cfg.AudioFormat

	dlCtx, cancel := context.WithTimeout(ctx, c.cfg.DownloadTimeout)
	defer cancel()

	args := []string{
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", c.cfg.AudioFormat,
		"--audio-quality", c.cfg.AudioQuality,
		"--output", template,
		"--no-playlist",
		"--no-cache-dir",
		"--ignore-config",
		"--no-warnings",
		"--newline",
		"--default-search", "ytsearch",
		"--retries", "10",
		"--fragment-retries", "10",
		"--extractor-retries", "5",
		"--socket-timeout", "30",
		"--concurrent-fragments", "1",
		"--no-check-certificates",
		"--geo-bypass",
		"--user-agent", browserUserAgent,
	}
	if client := firstNonEmpty(req.PlayerClient, c.cfg.PlayerClient); client != "" {
		args = append(args, "--extractor-args", "youtube:player_client="+client)
	}
	if browser := strings.TrimSpace(c.cfg.CookiesFromBrowser); browser != "" {
		args = append(args, "--cookies-from-browser", browser)
	}
	args = append(args, req.Target)

	err := c.exec.Run(dlCtx, c.cfg.Binary, args, func(line string) {
		if req.OnProgress == nil {
			return
		}
		if percent, ok := parseDownloadProgress(line); ok {
			req.OnProgress(percent)
		}
	})
	if err != nil {
		return "", fmt.Errorf("yt-dlp download: %w", err)
	}

	if _, statErr := os.Stat(artifact); statErr != nil {
		return "", fmt.Errorf("yt-dlp produced no %s artifact at %s", c.cfg.AudioFormat, artifact)
	}
	return artifact, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
