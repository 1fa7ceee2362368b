package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tonearm/internal/config"
)

const (
	defaultTrimTimeout  = 10 * time.Minute
	defaultProbeTimeout = 30 * time.Second
)

// Config holds binary locations and operation timeouts.
type Config struct {
	FFmpegBinary  string
	FFprobeBinary string
	TrimTimeout   time.Duration
	ProbeTimeout  time.Duration
}

// Client invokes ffmpeg and ffprobe for post-download audio handling.
type Client struct {
	cfg  Config
	exec Executor
}

// Option adjusts client construction.
type Option func(*Client)

// WithExecutor replaces the process executor, primarily for tests.
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// New builds a client from explicit settings.
func New(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.FFmpegBinary) == "" {
		return nil, fmt.Errorf("ffmpeg binary not configured")
	}
	if cfg.TrimTimeout <= 0 {
		cfg.TrimTimeout = defaultTrimTimeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
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
		return nil, fmt.Errorf("configuration is required")
	}
	return New(Config{
		FFmpegBinary:  cfg.FFmpegBinary(),
		FFprobeBinary: cfg.FFprobeBinary(),
	}, opts...)
}

// TrimCopy shortens the audio file at path to targetMS using a stream copy,
// so no re-encode occurs. The trimmed output is written next to the original
// and atomically swapped into place. A zero or negative targetMS is a no-op.
//
// The original file is never lost: when the copy step fails the partial
// output is removed and an error is returned with the source untouched, and
// when only the final swap fails the trimmed file is returned under its
// temporary name.
func (c *Client) TrimCopy(ctx context.Context, path string, targetMS int) (string, bool, error) {
	if targetMS <= 0 {
		return path, false, nil
	}
	if strings.TrimSpace(path) == "" {
		return "", false, fmt.Errorf("trim input path is required")
	}

	seconds := float64(targetMS) / 1000.0
	if seconds < 0 {
		seconds = 0
	}
	ext := filepath.Ext(path)
	tmpPath := strings.TrimSuffix(path, ext) + ".trim" + ext

	ctx, cancel := context.WithTimeout(ctx, c.cfg.TrimTimeout)
	defer cancel()

	args := []string{
		"-y",
		"-i", path,
		"-t", fmt.Sprintf("%.3f", seconds),
		"-c", "copy",
		tmpPath,
	}
	if err := c.exec.Run(ctx, c.cfg.FFmpegBinary, args, nil); err != nil {
		_ = os.Remove(tmpPath)
		return "", false, fmt.Errorf("ffmpeg trim: %w", err)
	}
	if _, err := os.Stat(tmpPath); err != nil {
		return "", false, fmt.Errorf("ffmpeg produced no trimmed file at %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		// The trimmed artifact is intact, just under its temporary name.
		return tmpPath, true, nil
	}
	return path, true, nil
}

// ProbeDuration reports the container duration of the file at path in
// seconds, as measured by ffprobe.
func (c *Client) ProbeDuration(ctx context.Context, path string) (float64, error) {
	if strings.TrimSpace(c.cfg.FFprobeBinary) == "" {
		return 0, fmt.Errorf("ffprobe binary not configured")
	}
	if strings.TrimSpace(path) == "" {
		return 0, fmt.Errorf("probe input path is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	var raw string
	err := c.exec.Run(ctx, c.cfg.FFprobeBinary, args, func(line string) {
		if raw == "" {
			raw = strings.TrimSpace(line)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w", err)
	}
	if raw == "" {
		return 0, fmt.Errorf("ffprobe returned no duration for %s", path)
	}
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration %q: %w", raw, err)
	}
	return seconds, nil
}
