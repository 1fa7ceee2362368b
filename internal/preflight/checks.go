package preflight

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"tonearm/internal/config"
	"tonearm/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable,
// writable, and traversable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSpotifyCredentials verifies that client credentials are configured.
// Token exchange is deliberately not attempted here so preflight stays
// offline; an invalid secret surfaces on the first resolve instead.
func CheckSpotifyCredentials(cfg *config.Config) Result {
	const name = "Spotify credentials"
	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Spotify.ClientID) == "" {
		return Result{Name: name, Detail: "missing client id"}
	}
	if strings.TrimSpace(cfg.Spotify.ClientSecret) == "" {
		return Result{Name: name, Detail: "missing client secret"}
	}
	return Result{Name: name, Passed: true, Detail: "Configured"}
}

// CheckSystemDeps evaluates the external tools the lanes shell out to. Both
// the daemon and the CLI deps command use this to avoid duplicating the
// requirements list. FFprobe is optional because the trimmer degrades to
// delivering untrimmed audio when duration validation is unavailable.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.YtDlpBinary(),
			Description: "Required for audio acquisition",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for duration trimming",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Measures audio duration during trim validation",
			Optional:    true,
		},
	}
	return deps.CheckBinaries(requirements)
}
