package deps

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

const versionProbeTimeout = 5 * time.Second

// ProbeVersion runs a tool with its version flag and returns the first line
// of output. yt-dlp prints a bare version string while ffmpeg and ffprobe
// print a banner, so the first line covers both. Returns an empty string
// when the probe fails.
func ProbeVersion(ctx context.Context, command, versionArg string) string {
	command = strings.TrimSpace(command)
	if command == "" {
		return ""
	}
	probeCtx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()

	output, err := exec.CommandContext(probeCtx, command, versionArg).Output()
	if err != nil {
		return ""
	}
	line := strings.TrimSpace(string(output))
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}
	return line
}
