// Package ffmpeg wraps the ffmpeg and ffprobe command line tools for
// lossless artifact trimming and duration probes.
package ffmpeg
