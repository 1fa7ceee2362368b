// Package ytdlp wraps the yt-dlp command line tool for video search,
// metadata probes, and audio extraction.
package ytdlp
