package ytdlp

import (
	"encoding/json"
	"strconv"
	"strings"
)

type thumbnailJSON struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type videoJSON struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Channel    string          `json:"channel"`
	Uploader   string          `json:"uploader"`
	WebpageURL string          `json:"webpage_url"`
	URL        string          `json:"url"`
	Duration   *float64        `json:"duration"`
	Thumbnail  string          `json:"thumbnail"`
	Thumbnails []thumbnailJSON `json:"thumbnails"`
}

// parseVideoLine decodes one --dump-json output line. Non-JSON output
// (blank lines, stray diagnostics) is skipped.
func parseVideoLine(line string) (Video, bool) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "{") {
		return Video{}, false
	}
	var raw videoJSON
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Video{}, false
	}

	video := Video{
		ID:           raw.ID,
		Title:        raw.Title,
		Channel:      raw.Channel,
		URL:          canonicalURL(raw),
		Duration:     raw.Duration,
		ThumbnailURL: largestThumbnail(raw),
	}
	if video.Channel == "" {
		video.Channel = raw.Uploader
	}
	return video, true
}

// canonicalURL prefers the full page URL; flat extraction sometimes yields
// a bare video ID, which becomes a watch URL.
func canonicalURL(raw videoJSON) string {
	url := raw.WebpageURL
	if url == "" {
		url = raw.URL
	}
	if url == "" {
		url = raw.ID
	}
	if url == "" {
		return ""
	}
	if !strings.Contains(url, "://") {
		return "https://www.youtube.com/watch?v=" + url
	}
	return url
}

// largestThumbnail picks the biggest advertised thumbnail, falling back to
// list order and then the single thumbnail field.
func largestThumbnail(raw videoJSON) string {
	best := ""
	bestArea := -1
	for _, thumb := range raw.Thumbnails {
		if thumb.URL == "" {
			continue
		}
		area := thumb.Width * thumb.Height
		if area >= bestArea {
			best = thumb.URL
			bestArea = area
		}
	}
	if best != "" {
		return best
	}
	return raw.Thumbnail
}

// parseDownloadProgress extracts the percentage from yt-dlp --newline
// progress output such as "[download]  42.1% of 3.52MiB at 1.20MiB/s".
func parseDownloadProgress(line string) (float64, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[download]") {
		return 0, false
	}
	fields := strings.Fields(line)
	if len(fields) < 2 || !strings.HasSuffix(fields[1], "%") {
		return 0, false
	}
	percent, err := strconv.ParseFloat(strings.TrimSuffix(fields[1], "%"), 64)
	if err != nil {
		return 0, false
	}
	return percent, true
}
