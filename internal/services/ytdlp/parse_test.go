package ytdlp

import "testing"

func TestParseDownloadProgress(t *testing.T) {
	cases := []struct {
		name    string
		line    string
		percent float64
		ok      bool
	}{
		{name: "mid download", line: "[download]  42.1% of 3.52MiB at 1.20MiB/s ETA 00:02", percent: 42.1, ok: true},
		{name: "complete", line: "[download] 100% of 3.52MiB in 00:03", percent: 100, ok: true},
		{name: "destination line", line: "[download] Destination: track.webm", ok: false},
		{name: "other phase", line: "[ExtractAudio] Destination: track.mp3", ok: false},
		{name: "unrelated", line: "deleting original file track.webm", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			percent, ok := parseDownloadProgress(tc.line)
			if ok != tc.ok || percent != tc.percent {
				t.Fatalf("parseDownloadProgress(%q) = (%v, %v), want (%v, %v)", tc.line, percent, ok, tc.percent, tc.ok)
			}
		})
	}
}

func TestParseVideoLineSkipsNonJSON(t *testing.T) {
	if _, ok := parseVideoLine("WARNING: unable to fetch something"); ok {
		t.Fatal("diagnostic lines must not parse")
	}
	if _, ok := parseVideoLine("{broken json"); ok {
		t.Fatal("malformed json must not parse")
	}
	if _, ok := parseVideoLine(""); ok {
		t.Fatal("blank lines must not parse")
	}
}

func TestLargestThumbnailFallsBackToListOrder(t *testing.T) {
	raw := videoJSON{Thumbnails: []thumbnailJSON{
		{URL: "https://img/first"},
		{URL: "https://img/last"},
	}}
	// Without dimensions every entry ties at zero area; the later entry
	// wins because providers list thumbnails in ascending quality.
	if got := largestThumbnail(raw); got != "https://img/last" {
		t.Fatalf("largestThumbnail = %q, want last entry", got)
	}
}

func TestCanonicalURLPrefersWebpageURL(t *testing.T) {
	raw := videoJSON{ID: "abc", URL: "abc", WebpageURL: "https://www.youtube.com/watch?v=abc"}
	if got := canonicalURL(raw); got != "https://www.youtube.com/watch?v=abc" {
		t.Fatalf("canonicalURL = %q", got)
	}
}
