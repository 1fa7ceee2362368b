package match

import (
	"context"
	"strings"

	"tonearm/internal/coverart"
)

// Target identifies the catalog track a search should locate.
type Target struct {
	Title      string
	Artists    []string
	DurationMS int
	CoverURL   string
}

// ArtistTitleQuery renders the primary search query.
func (t Target) ArtistTitleQuery() string {
	return strings.Join(t.Artists, ", ") + " - " + t.Title
}

// TitleQuery renders the title-only search query.
func (t Target) TitleQuery() string {
	return t.Title
}

// Candidate is one raw search result.
type Candidate struct {
	Title        string
	Channel      string
	URL          string
	Duration     *float64 // seconds, nil when the provider omitted it
	ThumbnailURL string   // largest available thumbnail, empty when unknown
}

// Extraction selects how much detail a search pulls per result.
type Extraction int

const (
	// ExtractionFlat returns titles, channels, and URLs only. Cheap.
	ExtractionFlat Extraction = iota
	// ExtractionFull resolves every result, including thumbnails.
	ExtractionFull
)

// Searcher runs free-text searches against the video platform.
type Searcher interface {
	Search(ctx context.Context, query string, limit int, mode Extraction) ([]Candidate, error)
}

// CoverSource produces perceptual hashes for artwork URLs. A nil hash means
// the artwork could not be fetched or decoded.
type CoverSource interface {
	FromURL(ctx context.Context, rawURL string) *coverart.Hash
}

// Stage labels recorded on picks and in logs.
const (
	StageArtistTitle = "artist-title"
	StageTitleOnly   = "title-only"
	StageCoverArt    = "cover-art"
)

// Pick is the winning candidate of a resolution stage.
type Pick struct {
	Candidate
	Stage        string
	Score        float64
	Trusted      bool // chosen via the trusted-source short-circuit, unscored
	HashDistance *int // cover distance used in scoring, when available
}

// Resolution is the ordered acquisition plan for one track.
type Resolution struct {
	Primary  *Pick
	Fallback []Candidate
	Query    string // raw artist-title query, the last resort
}

// CandidateURLs flattens the resolution into the ordered URL list the
// downloader walks. An empty resolution degrades to the raw search query,
// which the download tool resolves itself.
func (r Resolution) CandidateURLs() []string {
	urls := make([]string, 0, 1+len(r.Fallback))
	if r.Primary != nil && r.Primary.URL != "" {
		urls = append(urls, r.Primary.URL)
	}
	for _, c := range r.Fallback {
		if c.URL != "" {
			urls = append(urls, c.URL)
		}
	}
	if len(urls) == 0 && strings.TrimSpace(r.Query) != "" {
		urls = append(urls, r.Query)
	}
	return urls
}
