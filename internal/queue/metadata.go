package queue

import (
	"encoding/json"
	"strings"
)

// Source kinds recorded on track metadata. They mirror the catalog resource
// the track arrived through and drive library placement.
const (
	SourceKindTrack    = "track"
	SourceKindAlbum    = "album"
	SourceKindPlaylist = "playlist"
)

// TrackMetadata mirrors the catalog record for one track. It is stored as
// JSON on the queue item so stages can read it without re-querying the
// catalog. Container names the collection subdirectory for album and
// playlist batches; CoverMatch enables artwork-enforced candidate matching.
type TrackMetadata struct {
	Title       string   `json:"title"`
	Artists     []string `json:"artists,omitempty"`
	Album       string   `json:"album,omitempty"`
	TrackNumber int      `json:"track_number,omitempty"`
	DurationMS  int      `json:"duration_ms,omitempty"`
	CoverURL    string   `json:"cover_url,omitempty"`
	SourceKind  string   `json:"source_kind,omitempty"`
	Container   string   `json:"container,omitempty"`
	CoverMatch  bool     `json:"cover_match,omitempty"`
}

// MetadataFromJSON builds metadata from stored JSON, falling back to the
// provided title when the payload is missing or malformed.
func MetadataFromJSON(data, fallbackTitle string) TrackMetadata {
	meta := TrackMetadata{Title: strings.TrimSpace(fallbackTitle)}
	if strings.TrimSpace(data) == "" {
		return meta
	}
	var parsed TrackMetadata
	if err := json.Unmarshal([]byte(data), &parsed); err != nil {
		return meta
	}
	if strings.TrimSpace(parsed.Title) == "" {
		parsed.Title = meta.Title
	}
	return parsed
}

// JSON serializes the metadata for persistence.
func (m TrackMetadata) JSON() string {
	data, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(data)
}

// ArtistLine joins the performing artists for display and query building.
func (m TrackMetadata) ArtistLine() string {
	return strings.Join(m.Artists, ", ")
}

// Display renders "Artists - Title" for logs and notifications.
func (m TrackMetadata) Display() string {
	line := m.ArtistLine()
	if line == "" {
		return m.Title
	}
	return line + " - " + m.Title
}

// Metadata parses the stored metadata payload, falling back to the display
// title.
func (i *Item) Metadata() TrackMetadata {
	return MetadataFromJSON(i.MetadataJSON, i.Title)
}

// SetMetadata stores the metadata payload and keeps the display title in
// sync.
func (i *Item) SetMetadata(meta TrackMetadata) {
	i.MetadataJSON = meta.JSON()
	if title := strings.TrimSpace(meta.Title); title != "" {
		i.Title = title
	}
}

// CandidateURLs parses the persisted candidate plan, best-first.
func (i *Item) CandidateURLs() []string {
	if strings.TrimSpace(i.CandidatesJSON) == "" {
		return nil
	}
	var urls []string
	if err := json.Unmarshal([]byte(i.CandidatesJSON), &urls); err != nil {
		return nil
	}
	return urls
}

// SetCandidateURLs persists the ordered candidate plan.
func (i *Item) SetCandidateURLs(urls []string) {
	if len(urls) == 0 {
		i.CandidatesJSON = ""
		return
	}
	data, err := json.Marshal(urls)
	if err != nil {
		i.CandidatesJSON = ""
		return
	}
	i.CandidatesJSON = string(data)
}
