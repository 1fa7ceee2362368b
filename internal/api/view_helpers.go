package api

import (
	"fmt"
	"strings"

	"tonearm/internal/queue"
)

// MetadataField extracts a string field from metadata JSON.
func MetadataField(metadataJSON, field, fallback string) string {
	meta := queue.MetadataFromJSON(metadataJSON, "")
	var value string
	switch field {
	case "title":
		value = meta.Title
	case "album":
		value = meta.Album
	case "container":
		value = meta.Container
	case "source_kind":
		value = meta.SourceKind
	}
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// MetadataArtist joins the artist list from metadata JSON for display.
func MetadataArtist(metadataJSON string) string {
	return queue.MetadataFromJSON(metadataJSON, "").ArtistLine()
}

// MetadataDuration renders the track duration as m:ss, or empty when unknown.
func MetadataDuration(metadataJSON string) string {
	ms := queue.MetadataFromJSON(metadataJSON, "").DurationMS
	if ms <= 0 {
		return ""
	}
	total := ms / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
