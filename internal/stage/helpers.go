package stage

import (
	"os"
	"strings"

	"tonearm/internal/queue"
	"tonearm/internal/services"
)

// RequireMetadata returns the catalog metadata stored on the item.
// On failure it returns a services.ErrValidation suitable for stage Execute
// methods.
func RequireMetadata(item *queue.Item) (queue.TrackMetadata, error) {
	meta := item.Metadata()
	if strings.TrimSpace(meta.Title) == "" {
		return queue.TrackMetadata{}, services.Wrap(
			services.ErrValidation, "stage", "read metadata",
			"track metadata missing a title; re-add the track", nil)
	}
	return meta, nil
}

// RequireArtifact returns the staged artifact path recorded on the item after
// verifying the file still exists on disk.
func RequireArtifact(item *queue.Item) (string, error) {
	path := strings.TrimSpace(item.ArtifactPath)
	if path == "" {
		return "", services.Wrap(
			services.ErrValidation, "stage", "locate artifact",
			"no staged artifact recorded; rerun fetch", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", services.Wrap(
			services.ErrValidation, "stage", "locate artifact",
			"staged artifact missing from disk; rerun fetch", err)
	}
	if info.IsDir() {
		return "", services.Wrap(
			services.ErrValidation, "stage", "locate artifact",
			"staged artifact path is a directory; rerun fetch", nil)
	}
	return path, nil
}
