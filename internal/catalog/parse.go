package catalog

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"tonearm/internal/queue"
	"tonearm/internal/services"
)

// Spotify IDs are 22 base62 characters.
var idPattern = regexp.MustCompile(`^[0-9A-Za-z]{22}$`)

// ResourceRef identifies one Spotify resource to fetch.
type ResourceRef struct {
	Kind string
	ID   string
}

// URI returns the canonical spotify: form, used as the stable source URL
// recorded on queue items so re-submissions of link variants deduplicate.
func (r ResourceRef) URI() string {
	return "spotify:" + r.Kind + ":" + r.ID
}

// ParseResourceURL extracts the resource kind and ID from an
// open.spotify.com link or a spotify: URI. Anything else is rejected
// with a validation error.
func ParseResourceURL(raw string) (ResourceRef, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ResourceRef{}, services.Wrap(services.ErrValidation, "catalog", "parse resource",
			"A Spotify URL or URI is required", nil)
	}

	if strings.HasPrefix(trimmed, "spotify:") {
		parts := strings.Split(trimmed, ":")
		if len(parts) != 3 {
			return ResourceRef{}, invalidResource(trimmed)
		}
		return makeRef(parts[1], parts[2])
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return ResourceRef{}, invalidResource(trimmed)
	}
	host := strings.ToLower(parsed.Hostname())
	if host != "open.spotify.com" && host != "play.spotify.com" {
		return ResourceRef{}, services.WrapHint(services.ErrValidation, "catalog", "parse resource",
			fmt.Sprintf("Not a Spotify link: %s", host),
			"paste an open.spotify.com track, album, or playlist link", nil)
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	// Links copied from localized pages carry an intl-xx prefix segment.
	if len(segments) > 0 && strings.HasPrefix(segments[0], "intl-") {
		segments = segments[1:]
	}
	if len(segments) < 2 {
		return ResourceRef{}, invalidResource(trimmed)
	}
	return makeRef(segments[0], segments[1])
}

func makeRef(kind, id string) (ResourceRef, error) {
	switch kind {
	case queue.SourceKindTrack, queue.SourceKindAlbum, queue.SourceKindPlaylist:
	default:
		return ResourceRef{}, services.WrapHint(services.ErrValidation, "catalog", "parse resource",
			fmt.Sprintf("Unsupported Spotify resource %q", kind),
			"track, album, and playlist links are supported", nil)
	}
	if !idPattern.MatchString(id) {
		return ResourceRef{}, services.Wrap(services.ErrValidation, "catalog", "parse resource",
			fmt.Sprintf("Spotify %s ID looks malformed", kind), nil)
	}
	return ResourceRef{Kind: kind, ID: id}, nil
}

func invalidResource(raw string) error {
	return services.WrapHint(services.ErrValidation, "catalog", "parse resource",
		fmt.Sprintf("Could not parse %q as a Spotify resource", raw),
		"paste an open.spotify.com link or a spotify:kind:id URI", nil)
}
