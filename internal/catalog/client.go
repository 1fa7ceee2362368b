package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"tonearm/internal/config"
	"tonearm/internal/logging"
	"tonearm/internal/queue"
	"tonearm/internal/services"
)

const (
	albumPageSize    = 50
	playlistPageSize = 100
)

// spotifyAPI is the slice of the Spotify client the catalog uses,
// extracted so tests can run against canned responses.
type spotifyAPI interface {
	GetTrack(ctx context.Context, id spotify.ID, opts ...spotify.RequestOption) (*spotify.FullTrack, error)
	GetAlbum(ctx context.Context, id spotify.ID, opts ...spotify.RequestOption) (*spotify.FullAlbum, error)
	GetAlbumTracks(ctx context.Context, id spotify.ID, opts ...spotify.RequestOption) (*spotify.SimpleTrackPage, error)
	GetPlaylist(ctx context.Context, id spotify.ID, opts ...spotify.RequestOption) (*spotify.FullPlaylist, error)
	GetPlaylistItems(ctx context.Context, id spotify.ID, opts ...spotify.RequestOption) (*spotify.PlaylistItemPage, error)
}

// Track pairs a track's metadata with its own catalog URI. The URI is
// what the queue records as the source URL, so each track of an album
// or playlist deduplicates independently.
type Track struct {
	queue.TrackMetadata
	URI string
}

// Collection is the expansion of one catalog reference: the tracks to
// enqueue plus the collection name used for library grouping.
type Collection struct {
	Name   string
	Kind   string
	Tracks []Track
}

// Client resolves catalog references against the Spotify Web API.
type Client struct {
	cfg    *config.Config
	logger *slog.Logger
	api    spotifyAPI
}

// New builds a catalog client using the client-credentials flow. The
// returned client refreshes its token automatically.
func New(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg.Spotify.ClientID == "" || cfg.Spotify.ClientSecret == "" {
		return nil, services.WrapHint(services.ErrConfiguration, "catalog", "credentials",
			"Spotify credentials are not configured",
			"set spotify.client_id and spotify.client_secret in the config", nil)
	}
	auth := &clientcredentials.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	api := spotify.New(auth.Client(context.Background()))
	return NewWithAPI(cfg, logger, api), nil
}

// NewWithAPI wires a catalog client over a prebuilt API implementation.
func NewWithAPI(cfg *config.Config, logger *slog.Logger, api spotifyAPI) *Client {
	var catalogLogger *slog.Logger
	if logger != nil {
		catalogLogger = logger.With(logging.String("component", "catalog"))
	}
	return &Client{cfg: cfg, logger: catalogLogger, api: api}
}

// FetchTracks expands a catalog reference into its ordered track list.
func (c *Client) FetchTracks(ctx context.Context, ref ResourceRef) (*Collection, error) {
	switch ref.Kind {
	case queue.SourceKindTrack:
		return c.fetchTrack(ctx, ref)
	case queue.SourceKindAlbum:
		return c.fetchAlbum(ctx, ref)
	case queue.SourceKindPlaylist:
		return c.fetchPlaylist(ctx, ref)
	default:
		return nil, services.Wrap(services.ErrValidation, "catalog", "fetch tracks",
			fmt.Sprintf("Unsupported resource kind %q", ref.Kind), nil)
	}
}

func (c *Client) fetchTrack(ctx context.Context, ref ResourceRef) (*Collection, error) {
	full, err := c.api.GetTrack(ctx, spotify.ID(ref.ID), c.marketOptions()...)
	if err != nil {
		return nil, wrapAPIError("fetch track", err)
	}
	track := Track{
		TrackMetadata: queue.TrackMetadata{
			Title:       full.Name,
			Artists:     artistNames(full.Artists),
			Album:       full.Album.Name,
			CoverURL:    largestImage(full.Album.Images),
			TrackNumber: int(full.TrackNumber),
			DurationMS:  int(full.Duration),
			SourceKind:  queue.SourceKindTrack,
			CoverMatch:  true,
		},
		URI: trackURI(full.ID),
	}
	return &Collection{Name: full.Name, Kind: queue.SourceKindTrack, Tracks: []Track{track}}, nil
}

func (c *Client) fetchAlbum(ctx context.Context, ref ResourceRef) (*Collection, error) {
	album, err := c.api.GetAlbum(ctx, spotify.ID(ref.ID), c.marketOptions()...)
	if err != nil {
		return nil, wrapAPIError("fetch album", err)
	}
	cover := largestImage(album.Images)

	var tracks []Track
	offset := 0
	for {
		opts := append(c.marketOptions(), spotify.Limit(albumPageSize), spotify.Offset(offset))
		page, err := c.api.GetAlbumTracks(ctx, spotify.ID(ref.ID), opts...)
		if err != nil {
			return nil, wrapAPIError("fetch album tracks", err)
		}
		for _, st := range page.Tracks {
			tracks = append(tracks, Track{
				TrackMetadata: queue.TrackMetadata{
					Title:       st.Name,
					Artists:     artistNames(st.Artists),
					Album:       album.Name,
					CoverURL:    cover,
					TrackNumber: int(st.TrackNumber),
					DurationMS:  int(st.Duration),
					SourceKind:  queue.SourceKindAlbum,
					Container:   album.Name,
					CoverMatch:  true,
				},
				URI: trackURI(st.ID),
			})
		}
		offset += len(page.Tracks)
		if len(page.Tracks) == 0 || offset >= int(page.Total) {
			break
		}
	}

	if c.logger != nil {
		c.logger.Info("album expanded",
			logging.String("album", album.Name),
			logging.Int("tracks", len(tracks)))
	}
	return &Collection{Name: album.Name, Kind: queue.SourceKindAlbum, Tracks: tracks}, nil
}

func (c *Client) fetchPlaylist(ctx context.Context, ref ResourceRef) (*Collection, error) {
	playlist, err := c.api.GetPlaylist(ctx, spotify.ID(ref.ID), c.marketOptions()...)
	if err != nil {
		return nil, wrapAPIError("fetch playlist", err)
	}

	var tracks []Track
	offset := 0
	skipped := 0
	for {
		opts := append(c.marketOptions(), spotify.Limit(playlistPageSize), spotify.Offset(offset))
		page, err := c.api.GetPlaylistItems(ctx, spotify.ID(ref.ID), opts...)
		if err != nil {
			return nil, wrapAPIError("fetch playlist items", err)
		}
		for _, entry := range page.Items {
			full := entry.Track.Track
			if full == nil {
				// Podcast episodes and removed tracks have no track object.
				skipped++
				continue
			}
			tracks = append(tracks, Track{
				TrackMetadata: queue.TrackMetadata{
					Title:       full.Name,
					Artists:     artistNames(full.Artists),
					Album:       full.Album.Name,
					CoverURL:    largestImage(full.Album.Images),
					TrackNumber: len(tracks) + 1,
					DurationMS:  int(full.Duration),
					SourceKind:  queue.SourceKindPlaylist,
					Container:   playlist.Name,
					CoverMatch:  false,
				},
				URI: trackURI(full.ID),
			})
		}
		offset += len(page.Items)
		if len(page.Items) == 0 || offset >= int(page.Total) {
			break
		}
	}

	if c.logger != nil {
		c.logger.Info("playlist expanded",
			logging.String("playlist", playlist.Name),
			logging.Int("tracks", len(tracks)),
			logging.Int("skipped", skipped))
	}
	return &Collection{Name: playlist.Name, Kind: queue.SourceKindPlaylist, Tracks: tracks}, nil
}

func (c *Client) marketOptions() []spotify.RequestOption {
	if c.cfg == nil || c.cfg.Spotify.Market == "" {
		return nil
	}
	return []spotify.RequestOption{spotify.Market(c.cfg.Spotify.Market)}
}

func wrapAPIError(operation string, err error) error {
	return services.WrapHint(services.ErrTransient, "catalog", operation,
		"Spotify API request failed",
		"check network connectivity and Spotify credentials", err)
}

func trackURI(id spotify.ID) string {
	return "spotify:track:" + string(id)
}

func artistNames(artists []spotify.SimpleArtist) []string {
	names := make([]string, 0, len(artists))
	for _, artist := range artists {
		if artist.Name == "" {
			continue
		}
		names = append(names, artist.Name)
	}
	return names
}

// largestImage picks the highest-resolution cover so downstream hashing
// and embedding work from the best source.
func largestImage(images []spotify.Image) string {
	var best string
	bestArea := -1
	for _, img := range images {
		area := int(img.Height) * int(img.Width)
		if best == "" || area > bestArea {
			best = img.URL
			bestArea = area
		}
	}
	return best
}
