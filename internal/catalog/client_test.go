package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/zmb3/spotify/v2"

	"tonearm/internal/catalog"
	"tonearm/internal/logging"
	"tonearm/internal/queue"
	"tonearm/internal/services"
	"tonearm/internal/testsupport"
)

type fakeSpotify struct {
	track    *spotify.FullTrack
	album    *spotify.FullAlbum
	albumPgs []*spotify.SimpleTrackPage
	playlist *spotify.FullPlaylist
	itemPgs  []*spotify.PlaylistItemPage
	err      error

	albumCalls int
	itemCalls  int
}

func (f *fakeSpotify) GetTrack(ctx context.Context, id spotify.ID, opts ...spotify.RequestOption) (*spotify.FullTrack, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.track, nil
}

func (f *fakeSpotify) GetAlbum(ctx context.Context, id spotify.ID, opts ...spotify.RequestOption) (*spotify.FullAlbum, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.album, nil
}

func (f *fakeSpotify) GetAlbumTracks(ctx context.Context, id spotify.ID, opts ...spotify.RequestOption) (*spotify.SimpleTrackPage, error) {
	if f.err != nil {
		return nil, f.err
	}
	page := f.albumPgs[f.albumCalls]
	f.albumCalls++
	return page, nil
}

func (f *fakeSpotify) GetPlaylist(ctx context.Context, id spotify.ID, opts ...spotify.RequestOption) (*spotify.FullPlaylist, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.playlist, nil
}

func (f *fakeSpotify) GetPlaylistItems(ctx context.Context, id spotify.ID, opts ...spotify.RequestOption) (*spotify.PlaylistItemPage, error) {
	if f.err != nil {
		return nil, f.err
	}
	page := f.itemPgs[f.itemCalls]
	f.itemCalls++
	return page, nil
}

func fullTrack(id, name, artist string, number, durationMS int) *spotify.FullTrack {
	return &spotify.FullTrack{
		SimpleTrack: spotify.SimpleTrack{
			ID:          spotify.ID(id),
			Name:        name,
			Artists:     []spotify.SimpleArtist{{Name: artist}},
			TrackNumber: spotify.Numeric(number),
			Duration:    spotify.Numeric(durationMS),
		},
		Album: spotify.SimpleAlbum{
			Name: "After Hours",
			Images: []spotify.Image{
				{URL: "https://i.scdn.co/image/small", Width: 64, Height: 64},
				{URL: "https://i.scdn.co/image/large", Width: 640, Height: 640},
			},
		},
	}
}

func TestFetchTracksSingle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	api := &fakeSpotify{track: fullTrack("0VjIjW4GlUZAMYd2vXMi3b", "Blinding Lights", "The Weeknd", 9, 200040)}
	client := catalog.NewWithAPI(cfg, logging.NewNop(), api)

	ref := catalog.ResourceRef{Kind: queue.SourceKindTrack, ID: "0VjIjW4GlUZAMYd2vXMi3b"}
	collection, err := client.FetchTracks(context.Background(), ref)
	if err != nil {
		t.Fatalf("FetchTracks: %v", err)
	}

	if collection.Name != "Blinding Lights" || collection.Kind != queue.SourceKindTrack {
		t.Fatalf("unexpected collection: %+v", collection)
	}
	if len(collection.Tracks) != 1 {
		t.Fatalf("expected one track, got %d", len(collection.Tracks))
	}
	meta := collection.Tracks[0]
	if meta.Title != "Blinding Lights" || meta.Album != "After Hours" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if meta.CoverURL != "https://i.scdn.co/image/large" {
		t.Fatalf("cover url = %q, want the largest image", meta.CoverURL)
	}
	if meta.TrackNumber != 9 || meta.DurationMS != 200040 {
		t.Fatalf("unexpected numbers: %+v", meta)
	}
	if meta.SourceKind != queue.SourceKindTrack || meta.Container != "" || !meta.CoverMatch {
		t.Fatalf("unexpected grouping fields: %+v", meta)
	}
	if meta.URI != "spotify:track:0VjIjW4GlUZAMYd2vXMi3b" {
		t.Fatalf("track URI = %q", meta.URI)
	}
}

func TestFetchTracksAlbumPaginates(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	album := &spotify.FullAlbum{
		SimpleAlbum: spotify.SimpleAlbum{
			Name: "After Hours",
			Images: []spotify.Image{
				{URL: "https://i.scdn.co/image/album-large", Width: 640, Height: 640},
				{URL: "https://i.scdn.co/image/album-small", Width: 64, Height: 64},
			},
		},
	}
	pageOne := &spotify.SimpleTrackPage{
		Tracks: []spotify.SimpleTrack{
			{ID: "track-one", Name: "Alone Again", Artists: []spotify.SimpleArtist{{Name: "The Weeknd"}}, TrackNumber: 1, Duration: 250000},
			{ID: "track-two", Name: "Too Late", Artists: []spotify.SimpleArtist{{Name: "The Weeknd"}}, TrackNumber: 2, Duration: 240000},
		},
	}
	pageOne.Total = 3
	pageTwo := &spotify.SimpleTrackPage{
		Tracks: []spotify.SimpleTrack{
			{ID: "track-three", Name: "Hardest To Love", Artists: []spotify.SimpleArtist{{Name: "The Weeknd"}}, TrackNumber: 3, Duration: 211000},
		},
	}
	pageTwo.Total = 3

	api := &fakeSpotify{album: album, albumPgs: []*spotify.SimpleTrackPage{pageOne, pageTwo}}
	client := catalog.NewWithAPI(cfg, logging.NewNop(), api)

	ref := catalog.ResourceRef{Kind: queue.SourceKindAlbum, ID: "4yP0hdKOZPNshxUOjY0cZj"}
	collection, err := client.FetchTracks(context.Background(), ref)
	if err != nil {
		t.Fatalf("FetchTracks: %v", err)
	}

	if api.albumCalls != 2 {
		t.Fatalf("expected two track pages, got %d calls", api.albumCalls)
	}
	if len(collection.Tracks) != 3 {
		t.Fatalf("expected three tracks, got %d", len(collection.Tracks))
	}
	for i, meta := range collection.Tracks {
		if meta.Album != "After Hours" || meta.Container != "After Hours" {
			t.Fatalf("track %d grouping: %+v", i, meta)
		}
		if meta.CoverURL != "https://i.scdn.co/image/album-large" {
			t.Fatalf("track %d should inherit the album cover, got %q", i, meta.CoverURL)
		}
		if !meta.CoverMatch || meta.SourceKind != queue.SourceKindAlbum {
			t.Fatalf("track %d flags: %+v", i, meta)
		}
		if meta.TrackNumber != i+1 {
			t.Fatalf("track %d number = %d", i, meta.TrackNumber)
		}
	}
	uris := []string{"spotify:track:track-one", "spotify:track:track-two", "spotify:track:track-three"}
	for i, meta := range collection.Tracks {
		if meta.URI != uris[i] {
			t.Fatalf("track %d URI = %q, want %q", i, meta.URI, uris[i])
		}
	}
}

func TestFetchTracksPlaylistSkipsEpisodesAndDisablesCoverMatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	playlist := &spotify.FullPlaylist{}
	playlist.Name = "Road Trip"

	page := &spotify.PlaylistItemPage{
		Items: []spotify.PlaylistItem{
			{Track: spotify.PlaylistItemTrack{Track: fullTrack("0VjIjW4GlUZAMYd2vXMi3b", "Blinding Lights", "The Weeknd", 9, 200040)}},
			{Track: spotify.PlaylistItemTrack{}}, // episode or removed track
			{Track: spotify.PlaylistItemTrack{Track: fullTrack("4rTrQlzrifT8gLrJqP1oKi", "Rasputin", "Boney M.", 4, 265000)}},
		},
	}
	page.Total = 3

	api := &fakeSpotify{playlist: playlist, itemPgs: []*spotify.PlaylistItemPage{page}}
	client := catalog.NewWithAPI(cfg, logging.NewNop(), api)

	ref := catalog.ResourceRef{Kind: queue.SourceKindPlaylist, ID: "37i9dQZF1DXcBWIGoYBM5M"}
	collection, err := client.FetchTracks(context.Background(), ref)
	if err != nil {
		t.Fatalf("FetchTracks: %v", err)
	}

	if collection.Name != "Road Trip" || collection.Kind != queue.SourceKindPlaylist {
		t.Fatalf("unexpected collection: %+v", collection)
	}
	if len(collection.Tracks) != 2 {
		t.Fatalf("expected two tracks after skipping, got %d", len(collection.Tracks))
	}
	first, second := collection.Tracks[0], collection.Tracks[1]
	if first.Title != "Blinding Lights" || second.Title != "Rasputin" {
		t.Fatalf("unexpected order: %q, %q", first.Title, second.Title)
	}
	if first.TrackNumber != 1 || second.TrackNumber != 2 {
		t.Fatalf("playlist positions should be contiguous: %d, %d", first.TrackNumber, second.TrackNumber)
	}
	for i, meta := range collection.Tracks {
		if meta.CoverMatch {
			t.Fatalf("track %d: cover match should be disabled for playlists", i)
		}
		if meta.Container != "Road Trip" || meta.SourceKind != queue.SourceKindPlaylist {
			t.Fatalf("track %d grouping: %+v", i, meta)
		}
		if meta.CoverURL != "https://i.scdn.co/image/large" {
			t.Fatalf("track %d should carry its own album cover, got %q", i, meta.CoverURL)
		}
	}
}

func TestFetchTracksPropagatesAPIFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	api := &fakeSpotify{err: errors.New("429 too many requests")}
	client := catalog.NewWithAPI(cfg, logging.NewNop(), api)

	ref := catalog.ResourceRef{Kind: queue.SourceKindTrack, ID: "0VjIjW4GlUZAMYd2vXMi3b"}
	_, err := client.FetchTracks(context.Background(), ref)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSpotifyCredentials("", ""))
	_, err := catalog.New(cfg, logging.NewNop())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
