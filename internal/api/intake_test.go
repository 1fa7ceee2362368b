package api_test

import (
	"context"
	"errors"
	"testing"

	"tonearm/internal/api"
	"tonearm/internal/catalog"
	"tonearm/internal/logging"
	"tonearm/internal/queue"
	"tonearm/internal/services"
	"tonearm/internal/testsupport"
)

type stubResolver struct {
	collection *catalog.Collection
	err        error
	refs       []catalog.ResourceRef
}

func (s *stubResolver) FetchTracks(_ context.Context, ref catalog.ResourceRef) (*catalog.Collection, error) {
	s.refs = append(s.refs, ref)
	if s.err != nil {
		return nil, s.err
	}
	return s.collection, nil
}

func albumCollection() *catalog.Collection {
	return &catalog.Collection{
		Name: "After Hours",
		Kind: queue.SourceKindAlbum,
		Tracks: []catalog.Track{
			{
				TrackMetadata: queue.TrackMetadata{Title: "Alone Again", Artists: []string{"The Weeknd"}, SourceKind: queue.SourceKindAlbum},
				URI:           "spotify:track:aaa1111111111111111111",
			},
			{
				TrackMetadata: queue.TrackMetadata{Title: "Too Late", Artists: []string{"The Weeknd"}, SourceKind: queue.SourceKindAlbum},
				URI:           "spotify:track:bbb2222222222222222222",
			},
		},
	}
}

func TestFetchServiceEnqueuesCollection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	resolver := &stubResolver{collection: albumCollection()}
	svc := api.NewFetchService(resolver, store, logging.NewNop())
	ctx := context.Background()

	result, err := svc.Enqueue(ctx, "https://open.spotify.com/album/4yP0hdKOZPNshxUOjY0cZj")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if result.Queued != 2 || result.Retried != 0 || result.Skipped != 0 {
		t.Fatalf("dispositions: %+v", result)
	}
	if result.Collection != "After Hours" || result.Kind != queue.SourceKindAlbum {
		t.Fatalf("collection fields: %+v", result)
	}
	if result.BatchID == "" {
		t.Fatal("batch ID should be assigned")
	}
	if len(resolver.refs) != 1 || resolver.refs[0].ID != "4yP0hdKOZPNshxUOjY0cZj" {
		t.Fatalf("resolver refs: %+v", resolver.refs)
	}

	items, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 queue items, got %d", len(items))
	}
	for _, item := range items {
		if item.BatchID != result.BatchID {
			t.Fatalf("item %d batch = %q, want %q", item.ID, item.BatchID, result.BatchID)
		}
		if item.Status != queue.StatusPending {
			t.Fatalf("item %d status = %s", item.ID, item.Status)
		}
	}
}

func TestFetchServiceSkipsAndRetriesExistingTracks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	resolver := &stubResolver{collection: albumCollection()}
	svc := api.NewFetchService(resolver, store, logging.NewNop())
	ctx := context.Background()

	first, err := svc.Enqueue(ctx, "https://open.spotify.com/album/4yP0hdKOZPNshxUOjY0cZj")
	if err != nil {
		t.Fatalf("first Enqueue: %v", err)
	}

	failed, err := store.GetByID(ctx, first.Tracks[0].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	failed.SetFailed("transient", "Download failed", "")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update: %v", err)
	}

	second, err := svc.Enqueue(ctx, "https://open.spotify.com/album/4yP0hdKOZPNshxUOjY0cZj")
	if err != nil {
		t.Fatalf("second Enqueue: %v", err)
	}
	if second.Queued != 0 || second.Retried != 1 || second.Skipped != 1 {
		t.Fatalf("dispositions on resubmit: %+v", second)
	}

	retried, err := store.GetByID(ctx, failed.ID)
	if err != nil {
		t.Fatalf("GetByID after retry: %v", err)
	}
	if retried.Status != queue.StatusPending || retried.ErrorMessage != "" {
		t.Fatalf("retried item should be pending and clean: %+v", retried)
	}
	if retried.BatchID != second.BatchID {
		t.Fatalf("retried item batch = %q, want adopted batch %q", retried.BatchID, second.BatchID)
	}

	items, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("resubmission must not duplicate items, got %d", len(items))
	}
}

func TestFetchServiceRejectsEmptyCollection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	resolver := &stubResolver{collection: &catalog.Collection{Name: "Empty", Kind: queue.SourceKindPlaylist}}
	svc := api.NewFetchService(resolver, store, logging.NewNop())

	_, err := svc.Enqueue(context.Background(), "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFetchServiceRejectsInvalidURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	resolver := &stubResolver{}
	svc := api.NewFetchService(resolver, store, logging.NewNop())

	_, err := svc.Enqueue(context.Background(), "https://example.com/not-spotify")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(resolver.refs) != 0 {
		t.Fatal("resolver must not be called for invalid URLs")
	}
}
