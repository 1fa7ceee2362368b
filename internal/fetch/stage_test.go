package fetch_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"tonearm/internal/fetch"
	"tonearm/internal/logging"
	"tonearm/internal/queue"
	"tonearm/internal/services"
	"tonearm/internal/testsupport"
)

func stageMeta() queue.TrackMetadata {
	return queue.TrackMetadata{
		Title:      "Blinding Lights",
		Artists:    []string{"The Weeknd"},
		Album:      "After Hours",
		DurationMS: 200040,
	}
}

func TestStageExecuteDownloadsPlannedCandidate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.NewTrack(t, store, stageMeta(), "spotify:track:stage")
	item.SetCandidateURLs([]string{"https://www.youtube.com/watch?v=primary"})
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	tool := newStubTool(t)
	fetcher := fetch.NewFetcher(tool, fetch.Config{}, logging.NewNop())
	handler := fetch.NewStageWithFetcher(cfg, store, logging.NewNop(), fetcher)

	ctx := context.Background()
	if err := handler.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	wantPath := filepath.Join(cfg.Paths.StagingDir, "The Weeknd - Blinding Lights.mp3")
	if item.ArtifactPath != wantPath {
		t.Fatalf("unexpected artifact path %q", item.ArtifactPath)
	}
	if item.VideoURL != "https://www.youtube.com/watch?v=primary" {
		t.Fatalf("unexpected video url %q", item.VideoURL)
	}
	if item.ProgressStage != "Fetched" || item.ProgressPercent != 100 {
		t.Fatalf("unexpected progress: stage=%q percent=%v", item.ProgressStage, item.ProgressPercent)
	}
}

func TestStageExecutePropagatesAcquisitionFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.NewTrack(t, store, stageMeta(), "spotify:track:fail")
	item.SetCandidateURLs([]string{"https://www.youtube.com/watch?v=only"})
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	tool := newStubTool(t)
	tool.failures["https://www.youtube.com/watch?v=only"] = []error{errTransient}
	fetcher := fetch.NewFetcher(tool, fetch.Config{}, logging.NewNop())
	handler := fetch.NewStageWithFetcher(cfg, store, logging.NewNop(), fetcher)

	err := handler.Execute(context.Background(), item)
	if err == nil {
		t.Fatal("expected acquisition failure")
	}
	if !errors.Is(err, services.ErrNoCandidate) {
		t.Fatalf("expected no-candidate error, got %v", err)
	}
	if item.ArtifactPath != "" {
		t.Fatalf("expected no artifact recorded, got %q", item.ArtifactPath)
	}
}

func TestStageExecuteRequiresDownloadClient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.NewTrack(t, store, stageMeta(), "spotify:track:noclient")
	handler := fetch.NewStageWithFetcher(cfg, store, logging.NewNop(), nil)

	err := handler.Execute(context.Background(), item)
	if err == nil {
		t.Fatal("expected error without download client")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if health := handler.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy fetch stage without download client")
	}
}

func TestStageExecuteValidatesMetadata(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	tool := newStubTool(t)
	fetcher := fetch.NewFetcher(tool, fetch.Config{}, logging.NewNop())
	handler := fetch.NewStageWithFetcher(cfg, store, logging.NewNop(), fetcher)

	err := handler.Execute(context.Background(), &queue.Item{})
	if err == nil {
		t.Fatal("expected error for missing metadata")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
