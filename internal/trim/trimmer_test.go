package trim_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tonearm/internal/logging"
	"tonearm/internal/queue"
	"tonearm/internal/services"
	"tonearm/internal/testsupport"
	"tonearm/internal/trim"
)

type trimCall struct {
	path     string
	targetMS int
}

type fakeTrimmer struct {
	newPath string
	trimmed bool
	err     error
	calls   []trimCall
}

func (f *fakeTrimmer) TrimCopy(_ context.Context, path string, targetMS int) (string, bool, error) {
	f.calls = append(f.calls, trimCall{path: path, targetMS: targetMS})
	if f.err != nil {
		return "", false, f.err
	}
	result := f.newPath
	if result == "" {
		result = path
	}
	return result, f.trimmed, nil
}

func seedTrackWithArtifact(t *testing.T, store *queue.Store, dir string, durationMS int) *queue.Item {
	t.Helper()
	meta := queue.TrackMetadata{
		Title:      "Blinding Lights",
		Artists:    []string{"The Weeknd"},
		DurationMS: durationMS,
	}
	item := testsupport.NewTrack(t, store, meta, "spotify:track:trim")
	item.ArtifactPath = filepath.Join(dir, "The Weeknd - Blinding Lights.mp3")
	if err := os.WriteFile(item.ArtifactPath, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("Update: %v", err)
	}
	return item
}

func TestTrimmerTrimsToTargetDuration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := seedTrackWithArtifact(t, store, cfg.Paths.StagingDir, 200040)

	fake := &fakeTrimmer{trimmed: true}
	handler := trim.NewTrimmerWithDependencies(cfg, store, logging.NewNop(), fake)

	ctx := context.Background()
	if err := handler.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	original := item.ArtifactPath
	if err := handler.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(fake.calls) != 1 {
		t.Fatalf("expected one trim call, got %d", len(fake.calls))
	}
	if fake.calls[0].path != original || fake.calls[0].targetMS != 200040 {
		t.Fatalf("unexpected trim call: %+v", fake.calls[0])
	}
	if item.ArtifactPath != original {
		t.Fatalf("artifact path changed unexpectedly: %q", item.ArtifactPath)
	}
	if item.ProgressStage != "Trimmed" || item.ProgressPercent != 100 {
		t.Fatalf("unexpected progress: stage=%q percent=%v", item.ProgressStage, item.ProgressPercent)
	}
}

func TestTrimmerSkipsWithoutTargetDuration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := seedTrackWithArtifact(t, store, cfg.Paths.StagingDir, 0)

	fake := &fakeTrimmer{}
	handler := trim.NewTrimmerWithDependencies(cfg, store, logging.NewNop(), fake)

	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(fake.calls) != 0 {
		t.Fatalf("expected no trim calls, got %d", len(fake.calls))
	}
	if item.ProgressStage != "Trimmed" {
		t.Fatalf("expected trimmed progress stage, got %q", item.ProgressStage)
	}
}

func TestTrimmerKeepsOriginalOnFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := seedTrackWithArtifact(t, store, cfg.Paths.StagingDir, 200040)
	original := item.ArtifactPath

	fake := &fakeTrimmer{err: errors.New("ffmpeg trim: exit status 1")}
	handler := trim.NewTrimmerWithDependencies(cfg, store, logging.NewNop(), fake)

	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("expected non-fatal trim failure, got %v", err)
	}
	if item.ArtifactPath != original {
		t.Fatalf("artifact path changed on failure: %q", item.ArtifactPath)
	}
	if item.ProgressMessage != "Trim failed, keeping original audio" {
		t.Fatalf("unexpected progress message %q", item.ProgressMessage)
	}
}

func TestTrimmerAdoptsTemporaryPathWhenSwapFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := seedTrackWithArtifact(t, store, cfg.Paths.StagingDir, 200040)
	tmpPath := item.ArtifactPath + ".trim.mp3"

	fake := &fakeTrimmer{newPath: tmpPath, trimmed: true}
	handler := trim.NewTrimmerWithDependencies(cfg, store, logging.NewNop(), fake)

	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if item.ArtifactPath != tmpPath {
		t.Fatalf("expected temporary path adopted, got %q", item.ArtifactPath)
	}
}

func TestTrimmerMissingClientIsNonFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := seedTrackWithArtifact(t, store, cfg.Paths.StagingDir, 200040)

	handler := trim.NewTrimmerWithDependencies(cfg, store, logging.NewNop(), nil)
	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("expected missing client to be non-fatal, got %v", err)
	}
	if health := handler.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy trimmer without client")
	}
}

func TestTrimmerRequiresArtifact(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	handler := trim.NewTrimmerWithDependencies(cfg, store, logging.NewNop(), &fakeTrimmer{})
	err := handler.Execute(context.Background(), &queue.Item{Title: "Orphan"})
	if err == nil {
		t.Fatal("expected error without artifact")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
