package services_test

import (
	"context"
	"testing"

	"tonearm/internal/services"
)

func TestContextCarriers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithTrackID(ctx, 42)
	ctx = services.WithStage(ctx, "resolver")
	ctx = services.WithLane(ctx, "fetch")
	ctx = services.WithRequestID(ctx, "req-1")

	if id, ok := services.TrackIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("track id = %d, %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "resolver" {
		t.Fatalf("stage = %q, %v", stage, ok)
	}
	if lane, ok := services.LaneFromContext(ctx); !ok || lane != "fetch" {
		t.Fatalf("lane = %q, %v", lane, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-1" {
		t.Fatalf("request id = %q, %v", rid, ok)
	}
}

func TestContextCarriersAbsent(t *testing.T) {
	ctx := context.Background()
	if _, ok := services.TrackIDFromContext(ctx); ok {
		t.Fatal("expected no track id")
	}
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage")
	}
	if same := services.WithStage(ctx, ""); same != ctx {
		t.Fatal("empty stage should not allocate a context")
	}
}
