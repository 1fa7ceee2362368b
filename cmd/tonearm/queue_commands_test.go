package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"tonearm/internal/queue"
)

func TestQueueStatusAndList(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	newTestTrack(t, env.store, "Alpha Song", "spotify:track:alpha0000000000000000001")

	beta := newTestTrack(t, env.store, "Beta Song", "spotify:track:beta00000000000000000001")
	beta.SetFailed("external_tool", "download failed", "check yt-dlp")
	if err := env.store.Update(ctx, beta); err != nil {
		t.Fatalf("beta failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "Pending")
	requireContains(t, out, "Failed")

	out, _, err = runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Alpha Song")
	requireContains(t, out, "Beta Song")
	requireContains(t, out, "Test Artist")
}

func TestQueueRetryAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	alpha := newTestTrack(t, env.store, "Alpha Song", "spotify:track:alpha0000000000000000001")
	alpha.SetFailed("external_tool", "download failed", "check yt-dlp")
	if err := env.store.Update(ctx, alpha); err != nil {
		t.Fatalf("alpha failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "retry"}, env.configPath)
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, out, "Retried 1 failed items")

	updated, err := env.store.GetByID(ctx, alpha.ID)
	if err != nil {
		t.Fatalf("lookup alpha: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", updated.Status)
	}

	updated.SetFailed("external_tool", "download failed again", "")
	if err := env.store.Update(ctx, updated); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	out, _, err = runCLI(t, []string{"queue", "clear", "--failed"}, env.configPath)
	if err != nil {
		t.Fatalf("queue clear --failed: %v", err)
	}
	requireContains(t, out, "Cleared 1 failed items")

	out, _, err = runCLI(t, []string{"queue", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Cleared")
}

func TestQueueRetrySpecificID(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	alpha := newTestTrack(t, env.store, "Alpha Song", "spotify:track:alpha0000000000000000001")
	alpha.SetFailed("network", "timed out", "")
	if err := env.store.Update(ctx, alpha); err != nil {
		t.Fatalf("alpha failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "retry", fmt.Sprintf("%d", alpha.ID)}, env.configPath)
	if err != nil {
		t.Fatalf("queue retry specific: %v", err)
	}
	requireContains(t, out, fmt.Sprintf("Item %d reset for retry", alpha.ID))
}

func TestQueueRetryRejectsNonFailedID(t *testing.T) {
	env := setupCLITestEnv(t)

	alpha := newTestTrack(t, env.store, "Alpha Song", "spotify:track:alpha0000000000000000001")

	out, _, err := runCLI(t, []string{"queue", "retry", fmt.Sprintf("%d", alpha.ID)}, env.configPath)
	if err != nil {
		t.Fatalf("queue retry pending item: %v", err)
	}
	requireContains(t, out, fmt.Sprintf("Item %d is not in a retryable state", alpha.ID))
}

func TestQueueRetryInvalidID(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"queue", "retry", "abc"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "invalid item id") {
		t.Fatalf("expected invalid id error, got %v", err)
	}
}

func TestQueueRemoveAndResetStuck(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	alpha := newTestTrack(t, env.store, "Alpha Song", "spotify:track:alpha0000000000000000001")
	stuck := newTestTrack(t, env.store, "Stuck Song", "spotify:track:stuck0000000000000000001")
	stuck.Status = queue.StatusFetching
	if err := env.store.Update(ctx, stuck); err != nil {
		t.Fatalf("mark fetching: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "remove", fmt.Sprintf("%d", alpha.ID)}, env.configPath)
	if err != nil {
		t.Fatalf("queue remove: %v", err)
	}
	requireContains(t, out, "Removed 1 of 1 items")

	out, _, err = runCLI(t, []string{"queue", "reset-stuck"}, env.configPath)
	if err != nil {
		t.Fatalf("queue reset-stuck: %v", err)
	}
	requireContains(t, out, "Reset 1 items")

	reloaded, err := env.store.GetByID(ctx, stuck.ID)
	if err != nil {
		t.Fatalf("lookup stuck: %v", err)
	}
	if reloaded.Status != queue.StatusResolved {
		t.Fatalf("expected rollback to resolved, got %s", reloaded.Status)
	}
}

func TestQueueShowDisplaysTrackDetail(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	item := newTestTrack(t, env.store, "Showcase Song", "spotify:track:show00000000000000000001")
	item.Status = queue.StatusFetched
	item.ProgressStage = "Fetched"
	item.ProgressPercent = 100
	item.MatchedURL = "https://music.example.com/watch?v=abc123"
	item.MatchStrategy = "search"
	item.MatchScore = 0.92
	if err := env.store.Update(ctx, item); err != nil {
		t.Fatalf("update item: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "show", fmt.Sprintf("%d", item.ID)}, env.configPath)
	if err != nil {
		t.Fatalf("queue show: %v", err)
	}
	requireContains(t, out, "Showcase Song")
	requireContains(t, out, "Test Artist")
	requireContains(t, out, "https://music.example.com/watch?v=abc123")
	requireContains(t, out, "search")
}

func TestQueueShowNotFound(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"queue", "show", "9999"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestQueueShowJSONNotFound(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"queue", "show", "9999", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("queue show --json not found: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if result["error"] != "not_found" {
		t.Fatalf("expected error=not_found, got %v", result["error"])
	}
}

func TestQueueListJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	newTestTrack(t, env.store, "Alpha Song", "spotify:track:alpha0000000000000000001")
	newTestTrack(t, env.store, "Beta Song", "spotify:track:beta00000000000000000001")

	out, _, err := runCLI(t, []string{"queue", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list --json: %v", err)
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	for _, item := range items {
		if _, ok := item["id"]; !ok {
			t.Fatal("missing 'id' key in JSON item")
		}
		if _, ok := item["status"]; !ok {
			t.Fatal("missing 'status' key in JSON item")
		}
	}
}

func TestQueueListJSONEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"queue", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list --json empty: %v", err)
	}

	var items []any
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty list, got %d items", len(items))
	}
}

func TestQueueStatusJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	newTestTrack(t, env.store, "Alpha Song", "spotify:track:alpha0000000000000000001")
	beta := newTestTrack(t, env.store, "Beta Song", "spotify:track:beta00000000000000000001")
	beta.SetFailed("external_tool", "download failed", "")
	if err := env.store.Update(ctx, beta); err != nil {
		t.Fatalf("beta failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "status", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("queue status --json: %v", err)
	}

	var stats map[string]any
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if _, ok := stats["pending"]; !ok {
		t.Fatalf("expected 'pending' key in status JSON, got: %v", stats)
	}
	if _, ok := stats["failed"]; !ok {
		t.Fatalf("expected 'failed' key in status JSON, got: %v", stats)
	}
}

func TestQueueHealthSubcommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	newTestTrack(t, env.store, "Alpha Song", "spotify:track:alpha0000000000000000001")

	out, _, err := runCLI(t, []string{"queue", "health", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("queue health --json: %v", err)
	}

	var health map[string]any
	if err := json.Unmarshal([]byte(out), &health); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	for _, key := range []string{"total", "pending", "processing", "failed", "completed"} {
		if _, ok := health[key]; !ok {
			t.Fatalf("missing %q key in health JSON", key)
		}
	}
	if health["total"] != float64(1) {
		t.Fatalf("expected total=1, got %v", health["total"])
	}
}

func TestQueueHealthCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"queue-health"}, env.configPath)
	if err != nil {
		t.Fatalf("queue-health: %v", err)
	}
	requireContains(t, out, "Database path:")
	requireContains(t, out, "queue_items table present: yes")
	requireContains(t, out, "Integrity check: yes")
}

func TestQueueCommandsFallBackToStore(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	alpha := newTestTrack(t, env.store, "Alpha Song", "spotify:track:alpha0000000000000000001")
	alpha.SetFailed("network", "timed out", "")
	if err := env.store.Update(ctx, alpha); err != nil {
		t.Fatalf("alpha failed: %v", err)
	}

	env.daemon.Stop()

	out, _, err := runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list without daemon: %v", err)
	}
	requireContains(t, out, "Alpha Song")

	out, _, err = runCLI(t, []string{"queue", "retry"}, env.configPath)
	if err != nil {
		t.Fatalf("queue retry without daemon: %v", err)
	}
	requireContains(t, out, "Retried 1 failed items")

	out, _, err = runCLI(t, []string{"queue-health"}, env.configPath)
	if err != nil {
		t.Fatalf("queue-health without daemon: %v", err)
	}
	requireContains(t, out, "Database path:")
}

func TestQueueClearRejectsConflictingFlags(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"queue", "clear", "--completed", "--failed"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "only one of") {
		t.Fatalf("expected flag conflict error, got %v", err)
	}
}
