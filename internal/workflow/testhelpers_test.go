package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"tonearm/internal/config"
	"tonearm/internal/logging"
	"tonearm/internal/queue"
	"tonearm/internal/stage"
	"tonearm/internal/testsupport"
	"tonearm/internal/workflow"
)

// fakeHandler is a scriptable stage for exercising the manager.
type fakeHandler struct {
	name       string
	prepareErr error
	executeErr error
	onExecute  func(ctx context.Context, item *queue.Item) error
	// blockUntilCancel makes Execute wait for ctx cancellation, simulating
	// a long download interrupted by shutdown.
	blockUntilCancel bool

	mu       sync.Mutex
	prepared int
	executed int
}

func (f *fakeHandler) Prepare(ctx context.Context, item *queue.Item) error {
	f.mu.Lock()
	f.prepared++
	f.mu.Unlock()
	return f.prepareErr
}

func (f *fakeHandler) Execute(ctx context.Context, item *queue.Item) error {
	f.mu.Lock()
	f.executed++
	f.mu.Unlock()
	if f.blockUntilCancel {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.onExecute != nil {
		return f.onExecute(ctx, item)
	}
	return f.executeErr
}

func (f *fakeHandler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy(f.name)
}

func (f *fakeHandler) executions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.executed
}

// recordingNotifier captures notification calls for assertions.
type recordingNotifier struct {
	mu             sync.Mutex
	batchStarted   []int
	batchCompleted []batchSummary
	completed      []trackEvent
	failed         []trackEvent
	errors         []string
}

type batchSummary struct {
	processed int
	failed    int
	duration  time.Duration
}

type trackEvent struct {
	title  string
	detail string
}

func (r *recordingNotifier) NotifyBatchStarted(ctx context.Context, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batchStarted = append(r.batchStarted, count)
	return nil
}

func (r *recordingNotifier) NotifyBatchCompleted(ctx context.Context, processed, failed int, duration time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batchCompleted = append(r.batchCompleted, batchSummary{processed: processed, failed: failed, duration: duration})
	return nil
}

func (r *recordingNotifier) NotifyTrackCompleted(ctx context.Context, title, finalFile string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, trackEvent{title: title, detail: finalFile})
	return nil
}

func (r *recordingNotifier) NotifyTrackFailed(ctx context.Context, title, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, trackEvent{title: title, detail: reason})
	return nil
}

func (r *recordingNotifier) NotifyError(ctx context.Context, err error, contextLabel string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, contextLabel)
	return nil
}

func (r *recordingNotifier) TestNotification(ctx context.Context) error { return nil }

func (r *recordingNotifier) batchCompletions() []batchSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]batchSummary(nil), r.batchCompleted...)
}

func (r *recordingNotifier) batchStarts() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.batchStarted...)
}

func (r *recordingNotifier) failedTracks() []trackEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]trackEvent(nil), r.failed...)
}

// newTestManager builds a manager with fast polling and pacing disabled.
// Pacing behavior has its own test.
func newTestManager(t *testing.T, cfg *config.Config, store *queue.Store, notifier *recordingNotifier, set workflow.StageSet) *workflow.Manager {
	t.Helper()
	cfg.Fetch.PacingSeconds = 0
	m := workflow.NewManagerWithOptions(cfg, store, logging.NewNop(), notifier, nil,
		workflow.WithPollInterval(10*time.Millisecond),
		workflow.WithErrorRetryInterval(10*time.Millisecond),
	)
	m.ConfigureStages(set)
	return m
}

func seedPendingTrack(t *testing.T, store *queue.Store, title string) *queue.Item {
	t.Helper()
	return testsupport.NewTrack(t, store, queue.TrackMetadata{
		Title:      title,
		Artists:    []string{"Test Artist"},
		DurationMS: 201000,
		SourceKind: queue.SourceKindTrack,
	}, "spotify:track:"+title)
}

func seedTrackAtStatus(t *testing.T, store *queue.Store, title string, status queue.Status) *queue.Item {
	t.Helper()
	item := seedPendingTrack(t, store, title)
	item.Status = status
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("seed status %s: %v", status, err)
	}
	return item
}

func waitForStatus(t *testing.T, store *queue.Store, id int64, want queue.Status) *queue.Item {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		item, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("get track %d: %v", id, err)
		}
		if item.Status == want {
			return item
		}
		time.Sleep(10 * time.Millisecond)
	}
	item, _ := store.GetByID(context.Background(), id)
	t.Fatalf("track %d never reached %s (last seen %+v)", id, want, item)
	return nil
}

func waitForCondition(t *testing.T, what string, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
