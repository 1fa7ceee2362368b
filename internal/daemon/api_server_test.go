package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tonearm/internal/api"
	"tonearm/internal/logging"
	"tonearm/internal/queue"
	"tonearm/internal/services"
)

type queueReaderStub struct {
	items []*queue.Item
}

func (s *queueReaderStub) List(ctx context.Context, statuses ...queue.Status) ([]*queue.Item, error) {
	if len(statuses) == 0 {
		return s.items, nil
	}
	wanted := make(map[queue.Status]bool, len(statuses))
	for _, status := range statuses {
		wanted[status] = true
	}
	var out []*queue.Item
	for _, item := range s.items {
		if wanted[item.Status] {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *queueReaderStub) Stats(ctx context.Context) (map[queue.Status]int, error) {
	stats := make(map[queue.Status]int)
	for _, item := range s.items {
		stats[item.Status]++
	}
	return stats, nil
}

func (s *queueReaderStub) GetByID(ctx context.Context, id int64) (*queue.Item, error) {
	for _, item := range s.items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, nil
}

type retryStub struct {
	calls   [][]int64
	updated int64
}

func (s *retryStub) RetryFailed(ctx context.Context, ids []int64) (int64, error) {
	s.calls = append(s.calls, ids)
	return s.updated, nil
}

type maintStub struct {
	cleared    []string
	removedIDs []int64
	resets     int
	health     queue.DatabaseHealth
	notifySent bool
	notifyMsg  string
}

func (s *maintStub) ClearQueue(ctx context.Context) (int64, error) {
	s.cleared = append(s.cleared, "all")
	return 4, nil
}

func (s *maintStub) ClearCompleted(ctx context.Context) (int64, error) {
	s.cleared = append(s.cleared, "completed")
	return 2, nil
}

func (s *maintStub) ClearFailed(ctx context.Context) (int64, error) {
	s.cleared = append(s.cleared, "failed")
	return 1, nil
}

func (s *maintStub) ResetStuck(ctx context.Context) (int64, error) {
	s.resets++
	return 3, nil
}

func (s *maintStub) RemoveItems(ctx context.Context, ids []int64) (int64, error) {
	s.removedIDs = append(s.removedIDs, ids...)
	return int64(len(ids)), nil
}

func (s *maintStub) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return s.health, nil
}

func (s *maintStub) TestNotification(ctx context.Context) (bool, string, error) {
	return s.notifySent, s.notifyMsg, nil
}

type fetchStub struct {
	result *api.FetchResult
	err    error
	urls   []string
}

func (s *fetchStub) Enqueue(ctx context.Context, rawURL string) (*api.FetchResult, error) {
	s.urls = append(s.urls, rawURL)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func stubQueueItem(id int64, status queue.Status, title string) *queue.Item {
	created := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Minute)
	item := &queue.Item{
		ID:        id,
		BatchID:   "batch-1",
		SourceURL: fmt.Sprintf("spotify:track:stub%019d", id),
		Title:     title,
		Status:    status,
		CreatedAt: created,
		UpdatedAt: created,
	}
	return item
}

func newTestAPIServer(reader api.QueueReader) *apiServer {
	return &apiServer{
		logger:   logging.NewNop(),
		queueSvc: api.NewQueueService(reader),
	}
}

func TestHandleQueueFiltersByStatus(t *testing.T) {
	srv := newTestAPIServer(&queueReaderStub{items: []*queue.Item{
		stubQueueItem(1, queue.StatusPending, "First"),
		stubQueueItem(2, queue.StatusCompleted, "Second"),
		stubQueueItem(3, queue.StatusPending, "Third"),
	}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/queue?status=pending", nil)
	srv.handleQueue(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp api.QueueListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 pending items, got %d", len(resp.Items))
	}
	for _, item := range resp.Items {
		if item.Status != "pending" {
			t.Fatalf("unexpected status %q in filtered response", item.Status)
		}
	}
}

func TestHandleQueueRejectsUnknownStatus(t *testing.T) {
	srv := newTestAPIServer(&queueReaderStub{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/queue?status=melting", nil)
	srv.handleQueue(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}
}

func TestHandleQueueItem(t *testing.T) {
	srv := newTestAPIServer(&queueReaderStub{items: []*queue.Item{
		stubQueueItem(7, queue.StatusFetching, "Seventh"),
	}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/queue/7", nil)
	srv.handleQueueItem(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp api.QueueItemResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Item.ID != 7 || resp.Item.Title != "Seventh" {
		t.Fatalf("unexpected item in response: %+v", resp.Item)
	}
	if resp.Item.ProcessingLane != "fetch" {
		t.Fatalf("expected fetch lane, got %q", resp.Item.ProcessingLane)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/queue/99", nil)
	srv.handleQueueItem(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing item, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/queue/banana", nil)
	srv.handleQueueItem(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric id, got %d", rec.Code)
	}
}

func TestHandleRetryPerItem(t *testing.T) {
	retry := &retryStub{updated: 1}
	srv := newTestAPIServer(&queueReaderStub{items: []*queue.Item{
		stubQueueItem(1, queue.StatusFailed, "Broken"),
		stubQueueItem(2, queue.StatusCompleted, "Done"),
	}})
	srv.retry = retry

	body := strings.NewReader(`{"ids":[1,2,3]}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/queue/retry", body)
	srv.handleRetry(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp api.RetryItemsResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UpdatedCount != 1 {
		t.Fatalf("expected 1 update, got %d", resp.UpdatedCount)
	}
	outcomes := map[int64]api.RetryItemOutcome{}
	for _, item := range resp.Items {
		outcomes[item.ID] = item.Outcome
	}
	if outcomes[1] != api.RetryItemUpdated {
		t.Fatalf("expected item 1 retried, got %q", outcomes[1])
	}
	if outcomes[2] != api.RetryItemNotFailed {
		t.Fatalf("expected item 2 not_failed, got %q", outcomes[2])
	}
	if outcomes[3] != api.RetryItemNotFound {
		t.Fatalf("expected item 3 not_found, got %q", outcomes[3])
	}
	if len(retry.calls) != 1 || len(retry.calls[0]) != 1 || retry.calls[0][0] != 1 {
		t.Fatalf("expected retry called once for id 1, got %v", retry.calls)
	}
}

func TestHandleRetryAllWithEmptyBody(t *testing.T) {
	retry := &retryStub{updated: 3}
	srv := newTestAPIServer(&queueReaderStub{})
	srv.retry = retry

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/queue/retry", nil)
	srv.handleRetry(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp retryAllResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UpdatedCount != 3 {
		t.Fatalf("expected 3 updates, got %d", resp.UpdatedCount)
	}
	if len(retry.calls) != 1 || retry.calls[0] != nil {
		t.Fatalf("expected retry-all call with nil ids, got %v", retry.calls)
	}
}

func TestHandleFetchAcceptsURL(t *testing.T) {
	fetcher := &fetchStub{result: &api.FetchResult{
		BatchID: "batch-42",
		Kind:    queue.SourceKindAlbum,
		Queued:  2,
	}}
	srv := newTestAPIServer(&queueReaderStub{})
	srv.fetcher = fetcher

	body := strings.NewReader(`{"url":"https://open.spotify.com/album/abc123"}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/fetch", body)
	srv.handleFetch(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	var resp api.FetchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.BatchID != "batch-42" || resp.Queued != 2 {
		t.Fatalf("unexpected fetch result: %+v", resp)
	}
	if len(fetcher.urls) != 1 || fetcher.urls[0] != "https://open.spotify.com/album/abc123" {
		t.Fatalf("enqueuer received %v", fetcher.urls)
	}
}

func TestHandleFetchMapsValidationErrors(t *testing.T) {
	fetcher := &fetchStub{err: services.Wrap(services.ErrValidation, "intake", "enqueue", "Unsupported catalog URL", nil)}
	srv := newTestAPIServer(&queueReaderStub{})
	srv.fetcher = fetcher

	body := strings.NewReader(`{"url":"https://example.com/nope"}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/fetch", body)
	srv.handleFetch(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for validation error, got %d", rec.Code)
	}
}

func TestHandleQueueClearScopes(t *testing.T) {
	maint := &maintStub{}
	srv := newTestAPIServer(&queueReaderStub{})
	srv.maint = maint

	cases := []struct {
		body    string
		want    int64
		scope   string
		wantErr bool
	}{
		{body: ``, want: 4, scope: "all"},
		{body: `{"scope":"completed"}`, want: 2, scope: "completed"},
		{body: `{"scope":"failed"}`, want: 1, scope: "failed"},
		{body: `{"scope":"pending"}`, wantErr: true},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/queue/clear", strings.NewReader(tc.body))
		srv.handleQueueClear(rec, req)

		if tc.wantErr {
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 for scope in %q, got %d", tc.body, rec.Code)
			}
			continue
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 for %q, got %d", tc.body, rec.Code)
		}
		var resp api.QueueClearResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Removed != tc.want {
			t.Fatalf("scope %s: expected %d removed, got %d", tc.scope, tc.want, resp.Removed)
		}
	}
	if len(maint.cleared) != 3 || maint.cleared[0] != "all" || maint.cleared[1] != "completed" || maint.cleared[2] != "failed" {
		t.Fatalf("unexpected clear calls %v", maint.cleared)
	}
}

func TestHandleQueueRemoveRequiresIDs(t *testing.T) {
	maint := &maintStub{}
	srv := newTestAPIServer(&queueReaderStub{})
	srv.maint = maint

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/queue/remove", strings.NewReader(`{"ids":[]}`))
	srv.handleQueueRemove(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty ids, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/queue/remove", strings.NewReader(`{"ids":[5,6]}`))
	srv.handleQueueRemove(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp api.QueueClearResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Removed != 2 {
		t.Fatalf("expected 2 removed, got %d", resp.Removed)
	}
	if len(maint.removedIDs) != 2 || maint.removedIDs[0] != 5 || maint.removedIDs[1] != 6 {
		t.Fatalf("unexpected removed ids %v", maint.removedIDs)
	}
}

func TestHandleDatabaseHealth(t *testing.T) {
	maint := &maintStub{health: queue.DatabaseHealth{
		DBPath:         "/tmp/queue.db",
		DatabaseExists: true,
		TableExists:    true,
		IntegrityCheck: true,
		TotalItems:     9,
	}}
	srv := newTestAPIServer(&queueReaderStub{})
	srv.maint = maint

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/queue/db-health", nil)
	srv.handleDatabaseHealth(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp api.DatabaseHealthReport
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.DatabaseExists || !resp.IntegrityCheck || resp.TotalItems != 9 {
		t.Fatalf("unexpected health payload: %+v", resp)
	}
}

func TestHandleTestNotify(t *testing.T) {
	maint := &maintStub{notifySent: false, notifyMsg: "ntfy topic not configured"}
	srv := newTestAPIServer(&queueReaderStub{})
	srv.maint = maint

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/test-notify", nil)
	srv.handleTestNotify(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp api.TestNotifyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Sent || resp.Message != "ntfy topic not configured" {
		t.Fatalf("unexpected notify payload: %+v", resp)
	}
}

func TestAuthMiddleware(t *testing.T) {
	handler := authMiddleware("sekrit", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	handler(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", rec.Code)
	}

	open := authMiddleware("", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rec = httptest.NewRecorder()
	open(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected empty token to disable auth, got %d", rec.Code)
	}
}
