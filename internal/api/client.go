package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to a running daemon over its HTTP API. The zero value is not
// usable; construct one with NewClient.
type Client struct {
	base    *url.URL
	token   string
	httpc   *http.Client
	streamc *http.Client
}

// NewClient builds a client for the daemon bound at bind (host:port or a
// full URL). token is sent as a bearer credential when non-empty.
func NewClient(bind, token string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, errors.New("api bind address is empty")
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, fmt.Errorf("parse api address: %w", err)
	}
	return &Client{
		base:  base,
		token: strings.TrimSpace(token),
		httpc: &http.Client{Timeout: 15 * time.Second},
		// Follow-mode log fetches block server side until events arrive,
		// so the streaming client carries no overall timeout.
		streamc: &http.Client{},
	}, nil
}

// StatusError reports a non-2xx response from the daemon API.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("daemon api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// IsUnavailable reports whether err indicates the daemon API is not
// reachable at all, as opposed to reachable but rejecting the request.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return false
	}
	var opErr *net.OpError
	return errors.As(urlErr.Err, &opErr)
}

// IsNotFound reports whether err is a 404 from the daemon API.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

func (c *Client) do(ctx context.Context, httpc *http.Client, method, path string, query url.Values, body, out any) error {
	endpoint := *c.base
	endpoint.Path = path
	if query != nil {
		endpoint.RawQuery = query.Encode()
	}

	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeStatusError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeStatusError(resp *http.Response) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode}
	var wire struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&wire); err == nil {
		statusErr.Message = wire.Error
	}
	return statusErr
}

// Status fetches the daemon's runtime snapshot.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var status DaemonStatus
	if err := c.do(ctx, c.httpc, http.MethodGet, "/api/status", nil, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// QueueQuery narrows a queue listing.
type QueueQuery struct {
	Statuses []string
	Batch    string
}

// Queue lists queue items, optionally filtered by status or batch.
func (c *Client) Queue(ctx context.Context, q QueueQuery) ([]QueueItem, error) {
	values := url.Values{}
	for _, status := range q.Statuses {
		if status = strings.TrimSpace(status); status != "" {
			values.Add("status", status)
		}
	}
	if batch := strings.TrimSpace(q.Batch); batch != "" {
		values.Set("batch", batch)
	}
	var resp QueueListResponse
	if err := c.do(ctx, c.httpc, http.MethodGet, "/api/queue", values, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Describe fetches a single queue item. Returns nil without error when the
// item does not exist.
func (c *Client) Describe(ctx context.Context, id int64) (*QueueItem, error) {
	var resp QueueItemResponse
	err := c.do(ctx, c.httpc, http.MethodGet, "/api/queue/"+strconv.FormatInt(id, 10), nil, nil, &resp)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &resp.Item, nil
}

// Retry resets failed items to pending. With no IDs every failed item is
// retried and the per-item breakdown stays empty.
func (c *Client) Retry(ctx context.Context, ids []int64) (RetryItemsResult, error) {
	var result RetryItemsResult
	err := c.do(ctx, c.httpc, http.MethodPost, "/api/queue/retry", nil, QueueSelectionRequest{IDs: ids}, &result)
	return result, err
}

// Clear removes queue items in the given scope ("", "all", "completed" or
// "failed").
func (c *Client) Clear(ctx context.Context, scope string) (QueueClearResponse, error) {
	var resp QueueClearResponse
	err := c.do(ctx, c.httpc, http.MethodPost, "/api/queue/clear", nil, QueueClearRequest{Scope: scope}, &resp)
	return resp, err
}

// Remove deletes specific queue items by ID.
func (c *Client) Remove(ctx context.Context, ids []int64) (QueueClearResponse, error) {
	var resp QueueClearResponse
	err := c.do(ctx, c.httpc, http.MethodPost, "/api/queue/remove", nil, QueueSelectionRequest{IDs: ids}, &resp)
	return resp, err
}

// ResetStuck returns in-flight items to their lane's retry point.
func (c *Client) ResetStuck(ctx context.Context) (QueueResetResponse, error) {
	var resp QueueResetResponse
	err := c.do(ctx, c.httpc, http.MethodPost, "/api/queue/reset-stuck", nil, nil, &resp)
	return resp, err
}

// Health fetches aggregate queue counts.
func (c *Client) Health(ctx context.Context) (QueueHealthResponse, error) {
	var resp QueueHealthResponse
	err := c.do(ctx, c.httpc, http.MethodGet, "/api/queue/health", nil, nil, &resp)
	return resp, err
}

// DatabaseHealth fetches queue database diagnostics.
func (c *Client) DatabaseHealth(ctx context.Context) (DatabaseHealthReport, error) {
	var resp DatabaseHealthReport
	err := c.do(ctx, c.httpc, http.MethodGet, "/api/queue/db-health", nil, nil, &resp)
	return resp, err
}

// Fetch submits a catalog URL for expansion into queue items.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	var result FetchResult
	if err := c.do(ctx, c.httpc, http.MethodPost, "/api/fetch", nil, FetchRequest{URL: rawURL}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TestNotify asks the daemon to send a test notification.
func (c *Client) TestNotify(ctx context.Context) (TestNotifyResponse, error) {
	var resp TestNotifyResponse
	err := c.do(ctx, c.httpc, http.MethodPost, "/api/test-notify", nil, nil, &resp)
	return resp, err
}

// LogQuery selects which log events a Logs call returns.
type LogQuery struct {
	Since     uint64
	Limit     int
	Tail      int
	Follow    bool
	TrackID   int64
	Component string
}

// Logs fetches buffered log events. Follow mode blocks until new events
// arrive past the cursor or ctx is cancelled.
func (c *Client) Logs(ctx context.Context, q LogQuery) (LogStreamResponse, error) {
	values := url.Values{}
	if q.Since > 0 {
		values.Set("since", strconv.FormatUint(q.Since, 10))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Tail > 0 {
		values.Set("tail", strconv.Itoa(q.Tail))
	}
	if q.Follow {
		values.Set("follow", "true")
	}
	if q.TrackID > 0 {
		values.Set("item", strconv.FormatInt(q.TrackID, 10))
	}
	if component := strings.TrimSpace(q.Component); component != "" {
		values.Set("component", component)
	}

	httpc := c.httpc
	if q.Follow {
		httpc = c.streamc
	}
	var resp LogStreamResponse
	err := c.do(ctx, httpc, http.MethodGet, "/api/logs", values, nil, &resp)
	return resp, err
}
