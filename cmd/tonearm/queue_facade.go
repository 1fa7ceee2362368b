package main

import (
	"context"

	"tonearm/internal/api"
	"tonearm/internal/queue"
)

// queueAPI abstracts queue access so commands behave identically whether
// they talk to the daemon API or open the store directly.
type queueAPI interface {
	Stats(ctx context.Context) (map[string]int, error)
	List(ctx context.Context, statuses []string) ([]api.QueueItem, error)
	Describe(ctx context.Context, id int64) (*api.QueueItem, error)
	ClearAll(ctx context.Context) (int64, error)
	ClearCompleted(ctx context.Context) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
	Remove(ctx context.Context, ids []int64) (int64, error)
	ResetStuck(ctx context.Context) (int64, error)
	RetryAll(ctx context.Context) (int64, error)
	Retry(ctx context.Context, ids []int64) (int64, error)
	Health(ctx context.Context) (queue.HealthSummary, error)
}

// --- HTTP adapter ---

type queueHTTPAdapter struct {
	client *api.Client
}

func (a *queueHTTPAdapter) Stats(ctx context.Context) (map[string]int, error) {
	status, err := a.client.Status(ctx)
	if err != nil {
		return nil, err
	}
	return status.Workflow.QueueStats, nil
}

func (a *queueHTTPAdapter) List(ctx context.Context, statuses []string) ([]api.QueueItem, error) {
	return a.client.Queue(ctx, api.QueueQuery{Statuses: statuses})
}

func (a *queueHTTPAdapter) Describe(ctx context.Context, id int64) (*api.QueueItem, error) {
	return a.client.Describe(ctx, id)
}

func (a *queueHTTPAdapter) ClearAll(ctx context.Context) (int64, error) {
	resp, err := a.client.Clear(ctx, "all")
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *queueHTTPAdapter) ClearCompleted(ctx context.Context) (int64, error) {
	resp, err := a.client.Clear(ctx, "completed")
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *queueHTTPAdapter) ClearFailed(ctx context.Context) (int64, error) {
	resp, err := a.client.Clear(ctx, "failed")
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *queueHTTPAdapter) Remove(ctx context.Context, ids []int64) (int64, error) {
	resp, err := a.client.Remove(ctx, ids)
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *queueHTTPAdapter) ResetStuck(ctx context.Context) (int64, error) {
	resp, err := a.client.ResetStuck(ctx)
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (a *queueHTTPAdapter) RetryAll(ctx context.Context) (int64, error) {
	result, err := a.client.Retry(ctx, nil)
	if err != nil {
		return 0, err
	}
	return result.UpdatedCount, nil
}

func (a *queueHTTPAdapter) Retry(ctx context.Context, ids []int64) (int64, error) {
	result, err := a.client.Retry(ctx, ids)
	if err != nil {
		return 0, err
	}
	return result.UpdatedCount, nil
}

func (a *queueHTTPAdapter) Health(ctx context.Context) (queue.HealthSummary, error) {
	resp, err := a.client.Health(ctx)
	if err != nil {
		return queue.HealthSummary{}, err
	}
	return queue.HealthSummary{
		Total:      resp.Total,
		Pending:    resp.Pending,
		Processing: resp.Processing,
		Failed:     resp.Failed,
		Completed:  resp.Completed,
	}, nil
}

// --- Store adapter ---

type queueStoreAdapter struct {
	store   *queue.Store
	service *api.QueueService
}

func (a *queueStoreAdapter) Stats(ctx context.Context) (map[string]int, error) {
	return a.service.Stats(ctx)
}

func (a *queueStoreAdapter) List(ctx context.Context, statuses []string) ([]api.QueueItem, error) {
	var filters []queue.Status
	for _, s := range statuses {
		if parsed, ok := queue.ParseStatus(s); ok {
			filters = append(filters, parsed)
		}
	}
	return a.service.List(ctx, filters...)
}

func (a *queueStoreAdapter) Describe(ctx context.Context, id int64) (*api.QueueItem, error) {
	return a.service.Describe(ctx, id)
}

func (a *queueStoreAdapter) ClearAll(ctx context.Context) (int64, error) {
	return a.store.Clear(ctx)
}

func (a *queueStoreAdapter) ClearCompleted(ctx context.Context) (int64, error) {
	return a.store.ClearCompleted(ctx)
}

func (a *queueStoreAdapter) ClearFailed(ctx context.Context) (int64, error) {
	return a.store.ClearFailed(ctx)
}

func (a *queueStoreAdapter) Remove(ctx context.Context, ids []int64) (int64, error) {
	var count int64
	for _, id := range ids {
		removed, err := a.store.Remove(ctx, id)
		if err != nil {
			return count, err
		}
		if removed {
			count++
		}
	}
	return count, nil
}

func (a *queueStoreAdapter) ResetStuck(ctx context.Context) (int64, error) {
	return a.store.ResetStuckProcessing(ctx)
}

func (a *queueStoreAdapter) RetryAll(ctx context.Context) (int64, error) {
	return a.store.RetryFailed(ctx)
}

func (a *queueStoreAdapter) Retry(ctx context.Context, ids []int64) (int64, error) {
	return a.store.RetryFailed(ctx, ids...)
}

func (a *queueStoreAdapter) Health(ctx context.Context) (queue.HealthSummary, error) {
	return a.store.Health(ctx)
}
