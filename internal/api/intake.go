package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"tonearm/internal/catalog"
	"tonearm/internal/logging"
	"tonearm/internal/queue"
	"tonearm/internal/services"
)

// CatalogResolver expands a parsed catalog reference into its track list.
type CatalogResolver interface {
	FetchTracks(ctx context.Context, ref catalog.ResourceRef) (*catalog.Collection, error)
}

// IntakeStore captures the queue operations the fetch workflow needs.
type IntakeStore interface {
	NewTrack(ctx context.Context, batchID, sourceURL string, meta queue.TrackMetadata) (*queue.Item, error)
	FindBySourceURL(ctx context.Context, sourceURL string) (*queue.Item, error)
	RetryFailed(ctx context.Context, ids ...int64) (int64, error)
}

type EnqueueOutcome string

const (
	EnqueueQueued  EnqueueOutcome = "queued"
	EnqueueSkipped EnqueueOutcome = "skipped"
	EnqueueRetried EnqueueOutcome = "retried"
)

// EnqueuedTrack reports the disposition of one track from a fetch request.
type EnqueuedTrack struct {
	ID      int64          `json:"id"`
	Title   string         `json:"title"`
	Outcome EnqueueOutcome `json:"outcome"`
	Detail  string         `json:"detail,omitempty"`
}

// FetchResult summarizes the expansion of one catalog URL.
type FetchResult struct {
	BatchID    string          `json:"batchId"`
	Collection string          `json:"collection"`
	Kind       string          `json:"kind"`
	Queued     int             `json:"queued"`
	Retried    int             `json:"retried"`
	Skipped    int             `json:"skipped"`
	Tracks     []EnqueuedTrack `json:"tracks"`
}

// FetchService turns catalog URLs into queue items. Tracks already present
// in the queue are skipped, except failed ones, which are reset to pending
// so a re-submitted collection retries its failures.
type FetchService struct {
	resolver CatalogResolver
	store    IntakeStore
	logger   *slog.Logger
}

// NewFetchService wires the intake workflow.
func NewFetchService(resolver CatalogResolver, store IntakeStore, logger *slog.Logger) *FetchService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FetchService{
		resolver: resolver,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "intake"),
	}
}

// Enqueue expands rawURL and records one queue item per new track.
func (s *FetchService) Enqueue(ctx context.Context, rawURL string) (*FetchResult, error) {
	ref, err := catalog.ParseResourceURL(rawURL)
	if err != nil {
		return nil, err
	}
	collection, err := s.resolver.FetchTracks(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(collection.Tracks) == 0 {
		return nil, services.Wrap(services.ErrValidation, "intake", "enqueue",
			"The catalog resource contains no tracks", nil)
	}

	result := &FetchResult{
		BatchID:    uuid.NewString(),
		Collection: collection.Name,
		Kind:       collection.Kind,
		Tracks:     make([]EnqueuedTrack, 0, len(collection.Tracks)),
	}
	for _, track := range collection.Tracks {
		uri := track.URI
		if uri == "" {
			uri = ref.URI()
		}
		disposition, err := s.enqueueTrack(ctx, result.BatchID, uri, track.TrackMetadata)
		if err != nil {
			return nil, err
		}
		switch disposition.Outcome {
		case EnqueueQueued:
			result.Queued++
		case EnqueueRetried:
			result.Retried++
		case EnqueueSkipped:
			result.Skipped++
		}
		result.Tracks = append(result.Tracks, disposition)
	}

	s.logger.Info("catalog resource enqueued",
		logging.String("collection", result.Collection),
		logging.String("kind", result.Kind),
		logging.String(logging.FieldBatchID, result.BatchID),
		logging.Int("queued", result.Queued),
		logging.Int("retried", result.Retried),
		logging.Int("skipped", result.Skipped))
	return result, nil
}

func (s *FetchService) enqueueTrack(ctx context.Context, batchID, uri string, meta queue.TrackMetadata) (EnqueuedTrack, error) {
	existing, err := s.store.FindBySourceURL(ctx, uri)
	if err != nil {
		return EnqueuedTrack{}, err
	}
	if existing != nil {
		if existing.Status == queue.StatusFailed {
			// Adopt the failed item into the new batch before resetting it,
			// so callers following this batch see the retry through.
			existing.BatchID = batchID
			if err := s.store.Update(ctx, existing); err != nil {
				return EnqueuedTrack{}, err
			}
			if _, err := s.store.RetryFailed(ctx, existing.ID); err != nil {
				return EnqueuedTrack{}, err
			}
			return EnqueuedTrack{ID: existing.ID, Title: meta.Title, Outcome: EnqueueRetried}, nil
		}
		return EnqueuedTrack{
			ID:      existing.ID,
			Title:   meta.Title,
			Outcome: EnqueueSkipped,
			Detail:  "already " + string(existing.Status),
		}, nil
	}

	item, err := s.store.NewTrack(ctx, batchID, uri, meta)
	if err != nil {
		return EnqueuedTrack{}, err
	}
	return EnqueuedTrack{ID: item.ID, Title: meta.Title, Outcome: EnqueueQueued}, nil
}
