// Package api defines wire-format types, converters, and transport-agnostic
// workflows shared by the daemon HTTP API and the CLI. It translates internal
// queue models into DTOs that remote consumers can render without coupling to
// internal types.
//
// # Key Types
//
// QueueItem: transport representation of a queue entry with progress, match
// outcome, error classification, and artifact paths.
//
// WorkflowStatus: manager running state, queue stats, stage health, and last item.
//
// DaemonStatus: aggregated runtime information including dependencies.
//
// LogEvent/LogStreamResponse: structured log payloads for live tailing.
//
// # Converters
//
// FromQueueItem: queue.Item -> QueueItem with lane derivation, artist line
// extraction from stored metadata, and raw metadata passthrough.
//
// FromStatusSummary: workflow.StatusSummary -> WorkflowStatus.
//
// # Workflows
//
// FetchService expands a catalog URL into queue items with per-track
// deduplication. RetryFailedItemsByID reports a per-ID outcome so callers can
// tell retried from not-found from not-failed.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Internal enums (queue.Status, queue.
// ProcessingLane) are exposed as lowercase strings. Timestamps use RFC3339
// with milliseconds. Metadata is passed through as json.RawMessage to avoid
// double-encoding.
package api
