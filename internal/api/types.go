package api

import (
	"encoding/json"

	"tonearm/internal/logging"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a queue entry in a transport-friendly format.
type QueueItem struct {
	ID                int64           `json:"id"`
	Title             string          `json:"title"`
	Artist            string          `json:"artist,omitempty"`
	SourceURL         string          `json:"sourceUrl"`
	BatchID           string          `json:"batchId,omitempty"`
	Status            string          `json:"status"`
	ProcessingLane    string          `json:"processingLane"`
	Progress          QueueProgress   `json:"progress"`
	ErrorMessage      string          `json:"errorMessage"`
	ErrorKind         string          `json:"errorKind,omitempty"`
	ErrorHint         string          `json:"errorHint,omitempty"`
	CreatedAt         string          `json:"createdAt,omitempty"`
	UpdatedAt         string          `json:"updatedAt,omitempty"`
	MatchedURL        string          `json:"matchedUrl,omitempty"`
	MatchStrategy     string          `json:"matchStrategy,omitempty"`
	MatchScore        float64         `json:"matchScore,omitempty"`
	VideoURL          string          `json:"videoUrl,omitempty"`
	ArtifactPath      string          `json:"artifactPath,omitempty"`
	FinalFile         string          `json:"finalFile,omitempty"`
	BackgroundLogPath string          `json:"backgroundLogPath,omitempty"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
}

// QueueProgress captures stage progress information for a queue entry.
type QueueProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueActive bool           `json:"queueActive"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastItem    *QueueItem     `json:"lastItem,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
// Severity is filled in by status presentation code when empty.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

// StatusLine is one labelled row in a status report section.
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// DependencySummary aggregates dependency readiness for status output.
type DependencySummary struct {
	Total           int    `json:"total"`
	Available       int    `json:"available"`
	MissingRequired int    `json:"missingRequired"`
	MissingOptional int    `json:"missingOptional"`
	Severity        string `json:"severity"`
	Detail          string `json:"detail"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// QueueListResponse wraps a collection of queue items for API responses.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueItemResponse wraps a single queue item.
type QueueItemResponse struct {
	Item QueueItem `json:"item"`
}

// QueueHealthResponse reports aggregate queue counts.
type QueueHealthResponse struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
	Completed  int `json:"completed"`
}

// LogEvent and DetailField already carry their wire tags in the logging
// package, so the API reuses them directly.
type LogEvent = logging.LogEvent

// DetailField mirrors a console info bullet in log payloads.
type DetailField = logging.DetailField

// LogStreamResponse carries a batch of log events plus the cursor for the
// next poll.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}

// FetchRequest asks the daemon to expand a catalog URL into queue items.
type FetchRequest struct {
	URL string `json:"url"`
}

// QueueSelectionRequest carries the IDs for bulk queue actions.
type QueueSelectionRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueClearRequest selects which items a clear operation removes.
type QueueClearRequest struct {
	Scope string `json:"scope,omitempty"`
}

// QueueClearResponse reports how many items a clear or remove touched.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// QueueResetResponse reports how many in-flight items were reset.
type QueueResetResponse struct {
	Updated int64 `json:"updated"`
}

// TestNotifyResponse reports the outcome of a test notification.
type TestNotifyResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message,omitempty"`
}

// DatabaseHealthReport mirrors the store's database diagnostics.
type DatabaseHealthReport struct {
	DBPath           string   `json:"dbPath"`
	DatabaseExists   bool     `json:"databaseExists"`
	DatabaseReadable bool     `json:"databaseReadable"`
	SchemaVersion    string   `json:"schemaVersion"`
	TableExists      bool     `json:"tableExists"`
	ColumnsPresent   []string `json:"columnsPresent,omitempty"`
	MissingColumns   []string `json:"missingColumns,omitempty"`
	IntegrityCheck   bool     `json:"integrityCheck"`
	TotalItems       int      `json:"totalItems"`
	Error            string   `json:"error,omitempty"`
}
