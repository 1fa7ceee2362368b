package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queued track.
type Status string

const (
	StatusPending    Status = "pending"
	StatusResolving  Status = "resolving"
	StatusResolved   Status = "resolved"
	StatusFetching   Status = "fetching"
	StatusFetched    Status = "fetched"
	StatusTrimming   Status = "trimming"
	StatusTrimmed    Status = "trimmed"
	StatusTagging    Status = "tagging"
	StatusTagged     Status = "tagged"
	StatusOrganizing Status = "organizing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// DaemonStopReason is the error message set when tracks are failed due to
// daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusResolving,
	StatusResolved,
	StatusFetching,
	StatusFetched,
	StatusTrimming,
	StatusTrimmed,
	StatusTagging,
	StatusTagged,
	StatusOrganizing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusResolving:  {},
	StatusFetching:   {},
	StatusTrimming:   {},
	StatusTagging:    {},
	StatusOrganizing: {},
}

type statusTransition struct {
	from Status
	to   Status
}

// stageRollbackTransitions return an interrupted track to the start of the
// stage it was executing.
var stageRollbackTransitions = []statusTransition{
	{from: StatusResolving, to: StatusPending},
	{from: StatusFetching, to: StatusResolved},
	{from: StatusTrimming, to: StatusFetched},
	{from: StatusTagging, to: StatusTrimmed},
	{from: StatusOrganizing, to: StatusTagged},
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}

// Item represents one queued track persisted in SQLite.
type Item struct {
	ID      int64
	BatchID string
	// SourceURL is the catalog URL or URI the track came from.
	SourceURL string
	// Title is the display title, also kept inside MetadataJSON.
	Title        string
	Status       Status
	MetadataJSON string
	// MatchedURL is the resolver's primary pick.
	MatchedURL     string
	CandidatesJSON string
	MatchStrategy  string
	MatchScore     float64
	// VideoURL is the candidate that actually produced the artifact.
	VideoURL string
	// ArtifactPath is the staged audio file before library placement.
	ArtifactPath string
	// FinalPath is the library destination after organizing.
	FinalPath         string
	BackgroundLogPath string
	ErrorMessage      string
	ErrorKind         string
	ErrorHint         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ProgressStage     string
	ProgressPercent   float64
	ProgressMessage   string
	LastHeartbeat     *time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (i Item) IsProcessing() bool {
	return IsProcessingStatus(i.Status)
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// InitProgress resets progress fields for a new stage. If ProgressStage is
// currently empty, it is set to the provided stage value; otherwise the
// existing stage is preserved to support resume scenarios. ProgressMessage is
// set to message, ProgressPercent is reset to 0, and the error fields are
// cleared.
func (i *Item) InitProgress(stage, message string) {
	if i.ProgressStage == "" {
		i.ProgressStage = stage
	}
	i.ProgressMessage = message
	i.ProgressPercent = 0
	i.ErrorMessage = ""
	i.ErrorKind = ""
	i.ErrorHint = ""
}

// SetProgress updates all three progress fields atomically. Use this instead
// of setting ProgressStage, ProgressPercent, and ProgressMessage individually.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
func (i *Item) SetProgressComplete(stage, message string) {
	i.SetProgress(stage, message, 100)
}

// SetFailed marks the track as failed with classified error detail. Clears
// the heartbeat and sets progress fields appropriately.
func (i *Item) SetFailed(kind, message, hint string) {
	i.Status = StatusFailed
	i.ErrorKind = kind
	i.ErrorMessage = message
	i.ErrorHint = hint
	i.ProgressPercent = 0
	i.ProgressMessage = message
	i.LastHeartbeat = nil
	i.ProgressStage = "Failed"
}

// StageKey returns the normalized stage identifier used in API/CLI
// presentation.
func (s Status) StageKey() string {
	switch s {
	case "":
		return ""
	case StatusPending:
		return "planned"
	case StatusCompleted:
		return "final"
	default:
		if _, ok := statusSet[s]; ok {
			return string(s)
		}
		return ""
	}
}

// ProcessingLane partitions the workflow into the network-paced fetch lane
// and the local finish lane.
type ProcessingLane string

const (
	LaneFetch  ProcessingLane = "fetch"
	LaneFinish ProcessingLane = "finish"
)

// LaneForItem maps a queue item to its processing lane for observability
// purposes. Failed tracks report the lane they died in, inferred from whether
// an artifact had already been acquired.
func LaneForItem(item *Item) ProcessingLane {
	if item == nil {
		return LaneFetch
	}
	switch item.Status {
	case StatusPending, StatusResolving, StatusResolved, StatusFetching:
		return LaneFetch
	case StatusFetched, StatusTrimming, StatusTrimmed, StatusTagging, StatusTagged, StatusOrganizing, StatusCompleted:
		return LaneFinish
	case StatusFailed:
		if item.ArtifactPath != "" {
			return LaneFinish
		}
		return LaneFetch
	default:
		return LaneFetch
	}
}
