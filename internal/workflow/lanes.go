package workflow

import (
	"log/slog"

	"golang.org/x/time/rate"

	"tonearm/internal/queue"
	"tonearm/internal/stage"
)

type laneKind string

const (
	laneFetch  laneKind = "fetch"
	laneFinish laneKind = "finish"
)

// pipelineStage binds a stage handler to its queue status transitions.
// paced marks stages that must respect the lane's download limiter.
type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
	paced            bool
}

// laneState holds the runtime for one lane goroutine.
type laneState struct {
	kind                 laneKind
	name                 string
	stages               []pipelineStage
	statusOrder          []queue.Status
	stageByStart         map[queue.Status]pipelineStage
	logger               *slog.Logger
	limiter              *rate.Limiter
	notificationsEnabled bool
	runReclaimer         bool
}

// finalize derives the claim order and lookup table from the registered
// stages. Must be called after every change to stages.
func (l *laneState) finalize() {
	l.statusOrder = l.statusOrder[:0]
	l.stageByStart = make(map[queue.Status]pipelineStage, len(l.stages))
	for _, st := range l.stages {
		l.statusOrder = append(l.statusOrder, st.startStatus)
		l.stageByStart[st.startStatus] = st
	}
}

func (l *laneState) stageForStatus(status queue.Status) (pipelineStage, bool) {
	st, ok := l.stageByStart[status]
	return st, ok
}
