package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tonearm/internal/config"
	"tonearm/internal/logging"
	"tonearm/internal/notifications"
	"tonearm/internal/queue"
	"tonearm/internal/stage"
)

// Manager owns the lane goroutines and the shared batch state.
type Manager struct {
	cfg       *config.Config
	store     *queue.Store
	logger    *slog.Logger
	notifier  notifications.Service
	heartbeat *HeartbeatMonitor
	bgLogger  *BackgroundLogger

	pollInterval time.Duration
	retryDelay   time.Duration

	lanes     map[laneKind]*laneState
	laneOrder []laneKind

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastItem *queue.Item

	// Batch bookkeeping. queueActive flips on when the first track starts
	// and off when the queue drains; the baselines subtract tracks that
	// finished in earlier batches from the completion notification counts.
	queueActive   bool
	queueStart    time.Time
	baseCompleted int
	baseFailed    int
}

// Option adjusts manager construction, primarily for tests.
type Option func(*Manager)

// WithPollInterval overrides the idle queue poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// WithErrorRetryInterval overrides the backoff after queue poll failures.
func WithErrorRetryInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.retryDelay = d
		}
	}
}

// NewManager builds a manager with notifications derived from config.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier builds a manager with an explicit notifier.
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	return NewManagerWithOptions(cfg, store, logger, notifier, nil)
}

// NewManagerWithOptions builds a manager with an explicit notifier and log
// hub. The hub, when non-nil, receives every per-track log event so API
// clients can follow stage activity.
func NewManagerWithOptions(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service, hub *logging.StreamHub, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	m := &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		notifier:     notifier,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		retryDelay:   time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		bgLogger: NewBackgroundLogger(cfg, hub),
		lanes:    make(map[laneKind]*laneState, 2),
	}
	m.initLanes()
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) initLanes() {
	fetchLane := &laneState{
		kind:                 laneFetch,
		name:                 string(queue.LaneFetch),
		logger:               m.laneLogger(string(queue.LaneFetch)),
		notificationsEnabled: true,
		runReclaimer:         true,
	}
	if pacing := m.cfg.Fetch.PacingSeconds; pacing > 0 {
		fetchLane.limiter = rate.NewLimiter(rate.Every(time.Duration(pacing)*time.Second), 1)
	}
	finishLane := &laneState{
		kind:   laneFinish,
		name:   string(queue.LaneFinish),
		logger: m.laneLogger(string(queue.LaneFinish)),
	}
	m.lanes = map[laneKind]*laneState{
		laneFetch:  fetchLane,
		laneFinish: finishLane,
	}
	m.laneOrder = []laneKind{laneFetch, laneFinish}
}

// StageSet enumerates the handlers the manager can schedule.
type StageSet struct {
	Resolver  stage.Handler
	Fetcher   stage.Handler
	Trimmer   stage.Handler
	Tagger    stage.Handler
	Organizer stage.Handler
}

// ConfigureStages registers the provided handlers with their lanes. Nil
// handlers are skipped so tests can run partial pipelines.
func (m *Manager) ConfigureStages(set StageSet) {
	fetchLane := m.lanes[laneFetch]
	finishLane := m.lanes[laneFinish]
	fetchLane.stages = fetchLane.stages[:0]
	finishLane.stages = finishLane.stages[:0]

	if set.Resolver != nil {
		fetchLane.stages = append(fetchLane.stages, pipelineStage{
			name:             "resolver",
			handler:          set.Resolver,
			startStatus:      queue.StatusPending,
			processingStatus: queue.StatusResolving,
			doneStatus:       queue.StatusResolved,
		})
	}
	if set.Fetcher != nil {
		fetchLane.stages = append(fetchLane.stages, pipelineStage{
			name:             "fetcher",
			handler:          set.Fetcher,
			startStatus:      queue.StatusResolved,
			processingStatus: queue.StatusFetching,
			doneStatus:       queue.StatusFetched,
			paced:            true,
		})
	}
	if set.Trimmer != nil {
		finishLane.stages = append(finishLane.stages, pipelineStage{
			name:             "trimmer",
			handler:          set.Trimmer,
			startStatus:      queue.StatusFetched,
			processingStatus: queue.StatusTrimming,
			doneStatus:       queue.StatusTrimmed,
		})
	}
	if set.Tagger != nil {
		finishLane.stages = append(finishLane.stages, pipelineStage{
			name:             "tagger",
			handler:          set.Tagger,
			startStatus:      queue.StatusTrimmed,
			processingStatus: queue.StatusTagging,
			doneStatus:       queue.StatusTagged,
		})
	}
	if set.Organizer != nil {
		finishLane.stages = append(finishLane.stages, pipelineStage{
			name:             "organizer",
			handler:          set.Organizer,
			startStatus:      queue.StatusTagged,
			processingStatus: queue.StatusOrganizing,
			doneStatus:       queue.StatusCompleted,
		})
	}

	fetchLane.finalize()
	finishLane.finalize()
}

// Start rolls back tracks interrupted by a previous run, logs preflight
// results, and launches one goroutine per configured lane.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow manager already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.lastErr = nil
	m.mu.Unlock()

	if reset, err := m.store.ResetStuckProcessing(runCtx); err != nil {
		m.logger.Warn("stuck track reset failed", logging.Error(err))
	} else if reset > 0 {
		m.logger.Info("reset tracks interrupted by previous run", logging.Int64("count", reset))
	}

	m.runPreflightChecks(runCtx)

	launched := 0
	for _, kind := range m.laneOrder {
		lane := m.lanes[kind]
		if len(lane.stages) == 0 {
			continue
		}
		m.wg.Add(1)
		go m.runLane(runCtx, lane)
		launched++
	}
	if launched == 0 {
		m.logger.Warn("no stages configured, manager is idle")
	}
	m.logger.Info("workflow manager started",
		logging.Int("lanes", launched),
		logging.Duration("poll_interval", m.pollInterval),
	)
	return nil
}

// Stop halts lane processing and waits for in-flight stages to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.cancel = nil
	m.running = false
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	m.logger.Info("workflow manager stopped")
}

// Running reports whether lanes are active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Manager) setLastError(err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastItem(item *queue.Item) {
	if item == nil {
		return
	}
	cp := *item
	m.mu.Lock()
	m.lastItem = &cp
	m.mu.Unlock()
}

func trackDisplayTitle(item *queue.Item) string {
	if item == nil {
		return ""
	}
	if item.Title != "" {
		return item.Title
	}
	return fmt.Sprintf("track #%d", item.ID)
}
