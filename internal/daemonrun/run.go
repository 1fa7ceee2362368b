// Package daemonrun assembles the long-running tonearm process: logging with
// streaming and archival, the queue store, the workflow manager with its
// stage handlers, and the daemon that exposes everything over the HTTP API.
package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"log/slog"

	"tonearm/internal/api"
	"tonearm/internal/catalog"
	"tonearm/internal/config"
	"tonearm/internal/daemon"
	"tonearm/internal/fetch"
	"tonearm/internal/logging"
	"tonearm/internal/notifications"
	"tonearm/internal/organizer"
	"tonearm/internal/queue"
	"tonearm/internal/resolver"
	"tonearm/internal/tag"
	"tonearm/internal/trim"
	"tonearm/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the tonearm daemon runtime loop and blocks until the process
// receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("tonearm-%s.log", runID))
	eventsPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("tonearm-%s.events", runID))
	logHub := logging.NewStreamHub(4096)
	eventArchive, archiveErr := logging.NewEventArchive(eventsPath)
	if archiveErr != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to initialize log archive: %v\n", archiveErr)
	} else if eventArchive != nil {
		logHub.AddSink(eventArchive)
	}

	logger, err := logging.New(logging.Options{
		Level:            opts.LogLevel,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
		Stream:           logHub,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update tonearm.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "tonearm-*.log", Exclude: []string{logPath}},
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "tonearm-*.events", Exclude: []string{eventsPath}},
		logging.RetentionTarget{Dir: filepath.Join(cfg.Paths.LogDir, "background"), Pattern: "*.log"},
	)
	pidPath := filepath.Join(cfg.Paths.LogDir, "tonearm.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	notifier := notifications.NewService(cfg)
	workflowManager := workflow.NewManagerWithOptions(cfg, store, logger, notifier, logHub)
	RegisterStages(workflowManager, cfg, store, logger, notifier)

	fetchSvc := newFetchService(cfg, store, logger)

	d, err := daemon.New(cfg, store, logger, workflowManager, logPath, logHub, eventArchive, fetchSvc)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and queue database access"),
			logging.String(logging.FieldImpact, "daemon may not process queue items"),
		)
	}

	<-signalCtx.Done()
	logger.Info("tonearm daemon shutting down")
	return nil
}

// RegisterStages wires the full stage set into the manager. The CLI reuses
// it for foreground fetch runs so both execution paths share one pipeline
// definition.
func RegisterStages(mgr *workflow.Manager, cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) {
	if mgr == nil || cfg == nil {
		return
	}

	mgr.ConfigureStages(workflow.StageSet{
		Resolver:  resolver.NewResolver(cfg, store, logger),
		Fetcher:   fetch.NewStage(cfg, store, logger),
		Trimmer:   trim.NewTrimmer(cfg, store, logger),
		Tagger:    tag.NewTagger(cfg, store, logger),
		Organizer: organizer.NewOrganizer(cfg, store, logger, notifier),
	})
}

// newFetchService builds the catalog intake workflow. Missing Spotify
// credentials leave the daemon running with intake disabled so operators can
// still inspect the queue and logs.
func newFetchService(cfg *config.Config, store *queue.Store, logger *slog.Logger) *api.FetchService {
	catalogClient, err := catalog.New(cfg, logger)
	if err != nil {
		logger.Warn("catalog client unavailable, intake disabled",
			logging.Error(err),
			logging.String(logging.FieldEventType, "catalog_client_unavailable"),
			logging.String(logging.FieldErrorHint, "set spotify client_id and client_secret in the config"),
			logging.String(logging.FieldImpact, "fetch requests will be rejected until credentials are configured"),
		)
		return nil
	}
	return api.NewFetchService(catalogClient, store, logger)
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "tonearm.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	ytdlp := cfg.YtDlpBinary()
	ffmpeg := cfg.FFmpegBinary()
	ffprobe := cfg.FFprobeBinary()
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("spotify_credentials_present", strings.TrimSpace(cfg.Spotify.ClientID) != "" && strings.TrimSpace(cfg.Spotify.ClientSecret) != ""),
		logging.Bool("ytdlp_available", binaryAvailable(ytdlp)),
		logging.String("ytdlp_binary", ytdlp),
		logging.Bool("ffmpeg_available", binaryAvailable(ffmpeg)),
		logging.String("ffmpeg_binary", ffmpeg),
		logging.Bool("ffprobe_available", binaryAvailable(ffprobe)),
		logging.String("ffprobe_binary", ffprobe),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
	)
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
