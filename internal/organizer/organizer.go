package organizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"tonearm/internal/config"
	"tonearm/internal/fileutil"
	"tonearm/internal/logging"
	"tonearm/internal/notifications"
	"tonearm/internal/queue"
	"tonearm/internal/services"
	"tonearm/internal/stage"
)

// Organizer moves tagged artifacts into their final library location.
type Organizer struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service
}

// NewOrganizer creates the library placement stage handler.
func NewOrganizer(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Organizer {
	var organizerLogger *slog.Logger
	if logger != nil {
		organizerLogger = logger.With(logging.String("component", "organizer"))
	}
	return &Organizer{
		store:    store,
		cfg:      cfg,
		logger:   organizerLogger,
		notifier: notifier,
	}
}

// Prepare marks the item as entering the organizing stage.
func (o *Organizer) Prepare(ctx context.Context, item *queue.Item) error {
	item.InitProgress("Organizing", "Moving track into the library")
	if o.logger != nil {
		o.logger.Info("preparing to organize",
			logging.Int64("item_id", item.ID),
			logging.String("title", item.Title))
	}
	return nil
}

// Execute places the artifact at its library destination and records the
// final path. The move is idempotent: a destination left behind by an
// interrupted run is adopted, and collisions follow the overwrite setting.
func (o *Organizer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, o.logger)

	meta, err := stage.RequireMetadata(item)
	if err != nil {
		return err
	}
	dest, err := o.destinationPath(item, meta)
	if err != nil {
		return err
	}

	if o.resumeInterruptedMove(item, dest) {
		o.finish(ctx, logger, item, meta, dest, "Adopted library copy from interrupted run")
		return nil
	}

	path, err := stage.RequireArtifact(item)
	if err != nil {
		return err
	}

	o.updateProgress(ctx, item, 25, "Preparing library destination")

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return services.WrapHint(services.ErrPostProcess, "organizing", "create library directory",
			"Could not create the library directory",
			"check library directory permissions and free space", err)
	}

	if !o.cfg.Library.OverwriteExisting {
		if _, statErr := os.Stat(dest); statErr == nil {
			if removeErr := os.Remove(path); removeErr != nil && logger != nil {
				logger.Warn("failed to remove staging artifact",
					logging.String("artifact", path),
					logging.Error(removeErr))
			}
			o.finish(ctx, logger, item, meta, dest, "Existing library copy kept")
			return nil
		}
	}

	o.updateProgress(ctx, item, 60, "Moving artifact into the library")

	if err := moveFile(path, dest); err != nil {
		return services.WrapHint(services.ErrPostProcess, "organizing", "move artifact",
			"Could not move the track into the library",
			"check library directory permissions and free space", err)
	}

	o.finish(ctx, logger, item, meta, dest, "Added to library")
	return nil
}

// resumeInterruptedMove reports whether the artifact already reached the
// destination in a previous run that died before the queue update.
func (o *Organizer) resumeInterruptedMove(item *queue.Item, dest string) bool {
	path := strings.TrimSpace(item.ArtifactPath)
	if path == "" {
		return false
	}
	if _, err := os.Stat(path); err == nil {
		return false
	}
	_, err := os.Stat(dest)
	return err == nil
}

func (o *Organizer) finish(ctx context.Context, logger *slog.Logger, item *queue.Item, meta queue.TrackMetadata, dest, message string) {
	item.FinalPath = dest
	item.ProgressStage = "Organized"
	item.ProgressPercent = 100
	item.ProgressMessage = message
	if logger != nil {
		logger.Info("track organized",
			logging.Int64("item_id", item.ID),
			logging.String("final_path", dest))
	}
	if o.notifier != nil {
		if err := o.notifier.NotifyTrackCompleted(ctx, meta.Display(), dest); err != nil && logger != nil {
			logger.Warn("completion notification failed", logging.Error(err))
		}
	}
}

// destinationPath builds the library location for a track from its source
// kind: playlist and album tracks group under their sanitized collection
// name, single tracks go straight into the singles directory.
func (o *Organizer) destinationPath(item *queue.Item, meta queue.TrackMetadata) (string, error) {
	root := strings.TrimSpace(o.cfg.Paths.LibraryDir)
	if root == "" {
		return "", services.Wrap(services.ErrConfiguration, "organizing", "library path",
			"Library directory is not configured", nil)
	}

	dir := root
	grouped := false
	switch meta.SourceKind {
	case queue.SourceKindPlaylist:
		dir = filepath.Join(dir, o.cfg.Library.PlaylistsDir)
		grouped = true
	case queue.SourceKindAlbum:
		dir = filepath.Join(dir, o.cfg.Library.AlbumsDir)
		grouped = true
	default:
		dir = filepath.Join(dir, o.cfg.Library.SinglesDir)
	}
	if grouped {
		if container := fileutil.SanitizeFileName(meta.Container); container != "" {
			dir = filepath.Join(dir, container)
		}
	}

	base := fileutil.SanitizeFileName(meta.Display())
	if base == "" {
		base = fmt.Sprintf("track-%d", item.ID)
	}
	ext := filepath.Ext(item.ArtifactPath)
	if ext == "" {
		ext = ".mp3"
	}
	if grouped && meta.TrackNumber > 0 {
		return filepath.Join(dir, fmt.Sprintf("%02d - %s%s", meta.TrackNumber, base, ext)), nil
	}
	return filepath.Join(dir, base+ext), nil
}

// moveFile renames src to dst, falling back to a verified copy when the
// library lives on a different filesystem than staging.
func moveFile(src, dst string) error {
	renameErr := os.Rename(src, dst)
	if renameErr == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(renameErr, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return renameErr
	}
	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// HealthCheck verifies the library root is configured and reachable.
func (o *Organizer) HealthCheck(ctx context.Context) stage.Health {
	const name = "organizer"
	if o.cfg == nil {
		return stage.Unhealthy(name, "configuration not loaded")
	}
	root := strings.TrimSpace(o.cfg.Paths.LibraryDir)
	if root == "" {
		return stage.Unhealthy(name, "library directory not configured")
	}
	if _, err := os.Stat(root); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("library directory unavailable: %v", err))
	}
	return stage.Healthy(name, "ready")
}

func (o *Organizer) updateProgress(ctx context.Context, item *queue.Item, percent float64, message string) {
	if o.store == nil {
		return
	}
	updated := *item
	updated.ProgressPercent = percent
	updated.ProgressMessage = message
	if err := o.store.Update(ctx, &updated); err != nil {
		if o.logger != nil {
			o.logger.Warn("failed to persist organizing progress",
				logging.Int64("item_id", item.ID),
				logging.Error(err))
		}
		return
	}
	*item = updated
}
