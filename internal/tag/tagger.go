package tag

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/bogem/id3v2/v2"

	"tonearm/internal/config"
	"tonearm/internal/coverart"
	"tonearm/internal/logging"
	"tonearm/internal/queue"
	"tonearm/internal/stage"
)

// CoverFetcher downloads artwork for embedding.
type CoverFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, string, error)
}

// Tagger writes catalog metadata into the artifact's ID3v2 tag.
type Tagger struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	covers CoverFetcher
}

// NewTagger wires a tagger with the shared cover art source.
func NewTagger(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Tagger {
	timeout := time.Duration(cfg.Search.ThumbnailTimeout) * time.Second
	return NewTaggerWithDependencies(cfg, store, logger, coverart.NewSource(timeout))
}

// NewTaggerWithDependencies allows tests to supply a cover fetcher directly.
func NewTaggerWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, covers CoverFetcher) *Tagger {
	var taggerLogger *slog.Logger
	if logger != nil {
		taggerLogger = logger.With(logging.String("component", "tagger"))
	}
	return &Tagger{
		store:  store,
		cfg:    cfg,
		logger: taggerLogger,
		covers: covers,
	}
}

// Prepare marks the item as entering the tagging stage.
func (t *Tagger) Prepare(ctx context.Context, item *queue.Item) error {
	item.InitProgress("Tagging", "Writing track metadata")
	if t.logger != nil {
		t.logger.Info("preparing to tag",
			logging.Int64("item_id", item.ID),
			logging.String("title", item.Title))
	}
	return nil
}

// Execute writes title, artists, album, track number, and cover art into
// the artifact. Any tagging failure logs a warning and keeps the item
// moving; the untagged audio is still worth delivering.
func (t *Tagger) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, t.logger)

	path, err := stage.RequireArtifact(item)
	if err != nil {
		return err
	}
	meta, err := stage.RequireMetadata(item)
	if err != nil {
		return err
	}

	t.updateProgress(ctx, item, 20, "Writing ID3 tags")

	cover, coverMime := t.fetchCover(ctx, logger, meta)
	if err := writeTags(path, meta, cover, coverMime); err != nil {
		if logger != nil {
			logger.Warn("tagging failed, delivering untagged audio",
				logging.Int64("item_id", item.ID),
				logging.String("artifact", path),
				logging.Error(err))
		}
		item.ProgressStage = "Tagged"
		item.ProgressPercent = 100
		item.ProgressMessage = "Tagging failed, delivering untagged audio"
		return nil
	}

	item.ProgressStage = "Tagged"
	item.ProgressPercent = 100
	item.ProgressMessage = "ID3 tags written"
	if logger != nil {
		logger.Info("tagged artifact",
			logging.Int64("item_id", item.ID),
			logging.String("artifact", path),
			logging.Bool("cover_embedded", len(cover) > 0))
	}
	return nil
}

// fetchCover retrieves artwork bytes when the catalog provided a cover URL.
// Unsupported formats and fetch failures embed nothing.
func (t *Tagger) fetchCover(ctx context.Context, logger *slog.Logger, meta queue.TrackMetadata) ([]byte, string) {
	if meta.CoverURL == "" || t.covers == nil {
		return nil, ""
	}
	data, mime, err := t.covers.Fetch(ctx, meta.CoverURL)
	if err != nil {
		if logger != nil {
			logger.Warn("cover art unavailable, tagging without artwork",
				logging.String("cover_url", meta.CoverURL),
				logging.Error(err))
		}
		return nil, ""
	}
	if mime != "image/jpeg" && mime != "image/png" {
		if logger != nil {
			logger.Warn("cover art in unsupported format, tagging without artwork",
				logging.String("cover_url", meta.CoverURL),
				logging.String("mime_type", mime))
		}
		return nil, ""
	}
	return data, mime
}

func writeTags(path string, meta queue.TrackMetadata, cover []byte, coverMime string) error {
	id3, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open id3 tag: %w", err)
	}
	defer id3.Close()

	id3.SetDefaultEncoding(id3v2.EncodingUTF8)
	id3.SetTitle(meta.Title)
	if line := meta.ArtistLine(); line != "" {
		id3.SetArtist(line)
	}
	if meta.Album != "" {
		id3.SetAlbum(meta.Album)
	}
	if meta.TrackNumber > 0 {
		id3.AddTextFrame(id3.CommonID("Track number/Position in set"), id3.DefaultEncoding(), strconv.Itoa(meta.TrackNumber))
	}
	if len(cover) > 0 {
		id3.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    coverMime,
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     cover,
		})
	}
	if err := id3.Save(); err != nil {
		return fmt.Errorf("save id3 tag: %w", err)
	}
	return nil
}

// HealthCheck reports tagging readiness. Tagging has no external binary
// dependency, so configuration presence is the only requirement.
func (t *Tagger) HealthCheck(ctx context.Context) stage.Health {
	const name = "tagger"
	if t.cfg == nil {
		return stage.Unhealthy(name, "configuration not loaded")
	}
	if t.covers == nil {
		return stage.Healthy(name, "ready (no cover art source)")
	}
	return stage.Healthy(name, "ready")
}

func (t *Tagger) updateProgress(ctx context.Context, item *queue.Item, percent float64, message string) {
	if t.store == nil {
		return
	}
	updated := *item
	updated.ProgressPercent = percent
	updated.ProgressMessage = message
	if err := t.store.Update(ctx, &updated); err != nil {
		if t.logger != nil {
			t.logger.Warn("failed to persist tagging progress",
				logging.Int64("item_id", item.ID),
				logging.Error(err))
		}
		return
	}
	*item = updated
}
