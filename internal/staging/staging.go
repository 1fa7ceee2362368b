// Package staging inspects and cleans the flat staging directory where
// downloaded and trimmed audio artifacts wait for organization.
package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tonearm/internal/logging"
)

// FileInfo describes one artifact in the staging directory.
type FileInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// CleanupError pairs a file path with its removal error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanResult contains the outcome of a staging cleanup operation.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// Stem returns the artifact base name without its extension. Download
// partials and trim temporaries extend the stem of the artifact they belong
// to, so prefix-matching on stems groups a track with its working files.
func Stem(path string) string {
	base := filepath.Base(strings.TrimSpace(path))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ListFiles returns the regular files in the staging directory with their
// metadata. A missing directory yields an empty listing.
func ListFiles(stagingDir string) ([]FileInfo, error) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:    entry.Name(),
			Path:    filepath.Join(stagingDir, entry.Name()),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}
	return files, nil
}

// CleanAll removes every regular file in the staging directory.
func CleanAll(ctx context.Context, stagingDir string, logger *slog.Logger) CleanResult {
	return clean(ctx, stagingDir, logger, func(string) bool { return true })
}

// CleanOrphaned removes staging files that do not belong to any current
// queue item. A file belongs to an item when its name extends one of the
// active artifact stems, which keeps download partials and trim
// temporaries alongside the artifact they serve.
func CleanOrphaned(ctx context.Context, stagingDir string, activeStems []string, logger *slog.Logger) CleanResult {
	stems := make([]string, 0, len(activeStems))
	for _, stem := range activeStems {
		if stem = strings.TrimSpace(stem); stem != "" {
			stems = append(stems, stem)
		}
	}
	return clean(ctx, stagingDir, logger, func(name string) bool {
		for _, stem := range stems {
			if strings.HasPrefix(name, stem) {
				return false
			}
		}
		return true
	})
}

func clean(ctx context.Context, stagingDir string, logger *slog.Logger, shouldRemove func(name string) bool) CleanResult {
	result := CleanResult{}

	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return result
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result
		}
		if entry.IsDir() {
			continue
		}
		if !shouldRemove(entry.Name()) {
			continue
		}

		path := filepath.Join(stagingDir, entry.Name())
		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			if logger != nil {
				logger.Warn("failed to remove staging file",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldEventType, "staging_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, path)
		if logger != nil {
			logger.Info("removed staging file",
				logging.String("path", path),
				logging.String(logging.FieldEventType, "staging_cleanup"),
			)
		}
	}

	return result
}
