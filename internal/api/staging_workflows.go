package api

import (
	"context"
	"fmt"
	"strings"

	"tonearm/internal/staging"
)

// ActiveArtifactProvider surfaces the artifact paths still referenced by
// queue items, used to decide which staging files are orphaned.
type ActiveArtifactProvider interface {
	ActiveArtifactPaths(ctx context.Context) ([]string, error)
}

type CleanStagingRequest struct {
	StagingDir string
	CleanAll   bool
	Artifacts  ActiveArtifactProvider
}

type CleanStagingResult struct {
	Configured bool
	Scope      string
	Cleanup    staging.CleanResult
}

// CleanStaging applies the staging cleanup policy used by CLI commands.
// Without CleanAll it keeps every file belonging to a current queue item,
// including download partials and trim temporaries that extend the
// artifact's name.
func CleanStaging(ctx context.Context, req CleanStagingRequest) (CleanStagingResult, error) {
	stagingDir := strings.TrimSpace(req.StagingDir)
	if stagingDir == "" {
		return CleanStagingResult{Configured: false}, nil
	}

	if req.CleanAll {
		return CleanStagingResult{
			Configured: true,
			Scope:      "staging",
			Cleanup:    staging.CleanAll(ctx, stagingDir, nil),
		}, nil
	}

	if req.Artifacts == nil {
		return CleanStagingResult{}, fmt.Errorf("active artifact provider is required unless clean_all is set")
	}
	paths, err := req.Artifacts.ActiveArtifactPaths(ctx)
	if err != nil {
		return CleanStagingResult{}, err
	}
	stems := make([]string, 0, len(paths))
	for _, path := range paths {
		if stem := staging.Stem(path); stem != "" {
			stems = append(stems, stem)
		}
	}
	return CleanStagingResult{
		Configured: true,
		Scope:      "orphaned staging",
		Cleanup:    staging.CleanOrphaned(ctx, stagingDir, stems, nil),
	}, nil
}
