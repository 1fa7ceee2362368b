package preflight

import (
	"context"

	"tonearm/internal/config"
	"tonearm/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunFeatureChecks executes all preflight checks applicable to the given
// config: directory access, Spotify credential presence, and external tool
// availability. Optional tools that are missing still pass, with the gap
// noted in the detail.
func RunFeatureChecks(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
	}
	if cfg.Paths.LibraryDir != "" {
		results = append(results, CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir))
	}
	results = append(results, CheckSpotifyCredentials(cfg))
	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, resultFromDependency(status))
	}
	return results
}

func resultFromDependency(status deps.Status) Result {
	result := Result{Name: status.Name, Passed: status.Available}
	switch {
	case status.Available:
		result.Detail = status.Command
	case status.Optional:
		result.Passed = true
		result.Detail = status.Detail + " (optional)"
	default:
		result.Detail = status.Detail
	}
	return result
}
