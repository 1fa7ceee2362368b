package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tonearm/internal/api"
	"tonearm/internal/logging"
	"tonearm/internal/queue"
	"tonearm/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Manage staging artifacts",
	}

	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingCleanCommand(ctx))

	return stagingCmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staging artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			files, err := staging.ListFiles(cfg.Paths.StagingDir)
			if err != nil {
				return fmt.Errorf("list staging files: %w", err)
			}

			if ctx.JSONMode() {
				if files == nil {
					files = []staging.FileInfo{}
				}
				var totalSize int64
				for _, file := range files {
					totalSize += file.Size
				}
				return writeJSON(cmd, map[string]any{
					"staging_dir":      cfg.Paths.StagingDir,
					"files":            files,
					"total_size_bytes": totalSize,
				})
			}

			if len(files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No staging files found")
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Staging directory: %s\n\n", cfg.Paths.StagingDir)

			var totalSize int64
			rows := make([][]string, 0, len(files))
			for _, file := range files {
				age := time.Since(file.ModTime).Truncate(time.Minute)
				totalSize += file.Size
				rows = append(rows, []string{file.Name, formatAge(age), logging.FormatBytes(file.Size)})
			}

			table := renderTable(
				[]string{"File", "Age", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
			)
			fmt.Fprint(out, table)
			fmt.Fprintf(out, "\nTotal: %d files, %s\n", len(files), logging.FormatBytes(totalSize))
			return nil
		},
	}
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var cleanAll bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove orphaned staging artifacts",
		Long: `Remove staging files not associated with any queue item.

By default, only removes files left behind by cleared or removed queue
entries. Files belonging to current items stay, including download partials
and trim temporaries.

Use --all to remove every staging file regardless of queue state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				req := api.CleanStagingRequest{
					StagingDir: cfg.Paths.StagingDir,
					CleanAll:   cleanAll,
				}
				if !cleanAll {
					req.Artifacts = store
				}

				result, err := api.CleanStaging(cmd.Context(), req)
				if err != nil {
					return err
				}
				if !result.Configured {
					if ctx.JSONMode() {
						return writeJSON(cmd, map[string]any{"removed": 0, "errors": []any{}})
					}
					fmt.Fprintln(cmd.OutOrStdout(), "Staging directory not configured")
					return nil
				}
				if ctx.JSONMode() {
					return writeStagingCleanJSON(cmd, result.Cleanup)
				}
				return printStagingCleanResult(cmd, result.Cleanup, result.Scope)
			})
		},
	}

	cmd.Flags().BoolVar(&cleanAll, "all", false, "Remove all staging files (including active)")

	return cmd
}

func printStagingCleanResult(cmd *cobra.Command, result staging.CleanResult, label string) error {
	out := cmd.OutOrStdout()
	if len(result.Removed) == 0 && len(result.Errors) == 0 {
		fmt.Fprintf(out, "No %s files to clean\n", label)
		return nil
	}
	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "Removed %d %s files, %d errors\n", len(result.Removed), label, len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
		}
		return nil
	}
	fmt.Fprintf(out, "Removed %d %s files\n", len(result.Removed), label)
	return nil
}

func formatAge(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	days := int(d.Hours() / 24)
	return fmt.Sprintf("%dd", days)
}

func writeStagingCleanJSON(cmd *cobra.Command, result staging.CleanResult) error {
	errs := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		errs = append(errs, fmt.Sprintf("%s: %v", e.Path, e.Error))
	}
	return writeJSON(cmd, map[string]any{
		"removed": len(result.Removed),
		"errors":  errs,
	})
}
