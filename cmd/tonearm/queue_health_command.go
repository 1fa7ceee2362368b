package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"tonearm/internal/api"
	"tonearm/internal/queue"
)

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "queue-health",
		Short: "Check queue database health (schema, integrity, columns)",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := fetchDatabaseHealth(cmd.Context(), ctx)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, report)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database path: %s\n", report.DBPath)
			fmt.Fprintf(out, "Database exists: %s\n", yesNo(report.DatabaseExists))
			fmt.Fprintf(out, "Readable: %s\n", yesNo(report.DatabaseReadable))
			fmt.Fprintf(out, "Schema version: %s\n", report.SchemaVersion)
			fmt.Fprintf(out, "queue_items table present: %s\n", yesNo(report.TableExists))
			if len(report.ColumnsPresent) > 0 {
				cols := append([]string(nil), report.ColumnsPresent...)
				sort.Strings(cols)
				fmt.Fprintf(out, "Columns: %s\n", strings.Join(cols, ", "))
			}
			if len(report.MissingColumns) > 0 {
				missing := append([]string(nil), report.MissingColumns...)
				sort.Strings(missing)
				fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(missing, ", "))
			} else {
				fmt.Fprintln(out, "Missing columns: none")
			}
			fmt.Fprintf(out, "Integrity check: %s\n", yesNo(report.IntegrityCheck))
			fmt.Fprintf(out, "Total items: %d\n", report.TotalItems)
			if report.Error != "" {
				fmt.Fprintf(out, "Error: %s\n", report.Error)
			}
			return nil
		},
	}
}

// fetchDatabaseHealth asks the daemon first so the report reflects the
// database the running workflow actually uses, then inspects the file
// directly when no daemon answers.
func fetchDatabaseHealth(runCtx context.Context, ctx *commandContext) (api.DatabaseHealthReport, error) {
	client, err := ctx.apiClient()
	if err != nil {
		return api.DatabaseHealthReport{}, err
	}
	if client != nil {
		report, err := client.DatabaseHealth(runCtx)
		if err == nil {
			return report, nil
		}
		if !api.IsUnavailable(err) {
			return api.DatabaseHealthReport{}, err
		}
	}

	cfg := ctx.configValue()
	store, err := queue.Open(cfg)
	if err != nil {
		return api.DatabaseHealthReport{}, err
	}
	defer store.Close()
	health, err := store.CheckHealth(runCtx)
	if err != nil {
		return api.DatabaseHealthReport{}, err
	}
	return api.FromDatabaseHealth(health), nil
}
