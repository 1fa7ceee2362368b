package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tonearm/internal/api"
	"tonearm/internal/catalog"
	"tonearm/internal/daemonrun"
	"tonearm/internal/logging"
	"tonearm/internal/notifications"
	"tonearm/internal/queue"
	"tonearm/internal/workflow"
)

const fetchPollInterval = 500 * time.Millisecond

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var background bool

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetch tracks from a Spotify track, album, or playlist URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawURL := strings.TrimSpace(args[0])

			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if client != nil {
				_, statusErr := client.Status(cmd.Context())
				if statusErr == nil {
					return fetchViaDaemon(cmd, ctx, client, rawURL, background)
				}
				if !api.IsUnavailable(statusErr) {
					return statusErr
				}
			}
			return fetchInProcess(cmd, ctx, rawURL, background)
		},
	}

	cmd.Flags().BoolVar(&background, "background", false, "Queue the fetch and return without waiting for completion")
	return cmd
}

// fetchViaDaemon submits the URL to the running daemon and, unless told
// otherwise, follows the batch until every track reaches a terminal status.
func fetchViaDaemon(cmd *cobra.Command, ctx *commandContext, client *api.Client, rawURL string, background bool) error {
	result, err := client.Fetch(cmd.Context(), rawURL)
	if err != nil {
		return err
	}

	if background {
		if ctx.JSONMode() {
			return writeJSON(cmd, result)
		}
		printFetchResult(cmd.OutOrStdout(), result)
		return nil
	}
	if !ctx.JSONMode() {
		printFetchResult(cmd.OutOrStdout(), result)
	}
	if result.Queued+result.Retried == 0 {
		if ctx.JSONMode() {
			return writeJSON(cmd, result)
		}
		return nil
	}

	items, err := followBatch(cmd, func(runCtx context.Context) ([]api.QueueItem, error) {
		return client.Queue(runCtx, api.QueueQuery{Batch: result.BatchID})
	})
	if err != nil {
		return err
	}
	return reportBatchOutcome(cmd, ctx, result, items)
}

// fetchInProcess expands the URL and runs the pipeline inside this process,
// for setups that do not keep a daemon running.
func fetchInProcess(cmd *cobra.Command, ctx *commandContext, rawURL string, background bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	logger := logging.NewNop()
	if !ctx.JSONMode() {
		logger, err = logging.New(logging.Options{
			Level:            cfg.Logging.Level,
			Format:           "console",
			OutputPaths:      []string{"stdout"},
			ErrorOutputPaths: []string{"stderr"},
		})
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
	}

	catalogClient, err := catalog.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("catalog client unavailable (set spotify client_id and client_secret in the config): %w", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue store: %w", err)
	}
	defer store.Close()

	fetchSvc := api.NewFetchService(catalogClient, store, logger)
	result, err := fetchSvc.Enqueue(cmd.Context(), rawURL)
	if err != nil {
		return err
	}

	if !ctx.JSONMode() {
		printFetchResult(cmd.OutOrStdout(), result)
	}
	if background || result.Queued+result.Retried == 0 {
		if ctx.JSONMode() {
			return writeJSON(cmd, result)
		}
		return nil
	}

	notifier := notifications.NewService(cfg)
	mgr := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
	daemonrun.RegisterStages(mgr, cfg, store, logger, notifier)
	if err := mgr.Start(cmd.Context()); err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}
	defer mgr.Stop()

	items, err := followBatch(cmd, func(runCtx context.Context) ([]api.QueueItem, error) {
		batchItems, batchErr := store.ItemsByBatch(runCtx, result.BatchID)
		if batchErr != nil {
			return nil, batchErr
		}
		return api.FromQueueItems(batchItems), nil
	})
	if err != nil {
		return err
	}
	return reportBatchOutcome(cmd, ctx, result, items)
}

// followBatch polls until every item in the batch is completed or failed.
func followBatch(cmd *cobra.Command, list func(context.Context) ([]api.QueueItem, error)) ([]api.QueueItem, error) {
	ctx := cmd.Context()
	for {
		items, err := list(ctx)
		if err != nil {
			return nil, err
		}
		if batchSettled(items) {
			return items, nil
		}
		select {
		case <-ctx.Done():
			return items, ctx.Err()
		case <-time.After(fetchPollInterval):
		}
	}
}

func batchSettled(items []api.QueueItem) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		switch queue.Status(item.Status) {
		case queue.StatusCompleted, queue.StatusFailed:
		default:
			return false
		}
	}
	return true
}

func reportBatchOutcome(cmd *cobra.Command, ctx *commandContext, result *api.FetchResult, items []api.QueueItem) error {
	if ctx.JSONMode() {
		return writeJSON(cmd, map[string]any{
			"batchId":    result.BatchID,
			"collection": result.Collection,
			"items":      items,
		})
	}

	out := cmd.OutOrStdout()
	failed := 0
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		detail := item.FinalFile
		if queue.Status(item.Status) == queue.StatusFailed {
			failed++
			detail = item.ErrorMessage
			if item.ErrorHint != "" {
				detail += " (" + item.ErrorHint + ")"
			}
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ID),
			orDash(item.Title),
			formatStatusLabel(item.Status),
			detail,
		})
	}

	fmt.Fprintln(out)
	table := renderTable(
		[]string{"ID", "Title", "Status", "Detail"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	)
	fmt.Fprintln(out, table)

	if failed > 0 {
		return fmt.Errorf("%d of %d tracks failed", failed, len(items))
	}
	fmt.Fprintf(out, "Fetched %d tracks\n", len(items))
	return nil
}

func printFetchResult(out io.Writer, result *api.FetchResult) {
	if result == nil {
		return
	}
	collection := strings.TrimSpace(result.Collection)
	if collection == "" {
		collection = "collection"
	}
	fmt.Fprintf(out, "%s (%s): %d queued, %d retried, %d skipped\n",
		collection, result.Kind, result.Queued, result.Retried, result.Skipped)
	for _, track := range result.Tracks {
		switch track.Outcome {
		case api.EnqueueSkipped:
			detail := track.Detail
			if detail == "" {
				detail = "already in queue"
			}
			fmt.Fprintf(out, "  skipped: %s (%s)\n", track.Title, detail)
		case api.EnqueueRetried:
			fmt.Fprintf(out, "  retried: %s\n", track.Title)
		}
	}
}
