package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tonearm/internal/api"
	"tonearm/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var itemID int64
	var component string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if client != nil {
				err := streamLogsFromAPI(cmd, client, lines, follow, itemID, component)
				if err == nil {
					return nil
				}
				if !api.IsUnavailable(err) {
					return err
				}
			}
			// No daemon to ask, so read the current log file directly.
			return tailLogFile(cmd, filepath.Join(cfg.Paths.LogDir, "tonearm.log"), lines, follow)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of entries to show (0 for all buffered)")
	cmd.Flags().Int64Var(&itemID, "item", 0, "Only show events for one queue item")
	cmd.Flags().StringVar(&component, "component", "", "Only show events from one component")
	return cmd
}

func streamLogsFromAPI(cmd *cobra.Command, client *api.Client, lines int, follow bool, itemID int64, component string) error {
	ctx := cmd.Context()
	query := api.LogQuery{
		Tail:      lines,
		TrackID:   itemID,
		Component: component,
	}
	if query.Tail <= 0 {
		query.Tail = 200
	}

	printed := false
	for {
		resp, err := client.Logs(ctx, query)
		if err != nil {
			return err
		}
		for _, evt := range resp.Events {
			fmt.Fprintln(cmd.OutOrStdout(), formatLogEvent(evt))
			printed = true
		}
		if !follow {
			if !printed {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		query.Since = resp.Next
		query.Tail = 0
		query.Limit = 200
		query.Follow = true
	}
}

func formatLogEvent(evt api.LogEvent) string {
	ts := evt.Timestamp.Format("2006-01-02 15:04:05")
	level := strings.ToUpper(strings.TrimSpace(evt.Level))
	if level == "" {
		level = "INFO"
	}
	parts := []string{ts, level}
	if component := strings.TrimSpace(evt.Component); component != "" {
		parts = append(parts, fmt.Sprintf("[%s]", component))
	}
	subject := composeSubject(evt.TrackID, evt.Stage)
	line := strings.Join(parts, " ")
	if subject != "" {
		line += " " + subject
	}
	message := strings.TrimSpace(evt.Message)
	if message != "" {
		line += " - " + message
	}
	if len(evt.Details) == 0 {
		return line
	}
	builder := strings.Builder{}
	builder.WriteString(line)
	for _, detail := range evt.Details {
		if strings.TrimSpace(detail.Label) == "" || strings.TrimSpace(detail.Value) == "" {
			continue
		}
		builder.WriteString("\n    - ")
		builder.WriteString(detail.Label)
		builder.WriteString(": ")
		builder.WriteString(detail.Value)
	}
	return builder.String()
}

func composeSubject(trackID int64, stage string) string {
	stage = strings.TrimSpace(stage)
	switch {
	case trackID > 0 && stage != "":
		return fmt.Sprintf("Track #%d (%s)", trackID, stage)
	case trackID > 0:
		return fmt.Sprintf("Track #%d", trackID)
	default:
		return stage
	}
}

// tailLogFile prints the last lines of the daemon log file and, in follow
// mode, keeps polling the file for appended output.
func tailLogFile(cmd *cobra.Command, path string, lines int, follow bool) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	res, err := logs.Tail(ctx, path, logs.TailOptions{Offset: -1, Limit: lines})
	if err != nil {
		return err
	}
	for _, line := range res.Lines {
		fmt.Fprintln(out, line)
	}
	if !follow {
		if len(res.Lines) == 0 {
			fmt.Fprintln(out, "No log entries available")
		}
		return nil
	}

	offset := res.Offset
	for {
		if ctx.Err() != nil {
			return nil
		}
		res, err := logs.Tail(ctx, path, logs.TailOptions{Offset: offset, Follow: true, Wait: time.Second})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		for _, line := range res.Lines {
			fmt.Fprintln(out, line)
		}
		offset = res.Offset
	}
}
