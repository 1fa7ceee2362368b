package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tonearm/internal/api"
	"tonearm/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := runTestNotify(cmd.Context(), ctx)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			switch {
			case resp.Message != "":
				fmt.Fprintln(out, resp.Message)
			case resp.Sent:
				fmt.Fprintln(out, "Test notification sent")
			default:
				fmt.Fprintln(out, "Notification not sent")
			}
			return nil
		},
	}
}

// runTestNotify routes through the daemon when it answers, otherwise sends
// directly with the local configuration. Both paths report the same shape so
// output formatting stays in one place.
func runTestNotify(runCtx context.Context, ctx *commandContext) (api.TestNotifyResponse, error) {
	client, err := ctx.apiClient()
	if err != nil {
		return api.TestNotifyResponse{}, err
	}
	if client != nil {
		resp, err := client.TestNotify(runCtx)
		if err == nil {
			return resp, nil
		}
		if !api.IsUnavailable(err) {
			return api.TestNotifyResponse{}, err
		}
	}

	cfg := ctx.configValue()
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return api.TestNotifyResponse{Sent: false, Message: "ntfy topic not configured"}, nil
	}
	if err := notifications.NewService(cfg).TestNotification(runCtx); err != nil {
		return api.TestNotifyResponse{}, fmt.Errorf("send test notification: %w", err)
	}
	return api.TestNotifyResponse{Sent: true, Message: "test notification sent"}, nil
}
