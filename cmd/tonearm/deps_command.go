package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tonearm/internal/deps"
	"tonearm/internal/preflight"
)

// versionArgFor maps a tool to the flag it prints its version with. yt-dlp
// uses a GNU-style long flag while the ffmpeg family uses a single dash.
func versionArgFor(name string) string {
	if name == "yt-dlp" {
		return "--version"
	}
	return "-version"
}

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tool availability and versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			statuses := preflight.CheckSystemDeps(cfg)

			type depReport struct {
				Name      string `json:"name"`
				Command   string `json:"command,omitempty"`
				Available bool   `json:"available"`
				Optional  bool   `json:"optional"`
				Version   string `json:"version,omitempty"`
				Detail    string `json:"detail,omitempty"`
			}

			reports := make([]depReport, 0, len(statuses))
			for _, status := range statuses {
				report := depReport{
					Name:      status.Name,
					Command:   status.Command,
					Available: status.Available,
					Optional:  status.Optional,
					Detail:    status.Detail,
				}
				if status.Available {
					report.Version = deps.ProbeVersion(cmd.Context(), status.Command, versionArgFor(status.Name))
				}
				reports = append(reports, report)
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, reports)
			}

			rows := make([][]string, 0, len(reports))
			missingRequired := 0
			for _, report := range reports {
				availability := "yes"
				if !report.Available {
					availability = "no"
					if report.Optional {
						availability = "no (optional)"
					} else {
						missingRequired++
					}
				}
				detail := report.Command
				if !report.Available {
					detail = report.Detail
				}
				rows = append(rows, []string{
					report.Name,
					availability,
					orDash(report.Version),
					detail,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Tool", "Available", "Version", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			if missingRequired > 0 {
				return fmt.Errorf("%d required tools missing (see README.md for install steps)", missingRequired)
			}
			return nil
		},
	}
}
