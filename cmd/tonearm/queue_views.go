package main

import (
	"fmt"
	"sort"
	"strings"

	"tonearm/internal/api"
)

func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func buildQueueListRows(items []api.QueueItem) [][]string {
	if len(items) == 0 {
		return nil
	}
	sorted := api.SortQueueItemsNewestFirst(items)

	rows := make([][]string, 0, len(sorted))
	for _, item := range sorted {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = "Unknown"
		}
		artist := strings.TrimSpace(item.Artist)
		if artist == "" {
			artist = "-"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ID),
			title,
			artist,
			formatStatusLabel(item.Status),
			formatDisplayTime(item.CreatedAt),
		})
	}
	return rows
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t := api.ParseQueueTime(value); !t.IsZero() {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return value
}

// queueItemDetailLines renders the expanded view used by `queue show`.
func queueItemDetailLines(item *api.QueueItem) []string {
	if item == nil {
		return nil
	}
	lines := []string{
		fmt.Sprintf("ID: %d", item.ID),
		fmt.Sprintf("Title: %s", orDash(item.Title)),
		fmt.Sprintf("Artist: %s", orDash(item.Artist)),
		fmt.Sprintf("Status: %s", formatStatusLabel(item.Status)),
		fmt.Sprintf("Lane: %s", orDash(item.ProcessingLane)),
		fmt.Sprintf("Source: %s", orDash(item.SourceURL)),
	}
	if item.BatchID != "" {
		lines = append(lines, fmt.Sprintf("Batch: %s", item.BatchID))
	}
	if stage := strings.TrimSpace(item.Progress.Stage); stage != "" {
		progress := fmt.Sprintf("Progress: %s", stage)
		if item.Progress.Percent > 0 {
			progress += fmt.Sprintf(" (%.0f%%)", item.Progress.Percent)
		}
		if message := strings.TrimSpace(item.Progress.Message); message != "" {
			progress += " - " + message
		}
		lines = append(lines, progress)
	}
	if item.MatchedURL != "" {
		match := fmt.Sprintf("Matched: %s", item.MatchedURL)
		if item.MatchStrategy != "" {
			match += fmt.Sprintf(" (%s, score %.2f)", item.MatchStrategy, item.MatchScore)
		}
		lines = append(lines, match)
	}
	if item.ArtifactPath != "" {
		lines = append(lines, fmt.Sprintf("Artifact: %s", item.ArtifactPath))
	}
	if item.FinalFile != "" {
		lines = append(lines, fmt.Sprintf("Final file: %s", item.FinalFile))
	}
	if item.ErrorMessage != "" {
		errorLine := fmt.Sprintf("Error: %s", item.ErrorMessage)
		if item.ErrorKind != "" {
			errorLine += fmt.Sprintf(" [%s]", item.ErrorKind)
		}
		lines = append(lines, errorLine)
		if item.ErrorHint != "" {
			lines = append(lines, fmt.Sprintf("Hint: %s", item.ErrorHint))
		}
	}
	lines = append(lines, fmt.Sprintf("Created: %s", formatDisplayTime(item.CreatedAt)))
	lines = append(lines, fmt.Sprintf("Updated: %s", formatDisplayTime(item.UpdatedAt)))
	return lines
}

func orDash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}
