package logging

import "strings"

// FormatSubject builds the lane/track/stage subject string used in console output.
func FormatSubject(lane, trackID, stage string) string {
	lane = strings.TrimSpace(lane)
	trackID = strings.TrimSpace(trackID)
	stage = strings.TrimSpace(stage)
	parts := make([]string, 0, 3)
	if lane != "" {
		var formattedLane string
		if len(lane) > 1 {
			formattedLane = strings.ToUpper(lane[:1]) + strings.ToLower(lane[1:])
		} else {
			formattedLane = strings.ToUpper(lane)
		}
		parts = append(parts, formattedLane)
	}
	switch {
	case trackID != "" && stage != "":
		parts = append(parts, "Track #"+trackID+" ("+stage+")")
	case trackID != "":
		parts = append(parts, "Track #"+trackID)
	case stage != "":
		parts = append(parts, stage)
	}
	return strings.Join(parts, " / ")
}
