package queue

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "id, batch_id, source_url, title, status, metadata_json, matched_url, candidates_json, match_strategy, match_score, video_url, artifact_path, final_path, background_log_path, error_message, error_kind, error_hint, created_at, updated_at, progress_stage, progress_percent, progress_message, last_heartbeat"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id               int64
		batchID          sql.NullString
		sourceURL        sql.NullString
		title            sql.NullString
		statusStr        string
		metadata         sql.NullString
		matchedURL       sql.NullString
		candidates       sql.NullString
		matchStrategy    sql.NullString
		matchScore       sql.NullFloat64
		videoURL         sql.NullString
		artifactPath     sql.NullString
		finalPath        sql.NullString
		backgroundLog    sql.NullString
		errorMessage     sql.NullString
		errorKind        sql.NullString
		errorHint        sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		progressStage    sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		lastHeartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&batchID,
		&sourceURL,
		&title,
		&statusStr,
		&metadata,
		&matchedURL,
		&candidates,
		&matchStrategy,
		&matchScore,
		&videoURL,
		&artifactPath,
		&finalPath,
		&backgroundLog,
		&errorMessage,
		&errorKind,
		&errorHint,
		&createdRaw,
		&updatedRaw,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&lastHeartbeatRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:                id,
		BatchID:           batchID.String,
		SourceURL:         sourceURL.String,
		Title:             title.String,
		Status:            Status(statusStr),
		MetadataJSON:      metadata.String,
		MatchedURL:        matchedURL.String,
		CandidatesJSON:    candidates.String,
		MatchStrategy:     matchStrategy.String,
		MatchScore:        matchScore.Float64,
		VideoURL:          videoURL.String,
		ArtifactPath:      artifactPath.String,
		FinalPath:         finalPath.String,
		BackgroundLogPath: backgroundLog.String,
		ErrorMessage:      errorMessage.String,
		ErrorKind:         errorKind.String,
		ErrorHint:         errorHint.String,
		ProgressStage:     progressStage.String,
		ProgressPercent:   progressPercent.Float64,
		ProgressMessage:   progressMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			item.LastHeartbeat = &heartbeat
		}
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
