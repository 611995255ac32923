// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-handoff-backend/internal/domain"
)

// ConversationsStats returns the number of conversations matching f and the
// greatest UpdatedAt among them. maxUpdatedAt is nil when nothing matches.
func ConversationsStats(ctx context.Context, db *gorm.DB, f Filter) (count int64, maxUpdatedAt *time.Time, err error) {
	q, err := f.apply(db.WithContext(ctx).Model(&domain.Conversation{}))
	if err != nil {
		return 0, nil, err
	}

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// TranscriptStats returns the number of lines logged for a conversation and
// the greatest sequence number. Lines are insert-only, so the pair changes
// whenever the transcript does.
func TranscriptStats(ctx context.Context, db *gorm.DB, conversationID string) (count int64, maxSeq int, err error) {
	q := db.WithContext(ctx).Model(&domain.TranscriptLine{}).Where("conversation_id = ?", conversationID)
	if err = q.Count(&count).Error; err != nil {
		return 0, 0, err
	}
	if count == 0 {
		return 0, 0, nil
	}
	err = q.Select("COALESCE(MAX(seq), 0)").Scan(&maxSeq).Error
	return count, maxSeq, err
}
