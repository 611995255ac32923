// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Lead model.
package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-handoff-backend/internal/domain"
)

// FindLead fetches a lead by its external lead id, or ErrNotFound.
func FindLead(ctx context.Context, db *gorm.DB, leadID string) (*domain.Lead, error) {
	var l domain.Lead
	if err := db.WithContext(ctx).Where("lead_id = ?", leadID).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateLead inserts l, assigning a UUID when l.ID is empty. A second lead
// with the same LeadID yields ErrDuplicate.
func CreateLead(ctx context.Context, db *gorm.DB, l *domain.Lead) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// UpdateLeadConversations persists only the per-channel conversation
// snapshots of l. Other lead fields are left untouched.
func UpdateLeadConversations(ctx context.Context, db *gorm.DB, l *domain.Lead) error {
	res := db.WithContext(ctx).
		Model(&domain.Lead{}).
		Where("id = ?", l.ID).
		Update("last_conversations_by_channel", l.LastConversationsByChannel)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteLead removes the lead with the given external id.
func DeleteLead(ctx context.Context, db *gorm.DB, leadID string) error {
	res := db.WithContext(ctx).Where("lead_id = ?", leadID).Delete(&domain.Lead{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
