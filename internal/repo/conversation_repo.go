// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file is the storage gateway for conversations and
// their transcript lines.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only persistence and query composition.
//
// Error semantics:
//   - A missing conversation yields ErrNotFound (gorm.ErrRecordNotFound).
//   - A Filter naming an unsupported field path yields ErrUnknownField.
//   - Other DB errors are propagated unchanged.
//
// Conversations are written as a whole row (last writer wins). Transcript
// lines are insert-only: UpdateConversation inserts the lines that have no
// ID yet and never rewrites existing ones.
package repo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-handoff-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrUnknownField is returned when a Filter references a field path that has
// no lookup column.
var ErrUnknownField = errors.New("unknown filter field")

// Field paths accepted by Filter.
const (
	FieldCustomerUserID         = "customer.user.id"
	FieldCustomerUserName       = "customer.user.name"
	FieldCustomerConversationID = "customer.conversation.id"
	FieldCustomerChannelID      = "customer.channelId"
	FieldCustomerBotName        = "customer.bot.name"
	FieldAgentConversationID    = "agent.conversation.id"
	FieldState                  = "state"
)

var filterColumns = map[string]string{
	FieldCustomerUserID:         "customer_user_id",
	FieldCustomerUserName:       "customer_user_name",
	FieldCustomerConversationID: "customer_conversation_id",
	FieldCustomerChannelID:      "customer_channel_id",
	FieldCustomerBotName:        "customer_bot_name",
	FieldAgentConversationID:    "agent_conversation_id",
	FieldState:                  "state",
}

// Filter is a set of equality predicates keyed by nested field path.
type Filter map[string]any

func (f Filter) apply(q *gorm.DB) (*gorm.DB, error) {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		col, ok := filterColumns[k]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, k)
		}
		q = q.Where(clause.Eq{Column: clause.Column{Name: col}, Value: f[k]})
	}
	return q, nil
}

func withTranscript(db *gorm.DB) *gorm.DB {
	return db.Preload("Transcript", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("seq ASC, id ASC")
	})
}

// FindConversation returns the first conversation matching f, ordered by
// creation time then id, with its transcript loaded.
func FindConversation(ctx context.Context, db *gorm.DB, f Filter) (*domain.Conversation, error) {
	q, err := f.apply(db.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	var c domain.Conversation
	if err := withTranscript(q).Order("created_at ASC, id ASC").First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindConversations returns every conversation matching f in creation order,
// transcripts loaded.
func FindConversations(ctx context.Context, db *gorm.DB, f Filter) ([]domain.Conversation, error) {
	q, err := f.apply(db.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	var out []domain.Conversation
	err = withTranscript(q).Order("created_at ASC, id ASC").Find(&out).Error
	return out, err
}

// GetConversation fetches a conversation by its internal id.
func GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := withTranscript(db.WithContext(ctx)).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CountConversations returns the number of conversations matching f.
func CountConversations(ctx context.Context, db *gorm.DB, f Filter) (int64, error) {
	q, err := f.apply(db.WithContext(ctx).Model(&domain.Conversation{}))
	if err != nil {
		return 0, err
	}
	var total int64
	err = q.Count(&total).Error
	return total, err
}

// ListConversationsPage returns a page of conversations matching f, newest
// activity first. Transcripts are not loaded.
func ListConversationsPage(ctx context.Context, db *gorm.DB, f Filter, offset, limit int) ([]domain.Conversation, error) {
	q, err := f.apply(db.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	var out []domain.Conversation
	err = q.Order("updated_at DESC, id ASC").Offset(offset).Limit(limit).Find(&out).Error
	return out, err
}

// CreateConversation inserts c and any transcript lines it already holds.
// An empty ID is replaced with a fresh UUID. It returns ErrDuplicate when
// another conversation already holds the same customer conversation id.
func CreateConversation(ctx context.Context, db *gorm.DB, c *domain.Conversation) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(c).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return err
		}
		return insertNewLines(tx, c)
	})
}

// UpdateConversation writes every column of c and inserts transcript lines
// that have not been persisted yet. It returns ErrNotFound when the
// conversation no longer exists.
func UpdateConversation(ctx context.Context, db *gorm.DB, c *domain.Conversation) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c.SyncLookups()
		if err := c.Validate(); err != nil {
			return err
		}
		res := tx.Model(c).Select("*").Omit(clause.Associations, "id", "created_at").Updates(c)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return insertNewLines(tx, c)
	})
}

// DeleteConversation removes a conversation and its transcript.
func DeleteConversation(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&domain.TranscriptLine{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.Conversation{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// insertNewLines assigns identity and sequence to lines without an ID and
// inserts them after the highest persisted sequence.
func insertNewLines(tx *gorm.DB, c *domain.Conversation) error {
	pending := 0
	for i := range c.Transcript {
		if c.Transcript[i].ID == "" {
			pending++
		}
	}
	if pending == 0 {
		return nil
	}

	var maxSeq int
	if err := tx.Model(&domain.TranscriptLine{}).
		Where("conversation_id = ?", c.ID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error; err != nil {
		return err
	}

	now := time.Now().UTC()
	for i := range c.Transcript {
		line := &c.Transcript[i]
		if line.ID != "" {
			continue
		}
		maxSeq++
		line.ID = uuid.NewString()
		line.ConversationID = c.ID
		line.Seq = maxSeq
		line.CreatedAt = now
		if line.Attachments == "" {
			line.Attachments = "[]"
		}
		if err := tx.Create(line).Error; err != nil {
			return err
		}
	}
	return nil
}

// CountTranscript returns the number of lines logged for a conversation.
func CountTranscript(ctx context.Context, db *gorm.DB, conversationID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.TranscriptLine{}).
		Where("conversation_id = ?", conversationID).
		Count(&total).Error
	return total, err
}

// ListTranscriptPage returns a page of lines in append order.
func ListTranscriptPage(ctx context.Context, db *gorm.DB, conversationID string, offset, limit int) ([]domain.TranscriptLine, error) {
	var out []domain.TranscriptLine
	err := db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("seq ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
