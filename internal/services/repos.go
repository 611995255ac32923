package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-handoff-backend/internal/domain"
	"github.com/tbourn/go-handoff-backend/internal/repo"
)

// ConversationRepo defines the storage gateway contract for conversations.
// Implementations return repo.ErrNotFound for missing rows.
type ConversationRepo interface {
	// FindConversation returns the first conversation matching the filter.
	FindConversation(ctx context.Context, db *gorm.DB, f repo.Filter) (*domain.Conversation, error)

	// GetConversation returns a conversation by internal id.
	GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error)

	// FindConversations returns all conversations matching the filter.
	FindConversations(ctx context.Context, db *gorm.DB, f repo.Filter) ([]domain.Conversation, error)

	// CreateConversation inserts a new conversation.
	CreateConversation(ctx context.Context, db *gorm.DB, c *domain.Conversation) error

	// UpdateConversation writes the conversation and appends unsaved lines.
	UpdateConversation(ctx context.Context, db *gorm.DB, c *domain.Conversation) error

	// DeleteConversation removes a conversation by internal id.
	DeleteConversation(ctx context.Context, db *gorm.DB, id string) error

	// CountConversations returns the number of conversations matching the filter.
	CountConversations(ctx context.Context, db *gorm.DB, f repo.Filter) (int64, error)

	// ListConversationsPage returns one page of conversations matching the filter.
	ListConversationsPage(ctx context.Context, db *gorm.DB, f repo.Filter, offset, limit int) ([]domain.Conversation, error)
}

// LeadRepo defines the storage gateway contract for leads.
type LeadRepo interface {
	FindLead(ctx context.Context, db *gorm.DB, leadID string) (*domain.Lead, error)
	CreateLead(ctx context.Context, db *gorm.DB, l *domain.Lead) error
	UpdateLeadConversations(ctx context.Context, db *gorm.DB, l *domain.Lead) error
	DeleteLead(ctx context.Context, db *gorm.DB, leadID string) error
}
