package handlers

import (
	"context"

	"github.com/tbourn/go-handoff-backend/internal/domain"
)

//
// Service contracts (context-aware)
//

// ConversationService resolves and lists conversations.
type ConversationService interface {
	// Resolve finds the selected conversation; fallback creates one for a
	// customerConversationId selector that matches nothing.
	Resolve(ctx context.Context, sel domain.Selector, fallback *domain.Address) (*domain.Conversation, error)
	// ListPage returns a page of conversations, optionally in one state.
	ListPage(ctx context.Context, state *domain.ConversationState, page, pageSize int) ([]domain.Conversation, int64, error)
}

// HandoffService moves conversations between bot, queue and agent.
type HandoffService interface {
	QueueCustomerForAgent(ctx context.Context, sel domain.Selector) (bool, error)
	ConnectCustomerToAgent(ctx context.Context, sel domain.Selector, agent domain.Address) (*domain.Conversation, error)
	ConnectCustomerToBot(ctx context.Context, sel domain.Selector) (bool, error)
}

// TranscriptService records and pages transcript lines.
type TranscriptService interface {
	AppendOnce(ctx context.Context, sel domain.Selector, msg domain.InboundMessage, from, key string) (appended, replayed bool, err error)
	Transcript(ctx context.Context, conversationID string, page, pageSize int) ([]domain.TranscriptLine, int64, error)
}

// LeadService maintains per-customer lead documents.
type LeadService interface {
	RollUp(ctx context.Context, by domain.By, msg domain.InboundMessage, from string) error
	Get(ctx context.Context, leadID string) (*domain.Lead, error)
	Delete(ctx context.Context, leadID string) error
}

// Handlers groups the bot runtime endpoints. It depends only on the service
// contracts above.
type Handlers struct {
	convSvc       ConversationService
	handoffSvc    HandoffService
	transcriptSvc TranscriptService
	leadSvc       LeadService
}

// New binds Handlers to its services.
func New(conv ConversationService, handoff HandoffService, transcript TranscriptService, leads LeadService) *Handlers {
	return &Handlers{
		convSvc:       conv,
		handoffSvc:    handoff,
		transcriptSvc: transcript,
		leadSvc:       leads,
	}
}

//
// Shared DTOs
//

// SelectorRequest names the conversation an operation applies to.
type SelectorRequest struct {
	By domain.By `json:"by"`
}
