// Package services – HandoffService
//
// This file implements the handoff state machine. A conversation moves
// between the bot, a waiting queue, and a connected human agent:
//
//	Bot ──queue──▶ Waiting ──connect agent──▶ Agent
//	 ▲                                          │
//	 └──────────────connect bot─────────────────┘
//
// Connecting a conversation that is still with the bot directly to an agent
// is rejected; it has to be queued first. Returning to the bot applies the
// retention policy from HandoffConfig.
//
// Not-found selectors are not errors: the boolean result is false (or the
// conversation nil) with a nil error. Storage failures are logged and returned.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-handoff-backend/internal/domain"
	"github.com/tbourn/go-handoff-backend/internal/observability"
)

// Transition names used for logs and metrics.
const (
	transitionQueue        = "queue"
	transitionConnectAgent = "connect_agent"
	transitionConnectBot   = "connect_bot"
)

// HandoffConfig is injected at construction.
type HandoffConfig struct {
	// RetainData keeps a conversation (with the agent cleared) when it
	// returns to the bot. When false, a conversation that had an agent is
	// deleted instead.
	RetainData bool
}

// HandoffService changes conversation state. It is safe for concurrent use;
// concurrent changes to one conversation are last-writer-wins.
type HandoffService struct {
	DB       *gorm.DB
	Repo     ConversationRepo
	Resolver *Resolver
	Config   HandoffConfig
	Log      zerolog.Logger
}

// NewHandoffService constructs a HandoffService sharing the resolver's store.
func NewHandoffService(r *Resolver, cfg HandoffConfig, log zerolog.Logger) *HandoffService {
	return &HandoffService{
		DB:       r.DB,
		Repo:     r.Repo,
		Resolver: r,
		Config:   cfg,
		Log:      log.With().Str("component", "handoff").Logger(),
	}
}

// resolve maps not-found to (nil, nil).
func (s *HandoffService) resolve(ctx context.Context, transition string, sel domain.Selector) (*domain.Conversation, error) {
	conv, err := s.Resolver.Resolve(ctx, sel, nil)
	if errors.Is(err, ErrConversationNotFound) {
		observability.RecordTransition(transition, observability.OutcomeNotFound)
		return nil, nil
	}
	if err != nil {
		observability.RecordTransition(transition, observability.OutcomeError)
		return nil, err
	}
	return conv, nil
}

func (s *HandoffService) persist(ctx context.Context, transition string, conv *domain.Conversation) error {
	if err := s.Repo.UpdateConversation(ctx, s.DB, conv); err != nil {
		observability.RecordTransition(transition, observability.OutcomeError)
		s.Log.Error().Err(err).
			Str("transition", transition).
			Str("conversation_id", conv.ID).
			Msg("persist conversation")
		return fmt.Errorf("%s: %w", transition, err)
	}
	observability.RecordTransition(transition, observability.OutcomeOK)
	return nil
}

// QueueCustomerForAgent moves the selected conversation to StateWaiting.
func (s *HandoffService) QueueCustomerForAgent(ctx context.Context, sel domain.Selector) (bool, error) {
	tr := otel.Tracer("services/HandoffService")
	ctx, span := tr.Start(ctx, "QueueCustomerForAgent",
		trace.WithAttributes(attribute.String("selector.kind", sel.Kind().String())),
	)
	defer span.End()

	conv, err := s.resolve(ctx, transitionQueue, sel)
	if conv == nil {
		return false, err
	}
	conv.State = domain.StateWaiting
	if err := s.persist(ctx, transitionQueue, conv); err != nil {
		return false, err
	}
	return true, nil
}

// ConnectCustomerToAgent joins agent to the selected conversation and moves
// it to StateAgent. It returns the updated conversation, nil when nothing
// matched, or ErrInvalidTransition when the conversation was never queued.
func (s *HandoffService) ConnectCustomerToAgent(ctx context.Context, sel domain.Selector, agent domain.Address) (*domain.Conversation, error) {
	tr := otel.Tracer("services/HandoffService")
	ctx, span := tr.Start(ctx, "ConnectCustomerToAgent",
		trace.WithAttributes(
			attribute.String("selector.kind", sel.Kind().String()),
			attribute.String("agent.user.id", agent.User.ID),
		),
	)
	defer span.End()

	if err := agent.Validate(); err != nil {
		observability.RecordTransition(transitionConnectAgent, observability.OutcomeRejected)
		return nil, err
	}

	conv, err := s.resolve(ctx, transitionConnectAgent, sel)
	if conv == nil {
		return nil, err
	}
	if conv.State == domain.StateBot {
		observability.RecordTransition(transitionConnectAgent, observability.OutcomeRejected)
		s.Log.Warn().Str("conversation_id", conv.ID).Msg("connect to agent rejected: customer not queued")
		return nil, ErrInvalidTransition
	}

	conv.State = domain.StateAgent
	conv.SetAgent(&agent)
	if err := s.persist(ctx, transitionConnectAgent, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// ConnectCustomerToBot returns the selected conversation to the bot.
//
//   - RetainData off, agent connected: the conversation is deleted.
//   - RetainData on, agent connected: the agent is cleared.
//   - No agent connected: only the state changes.
func (s *HandoffService) ConnectCustomerToBot(ctx context.Context, sel domain.Selector) (bool, error) {
	tr := otel.Tracer("services/HandoffService")
	ctx, span := tr.Start(ctx, "ConnectCustomerToBot",
		trace.WithAttributes(
			attribute.String("selector.kind", sel.Kind().String()),
			attribute.Bool("retain_data", s.Config.RetainData),
		),
	)
	defer span.End()

	conv, err := s.resolve(ctx, transitionConnectBot, sel)
	if conv == nil {
		return false, err
	}

	hasAgent := conv.AgentAddress() != nil
	if hasAgent && !s.Config.RetainData {
		if err := s.Repo.DeleteConversation(ctx, s.DB, conv.ID); err != nil {
			observability.RecordTransition(transitionConnectBot, observability.OutcomeError)
			s.Log.Error().Err(err).Str("conversation_id", conv.ID).Msg("delete conversation")
			return false, fmt.Errorf("%s: %w", transitionConnectBot, err)
		}
		observability.RecordTransition(transitionConnectBot, observability.OutcomeOK)
		return true, nil
	}

	conv.State = domain.StateBot
	if hasAgent {
		conv.SetAgent(nil)
	}
	if err := s.persist(ctx, transitionConnectBot, conv); err != nil {
		return false, err
	}
	return true, nil
}
