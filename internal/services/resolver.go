// Package services – Resolver
//
// This file implements the conversation resolver, which turns a Selector into
// exactly one stored conversation. Lookups by customer name or id return the
// oldest match; bestChoice picks the waiting customer whose latest transcript
// line is the most recent. A customerConversationId lookup can create the
// conversation on first contact when a fallback customer address is given.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-handoff-backend/internal/domain"
	"github.com/tbourn/go-handoff-backend/internal/repo"
)

// Resolver locates conversations. It keeps no state between calls and is
// safe for concurrent use.
type Resolver struct {
	DB   *gorm.DB
	Repo ConversationRepo
	Log  zerolog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(db *gorm.DB, r ConversationRepo, log zerolog.Logger) *Resolver {
	return &Resolver{DB: db, Repo: r, Log: log.With().Str("component", "resolver").Logger()}
}

// Resolve returns the conversation selected by sel. fallback is only used by
// customerConversationId selectors: when nothing matches, a new conversation
// for the fallback customer is created in StateBot and returned.
//
// It returns ErrConversationNotFound when nothing matches (including for an
// invalid selector) and a wrapped storage error otherwise.
func (r *Resolver) Resolve(ctx context.Context, sel domain.Selector, fallback *domain.Address) (*domain.Conversation, error) {
	tr := otel.Tracer("services/Resolver")
	ctx, span := tr.Start(ctx, "Resolve",
		trace.WithAttributes(
			attribute.String("selector.kind", sel.Kind().String()),
			attribute.Bool("fallback", fallback != nil),
		),
	)
	defer span.End()

	if !sel.Valid() {
		return nil, ErrConversationNotFound
	}

	var (
		conv *domain.Conversation
		err  error
	)
	switch sel.Kind() {
	case domain.SelectCustomerName:
		conv, err = r.Repo.FindConversation(ctx, r.DB, repo.Filter{repo.FieldCustomerUserName: sel.Value()})
	case domain.SelectCustomerID:
		conv, err = r.Repo.FindConversation(ctx, r.DB, repo.Filter{repo.FieldCustomerUserID: sel.Value()})
	case domain.SelectAgentConversationID:
		conv, err = r.Repo.FindConversation(ctx, r.DB, repo.Filter{repo.FieldAgentConversationID: sel.Value()})
	case domain.SelectCustomerConversationID:
		conv, err = r.Repo.FindConversation(ctx, r.DB, repo.Filter{repo.FieldCustomerConversationID: sel.Value()})
		if errors.Is(err, repo.ErrNotFound) && fallback != nil {
			return r.create(ctx, *fallback)
		}
	case domain.SelectBestChoice:
		return r.bestChoice(ctx)
	}

	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		r.Log.Error().Err(err).Str("selector", sel.String()).Msg("resolve conversation")
		return nil, fmt.Errorf("resolve %s: %w", sel, err)
	}
	return conv, nil
}

func (r *Resolver) create(ctx context.Context, customer domain.Address) (*domain.Conversation, error) {
	if err := customer.Validate(); err != nil {
		return nil, err
	}
	conv := domain.NewConversation(uuid.NewString(), customer)
	err := r.Repo.CreateConversation(ctx, r.DB, conv)
	if errors.Is(err, repo.ErrDuplicate) {
		// A concurrent first contact created it; return that one.
		existing, ferr := r.Repo.FindConversation(ctx, r.DB, repo.Filter{repo.FieldCustomerConversationID: customer.ConversationID()})
		if ferr != nil {
			r.Log.Error().Err(ferr).Str("customer_conversation_id", customer.ConversationID()).Msg("reload conversation")
			return nil, fmt.Errorf("create conversation: %w", ferr)
		}
		return existing, nil
	}
	if err != nil {
		r.Log.Error().Err(err).Str("customer_conversation_id", customer.ConversationID()).Msg("create conversation")
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	r.Log.Debug().Str("conversation_id", conv.ID).Msg("conversation created")
	return conv, nil
}

// bestChoice returns the waiting conversation with the most recent last
// activity. Conversations with no transcript are never chosen; ties keep
// storage order.
func (r *Resolver) bestChoice(ctx context.Context) (*domain.Conversation, error) {
	waiting, err := r.Repo.FindConversations(ctx, r.DB, repo.Filter{repo.FieldState: domain.StateWaiting})
	if err != nil {
		r.Log.Error().Err(err).Msg("resolve best choice")
		return nil, fmt.Errorf("resolve bestChoice: %w", err)
	}

	best := -1
	var newest time.Time
	for i := range waiting {
		ts, ok := waiting[i].LastActivity()
		if !ok {
			continue
		}
		if best == -1 || ts.After(newest) {
			best, newest = i, ts
		}
	}
	if best == -1 {
		return nil, ErrConversationNotFound
	}
	return &waiting[best], nil
}

// Current lists every stored conversation in creation order.
func (r *Resolver) Current(ctx context.Context) ([]domain.Conversation, error) {
	tr := otel.Tracer("services/Resolver")
	ctx, span := tr.Start(ctx, "Current")
	defer span.End()

	return r.Repo.FindConversations(ctx, r.DB, repo.Filter{})
}

// ListPage returns one page of conversations, optionally restricted to a
// state, most recently updated first.
func (r *Resolver) ListPage(ctx context.Context, state *domain.ConversationState, page, pageSize int) ([]domain.Conversation, int64, error) {
	tr := otel.Tracer("services/Resolver")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	f := repo.Filter{}
	if state != nil {
		f[repo.FieldState] = *state
	}

	total, err := r.Repo.CountConversations(ctx, r.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Conversation{}, 0, nil
	}
	items, err := r.Repo.ListConversationsPage(ctx, r.DB, f, (page-1)*pageSize, pageSize)
	return items, total, err
}
