// Package services – LeadService
//
// This file implements the lead aggregator. A lead is the customer record
// kept across channels; for each (channel, bot) pair it holds a snapshot of
// one conversation, refreshed on every roll-up.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-handoff-backend/internal/domain"
	"github.com/tbourn/go-handoff-backend/internal/repo"
)

// LeadService maintains leads from stored conversations.
type LeadService struct {
	DB    *gorm.DB
	Repo  ConversationRepo
	Leads LeadRepo
	Log   zerolog.Logger
}

// NewLeadService constructs a LeadService.
func NewLeadService(db *gorm.DB, conversations ConversationRepo, leads LeadRepo, log zerolog.Logger) *LeadService {
	return &LeadService{
		DB:    db,
		Repo:  conversations,
		Leads: leads,
		Log:   log.With().Str("component", "leads").Logger(),
	}
}

// RollUp stores a snapshot of one of the customer's conversations on the
// customer's lead, creating the lead when needed.
//
// Candidates are the customer's conversations on msg's channel and bot with
// a non-empty transcript, ordered newest last activity first; the last
// candidate is taken. Without candidates nothing is written.
func (s *LeadService) RollUp(ctx context.Context, by domain.By, msg domain.InboundMessage, from string) error {
	tr := otel.Tracer("services/LeadService")
	ctx, span := tr.Start(ctx, "RollUp",
		trace.WithAttributes(
			attribute.String("customer.id", by.CustomerID),
			attribute.String("channel.id", msg.Address.ChannelID),
			attribute.String("from", from),
		),
	)
	defer span.End()

	if strings.TrimSpace(by.CustomerID) == "" {
		return ErrInvalidSelector
	}

	convs, err := s.Repo.FindConversations(ctx, s.DB, repo.Filter{
		repo.FieldCustomerUserID:    by.CustomerID,
		repo.FieldCustomerChannelID: msg.Address.ChannelID,
		repo.FieldCustomerBotName:   msg.Address.Bot.Name,
	})
	if err != nil {
		s.Log.Error().Err(err).Str("customer_id", by.CustomerID).Msg("load customer conversations")
		return fmt.Errorf("roll up: %w", err)
	}

	candidates := convs[:0]
	for _, c := range convs {
		if len(c.Transcript) > 0 {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		s.Log.Debug().Str("customer_id", by.CustomerID).Msg("roll up skipped: no conversation")
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		ti, _ := candidates[i].LastActivity()
		tj, _ := candidates[j].LastActivity()
		return ti.After(tj)
	})
	// TODO: confirm with the bot runtime owners whether the newest
	// conversation (candidates[0]) was intended here.
	conv := candidates[len(candidates)-1]

	lead, err := s.findOrCreate(ctx, by.CustomerID, conv.CustomerAddress().User.Name)
	if err != nil {
		return err
	}

	lead.PutSnapshot(conv.Snapshot())
	if err := s.Leads.UpdateLeadConversations(ctx, s.DB, lead); err != nil {
		s.Log.Error().Err(err).Str("lead_id", lead.LeadID).Msg("persist lead conversations")
		return fmt.Errorf("roll up: %w", err)
	}
	return nil
}

func (s *LeadService) findOrCreate(ctx context.Context, leadID, name string) (*domain.Lead, error) {
	lead, err := s.Leads.FindLead(ctx, s.DB, leadID)
	if err == nil {
		return lead, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("find lead: %w", err)
	}

	lead = domain.NewLead(uuid.NewString(), leadID, name)
	err = s.Leads.CreateLead(ctx, s.DB, lead)
	if errors.Is(err, repo.ErrDuplicate) {
		// Created concurrently; use the stored one.
		return s.Leads.FindLead(ctx, s.DB, leadID)
	}
	if err != nil {
		s.Log.Error().Err(err).Str("lead_id", leadID).Msg("create lead")
		return nil, fmt.Errorf("create lead: %w", err)
	}
	s.Log.Info().Str("lead_id", leadID).Msg("lead created")
	return lead, nil
}

// Get returns the lead with the given external id.
func (s *LeadService) Get(ctx context.Context, leadID string) (*domain.Lead, error) {
	tr := otel.Tracer("services/LeadService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("lead.id", leadID)))
	defer span.End()

	lead, err := s.Leads.FindLead(ctx, s.DB, leadID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrLeadNotFound
	}
	return lead, err
}

// Delete removes the lead with the given external id.
func (s *LeadService) Delete(ctx context.Context, leadID string) error {
	tr := otel.Tracer("services/LeadService")
	ctx, span := tr.Start(ctx, "Delete", trace.WithAttributes(attribute.String("lead.id", leadID)))
	defer span.End()

	err := s.Leads.DeleteLead(ctx, s.DB, leadID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrLeadNotFound
	}
	return err
}
