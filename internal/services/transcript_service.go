// Package services – TranscriptService
//
// This file implements the transcript recorder. Every inbound or outbound
// turn is appended to the selected conversation as an immutable line that
// captures the sender, the conversation state at that moment, an optional
// sentiment score, and the raw attachment and adaptive card payloads.
//
// Observability: each append emits a "Transcript" business event through the
// configured EventTracker and counts the line in Prometheus. Tracking never
// changes the outcome of an append.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-handoff-backend/internal/domain"
	"github.com/tbourn/go-handoff-backend/internal/observability"
	"github.com/tbourn/go-handoff-backend/internal/repo"
	"github.com/tbourn/go-handoff-backend/internal/sentiment"
)

// EventTranscript is the business event emitted for every appended line.
const EventTranscript = "Transcript"

// idemStatusAppended is stored on idempotency records written by AppendOnce.
const idemStatusAppended = 204

// TranscriptService appends lines to conversation transcripts.
type TranscriptService struct {
	DB       *gorm.DB
	Repo     ConversationRepo
	Resolver *Resolver

	// Scorer is optional; without it no line is scored.
	Scorer sentiment.Scorer
	// Tracker is optional; nil disables business events.
	Tracker observability.EventTracker

	// IdempotencyTTL bounds how long AppendOnce remembers a key.
	IdempotencyTTL time.Duration

	Log zerolog.Logger
	Now func() time.Time
}

// NewTranscriptService constructs a TranscriptService sharing the resolver's store.
func NewTranscriptService(r *Resolver, scorer sentiment.Scorer, tracker observability.EventTracker, ttl time.Duration, log zerolog.Logger) *TranscriptService {
	return &TranscriptService{
		DB:             r.DB,
		Repo:           r.Repo,
		Resolver:       r,
		Scorer:         scorer,
		Tracker:        tracker,
		IdempotencyTTL: ttl,
		Log:            log.With().Str("component", "transcript").Logger(),
	}
}

func (s *TranscriptService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Append logs msg as a line from `from` on the selected conversation. It
// returns false with a nil error when no conversation matches, and false with
// the storage error when the line could not be persisted.
func (s *TranscriptService) Append(ctx context.Context, sel domain.Selector, msg domain.InboundMessage, from string) (bool, error) {
	tr := otel.Tracer("services/TranscriptService")
	ctx, span := tr.Start(ctx, "Append",
		trace.WithAttributes(
			attribute.String("selector.kind", sel.Kind().String()),
			attribute.String("from", from),
		),
	)
	defer span.End()

	conv, err := s.resolve(ctx, sel)
	if conv == nil {
		return false, err
	}
	if _, err := s.appendTo(ctx, conv, msg, from); err != nil {
		return false, err
	}
	return true, nil
}

// AppendOnce is Append guarded by an idempotency key scoped to the resolved
// conversation. A key already seen within IdempotencyTTL is not appended
// again and reports replayed. An empty key behaves like Append.
func (s *TranscriptService) AppendOnce(ctx context.Context, sel domain.Selector, msg domain.InboundMessage, from, key string) (appended, replayed bool, err error) {
	key = strings.TrimSpace(key)
	if key == "" {
		ok, err := s.Append(ctx, sel, msg, from)
		return ok, false, err
	}

	tr := otel.Tracer("services/TranscriptService")
	ctx, span := tr.Start(ctx, "AppendOnce",
		trace.WithAttributes(
			attribute.String("selector.kind", sel.Kind().String()),
			attribute.String("from", from),
		),
	)
	defer span.End()

	conv, err := s.resolve(ctx, sel)
	if conv == nil {
		return false, false, err
	}

	rec, err := repo.GetIdempotency(ctx, s.DB, conv.ID, key, s.now())
	switch {
	case err == nil:
		s.Log.Debug().Str("conversation_id", conv.ID).Str("line_id", rec.ResultID).Msg("transcript append replayed")
		return true, true, nil
	case !errors.Is(err, repo.ErrNotFound):
		return false, false, fmt.Errorf("idempotency lookup: %w", err)
	}

	line, err := s.appendTo(ctx, conv, msg, from)
	if err != nil {
		return false, false, err
	}
	if _, err := repo.CreateIdempotency(ctx, s.DB, conv.ID, key, line.ID, idemStatusAppended, s.IdempotencyTTL); err != nil && !errors.Is(err, repo.ErrDuplicate) {
		// The line is already stored; a lost record only weakens replay detection.
		s.Log.Warn().Err(err).Str("conversation_id", conv.ID).Msg("store idempotency key")
	}
	return true, false, nil
}

// Transcript returns one page of a conversation's lines in append order.
func (s *TranscriptService) Transcript(ctx context.Context, conversationID string, page, pageSize int) ([]domain.TranscriptLine, int64, error) {
	tr := otel.Tracer("services/TranscriptService")
	ctx, span := tr.Start(ctx, "Transcript",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
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
	if _, err := s.Repo.GetConversation(ctx, s.DB, conversationID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, 0, ErrConversationNotFound
		}
		return nil, 0, err
	}

	total, err := repo.CountTranscript(ctx, s.DB, conversationID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.TranscriptLine{}, 0, nil
	}
	lines, err := repo.ListTranscriptPage(ctx, s.DB, conversationID, (page-1)*pageSize, pageSize)
	return lines, total, err
}

func (s *TranscriptService) resolve(ctx context.Context, sel domain.Selector) (*domain.Conversation, error) {
	conv, err := s.Resolver.Resolve(ctx, sel, nil)
	if errors.Is(err, ErrConversationNotFound) {
		return nil, nil
	}
	return conv, err
}

// appendTo builds the line, emits the event and persists the conversation.
// It returns the stored line.
func (s *TranscriptService) appendTo(ctx context.Context, conv *domain.Conversation, msg domain.InboundMessage, from string) (*domain.TranscriptLine, error) {
	conv.Transcript = append(conv.Transcript, s.buildLine(ctx, conv, msg, from))
	line := &conv.Transcript[len(conv.Transcript)-1]

	if s.Tracker != nil {
		s.Tracker.TrackEvent(ctx, EventTranscript, transcriptProps(conv, line))
	}

	if err := s.Repo.UpdateConversation(ctx, s.DB, conv); err != nil {
		s.Log.Error().Err(err).Str("conversation_id", conv.ID).Str("from", from).Msg("persist transcript line")
		return nil, fmt.Errorf("append transcript: %w", err)
	}
	observability.RecordTranscriptLine(from)
	return line, nil
}

func (s *TranscriptService) buildLine(ctx context.Context, conv *domain.Conversation, msg domain.InboundMessage, from string) domain.TranscriptLine {
	score := domain.SentimentNotComputed
	ts := s.now()

	if from == domain.FromCustomer {
		if s.Scorer != nil {
			score = s.score(ctx, msg.Text)
		}
		switch {
		case msg.LocalTimestamp != nil:
			ts = msg.LocalTimestamp.UTC()
		case msg.Timestamp != nil:
			ts = msg.Timestamp.UTC()
		}
	}

	return domain.TranscriptLine{
		Timestamp:               ts,
		From:                    from,
		SentimentScore:          score,
		State:                   conv.State,
		Attachments:             s.attachmentsJSON(msg.Attachments),
		AdaptiveResponseKVPairs: adaptiveJSON(msg.Value),
		Text:                    msg.Text,
	}
}

// score never fails the append; any scorer problem leaves the line unscored.
func (s *TranscriptService) score(ctx context.Context, text string) float64 {
	v, err := s.Scorer.Score(ctx, text)
	if err != nil || v == nil {
		return domain.SentimentNotComputed
	}
	return *v
}

func (s *TranscriptService) attachmentsJSON(atts []json.RawMessage) string {
	if len(atts) == 0 {
		return "[]"
	}
	b, err := json.Marshal(atts)
	if err != nil {
		s.Log.Warn().Err(err).Msg("encode attachments")
		return "[]"
	}
	return string(b)
}

func adaptiveJSON(v json.RawMessage) *string {
	raw := strings.TrimSpace(string(v))
	if raw == "" || raw == "null" {
		return nil
	}
	return &raw
}

// transcriptProps flattens a line and the conversation's identities into
// string properties.
func transcriptProps(conv *domain.Conversation, line *domain.TranscriptLine) map[string]string {
	cust := conv.CustomerAddress()
	props := map[string]string{
		"timestamp":              line.Timestamp.Format(time.RFC3339Nano),
		"from":                   line.From,
		"sentimentScore":         strconv.FormatFloat(line.SentimentScore, 'g', -1, 64),
		"state":                  strconv.Itoa(int(line.State)),
		"attachments":            line.Attachments,
		"text":                   line.Text,
		"botId":                  cust.Bot.ID,
		"customerId":             cust.User.ID,
		"customerName":           cust.User.Name,
		"customerChannelId":      cust.ChannelID,
		"customerConversationId": cust.ConversationID(),
	}
	if line.AdaptiveResponseKVPairs != nil {
		props["adaptiveResponseKVPairs"] = *line.AdaptiveResponseKVPairs
	}
	if agent := conv.AgentAddress(); agent != nil {
		props["agentId"] = agent.User.ID
		props["agentName"] = agent.User.Name
		props["agentChannelId"] = agent.ChannelID
		props["agentConversationId"] = agent.ConversationID()
	}
	return props
}
