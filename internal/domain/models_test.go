package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func customer(userID, name, convID string) Address {
	return Address{
		Bot:          Identity{ID: "bot-1", Name: "helpbot"},
		ChannelID:    "webchat",
		Conversation: &Identity{ID: convID},
		User:         Identity{ID: userID, Name: name},
	}
}

func TestTableNames(t *testing.T) {
	if (Conversation{}).TableName() != "conversations" {
		t.Fatalf("Conversation.TableName() = %q", (Conversation{}).TableName())
	}
	if (TranscriptLine{}).TableName() != "transcript_lines" {
		t.Fatalf("TranscriptLine.TableName() = %q", (TranscriptLine{}).TableName())
	}
	if (Lead{}).TableName() != "leads" {
		t.Fatalf("Lead.TableName() = %q", (Lead{}).TableName())
	}
}

func TestConversationState_ParseAndString(t *testing.T) {
	for _, s := range []ConversationState{StateBot, StateWaiting, StateAgent, StateWatch} {
		got, err := ParseState(s.String())
		if err != nil || got != s {
			t.Fatalf("ParseState(%q) = %v, %v", s.String(), got, err)
		}
	}
	if got, err := ParseState(" Waiting "); err != nil || got != StateWaiting {
		t.Fatalf("ParseState should trim and lowercase, got %v %v", got, err)
	}
	if _, err := ParseState("closed"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if ConversationState(7).Valid() || ConversationState(-1).Valid() {
		t.Fatalf("out of range states must be invalid")
	}
	if ConversationState(9).String() != "state(9)" {
		t.Fatalf("unexpected String for unknown state")
	}
}

func TestNewConversation_SyncsLookups(t *testing.T) {
	c := NewConversation("c1", customer("u1", "Ann", "cc-1"))
	if c.State != StateBot || len(c.Transcript) != 0 || c.AgentAddress() != nil {
		t.Fatalf("unexpected new conversation: %+v", c)
	}
	if c.CustomerUserID != "u1" || c.CustomerUserName != "Ann" || c.CustomerConversationID != "cc-1" ||
		c.CustomerChannelID != "webchat" || c.CustomerBotName != "helpbot" || c.AgentConversationID != "" {
		t.Fatalf("lookups not synced: %+v", c)
	}

	agent := Address{Bot: Identity{ID: "bot-1"}, ChannelID: "teams", User: Identity{ID: "a1"}, Conversation: &Identity{ID: "ac-1"}}
	c.SetAgent(&agent)
	if c.AgentConversationID != "ac-1" {
		t.Fatalf("agent lookup not synced: %q", c.AgentConversationID)
	}
	c.SetAgent(nil)
	if c.AgentConversationID != "" || c.AgentAddress() != nil {
		t.Fatalf("agent not cleared")
	}
}

func TestConversation_Validate(t *testing.T) {
	c := NewConversation("c1", customer("u1", "Ann", "cc-1"))
	c.State = StateAgent
	if err := c.Validate(); !errors.Is(err, ErrAgentRequired) {
		t.Fatalf("expected ErrAgentRequired, got %v", err)
	}
	c.State = ConversationState(4)
	if err := c.Validate(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	c.State = StateWatch
	if err := c.Validate(); err != nil {
		t.Fatalf("watch is a storable state: %v", err)
	}
}

func TestConversation_LastActivity(t *testing.T) {
	c := NewConversation("c1", customer("u1", "Ann", "cc-1"))
	if _, ok := c.LastActivity(); ok {
		t.Fatalf("empty transcript must report no activity")
	}
	t1 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	c.Transcript = append(c.Transcript, TranscriptLine{Timestamp: t1}, TranscriptLine{Timestamp: t2})
	if ts, ok := c.LastActivity(); !ok || !ts.Equal(t2) {
		t.Fatalf("LastActivity = %v, %v", ts, ok)
	}
}

func TestMigrations_PersistRoundTrip_AndCascade(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&Conversation{}, &TranscriptLine{}, &Lead{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	if !m.HasIndex(&TranscriptLine{}, "idx_conv_lines") {
		t.Fatalf("expected idx_conv_lines on transcript_lines")
	}
	if !m.HasIndex(&Lead{}, "ux_leads_lead_id") {
		t.Fatalf("expected ux_leads_lead_id on leads")
	}

	c := NewConversation(uuid.NewString(), customer("u1", "Ann", "cc-1"))
	c.Transcript = nil
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	line := TranscriptLine{
		ID: uuid.NewString(), ConversationID: c.ID, Seq: 1, Timestamp: time.Now().UTC(),
		From: FromCustomer, SentimentScore: SentimentNotComputed, State: StateBot, Attachments: "[]", Text: "hi",
	}
	if err := db.Create(&line).Error; err != nil {
		t.Fatalf("create line: %v", err)
	}

	var got Conversation
	if err := db.Preload("Transcript").First(&got, "id = ?", c.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.CustomerAddress().User.ID != "u1" || got.AgentAddress() != nil {
		t.Fatalf("address round trip failed: %+v", got)
	}
	if len(got.Transcript) != 1 || got.Transcript[0].SentimentScore != SentimentNotComputed {
		t.Fatalf("transcript round trip failed: %+v", got.Transcript)
	}

	// Agent state without an agent is rejected by the save hook.
	got.State = StateAgent
	if err := db.Omit("Transcript").Save(&got).Error; !errors.Is(err, ErrAgentRequired) {
		t.Fatalf("expected ErrAgentRequired from hook, got %v", err)
	}

	// Deleting the conversation cascades to its lines.
	if err := db.Delete(&Conversation{}, "id = ?", c.ID).Error; err != nil {
		t.Fatalf("delete: %v", err)
	}
	var n int64
	db.Model(&TranscriptLine{}).Where("conversation_id = ?", c.ID).Count(&n)
	if n != 0 {
		t.Fatalf("expected cascade delete of lines, have %d", n)
	}

	// The state check constraint rejects out-of-range values written directly.
	if err := db.Exec(
		"INSERT INTO conversations (id, customer, agent, state) VALUES (?, ?, ?, ?)",
		uuid.NewString(), "{}", "null", 9,
	).Error; err == nil {
		t.Fatalf("expected CHECK violation for state 9")
	}
}

func TestLead_PutSnapshot_ReplacesSameChannelAndBot(t *testing.T) {
	l := NewLead("id", "lead-1", "Ann")
	web := NewConversation("c-web", customer("u1", "Ann", "cc-1"))
	smsAddr := customer("u1", "Ann", "cc-2")
	smsAddr.ChannelID = "sms"
	sms := NewConversation("c-sms", smsAddr)

	l.PutSnapshot(web.Snapshot())
	l.PutSnapshot(sms.Snapshot())
	if got := len(l.Snapshots()); got != 2 {
		t.Fatalf("want 2 snapshots, got %d", got)
	}

	web2 := NewConversation("c-web-2", customer("u1", "Ann", "cc-3"))
	l.PutSnapshot(web2.Snapshot())
	snaps := l.Snapshots()
	if len(snaps) != 2 {
		t.Fatalf("repeat channel must replace, got %d", len(snaps))
	}
	if snaps[0].ID != "c-sms" || snaps[1].ID != "c-web-2" {
		t.Fatalf("replacement should move to the end: %+v", snaps)
	}
}

func TestConversation_JSONShape(t *testing.T) {
	c := NewConversation("c1", customer("u1", "Ann", "cc-1"))
	b, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(raw["agent"]) != "null" {
		t.Fatalf("agent should encode as null, got %s", raw["agent"])
	}
	if _, ok := raw["CustomerUserID"]; ok {
		t.Fatalf("lookup columns must not be encoded")
	}
	if string(raw["transcript"]) != "[]" {
		t.Fatalf("empty transcript should encode as [], got %s", raw["transcript"])
	}
}
