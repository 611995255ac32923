// Package domain defines the persistence models for handoff conversations,
// their transcripts, and customer leads. These types are mapped with GORM
// and form the core data layer of the handoff backend.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ConversationState is the routing state of a conversation.
type ConversationState int

const (
	StateBot     ConversationState = iota // bot is talking to the customer
	StateWaiting                          // customer is queued for an agent
	StateAgent                            // an agent is connected
	StateWatch                            // reserved; accepted by storage, never produced
)

// SentimentNotComputed marks a transcript line without a sentiment score.
const SentimentNotComputed = -1.0

// ErrAgentRequired is returned when a conversation in StateAgent has no agent.
var ErrAgentRequired = errors.New("agent address required in agent state")

// ErrInvalidState is returned for a state outside [StateBot, StateWatch].
var ErrInvalidState = errors.New("invalid conversation state")

// Valid reports whether s is within the persisted range.
func (s ConversationState) Valid() bool { return s >= StateBot && s <= StateWatch }

func (s ConversationState) String() string {
	switch s {
	case StateBot:
		return "bot"
	case StateWaiting:
		return "waiting"
	case StateAgent:
		return "agent"
	case StateWatch:
		return "watch"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ParseState parses a state name ("bot", "waiting", "agent", "watch") or its
// numeric form.
func ParseState(s string) (ConversationState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bot", "0":
		return StateBot, nil
	case "waiting", "1":
		return StateWaiting, nil
	case "agent", "2":
		return StateAgent, nil
	case "watch", "3":
		return StateWatch, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidState, s)
}

// Conversation is one customer's session with the bot and, optionally, a
// human agent.
//
// Fields:
//   - ID: internal UUID primary key (char(36)), generated at creation.
//   - Customer: the customer's address; never reassigned.
//   - Agent: the connected agent's address, JSON null while un-joined.
//   - State: current routing state (check constraint 0..3).
//   - Transcript: append-only lines, ordered by Seq.
//
// The customer_* and agent_* columns are derived copies of nested address
// fields used for indexed lookups; SyncLookups keeps them current.
type Conversation struct {
	ID       string                       `json:"id"         gorm:"type:char(36);primaryKey"`
	Customer datatypes.JSONType[Address]  `json:"customer"   gorm:"not null"`
	Agent    datatypes.JSONType[*Address] `json:"agent"      gorm:"not null"`
	State    ConversationState            `json:"state"      gorm:"not null;default:0;check:chk_conversations_state,state BETWEEN 0 AND 3;index"`

	CustomerUserID         string `json:"-" gorm:"type:varchar(255);index:idx_conv_customer_user"`
	CustomerUserName       string `json:"-" gorm:"type:varchar(255);index"`
	CustomerConversationID string `json:"-" gorm:"type:varchar(255);index"`
	CustomerChannelID      string `json:"-" gorm:"type:varchar(64)"`
	CustomerBotName        string `json:"-" gorm:"type:varchar(255)"`
	AgentConversationID    string `json:"-" gorm:"type:varchar(255);index"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Transcript []TranscriptLine `json:"transcript" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// NewConversation returns an unsaved conversation for customer in StateBot
// with an empty transcript.
func NewConversation(id string, customer Address) *Conversation {
	c := &Conversation{
		ID:         id,
		Customer:   datatypes.NewJSONType(customer),
		Agent:      datatypes.NewJSONType[*Address](nil),
		State:      StateBot,
		Transcript: []TranscriptLine{},
	}
	c.SyncLookups()
	return c
}

// CustomerAddress returns the customer's address.
func (c *Conversation) CustomerAddress() Address { return c.Customer.Data() }

// AgentAddress returns the agent's address or nil when none is connected.
func (c *Conversation) AgentAddress() *Address { return c.Agent.Data() }

// SetAgent replaces the agent address; nil clears it.
func (c *Conversation) SetAgent(a *Address) {
	c.Agent = datatypes.NewJSONType(a)
	c.SyncLookups()
}

// LastActivity returns the timestamp of the newest transcript line. ok is
// false when the transcript is empty.
func (c *Conversation) LastActivity() (ts time.Time, ok bool) {
	if len(c.Transcript) == 0 {
		return time.Time{}, false
	}
	return c.Transcript[len(c.Transcript)-1].Timestamp, true
}

// SyncLookups copies nested address fields into the indexed lookup columns.
func (c *Conversation) SyncLookups() {
	cust := c.Customer.Data()
	c.CustomerUserID = cust.User.ID
	c.CustomerUserName = cust.User.Name
	c.CustomerConversationID = cust.ConversationID()
	c.CustomerChannelID = cust.ChannelID
	c.CustomerBotName = cust.Bot.Name
	c.AgentConversationID = ""
	if a := c.Agent.Data(); a != nil {
		c.AgentConversationID = a.ConversationID()
	}
}

// Validate checks the state range and that StateAgent carries an agent.
func (c *Conversation) Validate() error {
	if !c.State.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidState, int(c.State))
	}
	if c.State == StateAgent && c.Agent.Data() == nil {
		return ErrAgentRequired
	}
	return nil
}

// BeforeSave syncs lookup columns and rejects invalid conversations.
func (c *Conversation) BeforeSave(*gorm.DB) error {
	c.SyncLookups()
	return c.Validate()
}

// Snapshot returns the plain-JSON copy embedded in a Lead.
func (c *Conversation) Snapshot() ConversationSnapshot {
	lines := make([]TranscriptLine, len(c.Transcript))
	copy(lines, c.Transcript)
	return ConversationSnapshot{
		ID:         c.ID,
		Customer:   c.Customer.Data(),
		Agent:      c.Agent.Data(),
		State:      c.State,
		Transcript: lines,
	}
}

// TranscriptLine is one logged turn. Lines are immutable once appended.
//
// Attachments holds the JSON-encoded attachment list ("[]" when none) and
// AdaptiveResponseKVPairs the JSON-encoded adaptive card response, if any.
type TranscriptLine struct {
	ID                      string            `json:"id"                      gorm:"type:char(36);primaryKey"`
	ConversationID          string            `json:"-"                       gorm:"type:char(36);not null;index:idx_conv_lines,priority:1"`
	Seq                     int               `json:"seq"                     gorm:"not null;index:idx_conv_lines,priority:2"`
	Timestamp               time.Time         `json:"timestamp"               gorm:"not null"`
	From                    string            `json:"from"                    gorm:"type:varchar(64);not null"`
	SentimentScore          float64           `json:"sentimentScore"          gorm:"not null"`
	State                   ConversationState `json:"state"                   gorm:"not null;check:chk_transcript_lines_state,state BETWEEN 0 AND 3"`
	Attachments             string            `json:"attachments"             gorm:"type:text;not null;default:'[]'"`
	AdaptiveResponseKVPairs *string           `json:"adaptiveResponseKVPairs" gorm:"type:text"`
	Text                    string            `json:"text"                    gorm:"type:text;not null"`
	CreatedAt               time.Time         `json:"-"`
}

// TableName returns the database table name for TranscriptLine.
func (TranscriptLine) TableName() string { return "transcript_lines" }

// ConversationSnapshot is the embedded copy of a conversation kept on a Lead.
type ConversationSnapshot struct {
	ID         string            `json:"id"`
	Customer   Address           `json:"customer"`
	Agent      *Address          `json:"agent"`
	State      ConversationState `json:"state"`
	Transcript []TranscriptLine  `json:"transcript"`
}

// Lead is the per-customer record that survives across channels and
// sessions. LastConversationsByChannel holds at most one snapshot per
// (channelId, bot name).
type Lead struct {
	ID                         string                                    `json:"id"                         gorm:"type:char(36);primaryKey"`
	LeadID                     string                                    `json:"leadId"                     gorm:"type:varchar(255);not null;uniqueIndex:ux_leads_lead_id"`
	Name                       string                                    `json:"name"                       gorm:"type:varchar(255)"`
	Email                      string                                    `json:"email,omitempty"            gorm:"type:varchar(255)"`
	MobileNumber               string                                    `json:"mobileNumber,omitempty"     gorm:"type:varchar(64)"`
	LandLine                   string                                    `json:"landLine,omitempty"         gorm:"type:varchar(64)"`
	Zip                        string                                    `json:"zip,omitempty"              gorm:"type:varchar(32)"`
	DateOfBirth                *time.Time                                `json:"dateOfBirth,omitempty"`
	EligibleProductTypes       datatypes.JSONType[[]string]              `json:"eligibleProductTypes"       gorm:"not null"`
	InterestedProductTypes     datatypes.JSONType[[]string]              `json:"interestedProductTypes"     gorm:"not null"`
	OfferedProducts            datatypes.JSONType[[]string]              `json:"offeredProducts"            gorm:"not null"`
	InterestedProducts         datatypes.JSONType[[]string]              `json:"interestedProducts"         gorm:"not null"`
	WebPushSubscription        datatypes.JSONType[[]string]              `json:"webPushSubscription"        gorm:"not null"`
	AndroidPushSubscription    datatypes.JSONType[[]string]              `json:"androidPushSubscription"    gorm:"not null"`
	IOSPushSubscription        datatypes.JSONType[[]string]              `json:"iOSPushSubscription"        gorm:"column:ios_push_subscription;not null"`
	IsAgent                    bool                                      `json:"isAgent"                    gorm:"not null;default:false"`
	LastConversationsByChannel datatypes.JSONType[[]ConversationSnapshot] `json:"lastConversationsByChannel" gorm:"not null"`
	CreatedAt                  time.Time                                 `json:"createdAt"`
	UpdatedAt                  time.Time                                 `json:"updatedAt"`
}

// TableName returns the database table name for Lead.
func (Lead) TableName() string { return "leads" }

// NewLead returns an unsaved lead with empty lists.
func NewLead(id, leadID, name string) *Lead {
	empty := datatypes.NewJSONType([]string{})
	return &Lead{
		ID:                         id,
		LeadID:                     leadID,
		Name:                       name,
		EligibleProductTypes:       empty,
		InterestedProductTypes:     empty,
		OfferedProducts:            empty,
		InterestedProducts:         empty,
		WebPushSubscription:        empty,
		AndroidPushSubscription:    empty,
		IOSPushSubscription:        empty,
		LastConversationsByChannel: datatypes.NewJSONType([]ConversationSnapshot{}),
	}
}

// Snapshots returns the per-channel conversation snapshots.
func (l *Lead) Snapshots() []ConversationSnapshot { return l.LastConversationsByChannel.Data() }

// PutSnapshot replaces any snapshot with the same channel and bot name and
// appends s at the end.
func (l *Lead) PutSnapshot(s ConversationSnapshot) {
	cur := l.LastConversationsByChannel.Data()
	out := make([]ConversationSnapshot, 0, len(cur)+1)
	for _, e := range cur {
		if e.Customer.ChannelID == s.Customer.ChannelID && e.Customer.Bot.Name == s.Customer.Bot.Name {
			continue
		}
		out = append(out, e)
	}
	l.LastConversationsByChannel = datatypes.NewJSONType(append(out, s))
}
