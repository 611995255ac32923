package domain

import (
	"errors"
	"strings"
)

// ErrInvalidAddress is returned by Address.Validate when a required routing
// field is missing.
var ErrInvalidAddress = errors.New("invalid address")

// Identity names a participant (bot, user) or a channel conversation.
type Identity struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	IsGroup bool   `json:"isGroup,omitempty"`
}

// Address is the routing record the bot runtime needs to reach a participant
// on a channel. Bot, ChannelID and User.ID are required.
type Address struct {
	Bot          Identity  `json:"bot"`
	ChannelID    string    `json:"channelId"`
	Conversation *Identity `json:"conversation,omitempty"`
	User         Identity  `json:"user"`
	ID           string    `json:"id,omitempty"`
	ServiceURL   string    `json:"serviceUrl,omitempty"`
	UseAuth      bool      `json:"useAuth,omitempty"`
}

// Validate reports ErrInvalidAddress when a required field is empty.
func (a Address) Validate() error {
	switch {
	case strings.TrimSpace(a.Bot.ID) == "" && strings.TrimSpace(a.Bot.Name) == "":
		return errors.Join(ErrInvalidAddress, errors.New("bot is required"))
	case strings.TrimSpace(a.ChannelID) == "":
		return errors.Join(ErrInvalidAddress, errors.New("channelId is required"))
	case strings.TrimSpace(a.User.ID) == "":
		return errors.Join(ErrInvalidAddress, errors.New("user.id is required"))
	}
	return nil
}

// ConversationID returns the channel conversation id, or "" when unset.
func (a Address) ConversationID() string {
	if a.Conversation == nil {
		return ""
	}
	return a.Conversation.ID
}
