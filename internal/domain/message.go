package domain

import (
	"encoding/json"
	"time"
)

// FromCustomer is the sender label that marks a customer turn. Only customer
// turns are sentiment scored and use the client's local timestamp.
const FromCustomer = "Customer"

// InboundMessage is the part of a bot-framework activity the handoff core
// reads. Attachments and Value are kept as raw JSON.
type InboundMessage struct {
	Text           string            `json:"text"`
	Attachments    []json.RawMessage `json:"attachments,omitempty"`
	Value          json.RawMessage   `json:"value,omitempty"`
	LocalTimestamp *time.Time        `json:"localTimestamp,omitempty"`
	Timestamp      *time.Time        `json:"timestamp,omitempty"`
	Address        Address           `json:"address"`
}
