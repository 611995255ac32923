package domain

import "strings"

// SelectorKind identifies how a Selector locates a conversation.
type SelectorKind int

const (
	SelectInvalid SelectorKind = iota
	SelectCustomerName
	SelectCustomerID
	SelectAgentConversationID
	SelectCustomerConversationID
	SelectBestChoice
)

func (k SelectorKind) String() string {
	switch k {
	case SelectCustomerName:
		return "customerName"
	case SelectCustomerID:
		return "customerId"
	case SelectAgentConversationID:
		return "agentConversationId"
	case SelectCustomerConversationID:
		return "customerConversationId"
	case SelectBestChoice:
		return "bestChoice"
	}
	return "invalid"
}

// Selector names exactly one way to find a conversation. The zero value is
// invalid and never matches.
type Selector struct {
	kind  SelectorKind
	value string
}

// ByCustomerName selects the first conversation whose customer user name is name.
func ByCustomerName(name string) Selector { return Selector{kind: SelectCustomerName, value: name} }

// ByCustomerID selects the first conversation whose customer user id is id.
func ByCustomerID(id string) Selector { return Selector{kind: SelectCustomerID, value: id} }

// ByAgentConversationID selects the conversation joined to the agent's channel conversation.
func ByAgentConversationID(id string) Selector {
	return Selector{kind: SelectAgentConversationID, value: id}
}

// ByCustomerConversationID selects the conversation for the customer's channel conversation.
func ByCustomerConversationID(id string) Selector {
	return Selector{kind: SelectCustomerConversationID, value: id}
}

// BestChoice selects the waiting customer with the most recent transcript line.
func BestChoice() Selector { return Selector{kind: SelectBestChoice} }

// Kind returns the selector kind.
func (s Selector) Kind() SelectorKind { return s.kind }

// Value returns the lookup key; empty for BestChoice.
func (s Selector) Value() string { return s.value }

// Valid reports whether s can match anything.
func (s Selector) Valid() bool {
	switch s.kind {
	case SelectBestChoice:
		return true
	case SelectInvalid:
		return false
	}
	return strings.TrimSpace(s.value) != ""
}

func (s Selector) String() string {
	if s.kind == SelectBestChoice || s.kind == SelectInvalid {
		return s.kind.String()
	}
	return s.kind.String() + "=" + s.value
}

// By is the wire form of a selector: any subset of fields may be set and
// Selector picks one by precedence.
type By struct {
	CustomerName           string `json:"customerName,omitempty"`
	CustomerID             string `json:"customerId,omitempty"`
	AgentConversationID    string `json:"agentConversationId,omitempty"`
	CustomerConversationID string `json:"customerConversationId,omitempty"`
	BestChoice             bool   `json:"bestChoice,omitempty"`
}

// Selector returns the first set field in the order customerName, customerId,
// agentConversationId, customerConversationId, bestChoice. With nothing set
// it returns the invalid selector.
func (b By) Selector() Selector {
	switch {
	case b.CustomerName != "":
		return ByCustomerName(b.CustomerName)
	case b.CustomerID != "":
		return ByCustomerID(b.CustomerID)
	case b.AgentConversationID != "":
		return ByAgentConversationID(b.AgentConversationID)
	case b.CustomerConversationID != "":
		return ByCustomerConversationID(b.CustomerConversationID)
	case b.BestChoice:
		return BestChoice()
	}
	return Selector{}
}
