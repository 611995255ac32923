// Package services defines the business logic for conversation resolution,
// bot/agent handoff, transcript recording, and lead aggregation.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import (
	"errors"

	"github.com/tbourn/go-handoff-backend/internal/domain"
)

// Handoff-related errors.
var (
	// ErrConversationNotFound indicates that no conversation matched the
	// selector. Invalid selectors are reported the same way.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrInvalidSelector is returned by operations that require a usable
	// selector before touching storage.
	ErrInvalidSelector = errors.New("invalid selector")

	// ErrInvalidTransition is returned when a state change is not allowed
	// from the conversation's current state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidAddress is returned when a customer or agent address lacks
	// a required routing field.
	ErrInvalidAddress = domain.ErrInvalidAddress

	// ErrLeadNotFound indicates that no lead exists for the given lead id.
	ErrLeadNotFound = errors.New("lead not found")
)
