// Package handlers defines the error codes returned in every error envelope.
//
// Clients branch on Code; Message is for humans. Generic codes mirror the
// HTTP status. Domain codes name a handoff outcome the status cannot carry
// on its own, e.g. a 409 for connecting an agent to a customer who never
// asked for one.
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "invalid_transition",
//	  "message": "customer is not waiting for an agent"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Handoff-specific:
	ErrCodeInvalidSelector   = "invalid_selector"
	ErrCodeInvalidAddress    = "invalid_address"
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeInvalidState      = "invalid_state"
	ErrCodeListFailed        = "list_failed"
	ErrCodeAppendFailed      = "append_failed"
)
