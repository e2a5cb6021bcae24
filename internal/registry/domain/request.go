package domain

import (
	"fmt"
	"strings"
	"time"
)

// RequestStatus describes where a label request is in its lifecycle.
type RequestStatus string

const (
	// StatusPending indicates the request awaits a controller decision.
	StatusPending RequestStatus = "PENDING"
	// StatusApproved indicates the request was granted; ownership followed.
	StatusApproved RequestStatus = "APPROVED"
	// StatusRejected indicates a controller declined the request.
	StatusRejected RequestStatus = "REJECTED"
	// StatusCancelled indicates the requester withdrew the request.
	StatusCancelled RequestStatus = "CANCELLED"
)

// IsTerminal reports whether the status permits no further transitions.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// ParseRequestStatus converts a raw status string to a RequestStatus.
// The empty string parses to the zero value and means "no status".
func ParseRequestStatus(raw string) (RequestStatus, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" {
		return "", nil
	}
	status := RequestStatus(value)
	switch status {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return status, nil
	}
	return "", fmt.Errorf("unknown request status %q", raw)
}

// Request is one undername request. Rows are never deleted; terminal
// requests remain for audit.
type Request struct {
	ID        uint64
	Label     string
	Requester string
	Status    RequestStatus
	// Reason records the controller's justification on rejection.
	Reason    string
	CreatedAt time.Time
	DecidedAt time.Time
}

// CanTransitionTo reports whether the request may move to the next status.
// Transitions are one-way: only a pending request may reach a terminal
// status, and terminal statuses never change again.
func (r Request) CanTransitionTo(next RequestStatus) bool {
	if r.Status != StatusPending {
		return false
	}
	return next.IsTerminal()
}
