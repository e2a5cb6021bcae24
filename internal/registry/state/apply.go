package state

import (
	"encoding/json"
	"fmt"

	"github.com/permasite/undernames/internal/registry/domain"
	"github.com/permasite/undernames/internal/registry/event"
)

// Apply mutates the registry with one ledger event. Events must be applied
// in sequence order; a decode or ordering failure leaves the registry
// unchanged and aborts the replay.
func (r *Registry) Apply(evt event.Event) error {
	if r == nil {
		return fmt.Errorf("registry is not initialized")
	}
	if evt.Seq != r.LastSeq+1 {
		return fmt.Errorf("event out of order: expected seq %d, got %d", r.LastSeq+1, evt.Seq)
	}

	switch evt.Type {
	case event.TypeBootstrapped:
		var payload event.BootstrappedPayload
		if err := decodePayload(evt, &payload); err != nil {
			return err
		}
		r.Bootstrapped = true
		r.Controllers[payload.Controller] = domain.Controller{
			Address: payload.Controller,
			AddedAt: evt.Timestamp,
		}

	case event.TypeControllerAdded:
		var payload event.ControllerAddedPayload
		if err := decodePayload(evt, &payload); err != nil {
			return err
		}
		r.Controllers[payload.Address] = domain.Controller{
			Address: payload.Address,
			AddedAt: evt.Timestamp,
		}

	case event.TypeControllerRemoved:
		var payload event.ControllerRemovedPayload
		if err := decodePayload(evt, &payload); err != nil {
			return err
		}
		delete(r.Controllers, payload.Address)

	case event.TypePolicyChanged:
		var payload event.PolicyChangedPayload
		if err := decodePayload(evt, &payload); err != nil {
			return err
		}
		r.Policy = domain.Policy{
			MaxPerAddress:   payload.MaxPerAddress,
			RequireApproval: payload.RequireApproval,
		}

	case event.TypeReservedAdded:
		var payload event.ReservedAddedPayload
		if err := decodePayload(evt, &payload); err != nil {
			return err
		}
		r.Reserved[payload.Label] = domain.ReservedLabel{
			Label:      payload.Label,
			AssignedTo: payload.AssignedTo,
			CreatedAt:  evt.Timestamp,
		}

	case event.TypeReservedRemoved:
		var payload event.ReservedRemovedPayload
		if err := decodePayload(evt, &payload); err != nil {
			return err
		}
		delete(r.Reserved, payload.Label)

	case event.TypeRequestCreated:
		var payload event.RequestCreatedPayload
		if err := decodePayload(evt, &payload); err != nil {
			return err
		}
		req := domain.Request{
			ID:        payload.RequestID,
			Label:     payload.Label,
			Requester: payload.Requester,
			Status:    domain.StatusPending,
			CreatedAt: evt.Timestamp,
		}
		if payload.AutoApproved {
			req.Status = domain.StatusApproved
			req.DecidedAt = evt.Timestamp
			r.grantOwnership(payload.Label, payload.Requester, evt)
		}
		r.Requests[payload.RequestID] = req
		if payload.RequestID >= r.NextRequestID {
			r.NextRequestID = payload.RequestID + 1
		}

	case event.TypeRequestApproved:
		var payload event.RequestApprovedPayload
		if err := decodePayload(evt, &payload); err != nil {
			return err
		}
		req, ok := r.Requests[payload.RequestID]
		if !ok {
			return fmt.Errorf("approve: request %d not found", payload.RequestID)
		}
		req.Status = domain.StatusApproved
		req.DecidedAt = evt.Timestamp
		r.Requests[payload.RequestID] = req
		r.grantOwnership(req.Label, req.Requester, evt)

	case event.TypeRequestRejected:
		var payload event.RequestRejectedPayload
		if err := decodePayload(evt, &payload); err != nil {
			return err
		}
		req, ok := r.Requests[payload.RequestID]
		if !ok {
			return fmt.Errorf("reject: request %d not found", payload.RequestID)
		}
		req.Status = domain.StatusRejected
		req.Reason = payload.Reason
		req.DecidedAt = evt.Timestamp
		r.Requests[payload.RequestID] = req

	case event.TypeRequestCancelled:
		var payload event.RequestCancelledPayload
		if err := decodePayload(evt, &payload); err != nil {
			return err
		}
		req, ok := r.Requests[payload.RequestID]
		if !ok {
			return fmt.Errorf("cancel: request %d not found", payload.RequestID)
		}
		req.Status = domain.StatusCancelled
		req.DecidedAt = evt.Timestamp
		r.Requests[payload.RequestID] = req

	case event.TypeOwnershipReleased:
		var payload event.OwnershipReleasedPayload
		if err := decodePayload(evt, &payload); err != nil {
			return err
		}
		delete(r.Owned, payload.Label)

	default:
		return fmt.Errorf("unknown event type %q at seq %d", evt.Type, evt.Seq)
	}

	r.LastSeq = evt.Seq
	return nil
}

// grantOwnership records the owner and clears any reservation the grant
// consumed (an assigned reserved label claimed by its assignee).
func (r *Registry) grantOwnership(label, owner string, evt event.Event) {
	r.Owned[label] = domain.Ownership{
		Label:     label,
		Owner:     owner,
		GrantedAt: evt.Timestamp,
	}
	delete(r.Reserved, label)
}

func decodePayload(evt event.Event, target any) error {
	if err := json.Unmarshal(evt.PayloadJSON, target); err != nil {
		return fmt.Errorf("decode %s payload at seq %d: %w", evt.Type, evt.Seq, err)
	}
	return nil
}
