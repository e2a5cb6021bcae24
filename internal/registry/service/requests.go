package service

import (
	"context"
	"strconv"

	apperrors "github.com/permasite/undernames/internal/platform/errors"
	"github.com/permasite/undernames/internal/registry/authz"
	"github.com/permasite/undernames/internal/registry/domain"
	"github.com/permasite/undernames/internal/registry/event"
	"github.com/permasite/undernames/internal/registry/policy"
)

// RequestLabel admits a new label request for caller. When the policy does
// not require approval, the request is granted in the same call; exactly one
// event is written either way.
func (s *Service) RequestLabel(ctx context.Context, caller, label string) (domain.Request, error) {
	ctx, span := s.tracer.Start(ctx, "registry.RequestLabel")
	defer span.End()

	caller, err := domain.NormalizeIdentity(caller)
	if err != nil {
		return domain.Request{}, err
	}
	normalized, err := domain.NormalizeLabel(label)
	if err != nil {
		return domain.Request{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := authz.Authorize(caller, authz.OpRequestLabel, s.reg); err != nil {
		return domain.Request{}, err
	}
	if avail := s.reg.Availability(normalized, caller); !avail.Available {
		return domain.Request{}, apperrors.WithMetadata(apperrors.CodeLabelUnavailable,
			"label is not available", map[string]string{
				"Label":  normalized,
				"Reason": string(avail.Reason),
			})
	}
	decision, err := policy.Evaluate(s.reg, caller)
	if err != nil {
		return domain.Request{}, err
	}

	requestID := s.reg.NextRequestID
	payload, err := marshalPayload(event.RequestCreatedPayload{
		RequestID:    requestID,
		Label:        normalized,
		Requester:    caller,
		AutoApproved: decision.AutoApprove,
	})
	if err != nil {
		return domain.Request{}, err
	}
	if _, err := s.commit(ctx, event.Event{
		Type:        event.TypeRequestCreated,
		Actor:       caller,
		ActorRole:   event.RoleUser,
		EntityType:  event.EntityRequest,
		EntityID:    strconv.FormatUint(requestID, 10),
		PayloadJSON: payload,
	}); err != nil {
		return domain.Request{}, err
	}
	return s.reg.Requests[requestID], nil
}

// ApproveRequest grants a pending request and records ownership.
func (s *Service) ApproveRequest(ctx context.Context, caller string, requestID uint64) (domain.Request, error) {
	ctx, span := s.tracer.Start(ctx, "registry.ApproveRequest")
	defer span.End()

	caller, err := domain.NormalizeIdentity(caller)
	if err != nil {
		return domain.Request{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := authz.Authorize(caller, authz.OpApproveRequest, s.reg); err != nil {
		return domain.Request{}, err
	}
	req, ok := s.reg.Requests[requestID]
	if !ok {
		return domain.Request{}, apperrors.New(apperrors.CodeNotFound, "request not found")
	}
	if !req.CanTransitionTo(domain.StatusApproved) {
		return domain.Request{}, invalidState(req)
	}
	if _, owned := s.reg.Owned[req.Label]; owned {
		return domain.Request{}, apperrors.WithMetadata(apperrors.CodeLabelUnavailable,
			"label is already owned", map[string]string{"Label": req.Label})
	}
	// A reservation placed after the request was created blocks approval
	// unless it is assigned to the requester.
	if res, reserved := s.reg.Reserved[req.Label]; reserved && res.AssignedTo != req.Requester {
		return domain.Request{}, apperrors.WithMetadata(apperrors.CodeLabelUnavailable,
			"label is reserved", map[string]string{"Label": req.Label})
	}

	payload, err := marshalPayload(event.RequestApprovedPayload{
		RequestID: requestID,
		Label:     req.Label,
		Requester: req.Requester,
	})
	if err != nil {
		return domain.Request{}, err
	}
	if _, err := s.commit(ctx, event.Event{
		Type:        event.TypeRequestApproved,
		Actor:       caller,
		ActorRole:   event.RoleController,
		EntityType:  event.EntityRequest,
		EntityID:    strconv.FormatUint(requestID, 10),
		PayloadJSON: payload,
	}); err != nil {
		return domain.Request{}, err
	}
	return s.reg.Requests[requestID], nil
}

// RejectRequest declines a pending request.
func (s *Service) RejectRequest(ctx context.Context, caller string, requestID uint64, reason string) (domain.Request, error) {
	ctx, span := s.tracer.Start(ctx, "registry.RejectRequest")
	defer span.End()

	caller, err := domain.NormalizeIdentity(caller)
	if err != nil {
		return domain.Request{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := authz.Authorize(caller, authz.OpRejectRequest, s.reg); err != nil {
		return domain.Request{}, err
	}
	req, ok := s.reg.Requests[requestID]
	if !ok {
		return domain.Request{}, apperrors.New(apperrors.CodeNotFound, "request not found")
	}
	if !req.CanTransitionTo(domain.StatusRejected) {
		return domain.Request{}, invalidState(req)
	}

	payload, err := marshalPayload(event.RequestRejectedPayload{
		RequestID: requestID,
		Reason:    reason,
	})
	if err != nil {
		return domain.Request{}, err
	}
	if _, err := s.commit(ctx, event.Event{
		Type:        event.TypeRequestRejected,
		Actor:       caller,
		ActorRole:   event.RoleController,
		EntityType:  event.EntityRequest,
		EntityID:    strconv.FormatUint(requestID, 10),
		PayloadJSON: payload,
	}); err != nil {
		return domain.Request{}, err
	}
	return s.reg.Requests[requestID], nil
}

// CancelRequest withdraws the caller's own pending request.
func (s *Service) CancelRequest(ctx context.Context, caller string, requestID uint64) (domain.Request, error) {
	ctx, span := s.tracer.Start(ctx, "registry.CancelRequest")
	defer span.End()

	caller, err := domain.NormalizeIdentity(caller)
	if err != nil {
		return domain.Request{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := authz.Authorize(caller, authz.OpCancelRequest, s.reg); err != nil {
		return domain.Request{}, err
	}
	req, ok := s.reg.Requests[requestID]
	if !ok {
		return domain.Request{}, apperrors.New(apperrors.CodeNotFound, "request not found")
	}
	if err := authz.AuthorizeCancel(caller, req); err != nil {
		return domain.Request{}, err
	}
	if !req.CanTransitionTo(domain.StatusCancelled) {
		return domain.Request{}, invalidState(req)
	}

	payload, err := marshalPayload(event.RequestCancelledPayload{RequestID: requestID})
	if err != nil {
		return domain.Request{}, err
	}
	if _, err := s.commit(ctx, event.Event{
		Type:        event.TypeRequestCancelled,
		Actor:       caller,
		ActorRole:   event.RoleUser,
		EntityType:  event.EntityRequest,
		EntityID:    strconv.FormatUint(requestID, 10),
		PayloadJSON: payload,
	}); err != nil {
		return domain.Request{}, err
	}
	return s.reg.Requests[requestID], nil
}

func invalidState(req domain.Request) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidState,
		"request is not pending", map[string]string{
			"RequestID": strconv.FormatUint(req.ID, 10),
			"Status":    string(req.Status),
		})
}
