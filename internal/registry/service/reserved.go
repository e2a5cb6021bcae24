package service

import (
	"context"

	apperrors "github.com/permasite/undernames/internal/platform/errors"
	"github.com/permasite/undernames/internal/registry/authz"
	"github.com/permasite/undernames/internal/registry/domain"
	"github.com/permasite/undernames/internal/registry/event"
)

// AddReserved withholds label from public request. A non-empty assignedTo
// lets exactly that identity claim the label later.
func (s *Service) AddReserved(ctx context.Context, caller, label, assignedTo string) error {
	ctx, span := s.tracer.Start(ctx, "registry.AddReserved")
	defer span.End()

	caller, err := domain.NormalizeIdentity(caller)
	if err != nil {
		return err
	}
	normalized, err := domain.NormalizeLabel(label)
	if err != nil {
		return err
	}
	if assignedTo != "" {
		assignedTo, err = domain.NormalizeIdentity(assignedTo)
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := authz.Authorize(caller, authz.OpAddReserved, s.reg); err != nil {
		return err
	}
	if _, ok := s.reg.Reserved[normalized]; ok {
		return apperrors.WithMetadata(apperrors.CodeLabelUnavailable,
			"label is already reserved", map[string]string{"Label": normalized})
	}
	if _, ok := s.reg.Owned[normalized]; ok {
		return apperrors.WithMetadata(apperrors.CodeLabelUnavailable,
			"label is already owned", map[string]string{"Label": normalized})
	}

	payload, err := marshalPayload(event.ReservedAddedPayload{
		Label:      normalized,
		AssignedTo: assignedTo,
	})
	if err != nil {
		return err
	}
	_, err = s.commit(ctx, event.Event{
		Type:        event.TypeReservedAdded,
		Actor:       caller,
		ActorRole:   event.RoleController,
		EntityType:  event.EntityLabel,
		EntityID:    normalized,
		PayloadJSON: payload,
	})
	return err
}

// RemoveReserved releases a reservation. An assigned reservation requires
// force, so a claimable label is not dropped by accident.
func (s *Service) RemoveReserved(ctx context.Context, caller, label string, force bool) error {
	ctx, span := s.tracer.Start(ctx, "registry.RemoveReserved")
	defer span.End()

	caller, err := domain.NormalizeIdentity(caller)
	if err != nil {
		return err
	}
	normalized, err := domain.NormalizeLabel(label)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := authz.Authorize(caller, authz.OpRemoveReserved, s.reg); err != nil {
		return err
	}
	reserved, ok := s.reg.Reserved[normalized]
	if !ok {
		return apperrors.WithMetadata(apperrors.CodeNotFound,
			"label is not reserved", map[string]string{"Label": normalized})
	}
	if reserved.AssignedTo != "" && !force {
		return apperrors.WithMetadata(apperrors.CodeReservedAssigned,
			"reservation is assigned; removal requires force",
			map[string]string{"Label": normalized, "Address": reserved.AssignedTo})
	}

	payload, err := marshalPayload(event.ReservedRemovedPayload{
		Label:  normalized,
		Forced: force && reserved.AssignedTo != "",
	})
	if err != nil {
		return err
	}
	_, err = s.commit(ctx, event.Event{
		Type:        event.TypeReservedRemoved,
		Actor:       caller,
		ActorRole:   event.RoleController,
		EntityType:  event.EntityLabel,
		EntityID:    normalized,
		PayloadJSON: payload,
	})
	return err
}

// ForceRelease strips the current owner of label. The label becomes
// requestable again.
func (s *Service) ForceRelease(ctx context.Context, caller, label, reason string) error {
	ctx, span := s.tracer.Start(ctx, "registry.ForceRelease")
	defer span.End()

	caller, err := domain.NormalizeIdentity(caller)
	if err != nil {
		return err
	}
	normalized, err := domain.NormalizeLabel(label)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := authz.Authorize(caller, authz.OpForceRelease, s.reg); err != nil {
		return err
	}
	owned, ok := s.reg.Owned[normalized]
	if !ok {
		return apperrors.WithMetadata(apperrors.CodeNotFound,
			"label has no owner", map[string]string{"Label": normalized})
	}

	payload, err := marshalPayload(event.OwnershipReleasedPayload{
		Label:  normalized,
		Owner:  owned.Owner,
		Reason: reason,
	})
	if err != nil {
		return err
	}
	_, err = s.commit(ctx, event.Event{
		Type:        event.TypeOwnershipReleased,
		Actor:       caller,
		ActorRole:   event.RoleController,
		EntityType:  event.EntityLabel,
		EntityID:    normalized,
		PayloadJSON: payload,
	})
	return err
}
