package service

import (
	"context"

	apperrors "github.com/permasite/undernames/internal/platform/errors"
	"github.com/permasite/undernames/internal/registry/authz"
	"github.com/permasite/undernames/internal/registry/domain"
	"github.com/permasite/undernames/internal/registry/event"
)

// Bootstrap seeds the caller as the registry's first controller. It
// succeeds at most once per ledger.
func (s *Service) Bootstrap(ctx context.Context, caller string) error {
	ctx, span := s.tracer.Start(ctx, "registry.Bootstrap")
	defer span.End()

	caller, err := domain.NormalizeIdentity(caller)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := authz.Authorize(caller, authz.OpBootstrap, s.reg); err != nil {
		return err
	}

	payload, err := marshalPayload(event.BootstrappedPayload{Controller: caller})
	if err != nil {
		return err
	}
	_, err = s.commit(ctx, event.Event{
		Type:        event.TypeBootstrapped,
		Actor:       caller,
		ActorRole:   event.RoleSystem,
		EntityType:  event.EntityRegistry,
		EntityID:    s.rootName,
		PayloadJSON: payload,
	})
	return err
}

// AddController adds address to the controller set.
func (s *Service) AddController(ctx context.Context, caller, address string) error {
	ctx, span := s.tracer.Start(ctx, "registry.AddController")
	defer span.End()

	caller, err := domain.NormalizeIdentity(caller)
	if err != nil {
		return err
	}
	address, err = domain.NormalizeIdentity(address)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := authz.Authorize(caller, authz.OpAddController, s.reg); err != nil {
		return err
	}
	if s.reg.IsController(address) {
		return apperrors.WithMetadata(apperrors.CodeControllerExists,
			"address is already a controller", map[string]string{"Address": address})
	}

	payload, err := marshalPayload(event.ControllerAddedPayload{Address: address})
	if err != nil {
		return err
	}
	_, err = s.commit(ctx, event.Event{
		Type:        event.TypeControllerAdded,
		Actor:       caller,
		ActorRole:   event.RoleController,
		EntityType:  event.EntityController,
		EntityID:    address,
		PayloadJSON: payload,
	})
	return err
}

// RemoveController removes address from the controller set. Removing the
// last controller is refused; a registry must always remain governable.
func (s *Service) RemoveController(ctx context.Context, caller, address string) error {
	ctx, span := s.tracer.Start(ctx, "registry.RemoveController")
	defer span.End()

	caller, err := domain.NormalizeIdentity(caller)
	if err != nil {
		return err
	}
	address, err = domain.NormalizeIdentity(address)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := authz.Authorize(caller, authz.OpRemoveController, s.reg); err != nil {
		return err
	}
	if !s.reg.IsController(address) {
		return apperrors.WithMetadata(apperrors.CodeNotFound,
			"address is not a controller", map[string]string{"Address": address})
	}
	if err := authz.RequireNotLastController(s.reg, address); err != nil {
		return err
	}

	payload, err := marshalPayload(event.ControllerRemovedPayload{Address: address})
	if err != nil {
		return err
	}
	_, err = s.commit(ctx, event.Event{
		Type:        event.TypeControllerRemoved,
		Actor:       caller,
		ActorRole:   event.RoleController,
		EntityType:  event.EntityController,
		EntityID:    address,
		PayloadJSON: payload,
	})
	return err
}

// SetPolicy replaces the admission policy.
func (s *Service) SetPolicy(ctx context.Context, caller string, pol domain.Policy) error {
	ctx, span := s.tracer.Start(ctx, "registry.SetPolicy")
	defer span.End()

	caller, err := domain.NormalizeIdentity(caller)
	if err != nil {
		return err
	}
	if err := pol.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := authz.Authorize(caller, authz.OpSetPolicy, s.reg); err != nil {
		return err
	}

	payload, err := marshalPayload(event.PolicyChangedPayload{
		MaxPerAddress:   pol.MaxPerAddress,
		RequireApproval: pol.RequireApproval,
	})
	if err != nil {
		return err
	}
	_, err = s.commit(ctx, event.Event{
		Type:        event.TypePolicyChanged,
		Actor:       caller,
		ActorRole:   event.RoleController,
		EntityType:  event.EntityRegistry,
		EntityID:    s.rootName,
		PayloadJSON: payload,
	})
	return err
}
