// Package authz gates registry operations on the caller's standing before
// any event is written.
package authz

import (
	apperrors "github.com/permasite/undernames/internal/platform/errors"
	"github.com/permasite/undernames/internal/registry/domain"
	"github.com/permasite/undernames/internal/registry/state"
)

// Operation names a registry operation for authorization purposes. Most are
// mutations; Audit and Export are reads restricted to controllers.
type Operation string

const (
	OpBootstrap        Operation = "bootstrap"
	OpAddController    Operation = "add_controller"
	OpRemoveController Operation = "remove_controller"
	OpAddReserved      Operation = "add_reserved"
	OpRemoveReserved   Operation = "remove_reserved"
	OpSetPolicy        Operation = "set_policy"
	OpApproveRequest   Operation = "approve_request"
	OpRejectRequest    Operation = "reject_request"
	OpForceRelease     Operation = "force_release"
	OpRequestLabel     Operation = "request_label"
	OpCancelRequest    Operation = "cancel_request"
	OpAudit            Operation = "audit"
	OpExport           Operation = "export"
)

// requiresController lists operations only a controller may perform.
var requiresController = map[Operation]bool{
	OpAddController:    true,
	OpRemoveController: true,
	OpAddReserved:      true,
	OpRemoveReserved:   true,
	OpSetPolicy:        true,
	OpApproveRequest:   true,
	OpRejectRequest:    true,
	OpForceRelease:     true,
	OpAudit:            true,
	OpExport:           true,
}

// Authorize checks whether caller may perform op against the current state.
func Authorize(caller string, op Operation, reg *state.Registry) error {
	if caller == "" {
		return apperrors.New(apperrors.CodeIdentityRequired, "caller identity is required")
	}

	if op == OpBootstrap {
		if reg.Bootstrapped {
			return apperrors.New(apperrors.CodeAlreadyBootstrapped,
				"registry is already bootstrapped")
		}
		return nil
	}

	if !reg.Bootstrapped {
		return apperrors.New(apperrors.CodeNotBootstrapped,
			"registry is not bootstrapped")
	}

	if requiresController[op] && !reg.IsController(caller) {
		return apperrors.WithMetadata(apperrors.CodeNotController,
			"caller is not a controller", map[string]string{"Address": caller})
	}

	return nil
}

// AuthorizeCancel checks that caller owns the request being cancelled.
func AuthorizeCancel(caller string, req domain.Request) error {
	if req.Requester != caller {
		return apperrors.WithMetadata(apperrors.CodeNotRequester,
			"only the requester may cancel a request",
			map[string]string{"Address": caller})
	}
	return nil
}

// RequireNotLastController rejects removal that would empty the controller
// set. The registry must always retain at least one controller.
func RequireNotLastController(reg *state.Registry, address string) error {
	if reg.IsController(address) && reg.ControllerCount() <= 1 {
		return apperrors.WithMetadata(apperrors.CodeLastController,
			"cannot remove the last controller",
			map[string]string{"Address": address})
	}
	return nil
}
