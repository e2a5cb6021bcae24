package event

// BootstrappedPayload captures the payload for registry.bootstrapped events.
type BootstrappedPayload struct {
	Controller string `json:"controller"`
}

// ControllerAddedPayload captures the payload for controller.added events.
type ControllerAddedPayload struct {
	Address string `json:"address"`
}

// ControllerRemovedPayload captures the payload for controller.removed events.
type ControllerRemovedPayload struct {
	Address string `json:"address"`
}

// PolicyChangedPayload captures the payload for policy.changed events.
type PolicyChangedPayload struct {
	MaxPerAddress   int  `json:"max_per_address"`
	RequireApproval bool `json:"require_approval"`
}

// ReservedAddedPayload captures the payload for reserved.added events.
type ReservedAddedPayload struct {
	Label      string `json:"label"`
	AssignedTo string `json:"assigned_to,omitempty"`
}

// ReservedRemovedPayload captures the payload for reserved.removed events.
type ReservedRemovedPayload struct {
	Label  string `json:"label"`
	Forced bool   `json:"forced,omitempty"`
}

// RequestCreatedPayload captures the payload for request.created events.
type RequestCreatedPayload struct {
	RequestID uint64 `json:"request_id"`
	Label     string `json:"label"`
	Requester string `json:"requester"`
	// AutoApproved marks requests admitted while approval was not required;
	// the request row is created directly in the approved state and
	// ownership is granted in the same application.
	AutoApproved bool `json:"auto_approved,omitempty"`
}

// RequestApprovedPayload captures the payload for request.approved events.
type RequestApprovedPayload struct {
	RequestID uint64 `json:"request_id"`
	Label     string `json:"label"`
	Requester string `json:"requester"`
}

// RequestRejectedPayload captures the payload for request.rejected events.
type RequestRejectedPayload struct {
	RequestID uint64 `json:"request_id"`
	Reason    string `json:"reason,omitempty"`
}

// RequestCancelledPayload captures the payload for request.cancelled events.
type RequestCancelledPayload struct {
	RequestID uint64 `json:"request_id"`
}

// OwnershipReleasedPayload captures the payload for ownership.force_released events.
type OwnershipReleasedPayload struct {
	Label  string `json:"label"`
	Owner  string `json:"owner"`
	Reason string `json:"reason"`
}
