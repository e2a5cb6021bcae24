// Package event defines the canonical event envelope for the registry
// ledger. Every accepted mutating operation appends exactly one event; the
// materialized registry state is always reconstructible by replaying them
// in sequence order.
package event

import (
	"strings"
	"time"
)

// Type identifies the type of a ledger event.
type Type string

// Governance events.
const (
	// TypeBootstrapped records the one-time seeding of the controller set.
	TypeBootstrapped Type = "registry.bootstrapped"
	// TypeControllerAdded records a controller joining the set.
	TypeControllerAdded Type = "controller.added"
	// TypeControllerRemoved records a controller leaving the set.
	TypeControllerRemoved Type = "controller.removed"
	// TypePolicyChanged records an admission policy change.
	TypePolicyChanged Type = "policy.changed"
)

// Reserved-label events.
const (
	// TypeReservedAdded records a label entering the reserved table.
	TypeReservedAdded Type = "reserved.added"
	// TypeReservedRemoved records a label leaving the reserved table.
	TypeReservedRemoved Type = "reserved.removed"
)

// Request lifecycle events.
const (
	// TypeRequestCreated records a new label request.
	TypeRequestCreated Type = "request.created"
	// TypeRequestApproved records a controller approval; ownership follows.
	TypeRequestApproved Type = "request.approved"
	// TypeRequestRejected records a controller rejection.
	TypeRequestRejected Type = "request.rejected"
	// TypeRequestCancelled records a requester withdrawal.
	TypeRequestCancelled Type = "request.cancelled"
)

// Ownership events.
const (
	// TypeOwnershipReleased records a controller-forced ownership release.
	TypeOwnershipReleased Type = "ownership.force_released"
)

// ActorRole identifies the privilege under which an event was produced.
type ActorRole string

const (
	// RoleSystem indicates the event was produced by the registry itself.
	RoleSystem ActorRole = "system"
	// RoleController indicates a controller-privileged operation.
	RoleController ActorRole = "controller"
	// RoleUser indicates a public (requester) operation.
	RoleUser ActorRole = "user"
)

// Entity types referenced by events.
const (
	// EntityRegistry marks events affecting the registry as a whole.
	EntityRegistry = "registry"
	// EntityController marks events affecting the controller set.
	EntityController = "controller"
	// EntityLabel marks events affecting a reserved or owned label.
	EntityLabel = "label"
	// EntityRequest marks events affecting a label request.
	EntityRequest = "request"
)

// Event represents an immutable entry in the registry ledger.
type Event struct {
	// Seq is the global sequence number (starts at 1). Assigned by storage
	// on append.
	Seq uint64
	// Hash is the content hash of the event envelope. Assigned by storage
	// on append.
	Hash string
	// PrevHash is the chain hash of the preceding event (empty for seq 1).
	PrevHash string
	// ChainHash links this event into the tamper-evident chain.
	ChainHash string
	// Signature is the HMAC signature over ChainHash.
	Signature string
	// SignatureKeyID identifies the keyring entry used to sign.
	SignatureKeyID string
	// Timestamp is when the event was accepted.
	Timestamp time.Time
	// Type identifies the kind of event.
	Type Type
	// Actor is the identity that triggered the event.
	Actor string
	// ActorRole is the privilege class of the actor.
	ActorRole ActorRole
	// EntityType is the type of entity affected.
	EntityType string
	// EntityID is the label or request id affected.
	EntityID string
	// PayloadJSON holds event-specific data as JSON.
	PayloadJSON []byte
}

// IsValid reports whether the event type is usable.
func (t Type) IsValid() bool {
	switch t {
	case TypeBootstrapped, TypeControllerAdded, TypeControllerRemoved,
		TypePolicyChanged, TypeReservedAdded, TypeReservedRemoved,
		TypeRequestCreated, TypeRequestApproved, TypeRequestRejected,
		TypeRequestCancelled, TypeOwnershipReleased:
		return true
	}
	return false
}

// Domain returns the domain prefix of the event type (e.g., "request").
func (t Type) Domain() string {
	if i := strings.IndexByte(string(t), '.'); i >= 0 {
		return string(t[:i])
	}
	return string(t)
}
