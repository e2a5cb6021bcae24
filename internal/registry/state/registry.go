// Package state holds the materialized registry tables. The only mutation
// path is Apply, one ledger event at a time, so replaying the ledger from
// seq 1 always reconstructs the same state.
package state

import (
	"sort"

	"github.com/permasite/undernames/internal/registry/domain"
)

// Registry is the materialized view of the ledger.
type Registry struct {
	// Bootstrapped flips once, on the registry.bootstrapped event.
	Bootstrapped bool
	// Controllers keys by address.
	Controllers map[string]domain.Controller
	// Reserved keys by normalized label.
	Reserved map[string]domain.ReservedLabel
	// Requests keys by request id. Terminal rows are kept for audit.
	Requests map[uint64]domain.Request
	// Owned keys by normalized label; at most one owner per label.
	Owned map[string]domain.Ownership
	// Policy is the admission policy in force.
	Policy domain.Policy
	// NextRequestID is the id the next created request receives.
	NextRequestID uint64
	// LastSeq is the sequence of the newest applied event.
	LastSeq uint64
}

// NewRegistry returns an empty registry with the default policy.
func NewRegistry() *Registry {
	return &Registry{
		Controllers:   make(map[string]domain.Controller),
		Reserved:      make(map[string]domain.ReservedLabel),
		Requests:      make(map[uint64]domain.Request),
		Owned:         make(map[string]domain.Ownership),
		Policy:        domain.DefaultPolicy(),
		NextRequestID: 1,
	}
}

// Clone returns a deep copy safe to hand to readers.
func (r *Registry) Clone() *Registry {
	if r == nil {
		return nil
	}
	clone := &Registry{
		Bootstrapped:  r.Bootstrapped,
		Controllers:   make(map[string]domain.Controller, len(r.Controllers)),
		Reserved:      make(map[string]domain.ReservedLabel, len(r.Reserved)),
		Requests:      make(map[uint64]domain.Request, len(r.Requests)),
		Owned:         make(map[string]domain.Ownership, len(r.Owned)),
		Policy:        r.Policy,
		NextRequestID: r.NextRequestID,
		LastSeq:       r.LastSeq,
	}
	for key, value := range r.Controllers {
		clone.Controllers[key] = value
	}
	for key, value := range r.Reserved {
		clone.Reserved[key] = value
	}
	for key, value := range r.Requests {
		clone.Requests[key] = value
	}
	for key, value := range r.Owned {
		clone.Owned[key] = value
	}
	return clone
}

// IsController reports whether address is a current controller.
func (r *Registry) IsController(address string) bool {
	_, ok := r.Controllers[address]
	return ok
}

// ControllerCount returns the size of the controller set.
func (r *Registry) ControllerCount() int {
	return len(r.Controllers)
}

// ControllerAddresses returns the controller set sorted by address.
func (r *Registry) ControllerAddresses() []string {
	addresses := make([]string, 0, len(r.Controllers))
	for address := range r.Controllers {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)
	return addresses
}

// Availability evaluates whether label can be requested by requester.
// A reserved label assigned to the requester counts as available to them.
func (r *Registry) Availability(label, requester string) domain.Availability {
	if reserved, ok := r.Reserved[label]; ok {
		if reserved.AssignedTo == "" || reserved.AssignedTo != requester {
			return domain.Availability{Label: label, Reason: domain.UnavailableReserved}
		}
	}
	if _, ok := r.Owned[label]; ok {
		return domain.Availability{Label: label, Reason: domain.UnavailableOwned}
	}
	if r.HasPendingForLabel(label) {
		return domain.Availability{Label: label, Reason: domain.UnavailablePending}
	}
	return domain.Availability{Label: label, Available: true}
}

// HasPendingForLabel reports whether an undecided request exists for label.
func (r *Registry) HasPendingForLabel(label string) bool {
	for _, req := range r.Requests {
		if req.Label == label && req.Status == domain.StatusPending {
			return true
		}
	}
	return false
}

// CountActiveRequests counts requester's pending plus approved requests.
// This is the quantity admission quotas are checked against.
func (r *Registry) CountActiveRequests(requester string) int {
	count := 0
	for _, req := range r.Requests {
		if req.Requester != requester {
			continue
		}
		if req.Status == domain.StatusPending || req.Status == domain.StatusApproved {
			count++
		}
	}
	return count
}
