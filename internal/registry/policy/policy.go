// Package policy evaluates the admission policy for new label requests.
package policy

import (
	"strconv"

	apperrors "github.com/permasite/undernames/internal/platform/errors"
	"github.com/permasite/undernames/internal/registry/state"
)

// Decision is the outcome of a successful policy evaluation.
type Decision struct {
	// AutoApprove is set when the policy does not require a controller
	// decision; the request is granted in the same call.
	AutoApprove bool
}

// Evaluate checks requester against the admission policy in force. Pending
// and approved requests both count toward the per-address quota; rejected
// and cancelled ones do not.
func Evaluate(reg *state.Registry, requester string) (Decision, error) {
	pol := reg.Policy
	if pol.MaxPerAddress > 0 {
		active := reg.CountActiveRequests(requester)
		if active >= pol.MaxPerAddress {
			return Decision{}, apperrors.WithMetadata(apperrors.CodeQuotaExceeded,
				"request quota exceeded", map[string]string{
					"Address": requester,
					"Max":     strconv.Itoa(pol.MaxPerAddress),
				})
		}
	}
	return Decision{AutoApprove: !pol.RequireApproval}, nil
}
