package domain

import apperrors "github.com/permasite/undernames/internal/platform/errors"

// Policy governs request admission.
type Policy struct {
	// MaxPerAddress caps an address's pending plus approved requests.
	// Zero means unlimited.
	MaxPerAddress int
	// RequireApproval gates new requests behind a controller decision.
	// When false, admitted requests are approved in the same call.
	RequireApproval bool
}

// DefaultPolicy is the policy in force before any SetPolicy call.
func DefaultPolicy() Policy {
	return Policy{MaxPerAddress: 0, RequireApproval: true}
}

// Validate checks policy bounds.
func (p Policy) Validate() error {
	if p.MaxPerAddress < 0 {
		return apperrors.New(apperrors.CodePolicyInvalidQuota, "max per address must be zero or greater")
	}
	return nil
}
