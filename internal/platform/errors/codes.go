package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Registry governance errors
	CodeNotController       Code = "REGISTRY_NOT_CONTROLLER"
	CodeNotRequester        Code = "REGISTRY_NOT_REQUESTER"
	CodeAlreadyBootstrapped Code = "REGISTRY_ALREADY_BOOTSTRAPPED"
	CodeNotBootstrapped     Code = "REGISTRY_NOT_BOOTSTRAPPED"
	CodeLastController      Code = "REGISTRY_LAST_CONTROLLER"
	CodeControllerExists    Code = "REGISTRY_CONTROLLER_EXISTS"

	// Label errors
	CodeLabelInvalid     Code = "LABEL_INVALID"
	CodeLabelUnavailable Code = "LABEL_UNAVAILABLE"
	CodeReservedAssigned Code = "RESERVED_LABEL_ASSIGNED"

	// Request lifecycle errors
	CodeQuotaExceeded Code = "REQUEST_QUOTA_EXCEEDED"
	CodeInvalidState  Code = "REQUEST_INVALID_STATE"

	// Policy errors
	CodePolicyInvalidQuota Code = "POLICY_INVALID_QUOTA"

	// Query errors
	CodeNotFound      Code = "NOT_FOUND"
	CodeInvalidFilter Code = "FILTER_INVALID"

	// Identity errors
	CodeIdentityRequired Code = "IDENTITY_REQUIRED"

	// Ledger errors
	CodeLedgerIntegrity Code = "LEDGER_INTEGRITY_VIOLATION"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeLabelInvalid,
		CodeInvalidFilter,
		CodePolicyInvalidQuota,
		CodeIdentityRequired:
		return codes.InvalidArgument

	// PermissionDenied - caller lacks the required privilege
	case CodeNotController,
		CodeNotRequester:
		return codes.PermissionDenied

	// FailedPrecondition - state doesn't allow operation
	case CodeAlreadyBootstrapped,
		CodeNotBootstrapped,
		CodeLastController,
		CodeInvalidState,
		CodeReservedAssigned:
		return codes.FailedPrecondition

	// ResourceExhausted - quota limits
	case CodeQuotaExceeded:
		return codes.ResourceExhausted

	// AlreadyExists - allocation conflicts
	case CodeLabelUnavailable,
		CodeControllerExists:
		return codes.AlreadyExists

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	// DataLoss - ledger chain verification failed
	case CodeLedgerIntegrity:
		return codes.DataLoss

	default:
		return codes.Internal
	}
}
