package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeNotController       = "REGISTRY_NOT_CONTROLLER"
	CodeNotRequester        = "REGISTRY_NOT_REQUESTER"
	CodeAlreadyBootstrapped = "REGISTRY_ALREADY_BOOTSTRAPPED"
	CodeNotBootstrapped     = "REGISTRY_NOT_BOOTSTRAPPED"
	CodeLastController      = "REGISTRY_LAST_CONTROLLER"
	CodeControllerExists    = "REGISTRY_CONTROLLER_EXISTS"
	CodeLabelInvalid        = "LABEL_INVALID"
	CodeLabelUnavailable    = "LABEL_UNAVAILABLE"
	CodeReservedAssigned    = "RESERVED_LABEL_ASSIGNED"
	CodeQuotaExceeded       = "REQUEST_QUOTA_EXCEEDED"
	CodeInvalidState        = "REQUEST_INVALID_STATE"
	CodePolicyInvalidQuota  = "POLICY_INVALID_QUOTA"
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidFilter       = "FILTER_INVALID"
	CodeIdentityRequired    = "IDENTITY_REQUIRED"
	CodeLedgerIntegrity     = "LEDGER_INTEGRITY_VIOLATION"
)

var enUSCatalog = &Catalog{
	locale: "en-US",
	messages: map[Code]string{
		// Governance errors
		CodeNotController:       "Only a registry controller may perform this operation",
		CodeNotRequester:        "Only the original requester may cancel this request",
		CodeAlreadyBootstrapped: "The registry has already been bootstrapped",
		CodeNotBootstrapped:     "The registry has not been bootstrapped yet",
		CodeLastController:      "Cannot remove the last remaining controller",
		CodeControllerExists:    "Address {{.Address}} is already a controller",

		// Label errors
		CodeLabelInvalid:     "Undername {{.Label}} is not a valid label",
		CodeLabelUnavailable: "Undername {{.Label}} is not available ({{.Reason}})",
		CodeReservedAssigned: "Reserved undername {{.Label}} is assigned and cannot be removed without force",

		// Request lifecycle errors
		CodeQuotaExceeded: "Request quota of {{.Max}} reached for address {{.Address}}",
		CodeInvalidState:  "Request {{.RequestID}} is no longer pending",

		// Policy errors
		CodePolicyInvalidQuota: "Policy quota must be zero or greater",

		// Query errors
		CodeNotFound:      "The requested resource was not found",
		CodeInvalidFilter: "The supplied filter expression is invalid",

		// Identity errors
		CodeIdentityRequired: "A caller identity is required",

		// Ledger errors
		CodeLedgerIntegrity: "Ledger integrity verification failed",
	},
}
