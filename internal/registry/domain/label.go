package domain

import (
	"strings"

	apperrors "github.com/permasite/undernames/internal/platform/errors"
	"golang.org/x/net/idna"
)

// MaxLabelLength is the maximum length of an undername label in ASCII form.
// Undernames are allocated under the platform root name, so each one must be
// a valid DNS label.
const MaxLabelLength = 63

var labelProfile = idna.New(
	idna.MapForLookup(),
	idna.StrictDomainName(true),
	idna.BidiRule(),
)

// NormalizeLabel lowercases, trims, and validates a raw undername label.
// Unicode labels are converted to their ASCII (punycode) form; the returned
// label is the canonical registry key.
func NormalizeLabel(raw string) (string, error) {
	label := strings.ToLower(strings.TrimSpace(raw))
	if label == "" {
		return "", apperrors.WithMetadata(apperrors.CodeLabelInvalid,
			"label is empty", map[string]string{"Label": raw})
	}
	if strings.Contains(label, ".") {
		return "", apperrors.WithMetadata(apperrors.CodeLabelInvalid,
			"label must be a single name without dots", map[string]string{"Label": raw})
	}

	ascii, err := labelProfile.ToASCII(label)
	if err != nil {
		return "", apperrors.WithMetadata(apperrors.CodeLabelInvalid,
			"label is not a valid dns label", map[string]string{"Label": raw})
	}
	if ascii == "" || len(ascii) > MaxLabelLength {
		return "", apperrors.WithMetadata(apperrors.CodeLabelInvalid,
			"label length is out of range", map[string]string{"Label": raw})
	}
	if strings.HasPrefix(ascii, "-") || strings.HasSuffix(ascii, "-") {
		return "", apperrors.WithMetadata(apperrors.CodeLabelInvalid,
			"label cannot start or end with a hyphen", map[string]string{"Label": raw})
	}
	return ascii, nil
}

// UnavailableReason explains why a label cannot be requested.
type UnavailableReason string

const (
	// UnavailableReserved indicates the label is held in the reserved table.
	UnavailableReserved UnavailableReason = "reserved"
	// UnavailableOwned indicates the label already has an owner.
	UnavailableOwned UnavailableReason = "owned"
	// UnavailablePending indicates an undecided request already exists for the label.
	UnavailablePending UnavailableReason = "pending"
)

// Availability is the result of an availability check.
type Availability struct {
	Label     string
	Available bool
	// Reason is set when Available is false.
	Reason UnavailableReason
}
