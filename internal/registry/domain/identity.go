package domain

import (
	"strings"

	apperrors "github.com/permasite/undernames/internal/platform/errors"
)

// NormalizeIdentity trims and validates a caller identity string.
// Identities are opaque addresses; the registry imposes no format beyond
// non-emptiness.
func NormalizeIdentity(raw string) (string, error) {
	identity := strings.TrimSpace(raw)
	if identity == "" {
		return "", apperrors.New(apperrors.CodeIdentityRequired, "caller identity is required")
	}
	return identity, nil
}
