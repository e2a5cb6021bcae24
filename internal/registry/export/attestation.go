package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/permasite/undernames/internal/storage/integrity"
)

const attestationIssuer = "undername-registry"

// AttestationClaims captures a validated snapshot attestation.
type AttestationClaims struct {
	RootName       string
	HeadSeq        uint64
	SnapshotDigest string
	IssuedAt       time.Time
}

// attestationClaims is the internal claims type used for JWT parsing.
type attestationClaims struct {
	jwt.RegisteredClaims
	HeadSeq        uint64 `json:"head_seq"`
	SnapshotDigest string `json:"snapshot_digest"`
}

// IssueAttestation signs a token binding the snapshot digest and ledger
// head to the registry's active HMAC key.
func IssueAttestation(keyring *integrity.Keyring, snapshot Snapshot, now time.Time) (string, error) {
	if keyring == nil {
		return "", fmt.Errorf("keyring is required")
	}
	digest, err := snapshot.Digest()
	if err != nil {
		return "", err
	}
	key, keyID, err := keyring.AttestationKey(snapshot.RootName)
	if err != nil {
		return "", err
	}

	claims := attestationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   attestationIssuer,
			Subject:  snapshot.RootName,
			IssuedAt: jwt.NewNumericDate(now.UTC()),
		},
		HeadSeq:        snapshot.HeadSeq,
		SnapshotDigest: digest,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = keyID
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign attestation: %w", err)
	}
	return signed, nil
}

// VerifyAttestation checks a token against a snapshot before a replica
// bootstraps from it.
func VerifyAttestation(keyring *integrity.Keyring, snapshot Snapshot, token string) (AttestationClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return AttestationClaims{}, errors.New("attestation token is required")
	}
	if keyring == nil {
		return AttestationClaims{}, errors.New("keyring is required")
	}

	var parsed attestationClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		keyID, _ := t.Header["kid"].(string)
		if keyID == "" {
			return nil, errors.New("attestation kid is required")
		}
		return keyring.AttestationKeyByID(keyID, snapshot.RootName)
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(attestationIssuer),
	)
	if err != nil {
		return AttestationClaims{}, fmt.Errorf("attestation is invalid: %w", err)
	}

	if parsed.Subject != snapshot.RootName {
		return AttestationClaims{}, errors.New("attestation root name mismatch")
	}
	if parsed.HeadSeq != snapshot.HeadSeq {
		return AttestationClaims{}, errors.New("attestation head mismatch")
	}

	digest, err := snapshot.Digest()
	if err != nil {
		return AttestationClaims{}, err
	}
	if parsed.SnapshotDigest != digest {
		return AttestationClaims{}, errors.New("attestation digest mismatch")
	}

	claims := AttestationClaims{
		RootName:       parsed.Subject,
		HeadSeq:        parsed.HeadSeq,
		SnapshotDigest: parsed.SnapshotDigest,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}
