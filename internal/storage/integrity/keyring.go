// Package integrity implements the HMAC keyring that signs ledger chain
// hashes. Root keys are configured by the operator; per-registry keys are
// derived so two registries sharing a root key cannot forge each other's
// signatures.
package integrity

import (
	"crypto/hkdf"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Keyring stores root HMAC keys and the active key id.
type Keyring struct {
	keys        map[string][]byte
	activeKeyID string
}

// NewKeyring constructs a keyring for HMAC signing and verification.
func NewKeyring(keys map[string][]byte, activeKeyID string) (*Keyring, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("hmac keys are required")
	}
	activeKeyID = strings.TrimSpace(activeKeyID)
	if activeKeyID == "" {
		return nil, fmt.Errorf("active hmac key id is required")
	}
	if _, ok := keys[activeKeyID]; !ok {
		return nil, fmt.Errorf("active hmac key id is not configured")
	}
	return &Keyring{keys: keys, activeKeyID: activeKeyID}, nil
}

// ActiveKeyID returns the configured signing key id.
func (k *Keyring) ActiveKeyID() string {
	if k == nil {
		return ""
	}
	return k.activeKeyID
}

// SignChainHash signs a chain hash with the active key.
func (k *Keyring) SignChainHash(rootName, chainHash string) (string, string, error) {
	if k == nil {
		return "", "", fmt.Errorf("hmac keyring is not configured")
	}
	keyID := k.activeKeyID
	key, err := k.deriveKey(keyID, rootName)
	if err != nil {
		return "", "", err
	}
	sig := hmacSHA256Hex(key, chainHash)
	return sig, keyID, nil
}

// VerifyChainHash validates a chain hash signature.
func (k *Keyring) VerifyChainHash(rootName, chainHash, signature, keyID string) error {
	if k == nil {
		return fmt.Errorf("hmac keyring is not configured")
	}
	keyID = strings.TrimSpace(keyID)
	if keyID == "" {
		return fmt.Errorf("signature key id is required")
	}
	rootKey, ok := k.keys[keyID]
	if !ok {
		return fmt.Errorf("signature key id is unknown")
	}
	key, err := deriveRegistryKey(rootKey, rootName)
	if err != nil {
		return err
	}
	expected := hmacSHA256Hex(key, chainHash)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// AttestationKey derives the key used to sign export attestation tokens.
// It is bound to the same root key as ledger signatures but uses a distinct
// derivation context so tokens and chain signatures cannot be confused.
func (k *Keyring) AttestationKey(rootName string) ([]byte, string, error) {
	if k == nil {
		return nil, "", fmt.Errorf("hmac keyring is not configured")
	}
	rootKey, ok := k.keys[k.activeKeyID]
	if !ok {
		return nil, "", fmt.Errorf("hmac key id is unknown")
	}
	rootName = strings.TrimSpace(rootName)
	if rootName == "" {
		return nil, "", fmt.Errorf("root name is required")
	}
	key, err := hkdf.Key(sha256.New, rootKey, nil, "attestation:"+rootName, 32)
	if err != nil {
		return nil, "", fmt.Errorf("derive attestation key: %w", err)
	}
	return key, k.activeKeyID, nil
}

// AttestationKeyByID derives the attestation key for a specific key id,
// used when verifying tokens signed under a rotated-out key.
func (k *Keyring) AttestationKeyByID(keyID, rootName string) ([]byte, error) {
	if k == nil {
		return nil, fmt.Errorf("hmac keyring is not configured")
	}
	rootKey, ok := k.keys[strings.TrimSpace(keyID)]
	if !ok {
		return nil, fmt.Errorf("hmac key id is unknown")
	}
	rootName = strings.TrimSpace(rootName)
	if rootName == "" {
		return nil, fmt.Errorf("root name is required")
	}
	key, err := hkdf.Key(sha256.New, rootKey, nil, "attestation:"+rootName, 32)
	if err != nil {
		return nil, fmt.Errorf("derive attestation key: %w", err)
	}
	return key, nil
}

func (k *Keyring) deriveKey(keyID, rootName string) ([]byte, error) {
	rootKey, ok := k.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("hmac key id is unknown")
	}
	return deriveRegistryKey(rootKey, rootName)
}

func deriveRegistryKey(rootKey []byte, rootName string) ([]byte, error) {
	rootName = strings.TrimSpace(rootName)
	if rootName == "" {
		return nil, fmt.Errorf("root name is required")
	}
	key, err := hkdf.Key(sha256.New, rootKey, nil, "registry:"+rootName, 32)
	if err != nil {
		return nil, fmt.Errorf("derive registry key: %w", err)
	}
	return key, nil
}

func hmacSHA256Hex(key []byte, value string) string {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}
