package event

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// EventHash computes the content hash for an event envelope.
//
// The canonical envelope is a newline-joined field list so field ordering is
// defined in one place and cannot drift between layers. The result is
// SHA-256 truncated to 128 bits, hex encoded.
func EventHash(evt Event) (string, error) {
	if !evt.Type.IsValid() {
		return "", fmt.Errorf("event type %q is not valid", evt.Type)
	}
	if evt.Seq == 0 {
		return "", fmt.Errorf("event seq is required")
	}

	envelope := strings.Join([]string{
		strconv.FormatUint(evt.Seq, 10),
		strconv.FormatInt(evt.Timestamp.UTC().UnixMilli(), 10),
		string(evt.Type),
		evt.Actor,
		string(evt.ActorRole),
		evt.EntityType,
		evt.EntityID,
		string(evt.PayloadJSON),
	}, "\n")

	sum := sha256.Sum256([]byte(envelope))
	return hex.EncodeToString(sum[:16]), nil
}

// ChainHash computes the hash that links an event to its predecessor.
// The first event in the ledger links to the empty string.
func ChainHash(evt Event, prevHash string) (string, error) {
	if evt.Hash == "" {
		return "", fmt.Errorf("event hash is required")
	}
	envelope := strings.Join([]string{
		prevHash,
		strconv.FormatUint(evt.Seq, 10),
		evt.Hash,
	}, "\n")
	sum := sha256.Sum256([]byte(envelope))
	return hex.EncodeToString(sum[:]), nil
}
