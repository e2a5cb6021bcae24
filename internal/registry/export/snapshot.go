// Package export produces complete registry snapshots for replica
// bootstrap, together with a signed attestation of their provenance.
package export

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/permasite/undernames/internal/registry/domain"
	"github.com/permasite/undernames/internal/registry/state"
)

// Snapshot is a complete copy of the registry state plus the ledger head it
// was taken at. Slices are sorted so the same state always serializes to the
// same bytes.
type Snapshot struct {
	RootName      string                 `json:"root_name"`
	GeneratedAt   time.Time              `json:"generated_at"`
	HeadSeq       uint64                 `json:"head_seq"`
	HeadChainHash string                 `json:"head_chain_hash"`
	Bootstrapped  bool                   `json:"bootstrapped"`
	Controllers   []domain.Controller    `json:"controllers"`
	Reserved      []domain.ReservedLabel `json:"reserved"`
	Requests      []domain.Request       `json:"requests"`
	Owned         []domain.Ownership     `json:"owned"`
	Policy        domain.Policy          `json:"policy"`
}

// BuildSnapshot captures the registry state at its current ledger head.
func BuildSnapshot(reg *state.Registry, rootName, headChainHash string, now time.Time) Snapshot {
	snapshot := Snapshot{
		RootName:      rootName,
		GeneratedAt:   now.UTC().Truncate(time.Millisecond),
		HeadSeq:       reg.LastSeq,
		HeadChainHash: headChainHash,
		Bootstrapped:  reg.Bootstrapped,
		Policy:        reg.Policy,
	}

	for _, controller := range reg.Controllers {
		snapshot.Controllers = append(snapshot.Controllers, controller)
	}
	sort.Slice(snapshot.Controllers, func(i, j int) bool {
		return snapshot.Controllers[i].Address < snapshot.Controllers[j].Address
	})

	for _, reserved := range reg.Reserved {
		snapshot.Reserved = append(snapshot.Reserved, reserved)
	}
	sort.Slice(snapshot.Reserved, func(i, j int) bool {
		return snapshot.Reserved[i].Label < snapshot.Reserved[j].Label
	})

	for _, req := range reg.Requests {
		snapshot.Requests = append(snapshot.Requests, req)
	}
	sort.Slice(snapshot.Requests, func(i, j int) bool {
		return snapshot.Requests[i].ID < snapshot.Requests[j].ID
	})

	for _, owned := range reg.Owned {
		snapshot.Owned = append(snapshot.Owned, owned)
	}
	sort.Slice(snapshot.Owned, func(i, j int) bool {
		return snapshot.Owned[i].Label < snapshot.Owned[j].Label
	})

	return snapshot
}

// Digest returns the SHA-256 hex digest of the snapshot's canonical JSON
// form. The attestation token binds to this digest.
func (s Snapshot) Digest() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
