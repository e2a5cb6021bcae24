// Package service wires the registry together: authorization, policy, the
// ledger, and the materialized state behind one logical sequencer. Every
// mutating operation runs guard, policy, event append, and state apply under
// a single writer lock, so concurrent conflicting calls resolve to exactly
// one accepted event. Reads serve from deep-copied snapshots concurrently.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/permasite/undernames/internal/platform/errors"
	"github.com/permasite/undernames/internal/registry/domain"
	"github.com/permasite/undernames/internal/registry/event"
	"github.com/permasite/undernames/internal/registry/projection"
	"github.com/permasite/undernames/internal/registry/state"
	"github.com/permasite/undernames/internal/storage"
	"github.com/permasite/undernames/internal/storage/integrity"
)

// Service coordinates all registry operations.
type Service struct {
	mu       sync.RWMutex
	ledger   storage.LedgerStore
	reg      *state.Registry
	rootName string
	keyring  *integrity.Keyring
	clock    func() time.Time
	tracer   trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// New builds a Service by replaying the full ledger into memory.
func New(ctx context.Context, ledger storage.LedgerStore, rootName string, keyring *integrity.Keyring, opts ...Option) (*Service, error) {
	if ledger == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if rootName == "" {
		return nil, fmt.Errorf("root name is required")
	}

	svc := &Service{
		ledger:   ledger,
		reg:      state.NewRegistry(),
		rootName: rootName,
		keyring:  keyring,
		clock:    func() time.Time { return time.Now().UTC() },
		tracer:   otel.Tracer("github.com/permasite/undernames/internal/registry/service"),
	}
	for _, opt := range opts {
		opt(svc)
	}

	if _, err := projection.Replay(ctx, ledger, svc.reg); err != nil {
		return nil, fmt.Errorf("replay ledger: %w", err)
	}
	return svc, nil
}

// RootName returns the namespace root this registry governs.
func (s *Service) RootName() string {
	return s.rootName
}

// commit appends the event to the ledger and applies the stored copy to the
// materialized state. Callers must hold the writer lock.
func (s *Service) commit(ctx context.Context, evt event.Event) (event.Event, error) {
	evt.Timestamp = s.clock().UTC().Truncate(time.Millisecond)
	stored, err := s.ledger.AppendEvent(ctx, evt)
	if err != nil {
		return event.Event{}, apperrors.Wrap(apperrors.CodeUnknown, "append event", err)
	}
	if err := s.reg.Apply(stored); err != nil {
		// The ledger accepted an event the state cannot apply; the
		// in-memory view is stale until the next replay.
		return event.Event{}, apperrors.Wrap(apperrors.CodeLedgerIntegrity,
			"apply committed event", err)
	}
	return stored, nil
}

func marshalPayload(payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return data, nil
}

// snapshot returns a deep copy of the current state for readers.
func (s *Service) snapshot() *state.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reg.Clone()
}

// CheckAvailability reports whether label can currently be requested by
// requester, with the blocking reason when it cannot.
func (s *Service) CheckAvailability(ctx context.Context, label, requester string) (domain.Availability, error) {
	_, span := s.tracer.Start(ctx, "registry.CheckAvailability")
	defer span.End()

	normalized, err := domain.NormalizeLabel(label)
	if err != nil {
		return domain.Availability{}, err
	}
	reg := s.snapshot()
	if !reg.Bootstrapped {
		return domain.Availability{}, apperrors.New(apperrors.CodeNotBootstrapped,
			"registry is not bootstrapped")
	}
	return reg.Availability(normalized, requester), nil
}

// GetRequest returns one request row.
func (s *Service) GetRequest(ctx context.Context, id uint64) (domain.Request, error) {
	_, span := s.tracer.Start(ctx, "registry.GetRequest")
	defer span.End()

	reg := s.snapshot()
	req, ok := reg.Requests[id]
	if !ok {
		return domain.Request{}, apperrors.New(apperrors.CodeNotFound, "request not found")
	}
	return req, nil
}

// ListRequests returns request rows, optionally filtered by status, label,
// and requester, ordered by id.
func (s *Service) ListRequests(ctx context.Context, status domain.RequestStatus, label, requester string) ([]domain.Request, error) {
	_, span := s.tracer.Start(ctx, "registry.ListRequests")
	defer span.End()

	if label != "" {
		normalized, err := domain.NormalizeLabel(label)
		if err != nil {
			return nil, err
		}
		label = normalized
	}

	reg := s.snapshot()
	var requests []domain.Request
	for _, req := range reg.Requests {
		if status != "" && req.Status != status {
			continue
		}
		if label != "" && req.Label != label {
			continue
		}
		if requester != "" && req.Requester != requester {
			continue
		}
		requests = append(requests, req)
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].ID < requests[j].ID })
	return requests, nil
}

// ListControllers returns the controller set ordered by address.
func (s *Service) ListControllers(ctx context.Context) ([]domain.Controller, error) {
	_, span := s.tracer.Start(ctx, "registry.ListControllers")
	defer span.End()

	reg := s.snapshot()
	controllers := make([]domain.Controller, 0, len(reg.Controllers))
	for _, controller := range reg.Controllers {
		controllers = append(controllers, controller)
	}
	sort.Slice(controllers, func(i, j int) bool {
		return controllers[i].Address < controllers[j].Address
	})
	return controllers, nil
}

// ListReserved returns the reserved table ordered by label.
func (s *Service) ListReserved(ctx context.Context) ([]domain.ReservedLabel, error) {
	_, span := s.tracer.Start(ctx, "registry.ListReserved")
	defer span.End()

	reg := s.snapshot()
	reserved := make([]domain.ReservedLabel, 0, len(reg.Reserved))
	for _, entry := range reg.Reserved {
		reserved = append(reserved, entry)
	}
	sort.Slice(reserved, func(i, j int) bool { return reserved[i].Label < reserved[j].Label })
	return reserved, nil
}

// ListOwned returns current ownerships ordered by label.
func (s *Service) ListOwned(ctx context.Context) ([]domain.Ownership, error) {
	_, span := s.tracer.Start(ctx, "registry.ListOwned")
	defer span.End()

	reg := s.snapshot()
	owned := make([]domain.Ownership, 0, len(reg.Owned))
	for _, entry := range reg.Owned {
		owned = append(owned, entry)
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].Label < owned[j].Label })
	return owned, nil
}

// GetOwnership returns the current owner of a label.
func (s *Service) GetOwnership(ctx context.Context, label string) (domain.Ownership, error) {
	_, span := s.tracer.Start(ctx, "registry.GetOwnership")
	defer span.End()

	normalized, err := domain.NormalizeLabel(label)
	if err != nil {
		return domain.Ownership{}, err
	}
	reg := s.snapshot()
	owned, ok := reg.Owned[normalized]
	if !ok {
		return domain.Ownership{}, apperrors.WithMetadata(apperrors.CodeNotFound,
			"label has no owner", map[string]string{"Label": normalized})
	}
	return owned, nil
}

// GetPolicy returns the admission policy in force.
func (s *Service) GetPolicy(ctx context.Context) (domain.Policy, error) {
	_, span := s.tracer.Start(ctx, "registry.GetPolicy")
	defer span.End()

	return s.snapshot().Policy, nil
}
