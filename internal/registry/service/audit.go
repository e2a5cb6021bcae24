package service

import (
	"context"
	"fmt"

	apperrors "github.com/permasite/undernames/internal/platform/errors"
	"github.com/permasite/undernames/internal/registry/authz"
	"github.com/permasite/undernames/internal/registry/domain"
	"github.com/permasite/undernames/internal/registry/event"
	"github.com/permasite/undernames/internal/registry/export"
	"github.com/permasite/undernames/internal/registry/query"
	"github.com/permasite/undernames/internal/storage"
)

// AuditPage is one filtered page of ledger history.
type AuditPage struct {
	Events      []event.Event
	TotalCount  int
	HasNextPage bool
}

// Audit returns ledger events matching an AIP-160 filter expression,
// ordered by sequence. Only controllers may read the ledger.
func (s *Service) Audit(ctx context.Context, caller, filter string, afterSeq uint64, pageSize int) (AuditPage, error) {
	ctx, span := s.tracer.Start(ctx, "registry.Audit")
	defer span.End()

	caller, err := domain.NormalizeIdentity(caller)
	if err != nil {
		return AuditPage{}, err
	}
	if err := authz.Authorize(caller, authz.OpAudit, s.snapshot()); err != nil {
		return AuditPage{}, err
	}

	cond, err := query.ParseAuditFilter(filter)
	if err != nil {
		return AuditPage{}, err
	}

	result, err := s.ledger.ListAuditPage(ctx, storage.AuditPageRequest{
		WhereClause: cond.Clause,
		Params:      cond.Params,
		AfterSeq:    afterSeq,
		PageSize:    pageSize,
	})
	if err != nil {
		return AuditPage{}, apperrors.Wrap(apperrors.CodeUnknown, "list audit page", err)
	}
	return AuditPage{
		Events:      result.Events,
		TotalCount:  result.TotalCount,
		HasNextPage: result.HasNextPage,
	}, nil
}

// VerifyIntegrity checks the whole ledger chain.
func (s *Service) VerifyIntegrity(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "registry.VerifyIntegrity")
	defer span.End()

	if err := s.ledger.VerifyIntegrity(ctx); err != nil {
		return apperrors.Wrap(apperrors.CodeLedgerIntegrity,
			"ledger integrity check failed", err)
	}
	return nil
}

// Export captures a snapshot of the registry at its current ledger head,
// together with a signed attestation token. Only controllers may export.
func (s *Service) Export(ctx context.Context, caller string) (export.Snapshot, string, error) {
	ctx, span := s.tracer.Start(ctx, "registry.Export")
	defer span.End()

	caller, err := domain.NormalizeIdentity(caller)
	if err != nil {
		return export.Snapshot{}, "", err
	}

	reg := s.snapshot()
	if err := authz.Authorize(caller, authz.OpExport, reg); err != nil {
		return export.Snapshot{}, "", err
	}

	// The head is looked up by the cloned state's LastSeq, so a concurrent
	// append cannot skew the snapshot past its chain head.

	headChainHash := ""
	if reg.LastSeq > 0 {
		head, err := s.ledger.GetEventBySeq(ctx, reg.LastSeq)
		if err != nil {
			return export.Snapshot{}, "", fmt.Errorf("load ledger head: %w", err)
		}
		headChainHash = head.ChainHash
	}

	snapshot := export.BuildSnapshot(reg, s.rootName, headChainHash, s.clock())
	token, err := export.IssueAttestation(s.keyring, snapshot, s.clock())
	if err != nil {
		return export.Snapshot{}, "", fmt.Errorf("issue attestation: %w", err)
	}
	return snapshot, token, nil
}
