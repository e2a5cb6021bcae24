// Package storage defines the persistence interfaces for the registry
// ledger.
package storage

import (
	"context"
	"errors"

	"github.com/permasite/undernames/internal/registry/event"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// AuditPageRequest describes a filtered page of ledger events.
type AuditPageRequest struct {
	// WhereClause is a SQL condition over the events table columns. An
	// empty clause selects everything.
	WhereClause string
	// Params are the positional arguments for WhereClause.
	Params []any
	// AfterSeq returns only events with a greater sequence number.
	AfterSeq uint64
	// PageSize caps the number of events returned.
	PageSize int
}

// AuditPageResult is one page of ledger events plus paging metadata.
type AuditPageResult struct {
	Events      []event.Event
	TotalCount  int
	HasNextPage bool
}

// LedgerStore is the append-only event journal backing the registry.
type LedgerStore interface {
	// AppendEvent atomically assigns the next sequence number, links the
	// event into the hash chain, signs it, and persists it.
	AppendEvent(ctx context.Context, evt event.Event) (event.Event, error)
	// ListEvents returns events with seq > afterSeq ordered ascending.
	ListEvents(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error)
	// GetEventBySeq retrieves a single event.
	GetEventBySeq(ctx context.Context, seq uint64) (event.Event, error)
	// GetLatestSeq returns the sequence number of the newest event, or 0
	// when the ledger is empty.
	GetLatestSeq(ctx context.Context) (uint64, error)
	// ListAuditPage returns a filtered page of events.
	ListAuditPage(ctx context.Context, req AuditPageRequest) (AuditPageResult, error)
	// VerifyIntegrity re-derives hashes, chain links, and signatures for
	// the whole ledger.
	VerifyIntegrity(ctx context.Context) error
}
