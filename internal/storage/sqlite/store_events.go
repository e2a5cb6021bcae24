package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/permasite/undernames/internal/registry/event"
	"github.com/permasite/undernames/internal/storage"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const eventColumns = "seq, event_hash, prev_event_hash, chain_hash, signature_key_id, event_signature, timestamp, event_type, actor, actor_role, entity_type, entity_id, payload_json"

// AppendEvent atomically appends an event and returns it with sequence,
// hashes, and signature set.
func (s *Store) AppendEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("storage is not configured")
	}
	if s.keyring == nil {
		return event.Event{}, fmt.Errorf("ledger integrity keyring is required")
	}
	if !evt.Type.IsValid() {
		return event.Event{}, fmt.Errorf("event type %q is not valid", evt.Type)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return event.Event{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO ledger_seq (id, next_seq) VALUES (1, 1) ON CONFLICT(id) DO NOTHING",
	); err != nil {
		return event.Event{}, fmt.Errorf("init ledger seq: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx,
		"SELECT next_seq FROM ledger_seq WHERE id = 1",
	).Scan(&seq); err != nil {
		return event.Event{}, fmt.Errorf("get ledger seq: %w", err)
	}
	evt.Seq = uint64(seq)

	if _, err := tx.ExecContext(ctx,
		"UPDATE ledger_seq SET next_seq = next_seq + 1 WHERE id = 1",
	); err != nil {
		return event.Event{}, fmt.Errorf("increment ledger seq: %w", err)
	}

	hash, err := event.EventHash(evt)
	if err != nil {
		return event.Event{}, fmt.Errorf("compute event hash: %w", err)
	}
	evt.Hash = hash

	prevHash := ""
	if evt.Seq > 1 {
		if err := tx.QueryRowContext(ctx,
			"SELECT chain_hash FROM events WHERE seq = ?", seq-1,
		).Scan(&prevHash); err != nil {
			return event.Event{}, fmt.Errorf("load previous event: %w", err)
		}
	}

	chainHash, err := event.ChainHash(evt, prevHash)
	if err != nil {
		return event.Event{}, fmt.Errorf("compute chain hash: %w", err)
	}

	signature, keyID, err := s.keyring.SignChainHash(s.rootName, chainHash)
	if err != nil {
		return event.Event{}, fmt.Errorf("sign chain hash: %w", err)
	}

	evt.PrevHash = prevHash
	evt.ChainHash = chainHash
	evt.Signature = signature
	evt.SignatureKeyID = keyID

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO events (
		   seq, event_hash, prev_event_hash, chain_hash, signature_key_id,
		   event_signature, timestamp, event_type, actor, actor_role,
		   entity_type, entity_id, payload_json
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(evt.Seq),
		evt.Hash,
		evt.PrevHash,
		evt.ChainHash,
		evt.SignatureKeyID,
		evt.Signature,
		toMillis(evt.Timestamp),
		string(evt.Type),
		evt.Actor,
		string(evt.ActorRole),
		evt.EntityType,
		evt.EntityID,
		evt.PayloadJSON,
	); err != nil {
		if isConstraintError(err) {
			stored, lookupErr := s.getEventByHash(ctx, evt.Hash)
			if lookupErr == nil {
				return stored, nil
			}
		}
		return event.Event{}, fmt.Errorf("append event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return event.Event{}, fmt.Errorf("commit: %w", err)
	}

	return evt, nil
}

// ListEvents returns events with seq > afterSeq ordered ascending.
func (s *Store) ListEvents(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM events WHERE seq > ? ORDER BY seq ASC LIMIT ?", eventColumns),
		int64(afterSeq), int64(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetEventBySeq retrieves a specific event by sequence number.
func (s *Store) GetEventBySeq(ctx context.Context, seq uint64) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM events WHERE seq = ?", eventColumns),
		int64(seq),
	)
	evt, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return event.Event{}, storage.ErrNotFound
		}
		return event.Event{}, fmt.Errorf("get event by seq: %w", err)
	}
	return evt, nil
}

// GetLatestSeq returns the newest sequence number, or 0 for an empty ledger.
func (s *Store) GetLatestSeq(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	var seq sql.NullInt64
	if err := s.sqlDB.QueryRowContext(ctx,
		"SELECT MAX(seq) FROM events",
	).Scan(&seq); err != nil {
		return 0, fmt.Errorf("get latest seq: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return uint64(seq.Int64), nil
}

// ListAuditPage returns a filtered page of events ordered by sequence.
func (s *Store) ListAuditPage(ctx context.Context, req storage.AuditPageRequest) (storage.AuditPageResult, error) {
	if err := ctx.Err(); err != nil {
		return storage.AuditPageResult{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.AuditPageResult{}, fmt.Errorf("storage is not configured")
	}
	if req.PageSize <= 0 {
		req.PageSize = 50
	}
	if req.PageSize > 200 {
		req.PageSize = 200
	}

	where := "seq > ?"
	params := []any{int64(req.AfterSeq)}
	if clause := strings.TrimSpace(req.WhereClause); clause != "" {
		where += " AND (" + clause + ")"
		params = append(params, req.Params...)
	}

	// Fetch one extra row to detect a following page.
	query := fmt.Sprintf(
		"SELECT %s FROM events WHERE %s ORDER BY seq ASC LIMIT ?",
		eventColumns, where,
	)
	rows, err := s.sqlDB.QueryContext(ctx, query, append(params, int64(req.PageSize)+1)...)
	if err != nil {
		return storage.AuditPageResult{}, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return storage.AuditPageResult{}, err
	}

	hasMore := len(events) > req.PageSize
	if hasMore {
		events = events[:req.PageSize]
	}

	countWhere := "1=1"
	countParams := []any{}
	if clause := strings.TrimSpace(req.WhereClause); clause != "" {
		countWhere = clause
		countParams = req.Params
	}
	var totalCount int
	if err := s.sqlDB.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM events WHERE %s", countWhere),
		countParams...,
	).Scan(&totalCount); err != nil {
		return storage.AuditPageResult{}, fmt.Errorf("count events: %w", err)
	}

	return storage.AuditPageResult{
		Events:      events,
		TotalCount:  totalCount,
		HasNextPage: hasMore,
	}, nil
}

// VerifyIntegrity re-derives hashes, chain links, and signatures for every
// ledger event in sequence order.
func (s *Store) VerifyIntegrity(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if s.keyring == nil {
		return fmt.Errorf("ledger integrity keyring is required")
	}

	var lastSeq uint64
	prevChainHash := ""
	for {
		events, err := s.ListEvents(ctx, lastSeq, 200)
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		if len(events) == 0 {
			return nil
		}
		for _, evt := range events {
			if evt.Seq != lastSeq+1 {
				return fmt.Errorf("event sequence gap expected=%d got=%d", lastSeq+1, evt.Seq)
			}
			if evt.Seq == 1 && evt.PrevHash != "" {
				return fmt.Errorf("first event prev hash must be empty")
			}
			if evt.Seq > 1 && evt.PrevHash != prevChainHash {
				return fmt.Errorf("prev hash mismatch seq=%d", evt.Seq)
			}

			hash, err := event.EventHash(evt)
			if err != nil {
				return fmt.Errorf("compute event hash seq=%d: %w", evt.Seq, err)
			}
			if hash != evt.Hash {
				return fmt.Errorf("event hash mismatch seq=%d", evt.Seq)
			}

			chainHash, err := event.ChainHash(evt, prevChainHash)
			if err != nil {
				return fmt.Errorf("compute chain hash seq=%d: %w", evt.Seq, err)
			}
			if chainHash != evt.ChainHash {
				return fmt.Errorf("chain hash mismatch seq=%d", evt.Seq)
			}

			if err := s.keyring.VerifyChainHash(s.rootName, chainHash, evt.Signature, evt.SignatureKeyID); err != nil {
				return fmt.Errorf("signature mismatch seq=%d: %w", evt.Seq, err)
			}

			prevChainHash = evt.ChainHash
			lastSeq = evt.Seq
		}
	}
}

func (s *Store) getEventByHash(ctx context.Context, hash string) (event.Event, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM events WHERE event_hash = ?", eventColumns),
		hash,
	)
	evt, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return event.Event{}, storage.ErrNotFound
		}
		return event.Event{}, fmt.Errorf("get event by hash: %w", err)
	}
	return evt, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (event.Event, error) {
	var (
		seq       int64
		timestamp int64
		eventType string
		actorRole string
		evt       event.Event
	)
	if err := row.Scan(
		&seq,
		&evt.Hash,
		&evt.PrevHash,
		&evt.ChainHash,
		&evt.SignatureKeyID,
		&evt.Signature,
		&timestamp,
		&eventType,
		&evt.Actor,
		&actorRole,
		&evt.EntityType,
		&evt.EntityID,
		&evt.PayloadJSON,
	); err != nil {
		return event.Event{}, err
	}
	evt.Seq = uint64(seq)
	evt.Timestamp = fromMillis(timestamp)
	evt.Type = event.Type(eventType)
	evt.ActorRole = event.ActorRole(actorRole)
	return evt, nil
}

func scanEvents(rows *sql.Rows) ([]event.Event, error) {
	var events []event.Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
