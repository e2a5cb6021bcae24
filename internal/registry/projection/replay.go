// Package projection rebuilds materialized registry state from the ledger.
package projection

import (
	"context"
	"fmt"

	"github.com/permasite/undernames/internal/registry/event"
	"github.com/permasite/undernames/internal/storage"
)

const replayPageSize = 200

// Applier consumes ledger events in sequence order.
type Applier interface {
	Apply(evt event.Event) error
}

// ReplayOptions configures event replay behavior.
type ReplayOptions struct {
	AfterSeq uint64
	UntilSeq uint64
	Filter   func(event.Event) bool
}

// Replay applies every ledger event to the applier in order and returns the
// last applied sequence number.
func Replay(ctx context.Context, ledger storage.LedgerStore, applier Applier) (uint64, error) {
	return ReplayWith(ctx, ledger, applier, ReplayOptions{})
}

// ReplayWith replays events with additional filtering and bounds.
func ReplayWith(ctx context.Context, ledger storage.LedgerStore, applier Applier, options ReplayOptions) (uint64, error) {
	if ledger == nil {
		return 0, fmt.Errorf("ledger store is not configured")
	}
	if applier == nil {
		return 0, fmt.Errorf("applier is required")
	}

	lastSeq := options.AfterSeq
	for {
		events, err := ledger.ListEvents(ctx, lastSeq, replayPageSize)
		if err != nil {
			return lastSeq, err
		}
		if len(events) == 0 {
			return lastSeq, nil
		}
		for _, evt := range events {
			if options.UntilSeq > 0 && evt.Seq > options.UntilSeq {
				return lastSeq, nil
			}
			lastSeq = evt.Seq
			if options.Filter != nil && !options.Filter(evt) {
				continue
			}
			if err := applier.Apply(evt); err != nil {
				return lastSeq, err
			}
		}
	}
}
