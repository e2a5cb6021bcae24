package query

import (
	"testing"

	apperrors "github.com/permasite/undernames/internal/platform/errors"
)

func TestParseAuditFilterEmpty(t *testing.T) {
	cond, err := ParseAuditFilter("  ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cond.Clause != "" || len(cond.Params) != 0 {
		t.Fatalf("expected empty condition, got %+v", cond)
	}
}

func TestParseAuditFilterEquality(t *testing.T) {
	cond, err := ParseAuditFilter(`actor = "ctrl-1"`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cond.Clause != "actor = ?" {
		t.Fatalf("unexpected clause %q", cond.Clause)
	}
	if len(cond.Params) != 1 || cond.Params[0] != "ctrl-1" {
		t.Fatalf("unexpected params %v", cond.Params)
	}
}

func TestParseAuditFilterMapsTypeColumn(t *testing.T) {
	cond, err := ParseAuditFilter(`type = "request.created"`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cond.Clause != "event_type = ?" {
		t.Fatalf("unexpected clause %q", cond.Clause)
	}
}

func TestParseAuditFilterLogical(t *testing.T) {
	cond, err := ParseAuditFilter(`actor = "ctrl-1" AND entity_type = "request"`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cond.Clause != "(actor = ? AND entity_type = ?)" {
		t.Fatalf("unexpected clause %q", cond.Clause)
	}
	if len(cond.Params) != 2 {
		t.Fatalf("unexpected params %v", cond.Params)
	}

	cond, err = ParseAuditFilter(`actor = "a" OR actor = "b"`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cond.Clause != "(actor = ? OR actor = ?)" {
		t.Fatalf("unexpected clause %q", cond.Clause)
	}
}

func TestParseAuditFilterSeqRange(t *testing.T) {
	cond, err := ParseAuditFilter(`seq >= 10 AND seq < 20`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cond.Clause != "(seq >= ? AND seq < ?)" {
		t.Fatalf("unexpected clause %q", cond.Clause)
	}
}

func TestParseAuditFilterTimestamp(t *testing.T) {
	cond, err := ParseAuditFilter(`ts >= timestamp("2025-06-01T00:00:00Z")`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cond.Clause != "timestamp >= ?" {
		t.Fatalf("unexpected clause %q", cond.Clause)
	}
	millis, ok := cond.Params[0].(int64)
	if !ok || millis != 1748736000000 {
		t.Fatalf("unexpected timestamp param %v", cond.Params[0])
	}
}

func TestParseAuditFilterInvalid(t *testing.T) {
	cases := []string{
		`actor = `,
		`unknown_field = "x"`,
		`actor : "prefix"`,
	}
	for _, filter := range cases {
		_, err := ParseAuditFilter(filter)
		if !apperrors.IsCode(err, apperrors.CodeInvalidFilter) {
			t.Errorf("filter %q: expected FILTER_INVALID, got %v", filter, err)
		}
	}
}
