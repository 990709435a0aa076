package migrations

import (
	"strings"
	"testing"

	"pulsecall/pkg/utils"
)

func TestInitSchemaSplits(t *testing.T) {
	stmts := utils.SplitStatements(Init)
	if len(stmts) < 10 {
		t.Fatalf("expected the full schema, got %d statements", len(stmts))
	}
	for _, table := range []string{"call_records", "escalations", "audit_events", "campaigns", "recipients"} {
		if !strings.Contains(Init, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Fatalf("missing table %s", table)
		}
	}
	if !strings.Contains(Init, "WHERE state IN ('PENDING', 'BUSY_RETRY')") {
		t.Fatalf("missing partial unique index on provider_call_id")
	}
}
