package reporting

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresRepo aggregates in SQL and scans buckets by db tag.
type PostgresRepo struct {
	db *sqlx.DB
}

// NewPostgresRepo wraps an open pgx-backed *sql.DB.
func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: sqlx.NewDb(db, "pgx")}
}

func (r *PostgresRepo) CallOutcomes(ctx context.Context, from, to time.Time, campaignID string) ([]OutcomeRow, error) {
	q := r.db.Rebind(`
SELECT campaign_id,
       state,
       COUNT(*) AS calls,
       COALESCE(SUM(sentiment_score), 0) AS sentiment_sum,
       COUNT(sentiment_score) AS sentiment_count
FROM call_records
WHERE created_at >= ? AND created_at < ? AND (? = '' OR campaign_id = ?)
GROUP BY campaign_id, state
`)
	out := make([]OutcomeRow, 0)
	if err := r.db.SelectContext(ctx, &out, q, from, to, campaignID, campaignID); err != nil {
		return nil, fmt.Errorf("reporting: call outcomes: %w", err)
	}
	return out, nil
}

func (r *PostgresRepo) EscalationCounts(ctx context.Context, from, to time.Time, campaignID string) ([]EscalationRow, error) {
	q := r.db.Rebind(`
SELECT campaign_id, priority, status, COUNT(*) AS escalations
FROM escalations
WHERE created_at >= ? AND created_at < ? AND (? = '' OR campaign_id = ?)
GROUP BY campaign_id, priority, status
`)
	out := make([]EscalationRow, 0)
	if err := r.db.SelectContext(ctx, &out, q, from, to, campaignID, campaignID); err != nil {
		return nil, fmt.Errorf("reporting: escalation counts: %w", err)
	}
	return out, nil
}
