package audit

import (
	"context"
	"database/sql"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, type, actor_id, actor_role, ip_address, campaign_id, call_id, escalation_id, message, metadata, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.Type,
		e.ActorID,
		e.ActorRole,
		e.IPAddress,
		e.CampaignID,
		e.CallID,
		e.EscalationID,
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}
