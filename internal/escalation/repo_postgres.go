package escalation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// NOTE: This repository assumes the escalations table from migrations/001_init.sql
// with UNIQUE (call_id).

const escalationColumns = `id, call_id, campaign_id, priority, status, source, reason, detected_flags,
       created_at, acknowledged_at, acknowledged_by`

// listOrder mirrors SortForQueue so SQL results are already in queue order.
const listOrder = ` ORDER BY CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 WHEN 'low' THEN 2 ELSE 3 END, created_at ASC`

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Insert(ctx context.Context, e Escalation) error {
	flags, err := json.Marshal(e.DetectedFlags)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO escalations (
  id, call_id, campaign_id, priority, status, source, reason, detected_flags, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
)
`
	_, err = r.db.ExecContext(ctx, q,
		e.ID,
		e.CallID,
		e.CampaignID,
		e.Priority,
		e.Status,
		e.Source,
		e.Reason,
		string(flags),
		e.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateEscalation
	}
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Escalation, error) {
	q := `SELECT ` + escalationColumns + ` FROM escalations WHERE id = $1`
	return scanEscalation(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) FindByCallID(ctx context.Context, callID string) (Escalation, bool, error) {
	q := `SELECT ` + escalationColumns + ` FROM escalations WHERE call_id = $1`
	e, err := scanEscalation(r.db.QueryRowContext(ctx, q, callID))
	if errors.Is(err, ErrNotFound) {
		return Escalation{}, false, nil
	}
	if err != nil {
		return Escalation{}, false, err
	}
	return e, true, nil
}

func (r *PostgresRepo) List(ctx context.Context, f ListFilter) ([]Escalation, error) {
	q := `SELECT ` + escalationColumns + `
FROM escalations
WHERE ($1 = '' OR status = $1) AND ($2 = '' OR campaign_id = $2)` + listOrder
	return r.query(ctx, q, string(f.Status), f.CampaignID)
}

func (r *PostgresRepo) ListRange(ctx context.Context, from, to time.Time, campaignID string) ([]Escalation, error) {
	q := `SELECT ` + escalationColumns + `
FROM escalations
WHERE created_at >= $1 AND created_at < $2 AND ($3 = '' OR campaign_id = $3)` + listOrder
	return r.query(ctx, q, from, to, campaignID)
}

// Acknowledge only touches open rows, so acknowledged_at is written once.
func (r *PostgresRepo) Acknowledge(ctx context.Context, id, actorID string, at time.Time) (Escalation, bool, error) {
	q := `
UPDATE escalations
SET status = 'acknowledged', acknowledged_at = $2, acknowledged_by = $3
WHERE id = $1 AND status = 'open'
RETURNING ` + escalationColumns
	e, err := scanEscalation(r.db.QueryRowContext(ctx, q, id, at, actorID))
	if err == nil {
		return e, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Escalation{}, false, err
	}
	existing, err := r.Get(ctx, id)
	if err != nil {
		return Escalation{}, false, err
	}
	return existing, false, nil
}

func (r *PostgresRepo) query(ctx context.Context, q string, args ...any) ([]Escalation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Escalation, 0)
	for rows.Next() {
		e, err := scanEscalation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEscalation(s rowScanner) (Escalation, error) {
	var (
		e       Escalation
		flags   []byte
		ackedAt sql.NullTime
		ackedBy sql.NullString
	)
	err := s.Scan(
		&e.ID,
		&e.CallID,
		&e.CampaignID,
		&e.Priority,
		&e.Status,
		&e.Source,
		&e.Reason,
		&flags,
		&e.CreatedAt,
		&ackedAt,
		&ackedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Escalation{}, ErrNotFound
		}
		return Escalation{}, err
	}
	if ackedAt.Valid {
		t := ackedAt.Time
		e.AcknowledgedAt = &t
	}
	e.AcknowledgedBy = ackedBy.String
	e.DetectedFlags = []string{}
	if len(flags) > 0 {
		if err := json.Unmarshal(flags, &e.DetectedFlags); err != nil {
			return Escalation{}, fmt.Errorf("escalation: decode detected_flags: %w", err)
		}
	}
	return e, nil
}
