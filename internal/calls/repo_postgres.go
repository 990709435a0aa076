package calls

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// NOTE: This repository assumes the call_records table from migrations/001_init.sql,
// including the partial unique index:
//   UNIQUE (provider_call_id) WHERE state IN ('PENDING','BUSY_RETRY')

const pgUniqueViolation = "23505"

// PostgresRepo is the production Repository backed by database/sql (pgx stdlib).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const recordColumns = `id, user_id, campaign_id, provider_call_id, state, summary, sentiment_score,
       detected_flags, recommended_action, triage_classification, triage_reason, created_at, updated_at`

func (r *PostgresRepo) Create(ctx context.Context, rec Record) error {
	if err := validateNew(rec); err != nil {
		return err
	}
	const q = `
INSERT INTO call_records (
  id, user_id, campaign_id, provider_call_id, state, triage_classification, triage_reason, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
)
`
	_, err := r.db.ExecContext(ctx, q,
		rec.ID,
		rec.UserID,
		rec.CampaignID,
		nullString(rec.ProviderCallID),
		rec.State,
		rec.TriageClassification,
		rec.TriageReason,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateProviderCallID
	}
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Record, error) {
	q := `SELECT ` + recordColumns + ` FROM call_records WHERE id = $1`
	return scanRecord(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) GetByProviderCallID(ctx context.Context, providerCallID string) (Record, error) {
	if providerCallID == "" {
		return Record{}, ErrNotFound
	}
	// Non-terminal first; among terminal rows the latest wins.
	q := `SELECT ` + recordColumns + `
FROM call_records
WHERE provider_call_id = $1
ORDER BY CASE WHEN state IN ('PENDING','BUSY_RETRY') THEN 0 ELSE 1 END, updated_at DESC
LIMIT 1`
	return scanRecord(r.db.QueryRowContext(ctx, q, providerCallID))
}

// Transition applies t with a single conditional UPDATE. Zero affected rows
// means the record is missing or another writer moved it first.
func (r *PostgresRepo) Transition(ctx context.Context, id string, t Transition, now time.Time) (Record, error) {
	if err := validateTransition(t); err != nil {
		return Record{}, err
	}

	var row *sql.Row
	if t.To.IsTerminal() {
		flags, err := encodeFlags(t.DetectedFlags)
		if err != nil {
			return Record{}, err
		}
		q := `
UPDATE call_records
SET state = $3, updated_at = $4, summary = $5, sentiment_score = $6, detected_flags = $7,
    recommended_action = $8, triage_classification = $9, triage_reason = $10
WHERE id = $1 AND state = $2
RETURNING ` + recordColumns
		row = r.db.QueryRowContext(ctx, q, id, t.From, t.To, now,
			t.Summary, t.SentimentScore, flags, t.RecommendedAction, t.TriageClassification, t.TriageReason)
	} else {
		q := `
UPDATE call_records
SET state = $3, updated_at = $4
WHERE id = $1 AND state = $2
RETURNING ` + recordColumns
		row = r.db.QueryRowContext(ctx, q, id, t.From, t.To, now)
	}

	rec, err := scanRecord(row)
	if errors.Is(err, ErrNotFound) {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return Record{}, getErr
		}
		return Record{}, ErrStateConflict
	}
	return rec, err
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Record, error) {
	q := `SELECT ` + recordColumns + ` FROM call_records WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	return r.query(ctx, q, args...)
}

func (r *PostgresRepo) ListRange(ctx context.Context, from, to time.Time, campaignID string) ([]Record, error) {
	q := `SELECT ` + recordColumns + `
FROM call_records
WHERE created_at >= $1 AND created_at < $2 AND ($3 = '' OR campaign_id = $3)
ORDER BY created_at ASC`
	return r.query(ctx, q, from, to, campaignID)
}

func (r *PostgresRepo) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (Record, error) {
	var (
		rec            Record
		providerCallID sql.NullString
		summary        sql.NullString
		sentiment      sql.NullInt64
		flags          []byte
		recommended    sql.NullString
	)
	err := s.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.CampaignID,
		&providerCallID,
		&rec.State,
		&summary,
		&sentiment,
		&flags,
		&recommended,
		&rec.TriageClassification,
		&rec.TriageReason,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}

	rec.ProviderCallID = providerCallID.String
	if summary.Valid {
		rec.Summary = &summary.String
	}
	if sentiment.Valid {
		n := int(sentiment.Int64)
		rec.SentimentScore = &n
	}
	if recommended.Valid {
		rec.RecommendedAction = &recommended.String
	}
	if len(flags) > 0 {
		if err := json.Unmarshal(flags, &rec.DetectedFlags); err != nil {
			return Record{}, fmt.Errorf("calls: decode detected_flags: %w", err)
		}
	}
	return rec, nil
}

func encodeFlags(flags []string) (any, error) {
	if flags == nil {
		flags = []string{}
	}
	b, err := json.Marshal(flags)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
