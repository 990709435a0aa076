package campaigns

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

type PostgresDirectory struct {
	db *sql.DB
}

func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) GetCampaign(ctx context.Context, id string) (Campaign, error) {
	const q = `
SELECT id, name, agent_persona, conversation_goal, system_prompt, escalation_keywords,
       COALESCE(operator_phone, ''), created_at
FROM campaigns
WHERE id = $1
`
	var (
		c        Campaign
		keywords []byte
	)
	err := d.db.QueryRowContext(ctx, q, id).Scan(
		&c.ID,
		&c.Name,
		&c.AgentPersona,
		&c.ConversationGoal,
		&c.SystemPrompt,
		&keywords,
		&c.OperatorPhone,
		&c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Campaign{}, ErrCampaignNotFound
	}
	if err != nil {
		return Campaign{}, err
	}
	c.EscalationKeywords = []string{}
	if len(keywords) > 0 {
		if err := json.Unmarshal(keywords, &c.EscalationKeywords); err != nil {
			return Campaign{}, fmt.Errorf("campaigns: decode escalation_keywords: %w", err)
		}
	}
	return c, nil
}

func (d *PostgresDirectory) GetRecipient(ctx context.Context, id string) (Recipient, error) {
	const q = `
SELECT id, campaign_id, name, phone, COALESCE(email, '')
FROM recipients
WHERE id = $1
`
	var r Recipient
	err := d.db.QueryRowContext(ctx, q, id).Scan(&r.ID, &r.CampaignID, &r.Name, &r.Phone, &r.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return Recipient{}, ErrRecipientNotFound
	}
	if err != nil {
		return Recipient{}, err
	}
	return r, nil
}
