package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pulsecall/pkg/utils"

	"github.com/cenkalti/backoff/v4"
)

var ErrDialerRejected = errors.New("telephony: dialer rejected request")

// HTTPDialer places calls through a voice-agent provider's REST API.
//
// POST {BaseURL}/calls with a bearer token and the call id as Idempotency-Key;
// the response carries the provider call id in "call_id". Only 429 and dial
// failures are retried, with exponential backoff up to MaxElapsed. A 5xx or a
// lost response may mean the call was placed, so it fails immediately.
type HTTPDialer struct {
	BaseURL string
	APIKey  string
	AgentID string

	Client     *http.Client
	MaxElapsed time.Duration
}

type dialRequest struct {
	AgentID  string            `json:"agent_id"`
	To       string            `json:"to"`
	Prompt   string            `json:"system_prompt,omitempty"`
	Greeting string            `json:"first_message,omitempty"`
	Metadata map[string]string `json:"metadata"`
}

type dialResponse struct {
	CallID string `json:"call_id"`
}

func (d *HTTPDialer) Name() string { return "http" }

func (d *HTTPDialer) PlaceOutboundCall(ctx context.Context, req OutboundCallRequest) (string, error) {
	if d.BaseURL == "" {
		return "", errors.New("telephony: dialer base url is required")
	}
	body, err := json.Marshal(dialRequest{
		AgentID:  d.AgentID,
		To:       req.To,
		Prompt:   req.SystemPrompt,
		Greeting: req.Greeting,
		Metadata: map[string]string{
			"call_id":     req.CallID,
			"user_id":     req.UserID,
			"campaign_id": req.CampaignID,
		},
	})
	if err != nil {
		return "", err
	}

	client := d.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	endpoint := strings.TrimRight(d.BaseURL, "/") + "/calls"

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = d.MaxElapsed
	if bo.MaxElapsedTime <= 0 {
		bo.MaxElapsedTime = 15 * time.Second
	}

	var out dialResponse
	op := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Idempotency-Key", req.CallID)
		if d.APIKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+d.APIKey)
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			if utils.DialFailed(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("telephony: dialer status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		case resp.StatusCode >= 500:
			return backoff.Permanent(fmt.Errorf("telephony: dialer status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
		case resp.StatusCode >= 300:
			return backoff.Permanent(fmt.Errorf("%w: status %d: %s", ErrDialerRejected, resp.StatusCode, strings.TrimSpace(string(raw))))
		}
		if len(raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return backoff.Permanent(fmt.Errorf("telephony: decode dialer response: %w", err))
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.CallID), nil
}
