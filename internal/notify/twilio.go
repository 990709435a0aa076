package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pulsecall/pkg/utils"

	"github.com/cenkalti/backoff/v4"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// TwilioSMS sends alerts through Twilio Programmable Messaging over REST.
//
// Sending is at most once: only 429 and connection failures before the request
// left the host are retried, with exponential backoff bounded by MaxElapsed.
// 5xx, timeouts and other transport errors may mean the message was queued, so
// they fail immediately like any other 4xx.
type TwilioSMS struct {
	AccountSID string
	AuthToken  string
	From       string

	// BaseURL overrides the Twilio API root (tests).
	BaseURL    string
	Client     *http.Client
	MaxElapsed time.Duration
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (n *TwilioSMS) Notify(ctx context.Context, a Alert) error {
	if a.To == "" {
		return ErrNoRecipient
	}
	if n.AccountSID == "" || n.AuthToken == "" || n.From == "" {
		return errors.New("notify: twilio credentials are incomplete")
	}

	base := n.BaseURL
	if base == "" {
		base = twilioAPIBase
	}
	endpoint := strings.TrimRight(base, "/") + "/Accounts/" + url.PathEscape(n.AccountSID) + "/Messages.json"

	form := url.Values{}
	form.Set("To", a.To)
	form.Set("From", n.From)
	form.Set("Body", a.Body())
	payload := form.Encode()

	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = n.MaxElapsed
	if bo.MaxElapsedTime <= 0 {
		bo.MaxElapsedTime = 20 * time.Second
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.SetBasicAuth(n.AccountSID, n.AuthToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := client.Do(req)
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
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

		if resp.StatusCode < 300 {
			return nil
		}
		err = fmt.Errorf("notify: twilio status %d: %s", resp.StatusCode, twilioMessage(raw))
		if resp.StatusCode == http.StatusTooManyRequests {
			return err
		}
		return backoff.Permanent(err)
	}
	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

func twilioMessage(raw []byte) string {
	var te twilioError
	if err := json.Unmarshal(raw, &te); err == nil && te.Message != "" {
		return fmt.Sprintf("%s (code %d)", te.Message, te.Code)
	}
	return strings.TrimSpace(string(raw))
}
