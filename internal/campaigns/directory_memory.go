package campaigns

import (
	"context"
	"sync"
	"time"
)

type MemoryDirectory struct {
	mu         sync.RWMutex
	campaigns  map[string]Campaign
	recipients map[string]Recipient
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{campaigns: map[string]Campaign{}, recipients: map[string]Recipient{}}
}

// NewSeededMemoryDirectory returns a directory holding the demo campaign and recipient.
func NewSeededMemoryDirectory(now time.Time) *MemoryDirectory {
	d := NewMemoryDirectory()
	d.PutCampaign(DemoCampaign(now.UTC()))
	d.PutRecipient(DemoRecipient())
	return d
}

func (d *MemoryDirectory) PutCampaign(c Campaign) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c.EscalationKeywords = append([]string(nil), c.EscalationKeywords...)
	d.campaigns[c.ID] = c
}

func (d *MemoryDirectory) PutRecipient(r Recipient) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recipients[r.ID] = r
}

func (d *MemoryDirectory) GetCampaign(ctx context.Context, id string) (Campaign, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.campaigns[id]
	if !ok {
		return Campaign{}, ErrCampaignNotFound
	}
	c.EscalationKeywords = append([]string(nil), c.EscalationKeywords...)
	return c, nil
}

func (d *MemoryDirectory) GetRecipient(ctx context.Context, id string) (Recipient, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.recipients[id]
	if !ok {
		return Recipient{}, ErrRecipientNotFound
	}
	return r, nil
}
