package memory

import (
	"context"
	"sync"
	"time"
)

// Cooldowns tracks the per-user play cooldown. Remaining returns zero when
// the user is eligible; MarkPlayed starts a new window, called only after
// a session has been scored.
type Cooldowns interface {
	Remaining(ctx context.Context, userID string) (time.Duration, error)
	MarkPlayed(ctx context.Context, userID string) error
}

// CooldownLedger is an in-memory implementation of Cooldowns.
type CooldownLedger struct {
	window time.Duration
	now    func() time.Time

	mu     sync.Mutex
	played map[string]time.Time
}

func NewCooldownLedger(window time.Duration) *CooldownLedger {
	return NewCooldownLedgerWithClock(window, time.Now)
}

// NewCooldownLedgerWithClock allows deterministic timestamps in tests.
func NewCooldownLedgerWithClock(window time.Duration, now func() time.Time) *CooldownLedger {
	return &CooldownLedger{
		window: window,
		now:    now,
		played: make(map[string]time.Time),
	}
}

func (c *CooldownLedger) Remaining(_ context.Context, userID string) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	playedAt, ok := c.played[userID]
	if !ok {
		return 0, nil
	}
	remaining := c.window - c.now().Sub(playedAt)
	if remaining <= 0 {
		delete(c.played, userID)
		return 0, nil
	}
	return remaining, nil
}

func (c *CooldownLedger) MarkPlayed(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.played[userID] = c.now()
	return nil
}
