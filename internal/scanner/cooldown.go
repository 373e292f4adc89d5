package scanner

import (
	"sync"
	"time"
)

// CooldownTracker is a per-symbol ledger of last-notified timestamps used to
// suppress repeat alerts. Entries never expire; they are only superseded by
// newer timestamps. All methods are safe for concurrent use.
type CooldownTracker struct {
	mu   sync.Mutex
	last map[string]time.Time
}

// NewCooldownTracker creates an empty tracker.
func NewCooldownTracker() *CooldownTracker {
	return &CooldownTracker{
		last: make(map[string]time.Time),
	}
}

// ShouldNotify reports whether a notification for symbol is permitted at now.
// A symbol with no prior entry, or whose last notification is at least
// cooldown ago, is permitted. The check does not mutate the ledger; repeated
// calls without an intervening MarkNotified return the same answer.
func (t *CooldownTracker) ShouldNotify(symbol string, now time.Time, cooldown time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, ok := t.last[symbol]
	if !ok {
		return true
	}
	return now.Sub(last) >= cooldown
}

// MarkNotified records a successful notification for symbol at now. It must
// be called only after dispatch succeeded. Timestamps are monotonically
// non-decreasing per symbol: an older now than the stored entry is ignored.
func (t *CooldownTracker) MarkNotified(symbol string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := t.last[symbol]; ok && now.Before(last) {
		return
	}
	t.last[symbol] = now
}

// LastNotified returns the recorded timestamp for symbol, if any.
func (t *CooldownTracker) LastNotified(symbol string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, ok := t.last[symbol]
	return last, ok
}
