package webhook

import (
	"sync"
	"time"
)

// deliveryLog remembers recently dispatched delivery IDs so a replayed
// delivery is acknowledged without reaching the event handler again.
// Entries expire after ttl; the map is swept on each insert.
type deliveryLog struct {
	mu   sync.RWMutex
	ttl  time.Duration
	seen map[string]time.Time

	// now is replaceable for tests.
	now func() time.Time
}

func newDeliveryLog(ttl time.Duration) *deliveryLog {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &deliveryLog{
		ttl:  ttl,
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

// Seen reports whether id was recorded within the TTL window.
func (d *deliveryLog) Seen(id string) bool {
	d.mu.RLock()
	at, ok := d.seen[id]
	d.mu.RUnlock()
	return ok && d.now().Sub(at) < d.ttl
}

// Record marks id as dispatched and drops expired entries so the map
// stays bounded. Only successfully dispatched deliveries are recorded;
// a failed dispatch must stay eligible for provider redelivery.
func (d *deliveryLog) Record(id string) {
	now := d.now()
	cutoff := now.Add(-d.ttl)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[id] = now
	for k, at := range d.seen {
		if at.Before(cutoff) {
			delete(d.seen, k)
		}
	}
}
