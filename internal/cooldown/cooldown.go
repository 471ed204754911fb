// Package cooldown throttles how often a single device may submit.
package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultPeriod is the wait between two successful submissions of a device.
const DefaultPeriod = 10 * time.Minute

// ActiveError is returned while a device is cooling down.
type ActiveError struct {
	Until time.Time
}

func (e *ActiveError) Error() string {
	return fmt.Sprintf("cooldown active until %s", e.Until.UTC().Format(time.RFC3339))
}

// Tracker remembers per device when its cooldown ends. State is process
// local and lost on restart.
type Tracker struct {
	cache  *ttlcache.Cache[string, time.Time]
	period time.Duration
	now    func() time.Time
}

func New(period time.Duration) *Tracker {
	if period <= 0 {
		period = DefaultPeriod
	}
	cache := ttlcache.New[string, time.Time](
		ttlcache.WithTTL[string, time.Time](period),
		ttlcache.WithDisableTouchOnHit[string, time.Time](),
	)
	return &Tracker{cache: cache, period: period, now: time.Now}
}

// Check fails with *ActiveError when deviceID is still cooling down.
func (t *Tracker) Check(deviceID string) error {
	item := t.cache.Get(deviceID)
	if item == nil {
		return nil
	}
	if until := item.Value(); t.now().Before(until) {
		return &ActiveError{Until: until}
	}
	return nil
}

// Start begins a cooldown for deviceID and returns its end.
func (t *Tracker) Start(deviceID string) time.Time {
	until := t.now().Add(t.period)
	t.cache.Set(deviceID, until, t.period)
	return until
}

// Reset clears the cooldown of deviceID.
func (t *Tracker) Reset(deviceID string) {
	t.cache.Delete(deviceID)
}

// Run evicts expired entries until ctx is done.
func (t *Tracker) Run(ctx context.Context) error {
	go t.cache.Start()
	<-ctx.Done()
	t.cache.Stop()
	return nil
}
