package hosttrack

import (
	"time"

	"github.com/bluele/gcache"

	"github.com/safing/portbase/log"
)

// IdleEvictor is an opt-in decorator that evicts hosts when idle. The
// core Tracker never evicts on its own; an IdleEvictor wraps one and
// drops entries that have not been observed (through this
// IdleEvictor's Observe) within horizon, using a TTL-expiring cache (github.com/bluele/gcache) as the idle
// clock instead of re-scanning the whole host table on every packet.
type IdleEvictor struct {
	tracker *Tracker
	horizon time.Duration
	seen    gcache.Cache
}

// WithIdleEviction wraps tracker with an idle-eviction policy: every
// time Observe is called for a host, its TTL entry is refreshed; when an
// entry expires without being observed again, the host is removed from
// tracker. horizon of zero disables eviction (Observe only forwards),
// matching the core's no-eviction default.
func WithIdleEviction(tracker *Tracker, horizon time.Duration) *IdleEvictor {
	ev := &IdleEvictor{tracker: tracker, horizon: horizon}
	if horizon <= 0 {
		return ev
	}
	// Sizing is governed by the TTL, not the LRU cap; the cap is set
	// generously high so it practically never trims before the TTL does.
	ev.seen = gcache.New(1 << 20).
		LRU().
		Expiration(horizon).
		EvictedFunc(func(key, _ interface{}) {
			if addr, ok := key.(Address); ok {
				tracker.Remove(addr)
				log.Debugf("tunneldetect: evicted idle host %08X after %s", uint32(addr), horizon)
			}
		}).
		Build()
	return ev
}

// Observe forwards to the wrapped Tracker and refreshes the idle
// clock for internal.
func (ev *IdleEvictor) Observe(internal, external Address, ts Timestamp) {
	ev.tracker.Observe(internal, external, ts)
	if ev.seen != nil {
		_ = ev.seen.Set(internal, struct{}{})
	}
}

// Sweep forces every idle-clock entry to be checked against its TTL.
// gcache only removes an expired entry (and fires the eviction
// callback) lazily, when that key is looked up again through Get —
// GetALL/Keys/Len with checkExpired merely leave expired keys out of
// their result. A host that simply stops sending packets is never
// looked up again, so its entry would otherwise sit
// expired-but-unevicted forever. Sweep therefore looks up every key;
// call it on a ticker so eviction actually runs instead of depending
// on a future access that may never come.
func (ev *IdleEvictor) Sweep() {
	if ev.seen != nil {
		for _, key := range ev.seen.Keys(false) {
			_, _ = ev.seen.Get(key)
		}
	}
}

// Tracker returns the wrapped Tracker for direct read access
// (Lookup/Walk/Snapshot/Len).
func (ev *IdleEvictor) Tracker() *Tracker {
	return ev.tracker
}
