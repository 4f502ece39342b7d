// Package hosttrack is the core of vpnwatch: it maintains the ordered
// collection of internal hosts and their per-host connection state,
// and applies the VPN-suspicion predicate at each window rollover.
package hosttrack

import (
	"encoding/binary"
	"fmt"

	"github.com/armon/go-radix"
	"github.com/hashicorp/go-multierror"
	"github.com/tevino/abool"

	"github.com/safing/portbase/log"
	"github.com/safing/vpnwatch/report"
)

// Config holds the construction-time detection thresholds. There is
// no runtime reconfiguration.
type Config struct {
	// CountPackets is the absolute per-window packet cap.
	CountPackets uint64
	// TimeWindowSec is the window length in seconds.
	TimeWindowSec Timestamp
	// WindowOverlapThreshold is the straddling-window cap.
	WindowOverlapThreshold uint64
}

// DefaultConfig returns the standard detection thresholds.
func DefaultConfig() Config {
	return Config{
		CountPackets:           10000,
		TimeWindowSec:          20 * 60,
		WindowOverlapThreshold: 7500,
	}
}

// Tracker owns the ordered collection of HostEntry records and
// implements Observe, the single entry point for feeding it packets.
// A Tracker is not safe for concurrent Observe calls: exactly one
// goroutine (conventionally the capture read loop) must call it.
type Tracker struct {
	cfg  Config
	sink report.Sink

	hosts *radix.Tree

	// observing guards against a reentrant Observe call, which would
	// indicate the single-writer assumption was violated.
	observing *abool.AtomicBool
}

// New constructs a Tracker with cfg's thresholds, reporting suspicion
// events to sink. sink may be nil, in which case reports are dropped
// (useful for tests that only assert on tracker state).
func New(cfg Config, sink report.Sink) *Tracker {
	return &Tracker{
		cfg:       cfg,
		sink:      sink,
		hosts:     radix.New(),
		observing: abool.New(),
	}
}

// addrKey encodes addr as a 4-byte big-endian string, which sorts
// identically to ascending numeric order — the ordering property
// Snapshot and Walk rely on.
func addrKey(addr Address) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(addr))
	return string(b[:])
}

// Observe runs the on-packet procedure: lookup-or-create, peer
// update, and (on window rollover) suspicion evaluation and counter
// reset. It never fails in a way visible to the caller — the packet
// is always considered accepted — but internal error kinds are
// logged.
func (t *Tracker) Observe(internal, external Address, ts Timestamp) {
	if !t.observing.SetToIf(false, true) {
		log.Errorf("tunneldetect: reentrant Observe call detected for %08X; single-writer assumption violated", uint32(internal))
		return
	}
	defer t.observing.UnSet()

	key := addrKey(internal)

	raw, found := t.hosts.Get(key)
	var entry *HostEntry
	if found {
		var ok bool
		entry, ok = raw.(*HostEntry)
		if !ok || entry == nil {
			log.Errorf("tunneldetect: invariant violation — host %08X existed in index but had no entry", uint32(internal))
			return
		}
	} else {
		entry = &HostEntry{Address: internal}
		t.hosts.Insert(key, entry)
	}

	// Window rollover (and its TimestampRegression special case) is
	// evaluated against the state accumulated by every packet seen
	// before this one. The packet that itself crosses the boundary is
	// not folded into the window being judged — it opens the next
	// window instead, which is what makes a boundary-straddling
	// packet count once, not twice.
	switch {
	case ts < entry.Conn.WindowStart:
		log.Warningf("tunneldetect: timestamp regression for host %08X (ts=%d < window_start=%d); opening a new window", uint32(entry.Address), ts, entry.Conn.WindowStart)
		entry.Conn.WindowStart = ts
		entry.Conn.CountPrevious = entry.Conn.CountCurrent
		entry.Conn.CountCurrent = 0
	case ts-entry.Conn.WindowStart > t.cfg.TimeWindowSec:
		t.rollover(entry, ts)
	}

	if external != entry.Conn.Peer {
		// New dominant connection: discard partial counts for the
		// previous peer (a documented limitation of this algorithm).
		entry.Conn.Peer = external
		entry.Conn.WindowStart = ts
		entry.Conn.CountCurrent = 1
	} else {
		entry.Conn.CountCurrent = saturatingAdd(entry.Conn.CountCurrent, 1)
	}
}

// rollover evaluates the suspicion predicate against the
// already-accumulated window and snapshots it into CountPrevious.
func (t *Tracker) rollover(entry *HostEntry, ts Timestamp) {
	if t.suspected(entry.Conn) && t.sink != nil {
		t.sink.Report(report.Event{
			Internal:  entry.Address,
			External:  entry.Conn.Peer,
			Timestamp: ts,
		})
	}
	entry.Conn.WindowStart = ts
	entry.Conn.CountPrevious = entry.Conn.CountCurrent
	entry.Conn.CountCurrent = 0
}

// suspected evaluates the VPN-suspicion predicate.
func (t *Tracker) suspected(conn ConnectionState) bool {
	return conn.CountCurrent > t.cfg.CountPackets ||
		conn.CountPrevious+conn.CountCurrent > t.cfg.WindowOverlapThreshold
}

// Remove deletes the HostEntry for addr, if present. Exposed for the
// debug/test collaborator and for future idle-eviction policies (see
// WithIdleEviction); the tracker never calls this on its own.
func (t *Tracker) Remove(addr Address) {
	t.hosts.Delete(addrKey(addr))
}

// Lookup returns a copy of the HostEntry for addr, if present.
func (t *Tracker) Lookup(addr Address) (HostEntry, bool) {
	raw, found := t.hosts.Get(addrKey(addr))
	if !found {
		return HostEntry{}, false
	}
	entry, ok := raw.(*HostEntry)
	if !ok || entry == nil {
		return HostEntry{}, false
	}
	return *entry, true
}

// Len returns the number of tracked hosts.
func (t *Tracker) Len() int {
	return t.hosts.Len()
}

// Walk visits every HostEntry in ascending address order, stopping
// early if fn returns false.
func (t *Tracker) Walk(fn func(HostEntry) bool) {
	t.hosts.Walk(func(_ string, v interface{}) bool {
		entry, ok := v.(*HostEntry)
		if !ok || entry == nil {
			return false
		}
		return !fn(*entry)
	})
}

// Snapshot returns every tracked HostEntry in ascending address order.
func (t *Tracker) Snapshot() []HostEntry {
	out := make([]HostEntry, 0, t.hosts.Len())
	t.Walk(func(e HostEntry) bool {
		out = append(out, e)
		return true
	})
	return out
}

// ValidateConfig aggregates configuration problems with
// hashicorp/go-multierror rather than failing on the first one, so a
// caller (tunneldetect's prep hook) can report them all together.
func ValidateConfig(cfg Config) error {
	var result *multierror.Error
	if cfg.CountPackets == 0 {
		result = multierror.Append(result, fmt.Errorf("count_packets must be greater than zero"))
	}
	if cfg.TimeWindowSec <= 0 {
		result = multierror.Append(result, fmt.Errorf("time_window_sec must be greater than zero"))
	}
	if cfg.WindowOverlapThreshold == 0 {
		result = multierror.Append(result, fmt.Errorf("window_overlap_threshold must be greater than zero"))
	}
	return result.ErrorOrNil()
}
