package hosttrack

import "github.com/safing/vpnwatch/addrclass"

// Address is a 32-bit IPv4 address in host byte order.
type Address = addrclass.Address

// Timestamp is seconds since an arbitrary monotonic epoch. Calls into
// a single Tracker must present non-decreasing timestamps per host;
// see ErrorKind TimestampRegression for the one exception this
// tracker tolerates.
type Timestamp = addrclass.Timestamp

// ConnectionState is the per-host connection record: the dominant
// peer and the sliding packet-count window kept for it.
type ConnectionState struct {
	// Peer is the external address currently considered the host's
	// dominant destination. Zero until the first packet.
	Peer Address
	// WindowStart is the timestamp at which the current measurement
	// window opened.
	WindowStart Timestamp
	// CountCurrent is the number of packets observed to Peer since
	// WindowStart. Saturating: never wraps.
	CountCurrent uint64
	// CountPrevious is the CountCurrent snapshot from the
	// immediately preceding window. Zero until the first rollover.
	CountPrevious uint64
}

// HostEntry pairs an internal address with its connection state.
type HostEntry struct {
	Address Address
	Conn    ConnectionState
}

// ErrorKind enumerates the three local error kinds the tracker
// recognizes. None of them are returned to the packet-capture caller:
// Observe always completes and the caller always accepts the packet.
type ErrorKind int

const (
	// NoError means the observation completed normally.
	NoError ErrorKind = iota
	// AllocationFailed means a new HostEntry could not be created.
	// Go's allocator does not fail under normal operation and the
	// ordered collection accepts every insert, so Observe never
	// produces this kind.
	AllocationFailed
	// InvariantViolation means a lookup indicated a host exists that
	// a subsequent operation then could not find. Should be
	// unreachable in a correct implementation.
	InvariantViolation
	// TimestampRegression means timestamp < entry.WindowStart for an
	// existing entry. Handled by opening a new window rather than
	// underflowing.
	TimestampRegression
)

func saturatingAdd(v uint64, n uint64) uint64 {
	sum := v + n
	if sum < v {
		return ^uint64(0)
	}
	return sum
}
