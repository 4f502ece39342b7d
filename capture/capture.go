// Package capture supplies vpnwatch's packet sources: live interception
// via NFQUEUE and offline replay from a pcap file. Both implementations
// satisfy Source and only ever decode as far as the IPv4 header — this
// analyzer never inspects payload.
package capture

import "github.com/safing/vpnwatch/addrclass"

// Packet is the minimal shape capture hands to the detection pipeline:
// the two endpoint addresses and an observation timestamp. Anything
// beyond that (ports, protocol, payload) is outside this system's
// scope.
type Packet struct {
	Src addrclass.Address
	Dst addrclass.Address
	TS  addrclass.Timestamp
}

// Source produces a stream of decoded IPv4 packets. Implementations
// always accept/forward the underlying packet unchanged — this is a
// passive, read-only analyzer, never an in-line firewall — and close
// Packets when the source is done (EOF for replay, Close for live
// interception).
type Source interface {
	Packets() <-chan Packet
	Close() error
}
