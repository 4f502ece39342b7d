// Package addrclass classifies IPv4 addresses as private/non-routable
// or public against the fixed table used by the rest of vpnwatch.
package addrclass

// Address is a 32-bit IPv4 address in host byte order.
type Address uint32

// Timestamp is seconds since an arbitrary monotonic epoch, supplied
// by the capture collaborator. It must be non-decreasing across
// successive calls for a given host (single-writer assumption).
type Timestamp int64

// Range is a (network, mask) pair. An address a matches iff
// a&Mask == Network.
type Range struct {
	Network Address
	Mask    Address
}

// Table is the fixed, compile-time set of private/non-routable ranges.
// Order does not affect the result: the ranges are disjoint.
var Table = [8]Range{
	{Network: 0x00000000, Mask: 0xFFFFFFFF}, // 0.0.0.0/32
	{Network: 0x0A000000, Mask: 0xFF000000}, // 10.0.0.0/8
	{Network: 0x7F000000, Mask: 0xFF000000}, // 127.0.0.0/8
	{Network: 0xA9FE0000, Mask: 0xFFFF0000}, // 169.254.0.0/16
	{Network: 0xAC100000, Mask: 0xFFF00000}, // 172.16.0.0/12
	{Network: 0xC0A80000, Mask: 0xFFFF0000}, // 192.168.0.0/16
	{Network: 0xE0000000, Mask: 0xF0000000}, // 224.0.0.0/4
	{Network: 0xFFFFFFFF, Mask: 0xFFFFFFFF}, // 255.255.255.255/32
}

// IsPrivate reports whether addr falls into any range of Table.
func IsPrivate(addr Address) bool {
	for _, r := range Table {
		if addr&r.Mask == r.Network {
			return true
		}
	}
	return false
}
