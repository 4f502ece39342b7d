// Package ingress decides, for a raw (source, destination) address pair,
// whether vpnwatch should analyze the packet and which endpoint plays
// the internal-host role. It is the small collaborator that sits
// between raw capture and the host tracker.
package ingress

import "github.com/safing/vpnwatch/addrclass"

// Config holds the construction-time behavior flags. There is no
// runtime reconfiguration: a Config is fixed for the lifetime of the
// filter that embeds it.
type Config struct {
	// FilterInternalOnly drops packets where neither endpoint is
	// private.
	FilterInternalOnly bool
	// OrientInternalAsSource normalizes the pair so the private
	// address occupies the "source" slot before the filter decision
	// is made.
	OrientInternalAsSource bool
}

// DefaultConfig enables both behavior flags, the standard posture.
func DefaultConfig() Config {
	return Config{
		FilterInternalOnly:     true,
		OrientInternalAsSource: true,
	}
}

// Decision is the outcome of Classify.
type Decision int

const (
	// Skip means the packet should not be analyzed further.
	Skip Decision = iota
	// Analyze means Internal/External are populated and should be
	// passed to the host tracker.
	Analyze
)

// Verdict is the oriented result of Classify.
type Verdict struct {
	Decision Decision
	Internal addrclass.Address
	External addrclass.Address
}

// Classify decides whether a (source, destination) pair should be
// analyzed: both addresses private is a Skip, both public is a Skip
// only when FilterInternalOnly is set, and otherwise one private
// address is analyzed with the other as external peer.
func Classify(src, dst addrclass.Address, cfg Config) Verdict {
	if cfg.OrientInternalAsSource && !addrclass.IsPrivate(src) && addrclass.IsPrivate(dst) {
		src, dst = dst, src
	}

	srcPrivate := addrclass.IsPrivate(src)
	dstPrivate := addrclass.IsPrivate(dst)

	if cfg.FilterInternalOnly && !srcPrivate && !dstPrivate {
		return Verdict{Decision: Skip}
	}
	if srcPrivate && dstPrivate {
		return Verdict{Decision: Skip}
	}

	return Verdict{
		Decision: Analyze,
		Internal: src,
		External: dst,
	}
}
