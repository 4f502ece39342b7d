package report

import (
	"encoding/binary"

	"github.com/tannerryan/ring"

	"github.com/safing/vpnwatch/addrclass"
)

// DedupSink suppresses repeat internal+external pairs before
// forwarding to Next. A host that sits above threshold for many
// consecutive window rollovers would otherwise re-report identically
// every ~20 minutes; DedupSink forwards only the first report for each
// pair. The fingerprints live in a Bloom filter that is never reset,
// so a pair stays suppressed for the lifetime of the sink, and a false
// positive of the filter can also suppress a pair never seen before.
type DedupSink struct {
	Next Sink
	ring *ring.Ring
}

// NewDedupSink builds a DedupSink with a fingerprint ring sized for
// approximately capacity distinct internal+external pairs.
func NewDedupSink(next Sink, capacity uint) *DedupSink {
	return &DedupSink{
		Next: next,
		ring: ring.New(capacity),
	}
}

// Report implements Sink.
func (d *DedupSink) Report(ev Event) {
	fp := fingerprint(ev.Internal, ev.External)
	if d.ring.Test(fp) {
		// Seen recently; suppress.
		return
	}
	d.ring.Add(fp)
	if d.Next != nil {
		d.Next.Report(ev)
	}
}

func fingerprint(internal, external addrclass.Address) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint32(b[0:4], uint32(internal))
	binary.BigEndian.PutUint32(b[4:8], uint32(external))
	return b
}
