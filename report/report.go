// Package report defines the Sink collaborator that vpnwatch's host
// tracker calls synchronously at a window rollover when the
// VPN-suspicion predicate holds, plus the sinks built on top of it.
package report

import (
	"github.com/safing/portbase/log"

	"github.com/safing/vpnwatch/addrclass"
)

// Event is the payload passed to a Sink. Internal/External/Timestamp
// are the suspicion report itself; the remaining fields are added
// downstream (ID and Token by IDSink, the GeoIP fields by
// EnrichingSink) and are never consulted by the suspicion predicate
// itself.
type Event struct {
	Internal  addrclass.Address
	External  addrclass.Address
	Timestamp addrclass.Timestamp

	// ID uniquely identifies this emission (see DedupSink, AuditSink).
	ID string
	// Token is a short, human-shareable rendering of ID.
	Token string

	// Country, ASNOrg and DistanceKM are best-effort GeoIP enrichment
	// of External, added by EnrichingSink. Zero values mean "unknown".
	Country    string
	ASNOrg     string
	DistanceKM float64
}

// Sink receives VPN-suspicion reports. A Sink MUST NOT block for long
// and MUST NOT call back into the tracker that produced the event.
type Sink interface {
	Report(ev Event)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(ev Event)

// Report implements Sink.
func (f SinkFunc) Report(ev Event) { f(ev) }

// Multi fans an event out to every sink in order. A panic or slow
// sink in one does not stop the others from seeing the event, but
// Multi itself is still synchronous: the caller's Observe call waits
// for every sink to finish before returning.
type Multi []Sink

// Report implements Sink.
func (m Multi) Report(ev Event) {
	for _, s := range m {
		if s != nil {
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Errorf("tunneldetect: report sink panicked: %v", r)
					}
				}()
				s.Report(ev)
			}()
		}
	}
}
