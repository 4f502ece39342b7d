package report

import (
	"fmt"

	"github.com/safing/portbase/log"
)

// LogSink writes every report through portbase/log, matching the
// severity and format conventions the rest of the module uses.
type LogSink struct{}

// Report implements Sink.
func (LogSink) Report(ev Event) {
	if ev.Country != "" || ev.DistanceKM > 0 {
		log.Warningf(
			"tunneldetect: suspected VPN tunnel %s -> %s at t=%d (country=%s asn=%s distance=%.0fkm) [%s]",
			fmt.Sprintf("0x%08X", uint32(ev.Internal)),
			fmt.Sprintf("0x%08X", uint32(ev.External)),
			ev.Timestamp,
			ev.Country,
			ev.ASNOrg,
			ev.DistanceKM,
			ev.Token,
		)
		return
	}
	log.Warningf(
		"tunneldetect: suspected VPN tunnel %s -> %s at t=%d [%s]",
		fmt.Sprintf("0x%08X", uint32(ev.Internal)),
		fmt.Sprintf("0x%08X", uint32(ev.External)),
		ev.Timestamp,
		ev.Token,
	)
}
