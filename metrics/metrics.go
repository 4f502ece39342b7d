// Package metrics exposes vpnwatch's own operational counters — packets
// seen, reports emitted, hosts tracked — through VictoriaMetrics/metrics'
// plain package-level API rather than a fuller Options/Counter wrapper;
// this system has no need for persisted counter state or a per-metric
// permission model.
package metrics

import (
	"io"
	"sync/atomic"

	vm "github.com/VictoriaMetrics/metrics"
)

var (
	packetsObserved = vm.NewCounter("vpnwatch_packets_observed_total")
	packetsSkipped  = vm.NewCounter("vpnwatch_packets_skipped_total")
	reportsEmitted  = vm.NewCounter("vpnwatch_reports_emitted_total")

	hostsTrackedValue int64
	_                 = vm.NewGauge("vpnwatch_hosts_tracked", func() float64 {
		return float64(atomic.LoadInt64(&hostsTrackedValue))
	})
)

// ObservePacket records that on_packet ran the suspicion procedure for
// a packet (i.e. ingress.Classify returned Analyze).
func ObservePacket() { packetsObserved.Inc() }

// SkipPacket records that ingress.Classify returned Skip.
func SkipPacket() { packetsSkipped.Inc() }

// ReportEmitted records a suspicion report reaching the terminal
// sinks, i.e. after the report pipeline's dedup stage.
func ReportEmitted() { reportsEmitted.Inc() }

// SetHostsTracked publishes the current size of the host table. The
// gauge reads this value lazily whenever it is scraped.
func SetHostsTracked(n int) {
	atomic.StoreInt64(&hostsTrackedValue, int64(n))
}

// WritePrometheus writes every registered metric in Prometheus
// exposition format, for the diagnostics API's /metrics endpoint.
func WritePrometheus(w io.Writer) {
	vm.WritePrometheus(w, true)
}
