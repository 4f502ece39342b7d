package metrics_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/safing/vpnwatch/metrics"
)

func TestWritePrometheusIncludesCounters(t *testing.T) {
	metrics.ObservePacket()
	metrics.ReportEmitted()
	metrics.SetHostsTracked(3)

	var buf bytes.Buffer
	metrics.WritePrometheus(&buf)

	out := buf.String()
	assert.Contains(t, out, "vpnwatch_packets_observed_total")
	assert.Contains(t, out, "vpnwatch_reports_emitted_total")
	assert.Contains(t, out, "vpnwatch_hosts_tracked")
}
