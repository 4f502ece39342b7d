package hosttrack_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/vpnwatch/hosttrack"
	"github.com/safing/vpnwatch/report"
)

func addrs(t *testing.T, tr *hosttrack.Tracker) []uint32 {
	t.Helper()
	snap := tr.Snapshot()
	out := make([]uint32, len(snap))
	for i, e := range snap {
		out[i] = uint32(e.Address)
	}
	return out
}

// S1 — order after mixed inserts.
func TestOrderAfterMixedInserts(t *testing.T) {
	t.Parallel()
	tr := hosttrack.New(hosttrack.DefaultConfig(), nil)

	tr.Observe(8, 1, 0)
	tr.Observe(1000, 1, 0)
	tr.Observe(30, 1, 0)
	tr.Observe(2, 1, 0)

	assert.Equal(t, []uint32{2, 8, 30, 1000}, addrs(t, tr))
}

// S2 — no report below thresholds.
func TestNoReportBelowThresholds(t *testing.T) {
	t.Parallel()
	var reports []report.Event
	sink := report.SinkFunc(func(ev report.Event) { reports = append(reports, ev) })
	tr := hosttrack.New(hosttrack.DefaultConfig(), sink)

	tr.Observe(8, 100, 0)
	tr.Observe(8, 100, 1)
	tr.Observe(8, 100, 1201)

	assert.Empty(t, reports)

	entry, ok := tr.Lookup(8)
	require.True(t, ok)
	// The third call straddles the window boundary: it is evaluated
	// against the two packets that came before it (count_current==2,
	// not yet reportable), then opens the next window as that
	// window's first packet.
	assert.EqualValues(t, 1, entry.Conn.CountCurrent)
	assert.EqualValues(t, 2, entry.Conn.CountPrevious)
}

// S3 — report on absolute-rate breach.
func TestReportOnAbsoluteRateBreach(t *testing.T) {
	t.Parallel()
	var reports []report.Event
	sink := report.SinkFunc(func(ev report.Event) { reports = append(reports, ev) })
	cfg := hosttrack.DefaultConfig()
	cfg.CountPackets = 2
	tr := hosttrack.New(cfg, sink)

	tr.Observe(8, 100, 0)
	tr.Observe(8, 100, 1)
	tr.Observe(8, 100, 2)
	tr.Observe(8, 100, 1201)

	require.Len(t, reports, 1)
	assert.EqualValues(t, 8, reports[0].Internal)
	assert.EqualValues(t, 100, reports[0].External)
	assert.EqualValues(t, 1201, reports[0].Timestamp)

	entry, ok := tr.Lookup(8)
	require.True(t, ok)
	// The fourth call is judged against the 3 packets accumulated
	// before it (3 > count_packets(2) => report), then starts the
	// next window as that window's first packet.
	assert.EqualValues(t, 1, entry.Conn.CountCurrent)
}

// S4 — peer change resets window.
func TestPeerChangeResetsWindow(t *testing.T) {
	t.Parallel()
	tr := hosttrack.New(hosttrack.DefaultConfig(), nil)

	tr.Observe(8, 100, 0)
	tr.Observe(8, 200, 5)

	entry, ok := tr.Lookup(8)
	require.True(t, ok)
	assert.EqualValues(t, 200, entry.Conn.Peer)
	assert.EqualValues(t, 1, entry.Conn.CountCurrent)
	assert.EqualValues(t, 5, entry.Conn.WindowStart)
}

func TestFirstObservationCreatesOneEntryNoReport(t *testing.T) {
	t.Parallel()
	var reported bool
	sink := report.SinkFunc(func(ev report.Event) { reported = true })
	tr := hosttrack.New(hosttrack.DefaultConfig(), sink)

	tr.Observe(42, 7, 0)

	assert.Equal(t, 1, tr.Len())
	assert.False(t, reported)
}

func TestWindowRolloverIsStrictlyGreaterThan(t *testing.T) {
	t.Parallel()
	tr := hosttrack.New(hosttrack.DefaultConfig(), nil)

	tr.Observe(8, 100, 0)
	tr.Observe(8, 100, 1200) // exactly at window_start + time_window_sec: no rollover

	entry, ok := tr.Lookup(8)
	require.True(t, ok)
	assert.EqualValues(t, 2, entry.Conn.CountCurrent)
	assert.EqualValues(t, 0, entry.Conn.CountPrevious)

	tr.Observe(8, 100, 1201) // +1: rollover fires
	entry, ok = tr.Lookup(8)
	require.True(t, ok)
	assert.EqualValues(t, 1, entry.Conn.CountCurrent)
	assert.EqualValues(t, 2, entry.Conn.CountPrevious)
}

func TestMonotoneCountersWithinWindow(t *testing.T) {
	t.Parallel()
	tr := hosttrack.New(hosttrack.DefaultConfig(), nil)

	tr.Observe(8, 100, 0)
	for i := hosttrack.Timestamp(1); i < 10; i++ {
		before, _ := tr.Lookup(8)
		tr.Observe(8, 100, i)
		after, _ := tr.Lookup(8)
		assert.Equal(t, before.Conn.CountCurrent+1, after.Conn.CountCurrent)
	}
}

func TestRemoveAfterObserveResetsState(t *testing.T) {
	t.Parallel()
	tr := hosttrack.New(hosttrack.DefaultConfig(), nil)

	tr.Observe(8, 100, 0)
	require.Equal(t, 1, tr.Len())

	tr.Remove(8)
	assert.Equal(t, 0, tr.Len())
	_, ok := tr.Lookup(8)
	assert.False(t, ok)
}

func TestTimestampRegressionOpensNewWindow(t *testing.T) {
	t.Parallel()
	tr := hosttrack.New(hosttrack.DefaultConfig(), nil)

	tr.Observe(8, 100, 100)
	tr.Observe(8, 100, 50) // regression

	entry, ok := tr.Lookup(8)
	require.True(t, ok)
	assert.EqualValues(t, 50, entry.Conn.WindowStart)
}
