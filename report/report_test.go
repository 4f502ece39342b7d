package report_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/vpnwatch/report"
)

func TestNewEnrichingSinkReturnsErrorOnMissingDB(t *testing.T) {
	t.Parallel()

	_, err := report.NewEnrichingSink(nil, filepath.Join(t.TempDir(), "missing.mmdb"), report.Coordinate{})
	assert.Error(t, err)
}

func TestMultiFansOutToAllSinks(t *testing.T) {
	t.Parallel()

	var calls []string
	a := report.SinkFunc(func(ev report.Event) { calls = append(calls, "a") })
	b := report.SinkFunc(func(ev report.Event) { calls = append(calls, "b") })

	m := report.Multi{a, b, nil}
	m.Report(report.Event{Internal: 1, External: 2, Timestamp: 3})

	require.Len(t, calls, 2)
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestDedupSinkSuppressesRepeat(t *testing.T) {
	t.Parallel()

	var reported int
	next := report.SinkFunc(func(ev report.Event) { reported++ })
	dedup := report.NewDedupSink(next, 1024)

	ev := report.Event{Internal: 10, External: 20, Timestamp: 1}
	dedup.Report(ev)
	dedup.Report(ev)
	dedup.Report(ev)

	assert.Equal(t, 1, reported)

	// A different external peer is a distinct fingerprint.
	dedup.Report(report.Event{Internal: 10, External: 21, Timestamp: 2})
	assert.Equal(t, 2, reported)
}

func TestIDSinkStampsIdentifiers(t *testing.T) {
	t.Parallel()

	var seen report.Event
	next := report.SinkFunc(func(ev report.Event) { seen = ev })
	sink := report.IDSink{Next: next}

	sink.Report(report.Event{Internal: 1, External: 2, Timestamp: 3})

	assert.NotEmpty(t, seen.ID)
	assert.NotEmpty(t, seen.Token)
}
