package hosttrack_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/vpnwatch/hosttrack"
)

func TestIdleEvictorSweepRemovesExpiredHost(t *testing.T) {
	t.Parallel()
	tr := hosttrack.New(hosttrack.DefaultConfig(), nil)
	ev := hosttrack.WithIdleEviction(tr, 20*time.Millisecond)

	ev.Observe(1, 2, 0)
	_, ok := tr.Lookup(1)
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	ev.Sweep()

	_, ok = tr.Lookup(1)
	assert.False(t, ok, "expected idle host to be evicted after Sweep")
}

func TestIdleEvictorZeroHorizonDisablesEviction(t *testing.T) {
	t.Parallel()
	tr := hosttrack.New(hosttrack.DefaultConfig(), nil)
	ev := hosttrack.WithIdleEviction(tr, 0)

	ev.Observe(1, 2, 0)
	ev.Sweep()

	_, ok := tr.Lookup(1)
	assert.True(t, ok, "zero horizon must not evict")
}
