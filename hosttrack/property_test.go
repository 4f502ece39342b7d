package hosttrack_test

import (
	"net"
	"sort"
	"testing"

	"github.com/brianvoe/gofakeit"
	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"

	"github.com/safing/vpnwatch/hosttrack"
)

func ipToAddress(t *testing.T, ip string) hosttrack.Address {
	t.Helper()
	v4 := net.ParseIP(ip).To4()
	if v4 == nil {
		t.Fatalf("not an IPv4 address: %q", ip)
	}
	return hosttrack.Address(uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3]))
}

// Randomized inserts must still come back in ascending address order,
// regardless of insertion order or how many distinct hosts collide
// into the same bucket of peers.
func TestOrderIsAscendingUnderRandomizedInserts(t *testing.T) {
	t.Parallel()
	gofakeit.Seed(1)

	tr := hosttrack.New(hosttrack.DefaultConfig(), nil)
	seen := map[hosttrack.Address]bool{}
	for i := 0; i < 200; i++ {
		internal := ipToAddress(t, gofakeit.IPv4Address())
		peer := ipToAddress(t, gofakeit.IPv4Address())
		tr.Observe(internal, peer, hosttrack.Timestamp(i))
		seen[internal] = true
	}

	snap := tr.Snapshot()
	if !assert.Equal(t, len(seen), len(snap)) {
		t.Error(spew.Sdump(snap))
	}
	assert.True(t, sort.SliceIsSorted(snap, func(i, j int) bool {
		return snap[i].Address < snap[j].Address
	}), "host table must stay in ascending address order:\n%s", spew.Sdump(snap))
}

// Against a randomized, monotonically increasing timestamp stream to
// a single fixed peer, CountCurrent must either grow by exactly one
// packet or reset to 1 at a window rollover — it may never jump,
// skip, or grow by more than one packet at a time.
func TestMonotonicCounterUnderRandomizedStream(t *testing.T) {
	t.Parallel()
	gofakeit.Seed(2)

	cfg := hosttrack.DefaultConfig()
	tr := hosttrack.New(cfg, nil)
	internal := ipToAddress(t, "10.0.0.1")
	peer := ipToAddress(t, "8.8.8.8")

	ts := hosttrack.Timestamp(0)
	var prevCount uint64
	for i := 0; i < 500; i++ {
		ts += hosttrack.Timestamp(gofakeit.Number(0, 5))
		tr.Observe(internal, peer, ts)

		entry, ok := tr.Lookup(internal)
		if !assert.True(t, ok) {
			t.Fatal(spew.Sdump(entry))
		}

		current := entry.Conn.CountCurrent
		if current != prevCount+1 && current != 1 {
			t.Fatalf("iteration %d: count_current went from %d to %d, neither +1 nor a rollover reset:\n%s",
				i, prevCount, current, spew.Sdump(entry))
		}
		prevCount = current
	}
}
