package addrclass_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/safing/vpnwatch/addrclass"
)

func TestIsPrivate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		addr addrclass.Address
		want bool
	}{
		{"10.1.2.3", 0x0A010203, true},
		{"8.8.8.8", 0x08080808, false},
		{"broadcast", 0xFFFFFFFF, true},
		{"just below 172.16/12", 0xAC0FFFFF, false},
		{"172.16.0.0", 0xAC100000, true},
		{"169.254 link-local", 0xA9FE0001, true},
		{"192.168 private", 0xC0A80101, true},
		{"224.0.0.1 multicast", 0xE0000001, true},
		{"unspecified", 0x00000000, true},
		{"loopback", 0x7F000001, true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, addrclass.IsPrivate(tc.addr))
		})
	}
}

// TestIsPrivateTotal checks that IsPrivate is defined (never panics) across
// a sparse sweep of the 32-bit address space, and that the match set is
// exactly the union of Table's ranges.
func TestIsPrivateTotal(t *testing.T) {
	t.Parallel()

	for i := 0; i < 200; i++ {
		addr := addrclass.Address(uint32(i) * (math.MaxUint32 / 200))
		want := false
		for _, r := range addrclass.Table {
			if addr&r.Mask == r.Network {
				want = true
				break
			}
		}
		assert.Equal(t, want, addrclass.IsPrivate(addr))
	}
}
