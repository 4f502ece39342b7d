//go:build !linux

package tunneldetect

import (
	"fmt"

	"github.com/safing/vpnwatch/capture"
)

func openLiveSource(uint16) (capture.Source, error) {
	return nil, fmt.Errorf("tunneldetect: live NFQUEUE interception is only supported on linux; use a replay file instead")
}
