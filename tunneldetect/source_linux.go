//go:build linux

package tunneldetect

import "github.com/safing/vpnwatch/capture"

func openLiveSource(queueID uint16) (capture.Source, error) {
	return capture.OpenNFQueue(queueID)
}
