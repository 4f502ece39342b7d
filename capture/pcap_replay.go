package capture

import (
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/safing/vpnwatch/addrclass"
)

// PcapReplaySource feeds decoded packets from an on-disk capture file,
// for offline analysis and for the replay subcommand of vpnwatchctl.
type PcapReplaySource struct {
	handle *pcap.Handle
	out    chan Packet
	done   chan struct{}
}

// OpenPcapReplay opens path for offline reading and starts decoding in
// the background; packets are available on Packets as soon as they are
// parsed.
func OpenPcapReplay(path string) (*PcapReplaySource, error) {
	handle, err := pcap.OpenOffline(path)
	if err != nil {
		return nil, err
	}

	src := &PcapReplaySource{
		handle: handle,
		out:    make(chan Packet, 1024),
		done:   make(chan struct{}),
	}

	go src.run()
	return src, nil
}

func (s *PcapReplaySource) run() {
	defer close(s.out)
	source := gopacket.NewPacketSource(s.handle, s.handle.LinkType())
	for {
		select {
		case <-s.done:
			return
		case raw, ok := <-source.Packets():
			if !ok {
				return
			}
			if pkt, ok := pcapToPacket(raw); ok {
				select {
				case s.out <- pkt:
				case <-s.done:
					return
				}
			}
		}
	}
}

func pcapToPacket(raw gopacket.Packet) (Packet, bool) {
	ipLayer := raw.Layer(layers.LayerTypeIPv4)
	if ipLayer == nil {
		return Packet{}, false
	}
	ip, ok := ipLayer.(*layers.IPv4)
	if !ok || len(ip.SrcIP) != 4 || len(ip.DstIP) != 4 {
		return Packet{}, false
	}

	ts := raw.Metadata().Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return Packet{
		Src: addrclass.Address(uint32(ip.SrcIP[0])<<24 | uint32(ip.SrcIP[1])<<16 | uint32(ip.SrcIP[2])<<8 | uint32(ip.SrcIP[3])),
		Dst: addrclass.Address(uint32(ip.DstIP[0])<<24 | uint32(ip.DstIP[1])<<16 | uint32(ip.DstIP[2])<<8 | uint32(ip.DstIP[3])),
		TS:  addrclass.Timestamp(ts.Unix()),
	}, true
}

// Packets implements Source.
func (s *PcapReplaySource) Packets() <-chan Packet { return s.out }

// Close stops the replay goroutine and releases the pcap handle.
func (s *PcapReplaySource) Close() error {
	close(s.done)
	s.handle.Close()
	return nil
}
