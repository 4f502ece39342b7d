//go:build linux

package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/florianl/go-nfqueue"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/jackc/puddle/v2"

	"github.com/safing/portbase/log"
	"github.com/safing/vpnwatch/addrclass"
)

// NFQueueSource intercepts forwarded IPv4 traffic via NFQUEUE. It is a
// passive tap, not a firewall: every packet it sees is immediately
// given an Accept verdict — this system never drops, delays, or
// mangles traffic, only observes it.
type NFQueueSource struct {
	rule *IptablesRule
	nf   *nfqueue.Nfqueue
	out  chan Packet
	bufs *puddle.Pool[*[]byte]
	stop context.CancelFunc
}

const nfqueueBufferSize = 1 << 16

// OpenNFQueue installs the iptables diversion rule and starts reading
// from the given NFQUEUE queue number.
func OpenNFQueue(queueID uint16) (*NFQueueSource, error) {
	rule, err := NewIptablesRule(queueID)
	if err != nil {
		return nil, err
	}
	if err := rule.Install(); err != nil {
		return nil, err
	}

	cfg := nfqueue.Config{
		NfQueue:      queueID,
		MaxPacketLen: 0xFFFF,
		MaxQueueLen:  0xFF,
		Copymode:     nfqueue.NfQnlCopyPacket,
		WriteTimeout: 15 * time.Millisecond,
	}
	nf, err := nfqueue.Open(&cfg)
	if err != nil {
		_ = rule.Remove()
		return nil, fmt.Errorf("capture: open nfqueue %d: %w", queueID, err)
	}

	bufs, err := puddle.NewPool(&puddle.Config[*[]byte]{
		Constructor: func(context.Context) (*[]byte, error) {
			b := make([]byte, nfqueueBufferSize)
			return &b, nil
		},
		Destructor: func(*[]byte) {},
		MaxSize:    64,
	})
	if err != nil {
		_ = nf.Close()
		_ = rule.Remove()
		return nil, fmt.Errorf("capture: build buffer pool: %w", err)
	}

	src := &NFQueueSource{
		rule: rule,
		nf:   nf,
		out:  make(chan Packet, 1024),
		bufs: bufs,
	}

	ctx, cancel := context.WithCancel(context.Background())
	src.stop = cancel

	handler := func(a nfqueue.Attribute) int {
		id := *a.PacketID
		if a.Payload != nil {
			if pkt, ok := src.decodeIPv4(ctx, *a.Payload); ok {
				select {
				case src.out <- pkt:
				default:
					log.Warningf("capture: nfqueue consumer is falling behind, dropping a decoded packet")
				}
			}
		}
		_ = nf.SetVerdict(id, nfqueue.NfAccept)
		return 0
	}
	errFn := func(e error) int {
		log.Warningf("capture: nfqueue error: %s", e)
		return 0
	}
	if err := nf.RegisterWithErrorFunc(ctx, handler, errFn); err != nil {
		cancel()
		_ = nf.Close()
		_ = rule.Remove()
		return nil, fmt.Errorf("capture: register nfqueue callback: %w", err)
	}

	return src, nil
}

// decodeIPv4 borrows a scratch buffer from the pool instead of letting
// the IPv4 decode retain a reference into go-nfqueue's own payload
// slice, which avoids an allocation per packet on the capture hot path.
func (s *NFQueueSource) decodeIPv4(ctx context.Context, payload []byte) (Packet, bool) {
	res, err := s.bufs.Acquire(ctx)
	if err != nil {
		return Packet{}, false
	}
	defer res.Release()

	buf := *res.Value()
	if cap(buf) < len(payload) {
		buf = make([]byte, len(payload))
	}
	buf = buf[:len(payload)]
	copy(buf, payload)
	*res.Value() = buf

	pkt := gopacket.NewPacket(buf, layers.LayerTypeIPv4, gopacket.DecodeOptions{
		Lazy:   true,
		NoCopy: true,
	})
	ipLayer := pkt.Layer(layers.LayerTypeIPv4)
	if ipLayer == nil {
		return Packet{}, false
	}
	ip, ok := ipLayer.(*layers.IPv4)
	if !ok || len(ip.SrcIP) != 4 || len(ip.DstIP) != 4 {
		return Packet{}, false
	}
	return Packet{
		Src: addrclass.Address(uint32(ip.SrcIP[0])<<24 | uint32(ip.SrcIP[1])<<16 | uint32(ip.SrcIP[2])<<8 | uint32(ip.SrcIP[3])),
		Dst: addrclass.Address(uint32(ip.DstIP[0])<<24 | uint32(ip.DstIP[1])<<16 | uint32(ip.DstIP[2])<<8 | uint32(ip.DstIP[3])),
		TS:  addrclass.Timestamp(time.Now().Unix()),
	}, true
}

// Packets implements Source.
func (s *NFQueueSource) Packets() <-chan Packet { return s.out }

// Close stops reading, tears down the iptables rule, and releases the
// buffer pool.
func (s *NFQueueSource) Close() error {
	s.stop()
	s.bufs.Close()
	err := s.nf.Close()
	if rerr := s.rule.Remove(); rerr != nil && err == nil {
		err = rerr
	}
	close(s.out)
	return err
}
