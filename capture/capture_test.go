package capture

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIPv4Packet(t *testing.T, src, dst net.IP) gopacket.Packet {
	t.Helper()
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    src,
		DstIP:    dst,
	}
	udp := &layers.UDP{SrcPort: 1234, DstPort: 53}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ip, udp))

	return gopacket.NewPacket(buf.Bytes(), layers.LayerTypeIPv4, gopacket.Default)
}

func TestPcapToPacketExtractsEndpoints(t *testing.T) {
	t.Parallel()

	raw := buildIPv4Packet(t, net.IPv4(10, 0, 0, 5), net.IPv4(8, 8, 8, 8))
	pkt, ok := pcapToPacket(raw)
	require.True(t, ok)

	assert.EqualValues(t, 0x0A000005, pkt.Src)
	assert.EqualValues(t, 0x08080808, pkt.Dst)
}

func TestPcapToPacketRejectsNonIPv4(t *testing.T) {
	t.Parallel()

	raw := gopacket.NewPacket([]byte{0x00, 0x01, 0x02}, layers.LayerTypeEthernet, gopacket.Default)
	_, ok := pcapToPacket(raw)
	assert.False(t, ok)
}
