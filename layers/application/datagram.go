package application

import (
	"fmt"
	"math"

	pkgnet "github.com/matheuscscp/world-net/pkg/net"

	"github.com/google/gopacket"
	gplayers "github.com/google/gopacket/layers"
	"golang.org/x/net/icmp"
)

const (
	// Version is the version of the IP protocol
	Version = 4

	// IHL is the IPv4 header length in 32-bit words.
	IHL = HeaderLength / 4

	// HeaderLength is the IPv4 header length.
	HeaderLength = 20

	// MaxTTL is the largest TTL an IPv4 header can carry, hence the
	// longest path a captured traceroute can describe.
	MaxTTL = math.MaxUint8
)

// SerializeProbe encodes an ICMP message inside an IPv4 datagram as it
// would travel through the simulated internetwork.
func SerializeProbe(src, dst pkgnet.Address, ttl uint8, msg *icmp.Message) ([]byte, error) {
	payload, err := msg.Marshal(nil)
	if err != nil {
		return nil, fmt.Errorf("error serializing icmp message: %w", err)
	}
	datagram := &gplayers.IPv4{
		Version:  Version,
		IHL:      IHL,
		TTL:      ttl,
		Protocol: gplayers.IPProtocolICMPv4,
		SrcIP:    src.IP(),
		DstIP:    dst.IP(),
	}
	buf := gopacket.NewSerializeBuffer()
	err = gopacket.SerializeLayers(
		buf,
		gopacket.SerializeOptions{
			FixLengths:       true,
			ComputeChecksums: true,
		},
		datagram,
		gopacket.Payload(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("error serializing network layer: %w", err)
	}
	return buf.Bytes(), nil
}
