package pkgnet

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"net"

	"github.com/google/gopacket"
	gplayers "github.com/google/gopacket/layers"
)

type (
	// Address is a simulated 32-bit network address. Depending on
	// context it is a full address, a subnet mask, a network address
	// or the host bits of a device inside its network.
	Address uint32
)

const (
	// LoopbackAddress is 127.0.0.1. It never denotes a real node.
	LoopbackAddress Address = 0x7f000001
)

// ParseAddress parses a dotted-quad IPv4 address.
func ParseAddress(s string) (Address, error) {
	ip := net.ParseIP(s)
	if ip == nil { // net.ParseIP() does not return an error
		return 0, fmt.Errorf("invalid ip address '%s'", s)
	}
	return AddressFromIP(ip)
}

// AddressFromIP converts an IPv4 (or IPv4-mapped IPv6) address.
func AddressFromIP(ip net.IP) (Address, error) {
	ipv4 := ip.To4()
	if ipv4 == nil {
		return 0, fmt.Errorf("not an ipv4 address: %s", ip)
	}
	return Address(binary.BigEndian.Uint32(ipv4)), nil
}

// IP returns the address as a 4-byte net.IP.
func (a Address) IP() net.IP {
	ip := make(net.IP, net.IPv4len)
	binary.BigEndian.PutUint32(ip, uint32(a))
	return ip
}

// Endpoint returns the gopacket endpoint for the address, suitable
// as a map key or for comparison against decoded datagrams.
func (a Address) Endpoint() gopacket.Endpoint {
	return gplayers.NewIPEndpoint(a.IP())
}

func (a Address) String() string {
	return a.IP().String()
}

// IsLoopback tells whether a is the reserved loopback address.
func (a Address) IsLoopback() bool {
	return a == LoopbackAddress
}

// Contains is the subnet containment test: (candidate & mask) == network.
func Contains(candidate, mask, network Address) bool {
	return candidate&mask == network
}

// NetworkAddress clears the host bits of a.
func NetworkAddress(a, mask Address) Address {
	return a & mask
}

// HostBits clears the network bits of a.
func HostBits(a, mask Address) Address {
	return a &^ mask
}

// MergeAddress combines the network prefix with the host bits of host.
func MergeAddress(network, host, mask Address) Address {
	return (network & mask) | (host &^ mask)
}

// BroadcastAddress returns the broadcast address for the given
// network, which is obtained by bitwise OR'ing the network address
// with the negated mask.
//
// Example: 1.1.1.0/24 => 1.1.1.255
func BroadcastAddress(network, mask Address) Address {
	return network | ^mask
}

// IsPrefixMask tells whether the one bits of mask are contiguous from
// the most significant bit (no gaps). The zero mask is a valid /0.
func IsPrefixMask(mask Address) bool {
	inv := ^mask
	return inv&(inv+1) == 0
}

// PrefixLength returns the number of leading one bits of a prefix mask.
func PrefixLength(mask Address) int {
	return bits.LeadingZeros32(^uint32(mask))
}

// MaskFromPrefixLength returns the mask with the n high-order bits set.
func MaskFromPrefixLength(n int) Address {
	if n <= 0 {
		return 0
	}
	if n >= 32 {
		return ^Address(0)
	}
	return ^Address(0) << (32 - n)
}

// IPNet converts a network address and mask into a *net.IPNet.
func IPNet(network, mask Address) *net.IPNet {
	return &net.IPNet{
		IP:   network.IP(),
		Mask: net.IPMask(mask.IP()),
	}
}
