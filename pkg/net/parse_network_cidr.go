package pkgnet

import (
	"fmt"
	"net"

	gplayers "github.com/google/gopacket/layers"
)

// ParseNetworkCIDR uses net.ParseCIDR() but returns an error if
// the parsed IP address is not equal the network IP address, i.e.
// "192.168.1.10/24" is rejected while "192.168.1.0/24" is accepted.
func ParseNetworkCIDR(s string) (network, mask Address, err error) {
	ip, ipNet, err := net.ParseCIDR(s)
	if err != nil {
		return 0, 0, err
	}
	if gplayers.NewIPEndpoint(ip.To4()) != gplayers.NewIPEndpoint(ipNet.IP.To4()) {
		return 0, 0, fmt.Errorf("the IP address does not match the network IP address. want %s, got %s", ipNet.IP, ip)
	}
	if network, err = AddressFromIP(ipNet.IP); err != nil {
		return 0, 0, err
	}
	ones, bits := ipNet.Mask.Size()
	if bits != 32 {
		return 0, 0, fmt.Errorf("not an ipv4 network: %s", s)
	}
	return network, MaskFromPrefixLength(ones), nil
}

// FormatNetworkCIDR is the inverse of ParseNetworkCIDR.
func FormatNetworkCIDR(network, mask Address) string {
	return fmt.Sprintf("%s/%d", network, PrefixLength(mask))
}
