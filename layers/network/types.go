package network

import (
	"github.com/matheuscscp/world-net/internal/common"
	pkgnet "github.com/matheuscscp/world-net/pkg/net"
)

type (
	NetworkID uint32
	DeviceID  uint32
	ISPID     uint32

	// ISP is an internet service provider owning a block of public
	// addresses. Networks served by the same ISP reach each other
	// directly.
	ISP struct {
		ID        ISPID
		Name      string
		Block     pkgnet.Address
		BlockMask pkgnet.Address
	}

	// Network is one subnet/LAN. It owns the lifetime of its members
	// while they are attached.
	Network struct {
		ID            NetworkID
		Name          string
		SubnetAddress pkgnet.Address
		SubnetMask    pkgnet.Address
		// PublicAddress is the single address by which the network is
		// addressable from outside itself. Zero means not advertised.
		PublicAddress pkgnet.Address
		// ISP is zero when the network is not served by an ISP.
		ISP ISPID
		// Gateway is the device answering for PublicAddress. Zero
		// means the member with the lowest host address answers.
		Gateway DeviceID
	}

	// DeviceNode is one simulated host. Address holds host bits only,
	// Network is a registry key, not an owning reference.
	DeviceNode struct {
		ID      DeviceID
		Name    string
		Address pkgnet.Address
		Network NetworkID
	}

	// Link is a directed routing relationship between two networks.
	Link struct {
		From   NetworkID
		To     NetworkID
		Status common.OperStatus
	}
)

func (i *ISP) Contains(address pkgnet.Address) bool {
	return pkgnet.Contains(address, i.BlockMask, i.Block)
}

func (i *ISP) CIDR() string {
	return pkgnet.FormatNetworkCIDR(i.Block, i.BlockMask)
}

func (n *Network) Contains(address pkgnet.Address) bool {
	return pkgnet.Contains(address, n.SubnetMask, n.SubnetAddress)
}

// LocalAddress merges the network prefix with the given host bits.
func (n *Network) LocalAddress(host pkgnet.Address) pkgnet.Address {
	return pkgnet.MergeAddress(n.SubnetAddress, host, n.SubnetMask)
}

func (n *Network) BroadcastAddress() pkgnet.Address {
	return pkgnet.BroadcastAddress(n.SubnetAddress, n.SubnetMask)
}

// reservedHost tells whether host is the network or the broadcast
// address of the subnet. Point-to-point (/31) and single host (/32)
// subnets reserve nothing.
func (n *Network) reservedHost(host pkgnet.Address) (string, bool) {
	if pkgnet.PrefixLength(n.SubnetMask) > 30 {
		return "", false
	}
	switch n.LocalAddress(host) {
	case n.SubnetAddress:
		return "network", true
	case n.BroadcastAddress():
		return "broadcast", true
	}
	return "", false
}

func (n *Network) CIDR() string {
	return pkgnet.FormatNetworkCIDR(n.SubnetAddress, n.SubnetMask)
}
