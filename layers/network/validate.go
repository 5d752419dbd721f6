package network

import (
	pkgnet "github.com/matheuscscp/world-net/pkg/net"

	"github.com/hashicorp/go-multierror"
)

// Validate checks every structural invariant of the world and reports
// all the violations found. The returned error matches
// ErrInvalidTopology.
func (s *NetworkSimulation) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var err error
	fail := func(e error) {
		err = multierror.Append(err, e)
	}

	for _, id := range sortedKeys(s.isps) {
		isp := s.isps[id]
		if !pkgnet.IsPrefixMask(isp.BlockMask) {
			fail(invalidTopology("isp %s: block mask %s is not a prefix mask", isp.Name, isp.BlockMask))
		}
		if pkgnet.HostBits(isp.Block, isp.BlockMask) != 0 {
			fail(invalidTopology("isp %s: block address %s has host bits set", isp.Name, isp.Block))
		}
	}

	advertisers := make(map[pkgnet.Address]NetworkID)
	for _, id := range sortedKeys(s.networks) {
		n := s.networks[id]
		if cErr := s.checkSubnet(n, n.SubnetAddress, n.SubnetMask); cErr != nil {
			fail(cErr)
		}
		if n.PublicAddress != 0 {
			if other, ok := advertisers[n.PublicAddress]; ok {
				fail(invalidTopology("network %s: public address %s is also advertised by network %d",
					n.Name, n.PublicAddress, other))
			}
			advertisers[n.PublicAddress] = id
		}
		if cErr := s.checkPublicAddress(n); cErr != nil {
			fail(cErr)
		}
		if n.Gateway != 0 {
			if d, ok := s.devices[n.Gateway]; !ok || d.Network != id {
				fail(invalidTopology("network %s: gateway %d is not attached to the network", n.Name, n.Gateway))
			}
		}
		if _, ok := s.hosts[id]; !ok {
			fail(invalidTopology("network %s: missing host index", n.Name))
		}
	}

	holders := make(map[NetworkID]map[pkgnet.Address]DeviceID)
	for _, id := range sortedKeys(s.devices) {
		d := s.devices[id]
		n, ok := s.networks[d.Network]
		if !ok {
			fail(invalidTopologyWithCause(ErrNetworkNotFound, "device %d references network %d", id, d.Network))
			continue
		}
		if pkgnet.NetworkAddress(d.Address, n.SubnetMask) != 0 {
			fail(invalidTopology("device %d: address %s has network bits set", id, d.Address))
		}
		if reserved, ok := n.reservedHost(d.Address); ok {
			fail(invalidTopology("device %d: address %s is the %s address of network %s",
				id, n.LocalAddress(d.Address), reserved, n.Name))
		}
		if holders[n.ID] == nil {
			holders[n.ID] = make(map[pkgnet.Address]DeviceID)
		}
		if other, ok := holders[n.ID][d.Address]; ok {
			fail(invalidTopology("network %s: address %s is held by devices %d and %d",
				n.Name, n.LocalAddress(d.Address), other, id))
			continue
		}
		holders[n.ID][d.Address] = id
		if hosts, ok := s.hosts[n.ID]; ok {
			if indexed, ok := hosts.FindDevice(d.Address); !ok || indexed != id {
				fail(invalidTopology("network %s: host index is out of sync for device %d", n.Name, id))
			}
		}
	}

	for _, from := range sortedKeys(s.links) {
		for _, to := range sortedKeys(s.links[from]) {
			for _, end := range []NetworkID{from, to} {
				if _, ok := s.networks[end]; !ok {
					fail(invalidTopologyWithCause(ErrNetworkNotFound, "link %d -> %d references network %d", from, to, end))
				}
			}
		}
	}

	return err
}
