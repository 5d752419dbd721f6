package network

import (
	"fmt"

	"github.com/matheuscscp/world-net/internal/common"
	pkgnet "github.com/matheuscscp/world-net/pkg/net"

	"golang.org/x/exp/slices"
)

// FindOtherLocalDevice looks up the member of the origin's network
// holding the host bits of address. The origin itself is a valid
// answer when address happens to be its own local address. A miss
// is reported with ok == false.
func (s *NetworkSimulation) FindOtherLocalDevice(origin DeviceID, address pkgnet.Address) (node WebNode, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, n, err := s.attachment(origin)
	if err != nil {
		return WebNode{}, false, err
	}
	node, ok = s.findLocalDevice(n, address)
	return node, ok, nil
}

func (s *NetworkSimulation) findLocalDevice(n *Network, address pkgnet.Address) (WebNode, bool) {
	if !n.Contains(address) {
		return WebNode{}, false
	}
	id, ok := s.hosts[n.ID].FindDevice(pkgnet.HostBits(address, n.SubnetMask))
	if !ok {
		return WebNode{}, false
	}
	return DeviceEndpoint(id), true
}

// NetworkLookup is the tier-3 resolution: address is treated as the
// public address of some network. The network answers through its
// gateway when one is attached, else through the member with the
// lowest host address, else as a bare network endpoint.
func (s *NetworkSimulation) NetworkLookup(address pkgnet.Address) (WebNode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.networkLookup(address)
}

func (s *NetworkSimulation) networkLookup(address pkgnet.Address) (WebNode, bool) {
	id, ok := s.publicAddresses[address]
	if !ok || address == 0 {
		return WebNode{}, false
	}
	return s.representative(s.networks[id]), true
}

func (s *NetworkSimulation) representative(n *Network) WebNode {
	if n.Gateway != 0 {
		if d, ok := s.devices[n.Gateway]; ok && d.Network == n.ID {
			return DeviceEndpoint(d.ID)
		}
	}
	if _, id, ok := s.hosts[n.ID].Lowest(); ok {
		return DeviceEndpoint(id)
	}
	return NetworkEndpoint(n.ID)
}

// CalculateHops returns the hop distance from origin to destination:
// 0 for the origin itself, 1 inside the same network, otherwise the
// number of network-graph edges on the shortest path plus one for the
// final subnet hop. Unreachable is returned when no path exists or the
// destination no longer exists. An error is only returned for an
// unknown origin or corrupted world state.
func (s *NetworkSimulation) CalculateHops(origin DeviceID, destination WebNode) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hops, err := s.calculateHops(origin, destination)
	if err != nil {
		s.metrics.hops(resultError, Unreachable)
		return Unreachable, err
	}
	return hops, nil
}

func (s *NetworkSimulation) calculateHops(origin DeviceID, destination WebNode) (int, error) {
	path, self, err := s.route(origin, destination)
	if err != nil {
		return Unreachable, err
	}
	switch {
	case self:
		s.metrics.hops(hopsSelf, 0)
		return 0, nil
	case path == nil:
		s.metrics.hops(hopsUnreachable, Unreachable)
		return Unreachable, nil
	case len(path) == 1:
		s.metrics.hops(hopsLocal, 1)
		return 1, nil
	default:
		s.metrics.hops(hopsRemote, len(path))
		return len(path), nil
	}
}

// Route returns the networks traversed from the origin's network to
// the destination's network, both included. The path is the one
// CalculateHops() measures, so len(path) equals the hop count for
// distinct nodes. The path is empty when destination is the origin
// itself, and nil when unreachable.
func (s *NetworkSimulation) Route(origin DeviceID, destination WebNode) ([]NetworkID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path, self, err := s.route(origin, destination)
	if err != nil {
		return nil, err
	}
	if self {
		return []NetworkID{}, nil
	}
	return path, nil
}

func (s *NetworkSimulation) route(origin DeviceID, destination WebNode) (path []NetworkID, self bool, err error) {
	originDevice, originNetwork, err := s.attachment(origin)
	if err != nil {
		return nil, false, err
	}
	if destination.Kind == WebNodeDevice && destination.Device == originDevice.ID {
		return nil, true, nil
	}
	dst, ok, err := s.destinationNetwork(destination)
	if err != nil || !ok {
		return nil, false, err
	}
	return s.shortestPath(originNetwork.ID, dst), false, nil
}

// attachment resolves a device and the network it belongs to.
func (s *NetworkSimulation) attachment(id DeviceID) (*DeviceNode, *Network, error) {
	d, ok := s.devices[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", ErrDeviceNotFound, id)
	}
	n, ok := s.networks[d.Network]
	if !ok {
		return nil, nil, invalidTopologyWithCause(ErrNetworkNotFound,
			"device %d references network %d", d.ID, d.Network)
	}
	return d, n, nil
}

func (s *NetworkSimulation) destinationNetwork(destination WebNode) (NetworkID, bool, error) {
	switch destination.Kind {
	case WebNodeDevice:
		d, ok := s.devices[destination.Device]
		if !ok {
			return 0, false, nil
		}
		if _, ok := s.networks[d.Network]; !ok {
			return 0, false, invalidTopologyWithCause(ErrNetworkNotFound,
				"device %d references network %d", d.ID, d.Network)
		}
		return d.Network, true, nil
	case WebNodeNetwork:
		_, ok := s.networks[destination.Network]
		return destination.Network, ok, nil
	default:
		return 0, false, fmt.Errorf("unknown web node kind %s", destination.Kind)
	}
}

// neighbors returns the networks directly reachable from id in
// ascending order: the targets of its up links plus every other
// network served by the same ISP.
func (s *NetworkSimulation) neighbors(id NetworkID) []NetworkID {
	var neighbors []NetworkID
	for to, link := range s.links[id] {
		if link.Status == common.OperStatusUp {
			neighbors = append(neighbors, to)
		}
	}
	if isp := s.networks[id].ISP; isp != 0 {
		for other, n := range s.networks {
			if other != id && n.ISP == isp {
				neighbors = append(neighbors, other)
			}
		}
	}
	slices.Sort(neighbors)
	return slices.Compact(neighbors)
}

// shortestPath is a breadth-first search over the network graph.
// Neighbors are expanded in ascending ID order and the first
// discovery of a network fixes its parent, so among several shortest
// paths the result never depends on map iteration order.
func (s *NetworkSimulation) shortestPath(from, to NetworkID) []NetworkID {
	if from == to {
		return []NetworkID{from}
	}

	parent := map[NetworkID]NetworkID{from: from}
	queue := []NetworkID{from}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, v := range s.neighbors(u) {
			if _, seen := parent[v]; seen {
				continue
			}
			parent[v] = u
			if v == to {
				return buildPath(parent, from, to)
			}
			queue = append(queue, v)
		}
	}

	return nil
}

func buildPath(parent map[NetworkID]NetworkID, from, to NetworkID) []NetworkID {
	var path []NetworkID
	for v := to; v != from; v = parent[v] {
		path = append(path, v)
	}
	path = append(path, from)
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
