package network

import (
	"fmt"
	"sync"

	"github.com/matheuscscp/world-net/internal/common"
	pkgnet "github.com/matheuscscp/world-net/pkg/net"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

type (
	// NetworkSimulation is the registry of every ISP, Network and
	// DeviceNode of one simulated world, and the authority computing
	// hop distances across the internetwork graph.
	//
	// Entities live in maps keyed by identifier and refer to each
	// other by identifier only. Mutations come from the world tick;
	// all the public methods are thread-safe.
	NetworkSimulation struct {
		name    string
		l       logrus.FieldLogger
		metrics *simulationMetrics

		mu              sync.RWMutex
		isps            map[ISPID]*ISP
		ispRoutes       ForwardingTable
		networks        map[NetworkID]*Network
		devices         map[DeviceID]*DeviceNode
		hosts           map[NetworkID]*hostTable
		publicAddresses map[pkgnet.Address]NetworkID
		links           map[NetworkID]map[NetworkID]*Link
		lastISPID       ISPID
		lastNetworkID   NetworkID
		lastDeviceID    DeviceID
	}
)

// NewNetworkSimulation creates an empty world.
func NewNetworkSimulation(name string) *NetworkSimulation {
	if name == "" {
		name = DefaultWorldName
	}
	return &NetworkSimulation{
		name:            name,
		l:               logrus.WithField("world_name", name),
		metrics:         newSimulationMetrics(name),
		isps:            make(map[ISPID]*ISP),
		networks:        make(map[NetworkID]*Network),
		devices:         make(map[DeviceID]*DeviceNode),
		hosts:           make(map[NetworkID]*hostTable),
		publicAddresses: make(map[pkgnet.Address]NetworkID),
		links:           make(map[NetworkID]map[NetworkID]*Link),
	}
}

func (s *NetworkSimulation) Name() string {
	return s.name
}

// AddISP registers an ISP. A zero ID is replaced by the next free one.
func (s *NetworkSimulation) AddISP(isp ISP) (ISPID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !pkgnet.IsPrefixMask(isp.BlockMask) {
		return 0, invalidTopology("isp %s: block mask %s is not a prefix mask", isp.Name, isp.BlockMask)
	}
	if pkgnet.HostBits(isp.Block, isp.BlockMask) != 0 {
		return 0, invalidTopology("isp %s: block address %s has host bits set for mask %s", isp.Name, isp.Block, isp.BlockMask)
	}
	if s.ispRoutes.HasRoute(isp.Block, isp.BlockMask) {
		return 0, invalidTopology("isp %s: block %s is already owned by another isp", isp.Name, isp.CIDR())
	}
	if isp.ID == 0 {
		isp.ID = s.lastISPID + 1
	} else if _, ok := s.isps[isp.ID]; ok {
		return 0, invalidTopologyWithCause(ErrDuplicateID, "isp %d", isp.ID)
	}
	if err := s.ispRoutes.StoreRoute(isp.Block, isp.BlockMask, isp.ID); err != nil {
		return 0, invalidTopologyWithCause(err, "isp %s", isp.Name)
	}
	if isp.ID > s.lastISPID {
		s.lastISPID = isp.ID
	}
	s.isps[isp.ID] = &isp

	s.metrics.mutation("add_isp")
	s.l.
		WithField("isp_id", isp.ID).
		WithField("isp_block", isp.CIDR()).
		Debug("isp added")

	return isp.ID, nil
}

// RemoveISP forgets an ISP that no longer serves any network.
func (s *NetworkSimulation) RemoveISP(id ISPID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	isp, ok := s.isps[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrISPNotFound, id)
	}
	for _, nid := range sortedKeys(s.networks) {
		if n := s.networks[nid]; n.ISP == id {
			return invalidTopology("isp %s still serves network %s", isp.Name, n.Name)
		}
	}
	s.ispRoutes.DeleteRoute(isp.Block, isp.BlockMask)
	delete(s.isps, id)

	s.metrics.mutation("remove_isp")
	s.l.WithField("isp_id", id).Debug("isp removed")

	return nil
}

// AddNetwork registers an empty network. A zero ID is replaced by the
// next free one. The gateway can only be set once the device is
// attached, see SetGateway().
func (s *NetworkSimulation) AddNetwork(n Network) (NetworkID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.Name == "" {
		return 0, invalidTopology("network name cannot be empty")
	}
	if _, ok := s.networkByName(n.Name); ok {
		return 0, invalidTopology("network %s: name already in use", n.Name)
	}
	if err := s.checkSubnet(&n, n.SubnetAddress, n.SubnetMask); err != nil {
		return 0, err
	}
	if err := s.checkPublicAddress(&n); err != nil {
		return 0, err
	}
	if n.Gateway != 0 {
		return 0, invalidTopology("network %s: gateway %d is not attached to the network", n.Name, n.Gateway)
	}
	if n.ID == 0 {
		n.ID = s.lastNetworkID + 1
	} else if _, ok := s.networks[n.ID]; ok {
		return 0, invalidTopologyWithCause(ErrDuplicateID, "network %d", n.ID)
	}

	if n.ID > s.lastNetworkID {
		s.lastNetworkID = n.ID
	}
	s.networks[n.ID] = &n
	s.hosts[n.ID] = &hostTable{}
	if n.PublicAddress != 0 {
		s.publicAddresses[n.PublicAddress] = n.ID
	}

	s.metrics.mutation("add_network")
	s.l.
		WithField("network_id", n.ID).
		WithField("network_cidr", n.CIDR()).
		WithField("public_address", n.PublicAddress.String()).
		Debug("network added")

	return n.ID, nil
}

func (s *NetworkSimulation) checkSubnet(n *Network, subnet, mask pkgnet.Address) error {
	if !pkgnet.IsPrefixMask(mask) {
		return invalidTopology("network %s: subnet mask %s is not a prefix mask", n.Name, mask)
	}
	if pkgnet.HostBits(subnet, mask) != 0 {
		return invalidTopology("network %s: subnet address %s has host bits set for mask %s", n.Name, subnet, mask)
	}
	return nil
}

func (s *NetworkSimulation) checkPublicAddress(n *Network) error {
	if n.PublicAddress.IsLoopback() {
		return invalidTopology("network %s: the loopback address cannot be a public address", n.Name)
	}
	if n.PublicAddress != 0 {
		if other, ok := s.publicAddresses[n.PublicAddress]; ok && other != n.ID {
			return invalidTopology("network %s: public address %s is already advertised by network %d",
				n.Name, n.PublicAddress, other)
		}
	}
	if n.ISP == 0 {
		return nil
	}
	isp, ok := s.isps[n.ISP]
	if !ok {
		return invalidTopologyWithCause(ErrISPNotFound, "network %s: isp %d", n.Name, n.ISP)
	}
	if n.PublicAddress == 0 || !isp.Contains(n.PublicAddress) {
		return invalidTopology("network %s: public address %s is outside the block %s of isp %s",
			n.Name, n.PublicAddress, isp.CIDR(), isp.Name)
	}
	return nil
}

// RemoveNetwork removes the network together with its members and
// every link touching it.
func (s *NetworkSimulation) RemoveNetwork(id NetworkID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.networks[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNetworkNotFound, id)
	}

	for _, d := range s.devices {
		if d.Network == id {
			delete(s.devices, d.ID)
		}
	}
	delete(s.hosts, id)
	if n.PublicAddress != 0 && s.publicAddresses[n.PublicAddress] == id {
		delete(s.publicAddresses, n.PublicAddress)
	}
	delete(s.links, id)
	for _, out := range s.links {
		delete(out, id)
	}
	delete(s.networks, id)

	s.metrics.mutation("remove_network")
	s.l.WithField("network_id", id).Debug("network removed")

	return nil
}

// SetSubnet changes the subnet of an empty network.
func (s *NetworkSimulation) SetSubnet(id NetworkID, subnet, mask pkgnet.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.networks[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNetworkNotFound, id)
	}
	if s.hosts[id].Len() > 0 {
		return invalidTopology("network %s: subnet cannot change while the network has members", n.Name)
	}
	if err := s.checkSubnet(n, subnet, mask); err != nil {
		return err
	}
	n.SubnetAddress, n.SubnetMask = subnet, mask

	s.metrics.mutation("set_subnet")
	return nil
}

// SetPublicAddress changes the address advertised by the network.
// Zero stops advertising it.
func (s *NetworkSimulation) SetPublicAddress(id NetworkID, public pkgnet.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.networks[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNetworkNotFound, id)
	}
	updated := *n
	updated.PublicAddress = public
	if err := s.checkPublicAddress(&updated); err != nil {
		return err
	}
	if n.PublicAddress != 0 {
		delete(s.publicAddresses, n.PublicAddress)
	}
	if public != 0 {
		s.publicAddresses[public] = id
	}
	n.PublicAddress = public

	s.metrics.mutation("set_public_address")
	return nil
}

// SetGateway chooses the member answering for the public address of
// the network. Zero restores the lowest-host-address policy.
func (s *NetworkSimulation) SetGateway(id NetworkID, gateway DeviceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.networks[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNetworkNotFound, id)
	}
	if gateway != 0 {
		d, ok := s.devices[gateway]
		if !ok {
			return fmt.Errorf("%w: %d", ErrDeviceNotFound, gateway)
		}
		if d.Network != id {
			return invalidTopology("network %s: gateway %d is not attached to the network", n.Name, gateway)
		}
	}
	n.Gateway = gateway

	s.metrics.mutation("set_gateway")
	return nil
}

// AddDevice attaches a new device to d.Network. d.Address may hold
// either the host bits or a full address inside the subnet; only the
// host bits are stored.
func (s *NetworkSimulation) AddDevice(d DeviceNode) (DeviceID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.networks[d.Network]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrNetworkNotFound, d.Network)
	}
	host, err := s.hostBitsFor(n, d.Address, 0)
	if err != nil {
		return 0, err
	}
	if d.ID == 0 {
		d.ID = s.lastDeviceID + 1
	} else if _, ok := s.devices[d.ID]; ok {
		return 0, invalidTopologyWithCause(ErrDuplicateID, "device %d", d.ID)
	}

	if d.ID > s.lastDeviceID {
		s.lastDeviceID = d.ID
	}
	d.Address = host
	s.devices[d.ID] = &d
	s.hosts[n.ID].StoreDevice(host, d.ID)

	s.metrics.mutation("add_device")
	s.l.
		WithField("device_id", d.ID).
		WithField("network_id", n.ID).
		WithField("local_address", n.LocalAddress(host).String()).
		Debug("device added")

	return d.ID, nil
}

// hostBitsFor returns the host bits address would take in n, checking
// that no member other than self already holds them.
func (s *NetworkSimulation) hostBitsFor(n *Network, address pkgnet.Address, self DeviceID) (pkgnet.Address, error) {
	if prefix := pkgnet.NetworkAddress(address, n.SubnetMask); prefix != 0 && prefix != n.SubnetAddress {
		return 0, invalidTopology("network %s: address %s is outside the subnet %s", n.Name, address, n.CIDR())
	}
	host := pkgnet.HostBits(address, n.SubnetMask)
	if reserved, ok := n.reservedHost(host); ok {
		return 0, invalidTopology("network %s: address %s is the %s address of the subnet",
			n.Name, n.LocalAddress(host), reserved)
	}
	if other, ok := s.hosts[n.ID].FindDevice(host); ok && other != self {
		return 0, invalidTopology("network %s: address %s is already held by device %d",
			n.Name, n.LocalAddress(host), other)
	}
	return host, nil
}

// MoveDevice detaches the device from its network and attaches it to
// another one (or the same one) at the given address.
func (s *NetworkSimulation) MoveDevice(id DeviceID, network NetworkID, address pkgnet.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrDeviceNotFound, id)
	}
	n, ok := s.networks[network]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNetworkNotFound, network)
	}
	self := DeviceID(0)
	if d.Network == network {
		self = id
	}
	host, err := s.hostBitsFor(n, address, self)
	if err != nil {
		return err
	}

	// readdressing inside the network keeps the gateway
	keepGateway := d.Network == network && n.Gateway == id
	s.detach(d)
	d.Network, d.Address = network, host
	s.hosts[network].StoreDevice(host, id)
	if keepGateway {
		n.Gateway = id
	}

	s.metrics.mutation("move_device")
	s.l.
		WithField("device_id", id).
		WithField("network_id", network).
		WithField("local_address", n.LocalAddress(host).String()).
		Debug("device moved")

	return nil
}

// RemoveDevice detaches and forgets the device.
func (s *NetworkSimulation) RemoveDevice(id DeviceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrDeviceNotFound, id)
	}
	s.detach(d)
	delete(s.devices, id)

	s.metrics.mutation("remove_device")
	s.l.WithField("device_id", id).Debug("device removed")

	return nil
}

func (s *NetworkSimulation) detach(d *DeviceNode) {
	if hosts, ok := s.hosts[d.Network]; ok {
		if holder, ok := hosts.FindDevice(d.Address); ok && holder == d.ID {
			hosts.DeleteDevice(d.Address)
		}
	}
	if n, ok := s.networks[d.Network]; ok && n.Gateway == d.ID {
		n.Gateway = 0
	}
}

// Link creates a routing relationship from one network to another,
// and back when bidirectional. Existing links are brought up.
func (s *NetworkSimulation) Link(from, to NetworkID, bidirectional bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLinkEnds(from, to); err != nil {
		return err
	}
	s.storeLink(from, to)
	if bidirectional {
		s.storeLink(to, from)
	}

	s.metrics.mutation("link")
	s.l.
		WithField("from_network_id", from).
		WithField("to_network_id", to).
		WithField("bidirectional", bidirectional).
		Debug("networks linked")

	return nil
}

func (s *NetworkSimulation) checkLinkEnds(from, to NetworkID) error {
	for _, id := range []NetworkID{from, to} {
		if _, ok := s.networks[id]; !ok {
			return fmt.Errorf("%w: %d", ErrNetworkNotFound, id)
		}
	}
	if from == to {
		return invalidTopology("network %d cannot be linked to itself", from)
	}
	return nil
}

func (s *NetworkSimulation) storeLink(from, to NetworkID) {
	out, ok := s.links[from]
	if !ok {
		out = make(map[NetworkID]*Link)
		s.links[from] = out
	}
	out[to] = &Link{From: from, To: to, Status: common.OperStatusUp}
}

// Unlink removes the link from one network to another, and back when
// bidirectional. Missing links are ignored.
func (s *NetworkSimulation) Unlink(from, to NetworkID, bidirectional bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.links[from], to)
	if bidirectional {
		delete(s.links[to], from)
	}

	s.metrics.mutation("unlink")
}

// SetLinkStatus brings a directed link up or down. Down links are not
// traversed by routing.
func (s *NetworkSimulation) SetLinkStatus(from, to NetworkID, status common.OperStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[from][to]
	if !ok {
		return fmt.Errorf("%w: %d -> %d", ErrLinkNotFound, from, to)
	}
	link.Status = status

	s.metrics.mutation("set_link_status")
	s.l.
		WithField("from_network_id", from).
		WithField("to_network_id", to).
		WithField("status", status.String()).
		Debug("link status changed")

	return nil
}

func (s *NetworkSimulation) ISP(id ISPID) (ISP, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	isp, ok := s.isps[id]
	if !ok {
		return ISP{}, false
	}
	return *isp, true
}

// ISPForAddress finds the ISP owning the most specific block
// containing address.
func (s *NetworkSimulation) ISPForAddress(address pkgnet.Address) (ISP, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.ispRoutes.FindRoute(address)
	if !ok {
		return ISP{}, false
	}
	isp, ok := s.isps[id]
	if !ok {
		return ISP{}, false
	}
	return *isp, true
}

func (s *NetworkSimulation) Network(id NetworkID) (Network, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.networks[id]
	if !ok {
		return Network{}, false
	}
	return *n, true
}

func (s *NetworkSimulation) NetworkByName(name string) (Network, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.networkByName(name)
	if !ok {
		return Network{}, false
	}
	return *n, true
}

func (s *NetworkSimulation) networkByName(name string) (*Network, bool) {
	for _, id := range sortedKeys(s.networks) {
		if n := s.networks[id]; n.Name == name {
			return n, true
		}
	}
	return nil, false
}

func (s *NetworkSimulation) Device(id DeviceID) (DeviceNode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.devices[id]
	if !ok {
		return DeviceNode{}, false
	}
	return *d, true
}

// DeviceByName returns the device with the lowest ID holding name.
func (s *NetworkSimulation) DeviceByName(name string) (DeviceNode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range sortedKeys(s.devices) {
		if d := s.devices[id]; d.Name == name {
			return *d, true
		}
	}
	return DeviceNode{}, false
}

func (s *NetworkSimulation) ISPs() []ISP {
	s.mu.RLock()
	defer s.mu.RUnlock()

	isps := make([]ISP, 0, len(s.isps))
	for _, id := range sortedKeys(s.isps) {
		isps = append(isps, *s.isps[id])
	}
	return isps
}

func (s *NetworkSimulation) Networks() []Network {
	s.mu.RLock()
	defer s.mu.RUnlock()

	networks := make([]Network, 0, len(s.networks))
	for _, id := range sortedKeys(s.networks) {
		networks = append(networks, *s.networks[id])
	}
	return networks
}

func (s *NetworkSimulation) Devices() []DeviceNode {
	s.mu.RLock()
	defer s.mu.RUnlock()

	devices := make([]DeviceNode, 0, len(s.devices))
	for _, id := range sortedKeys(s.devices) {
		devices = append(devices, *s.devices[id])
	}
	return devices
}

// Members returns the devices attached to the network.
func (s *NetworkSimulation) Members(network NetworkID) []DeviceNode {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var members []DeviceNode
	for _, id := range sortedKeys(s.devices) {
		if d := s.devices[id]; d.Network == network {
			members = append(members, *d)
		}
	}
	return members
}

// Links returns every directed link ordered by (From, To).
func (s *NetworkSimulation) Links() []Link {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var links []Link
	for _, from := range sortedKeys(s.links) {
		out := s.links[from]
		for _, to := range sortedKeys(out) {
			links = append(links, *out[to])
		}
	}
	return links
}

func sortedKeys[K ~uint32, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
