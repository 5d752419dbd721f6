package network

import (
	pkgnet "github.com/matheuscscp/world-net/pkg/net"

	"github.com/sirupsen/logrus"
)

type (
	// NetworkInterface is the network card of one device: the contract
	// gameplay code uses to resolve addresses into WebNodes and to ask
	// for hop distances.
	//
	// The interface stores nothing but the simulation and the device
	// key. Every accessor reads the current topology, so a device moved
	// to another network is reflected immediately.
	NetworkInterface struct {
		sim    *NetworkSimulation
		device DeviceID
		l      logrus.FieldLogger
	}
)

// NewNetworkInterface creates the interface of a registered device.
// The simulation must outlive the interface.
func NewNetworkInterface(sim *NetworkSimulation, device DeviceID) (*NetworkInterface, error) {
	sim.mu.RLock()
	_, _, err := sim.attachment(device)
	sim.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return &NetworkInterface{
		sim:    sim,
		device: device,
		l: sim.l.
			WithField("device_id", device),
	}, nil
}

// Interface is a shorthand for NewNetworkInterface(s, device).
func (s *NetworkSimulation) Interface(device DeviceID) (*NetworkInterface, error) {
	return NewNetworkInterface(s, device)
}

func (i *NetworkInterface) Device() DeviceID {
	return i.device
}

// Node returns the WebNode of the device owning the interface.
func (i *NetworkInterface) Node() WebNode {
	return DeviceEndpoint(i.device)
}

// snapshot copies the current device and network. ok is false when the
// device was removed or its network reference is dangling, in which
// case the accessors return the zero address.
func (i *NetworkInterface) snapshot() (d DeviceNode, n Network, ok bool) {
	i.sim.mu.RLock()
	defer i.sim.mu.RUnlock()

	dp, np, err := i.sim.attachment(i.device)
	if err != nil {
		return DeviceNode{}, Network{}, false
	}
	return *dp, *np, true
}

// LocalAddress is the address other devices on the same subnet use to
// reach this device: (NetworkAddress & SubnetMask) | (host & ^SubnetMask).
func (i *NetworkInterface) LocalAddress() pkgnet.Address {
	d, n, ok := i.snapshot()
	if !ok {
		return 0
	}
	return pkgnet.MergeAddress(n.SubnetAddress, d.Address, n.SubnetMask)
}

func (i *NetworkInterface) SubnetMask() pkgnet.Address {
	_, n, _ := i.snapshot()
	return n.SubnetMask
}

func (i *NetworkInterface) PublicAddress() pkgnet.Address {
	_, n, _ := i.snapshot()
	return n.PublicAddress
}

func (i *NetworkInterface) NetworkAddress() pkgnet.Address {
	_, n, _ := i.snapshot()
	return n.SubnetAddress
}

// MapAddressToNode classifies target and resolves it:
//
//  1. the loopback address maps to the device itself;
//  2. an address inside the subnet maps to the member holding it;
//  3. any other address goes through the tier-3 lookup of public
//     addresses.
//
// An unmapped address is reported with ok == false, never as an error.
// Errors only report an unknown device or corrupted world state.
func (i *NetworkInterface) MapAddressToNode(target pkgnet.Address) (node WebNode, ok bool, err error) {
	metrics := i.sim.metrics

	i.sim.mu.RLock()
	defer i.sim.mu.RUnlock()

	// the device must exist even for loopback, which is then answered
	// before any subnet arithmetic
	_, n, err := i.sim.attachment(i.device)
	if err != nil {
		tier := tierLocal
		if target == LoopbackAddress {
			tier = tierLoopback
		}
		metrics.lookup(tier, resultError)
		i.l.
			WithError(err).
			WithField("target_address", target.String()).
			Error("error mapping address to node")
		return WebNode{}, false, err
	}
	if target == LoopbackAddress {
		metrics.lookup(tierLoopback, resultFound)
		return DeviceEndpoint(i.device), true, nil
	}

	tier := tierRemote
	if pkgnet.Contains(target, n.SubnetMask, n.SubnetAddress) {
		tier = tierLocal
		node, ok = i.sim.findLocalDevice(n, target)
	} else {
		node, ok = i.sim.networkLookup(target)
	}

	result := resultNotFound
	if ok {
		result = resultFound
	}
	metrics.lookup(tier, result)
	i.l.
		WithField("target_address", target.String()).
		WithField("tier", tier).
		WithField("node", node.String()).
		Trace("address mapped")

	return node, ok, nil
}

// GetHopsCount delegates to NetworkSimulation.CalculateHops() with the
// device owning the interface as origin.
func (i *NetworkInterface) GetHopsCount(destination WebNode) (int, error) {
	return i.sim.CalculateHops(i.device, destination)
}

// Route delegates to NetworkSimulation.Route() with the device owning
// the interface as origin.
func (i *NetworkInterface) Route(destination WebNode) ([]NetworkID, error) {
	return i.sim.Route(i.device, destination)
}

// Simulation returns the world the interface belongs to.
func (i *NetworkInterface) Simulation() *NetworkSimulation {
	return i.sim
}
