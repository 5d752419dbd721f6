package test

import (
	"testing"

	"github.com/matheuscscp/world-net/layers/network"
	pkgnet "github.com/matheuscscp/world-net/pkg/net"

	"github.com/stretchr/testify/require"
)

// ScenarioConfig is the two-LAN world used across the tests: networks
// a and b share the private range 192.168.1.0/24, are reachable through
// distinct public addresses and are linked to each other.
func ScenarioConfig(worldName string) network.SimulationConfig {
	return network.SimulationConfig{
		Name: worldName,
		Networks: []network.NetworkConfig{
			{
				Name:          "a",
				NetworkCIDR:   "192.168.1.0/24",
				PublicAddress: "203.0.113.5",
				Devices: []network.DeviceConfig{
					{Name: "host1", Address: "0.0.0.10"},
				},
			},
			{
				Name:          "b",
				NetworkCIDR:   "192.168.1.0/24",
				PublicAddress: "203.0.113.9",
				Devices: []network.DeviceConfig{
					{Name: "host2", Address: "192.168.1.20"},
				},
			},
		},
		Links: []network.LinkConfig{
			{From: "a", To: "b"},
		},
	}
}

func MustNewSimulation(t *testing.T, conf network.SimulationConfig) *network.NetworkSimulation {
	sim, err := network.NewSimulation(conf)
	require.NoError(t, err)
	require.NotNil(t, sim)
	return sim
}

func MustParseAddress(t *testing.T, s string) pkgnet.Address {
	a, err := pkgnet.ParseAddress(s)
	require.NoError(t, err)
	return a
}

func MustParseCIDR(t *testing.T, s string) (subnet, mask pkgnet.Address) {
	subnet, mask, err := pkgnet.ParseNetworkCIDR(s)
	require.NoError(t, err)
	return subnet, mask
}

func MustDevice(t *testing.T, sim *network.NetworkSimulation, name string) network.DeviceNode {
	d, ok := sim.DeviceByName(name)
	require.True(t, ok, "device %s not found", name)
	return d
}

func MustNetwork(t *testing.T, sim *network.NetworkSimulation, name string) network.Network {
	n, ok := sim.NetworkByName(name)
	require.True(t, ok, "network %s not found", name)
	return n
}

func MustInterface(t *testing.T, sim *network.NetworkSimulation, deviceName string) *network.NetworkInterface {
	intf, err := sim.Interface(MustDevice(t, sim, deviceName).ID)
	require.NoError(t, err)
	return intf
}

// MustAddNetwork adds a network by cidr and public address (may be empty).
func MustAddNetwork(t *testing.T, sim *network.NetworkSimulation, name, cidr, public string) network.NetworkID {
	subnet, mask := MustParseCIDR(t, cidr)
	n := network.Network{
		Name:          name,
		SubnetAddress: subnet,
		SubnetMask:    mask,
	}
	if public != "" {
		n.PublicAddress = MustParseAddress(t, public)
	}
	id, err := sim.AddNetwork(n)
	require.NoError(t, err)
	return id
}

func MustAddDevice(t *testing.T, sim *network.NetworkSimulation, networkID network.NetworkID, name, address string) network.DeviceID {
	id, err := sim.AddDevice(network.DeviceNode{
		Name:    name,
		Address: MustParseAddress(t, address),
		Network: networkID,
	})
	require.NoError(t, err)
	return id
}

// AllHops computes the hop count from every device to every device.
func AllHops(t *testing.T, sim *network.NetworkSimulation) map[[2]network.DeviceID]int {
	hops := make(map[[2]network.DeviceID]int)
	devices := sim.Devices()
	for _, a := range devices {
		for _, b := range devices {
			h, err := sim.CalculateHops(a.ID, network.DeviceEndpoint(b.ID))
			require.NoError(t, err)
			hops[[2]network.DeviceID{a.ID, b.ID}] = h
		}
	}
	return hops
}
