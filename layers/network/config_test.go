package network_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matheuscscp/world-net/config"
	"github.com/matheuscscp/world-net/internal/common"
	"github.com/matheuscscp/world-net/layers/network"
	"github.com/matheuscscp/world-net/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const topologyYAML = `name: yaml-world
isps:
- name: acme
  blockCIDR: 198.51.100.0/24
networks:
- name: home
  networkCIDR: 192.168.0.0/24
  publicAddress: 198.51.100.10
  isp: acme
  gateway: 192.168.0.1
  devices:
  - name: router
    address: 0.0.0.1
  - name: laptop
    address: 192.168.0.42
- name: office
  networkCIDR: 10.0.0.0/8
  publicAddress: 198.51.100.20
  isp: acme
  devices:
  - name: desktop
    address: 10.1.2.3
- name: lab
  networkCIDR: 172.16.0.0/16
  devices:
  - name: bench
    address: 0.0.0.9
links:
- from: office
  to: lab
  oneWay: true
- from: lab
  to: home
  status: down
`

func TestNewSimulationFromConfigFile(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "topology.yml")
	require.NoError(t, os.WriteFile(file, []byte(topologyYAML), 0644))

	sim, err := network.NewSimulationFromConfigFile(file)
	require.NoError(t, err)
	assert.Equal(t, "yaml-world", sim.Name())

	home := test.MustNetwork(t, sim, "home")
	router := test.MustDevice(t, sim, "router")
	laptop := test.MustDevice(t, sim, "laptop")
	desktop := test.MustDevice(t, sim, "desktop")
	bench := test.MustDevice(t, sim, "bench")
	assert.Equal(t, router.ID, home.Gateway)
	assert.Equal(t, test.MustParseAddress(t, "0.0.0.42"), laptop.Address)
	assert.Equal(t, test.MustParseAddress(t, "0.1.2.3"), desktop.Address)

	links := sim.Links()
	require.Len(t, links, 3)
	assert.Equal(t, common.OperStatusDown, links[2].Status)

	for name, tt := range map[string]*struct {
		from, to network.DeviceID
		hops     int
	}{
		"same-isp":     {from: laptop.ID, to: desktop.ID, hops: 2},
		"one-way-link": {from: desktop.ID, to: bench.ID, hops: 2},
		"one-way-back": {from: bench.ID, to: desktop.ID, hops: network.Unreachable},
		"link-down":    {from: bench.ID, to: laptop.ID, hops: network.Unreachable},
		"through-isp":  {from: home.Gateway, to: bench.ID, hops: 3},
		"same-network": {from: laptop.ID, to: router.ID, hops: 1},
		"self":         {from: bench.ID, to: bench.ID, hops: 0},
	} {
		t.Run(name, func(t *testing.T) {
			tt := tt // copy for running in parallel
			t.Parallel()

			hops, err := sim.CalculateHops(tt.from, network.DeviceEndpoint(tt.to))
			require.NoError(t, err)
			assert.Equal(t, tt.hops, hops)
		})
	}
}

func TestNewSimulationFromConfigFileMissing(t *testing.T) {
	t.Parallel()

	_, err := network.NewSimulationFromConfigFile(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestNewSimulationInvalid(t *testing.T) {
	t.Parallel()

	for name, tt := range map[string]*struct {
		mutate func(conf *network.SimulationConfig)
	}{
		"bad-cidr": {
			mutate: func(conf *network.SimulationConfig) {
				conf.Networks[0].NetworkCIDR = "192.168.1.0/33"
			},
		},
		"duplicate-network-name": {
			mutate: func(conf *network.SimulationConfig) {
				conf.Networks[1].Name = "a"
			},
		},
		"duplicate-public-address": {
			mutate: func(conf *network.SimulationConfig) {
				conf.Networks[1].PublicAddress = "203.0.113.5"
			},
		},
		"bad-public-address": {
			mutate: func(conf *network.SimulationConfig) {
				conf.Networks[0].PublicAddress = "not-an-address"
			},
		},
		"device-outside-subnet": {
			mutate: func(conf *network.SimulationConfig) {
				conf.Networks[0].Devices[0].Address = "10.0.0.1"
			},
		},
		"duplicate-device-address": {
			mutate: func(conf *network.SimulationConfig) {
				conf.Networks[0].Devices = append(conf.Networks[0].Devices,
					network.DeviceConfig{Name: "twin", Address: "192.168.1.10"})
			},
		},
		"unknown-isp": {
			mutate: func(conf *network.SimulationConfig) {
				conf.Networks[0].ISP = "acme"
			},
		},
		"public-address-outside-isp": {
			mutate: func(conf *network.SimulationConfig) {
				conf.ISPs = []network.ISPConfig{{Name: "acme", BlockCIDR: "198.51.100.0/24"}}
				conf.Networks[0].ISP = "acme"
			},
		},
		"gateway-not-a-member": {
			mutate: func(conf *network.SimulationConfig) {
				conf.Networks[0].Gateway = "192.168.1.11"
			},
		},
		"gateway-outside-subnet": {
			mutate: func(conf *network.SimulationConfig) {
				conf.Networks[0].Gateway = "10.0.0.10"
			},
		},
		"unknown-link-end": {
			mutate: func(conf *network.SimulationConfig) {
				conf.Links[0].To = "c"
			},
		},
		"self-link": {
			mutate: func(conf *network.SimulationConfig) {
				conf.Links[0].To = "a"
			},
		},
		"duplicate-network-id": {
			mutate: func(conf *network.SimulationConfig) {
				conf.Networks[0].ID = 7
				conf.Networks[1].ID = 7
			},
		},
		"duplicate-device-id": {
			mutate: func(conf *network.SimulationConfig) {
				conf.Networks[0].Devices[0].ID = 3
				conf.Networks[1].Devices[0].ID = 3
			},
		},
		"duplicate-isp-id": {
			mutate: func(conf *network.SimulationConfig) {
				conf.ISPs = []network.ISPConfig{
					{ID: 2, Name: "acme", BlockCIDR: "198.51.100.0/24"},
					{ID: 2, Name: "globex", BlockCIDR: "192.0.2.0/24"},
				}
			},
		},
		"device-at-network-address": {
			mutate: func(conf *network.SimulationConfig) {
				conf.Networks[0].Devices[0].Address = "192.168.1.0"
			},
		},
		"device-at-broadcast-address": {
			mutate: func(conf *network.SimulationConfig) {
				conf.Networks[0].Devices[0].Address = "0.0.0.255"
			},
		},
	} {
		t.Run(name, func(t *testing.T) {
			tt := tt // copy for running in parallel
			t.Parallel()

			conf := test.ScenarioConfig(t.Name())
			tt.mutate(&conf)
			sim, err := network.NewSimulation(conf)
			assert.True(t, network.IsInvalidTopology(err), "unexpected error: %v", err)
			assert.Nil(t, sim)
		})
	}
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "topology.yml")
	require.NoError(t, os.WriteFile(file, []byte(topologyYAML), 0644))
	sim, err := network.NewSimulationFromConfigFile(file)
	require.NoError(t, err)

	// mutate before snapshotting so ids are not contiguous
	lab := test.MustNetwork(t, sim, "lab")
	require.NoError(t, sim.RemoveDevice(test.MustDevice(t, sim, "bench").ID))
	extra := test.MustAddDevice(t, sim, lab.ID, "scope", "172.16.3.3")
	require.NoError(t, sim.SetGateway(lab.ID, extra))

	snapshot := filepath.Join(t.TempDir(), "snapshot.yml")
	require.NoError(t, config.MarshalYAMLAndWriteFile(snapshot, sim.Snapshot()))
	restored, err := network.NewSimulationFromConfigFile(snapshot)
	require.NoError(t, err)

	assert.Equal(t, sim.Snapshot(), restored.Snapshot())
	assert.Equal(t, sim.ISPs(), restored.ISPs())
	assert.Equal(t, sim.Networks(), restored.Networks())
	assert.Equal(t, sim.Devices(), restored.Devices())
	assert.Equal(t, sim.Links(), restored.Links())
	assert.Equal(t, test.AllHops(t, sim), test.AllHops(t, restored))
}
