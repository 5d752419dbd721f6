package application_test

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheuscscp/world-net/layers/application"
	"github.com/matheuscscp/world-net/layers/network"
	"github.com/matheuscscp/world-net/test"

	"github.com/google/gopacket"
	gplayers "github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hopLatency = 10 * time.Millisecond

func TestPing(t *testing.T) {
	t.Parallel()

	sim := test.MustNewSimulation(t, test.ScenarioConfig(t.Name()))
	host1 := test.MustInterface(t, sim, "host1")
	host2 := test.MustDevice(t, sim, "host2")

	for name, tt := range map[string]*struct {
		target string
		node   network.WebNode
		hops   int
		err    error
	}{
		"loopback": {
			target: "127.0.0.1",
			node:   host1.Node(),
			hops:   0,
		},
		"remote": {
			target: "203.0.113.9",
			node:   network.DeviceEndpoint(host2.ID),
			hops:   2,
		},
		"no-such-host": {
			target: "8.8.8.8",
			err:    application.ErrNoSuchHost,
		},
		"local-miss": {
			target: "192.168.1.20",
			err:    application.ErrNoSuchHost,
		},
	} {
		t.Run(name, func(t *testing.T) {
			tt := tt // copy for running in parallel
			t.Parallel()

			target := test.MustParseAddress(t, tt.target)
			res, err := application.Ping(host1, target, application.ProbeConfig{HopLatency: hopLatency})
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.Nil(t, res)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, target, res.Target)
			assert.Equal(t, tt.node, res.Node)
			assert.Equal(t, tt.hops, res.Hops)
			assert.Equal(t, time.Duration(2*tt.hops)*hopLatency, res.RTT)
		})
	}
}

func TestPingUnreachable(t *testing.T) {
	t.Parallel()

	conf := test.ScenarioConfig(t.Name())
	conf.Links[0].OneWay = true
	sim := test.MustNewSimulation(t, conf)
	host2 := test.MustInterface(t, sim, "host2")

	_, err := application.Ping(host2, test.MustParseAddress(t, "203.0.113.5"), application.ProbeConfig{})
	assert.ErrorIs(t, err, application.ErrHostUnreachable)
	_, err = application.Traceroute(host2, test.MustParseAddress(t, "203.0.113.5"), application.ProbeConfig{})
	assert.ErrorIs(t, err, application.ErrHostUnreachable)
}

func TestTraceroute(t *testing.T) {
	t.Parallel()

	conf := test.ScenarioConfig(t.Name())
	conf.Networks = append(conf.Networks, network.NetworkConfig{
		Name:          "c",
		NetworkCIDR:   "10.0.0.0/8",
		PublicAddress: "198.51.100.7",
		Devices:       []network.DeviceConfig{{Name: "host3", Address: "0.0.0.1"}},
	}, network.NetworkConfig{
		Name:        "dark",
		NetworkCIDR: "172.16.0.0/12",
	})
	conf.Links = []network.LinkConfig{
		{From: "a", To: "dark"},
		{From: "dark", To: "b"},
		{From: "b", To: "c"},
	}
	sim := test.MustNewSimulation(t, conf)
	host1 := test.MustInterface(t, sim, "host1")
	target := test.MustParseAddress(t, "198.51.100.7")

	trace, err := application.Traceroute(host1, target, application.ProbeConfig{HopLatency: hopLatency})
	require.NoError(t, err)
	assert.Equal(t, network.DeviceEndpoint(test.MustDevice(t, sim, "host3").ID), trace.Node)
	require.Len(t, trace.Hops, 4)

	want := []struct {
		network string
		address string
	}{
		{network: "dark"},
		{network: "b", address: "203.0.113.9"},
		{network: "c", address: "198.51.100.7"},
		{network: "c", address: "198.51.100.7"},
	}
	for i, hop := range trace.Hops {
		assert.Equal(t, i+1, hop.TTL)
		assert.Equal(t, want[i].network, hop.NetworkName)
		if want[i].address == "" {
			assert.Zero(t, hop.Address)
			assert.Contains(t, hop.String(), "*")
		} else {
			assert.Equal(t, test.MustParseAddress(t, want[i].address), hop.Address)
		}
		assert.Equal(t, time.Duration(2*(i+1))*hopLatency, hop.RTT)
	}

	// the hop count matches the number of probes needed
	hops, err := host1.GetHopsCount(trace.Node)
	require.NoError(t, err)
	assert.Len(t, trace.Hops, hops)
}

func TestTracerouteSelf(t *testing.T) {
	t.Parallel()

	sim := test.MustNewSimulation(t, test.ScenarioConfig(t.Name()))
	host1 := test.MustInterface(t, sim, "host1")

	trace, err := application.Traceroute(host1, network.LoopbackAddress, application.ProbeConfig{})
	require.NoError(t, err)
	require.Len(t, trace.Hops, 1)
	assert.Equal(t, "a", trace.Hops[0].NetworkName)
	assert.Equal(t, network.LoopbackAddress, trace.Hops[0].Address)
}

func TestTracerouteISP(t *testing.T) {
	t.Parallel()

	conf := test.ScenarioConfig(t.Name())
	conf.ISPs = []network.ISPConfig{{Name: "example-net", BlockCIDR: "203.0.113.0/24"}}
	conf.Networks[0].ISP = "example-net"
	conf.Networks[1].ISP = "example-net"
	conf.Links = nil
	sim := test.MustNewSimulation(t, conf)
	host1 := test.MustInterface(t, sim, "host1")

	trace, err := application.Traceroute(host1, test.MustParseAddress(t, "203.0.113.9"), application.ProbeConfig{})
	require.NoError(t, err)
	require.Len(t, trace.Hops, 2)
	for _, hop := range trace.Hops {
		assert.Equal(t, "example-net", hop.ISP)
		assert.Contains(t, hop.String(), "[example-net]")
	}
}

func TestTracerouteISPByAddressBlock(t *testing.T) {
	t.Parallel()

	// the block owns the public addresses but serves no network
	conf := test.ScenarioConfig(t.Name())
	conf.ISPs = []network.ISPConfig{{Name: "example-net", BlockCIDR: "203.0.113.0/24"}}
	sim := test.MustNewSimulation(t, conf)
	host1 := test.MustInterface(t, sim, "host1")

	trace, err := application.Traceroute(host1, test.MustParseAddress(t, "203.0.113.9"), application.ProbeConfig{})
	require.NoError(t, err)
	require.Len(t, trace.Hops, 2)
	for _, hop := range trace.Hops {
		assert.Equal(t, "example-net", hop.ISP)
	}
}

func TestTracerouteLongRoute(t *testing.T) {
	t.Parallel()

	sim := network.NewNetworkSimulation(t.Name())
	var prev network.NetworkID
	var first, last network.NetworkID
	for i := 0; i <= application.MaxTTL; i++ {
		public := ""
		if i == application.MaxTTL {
			public = "203.0.113.9"
		}
		id := test.MustAddNetwork(t, sim, fmt.Sprintf("n%d", i), "10.0.0.0/24", public)
		if prev != 0 {
			require.NoError(t, sim.Link(prev, id, true))
		} else {
			first = id
		}
		prev, last = id, id
	}
	src := test.MustAddDevice(t, sim, first, "src", "0.0.0.1")
	test.MustAddDevice(t, sim, last, "dst", "0.0.0.1")
	intf, err := sim.Interface(src)
	require.NoError(t, err)
	target := test.MustParseAddress(t, "203.0.113.9")

	trace, err := application.Traceroute(intf, target, application.ProbeConfig{})
	require.NoError(t, err)
	assert.Len(t, trace.Hops, application.MaxTTL+1)

	// ttl values past 255 do not fit the captured ipv4 headers
	filename := filepath.Join(t.TempDir(), "traceroute.pcapng")
	trace, err = application.Traceroute(intf, target, application.ProbeConfig{
		Capture: &application.CaptureConfig{Filename: filename},
	})
	assert.Error(t, err)
	assert.Nil(t, trace)
	assert.NoFileExists(t, filename)
}

type capturedPacket struct {
	src, dst string
	ttl      uint8
	icmpType uint8
}

func readCapture(t *testing.T, filename string) []capturedPacket {
	f, err := os.Open(filename)
	require.NoError(t, err)
	defer f.Close()

	r, err := pcapgo.NewNgReader(f, pcapgo.NgReaderOptions{})
	require.NoError(t, err)
	assert.Equal(t, gplayers.LinkTypeRaw, r.LinkType())

	var packets []capturedPacket
	for {
		data, _, err := r.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return packets
		}
		require.NoError(t, err)

		packet := gopacket.NewPacket(data, gplayers.LayerTypeIPv4, gopacket.Default)
		ip, ok := packet.Layer(gplayers.LayerTypeIPv4).(*gplayers.IPv4)
		require.True(t, ok)
		icmp, ok := packet.Layer(gplayers.LayerTypeICMPv4).(*gplayers.ICMPv4)
		require.True(t, ok)
		packets = append(packets, capturedPacket{
			src:      ip.SrcIP.String(),
			dst:      ip.DstIP.String(),
			ttl:      ip.TTL,
			icmpType: icmp.TypeCode.Type(),
		})
	}
}

func TestPingCapture(t *testing.T) {
	t.Parallel()

	sim := test.MustNewSimulation(t, test.ScenarioConfig(t.Name()))
	host1 := test.MustInterface(t, sim, "host1")
	filename := filepath.Join(t.TempDir(), "ping.pcapng")

	_, err := application.Ping(host1, test.MustParseAddress(t, "203.0.113.9"), application.ProbeConfig{
		HopLatency: hopLatency,
		Capture:    &application.CaptureConfig{Filename: filename},
	})
	require.NoError(t, err)

	assert.Equal(t, []capturedPacket{
		{src: "192.168.1.10", dst: "203.0.113.9", ttl: 64, icmpType: gplayers.ICMPv4TypeEchoRequest},
		{src: "203.0.113.9", dst: "192.168.1.10", ttl: 64, icmpType: gplayers.ICMPv4TypeEchoReply},
	}, readCapture(t, filename))
}

func TestTracerouteCapture(t *testing.T) {
	t.Parallel()

	sim := test.MustNewSimulation(t, test.ScenarioConfig(t.Name()))
	host1 := test.MustInterface(t, sim, "host1")
	filename := filepath.Join(t.TempDir(), "traceroute.pcapng")

	_, err := application.Traceroute(host1, test.MustParseAddress(t, "203.0.113.9"), application.ProbeConfig{
		HopLatency: hopLatency,
		Capture:    &application.CaptureConfig{Filename: filename},
	})
	require.NoError(t, err)

	assert.Equal(t, []capturedPacket{
		{src: "192.168.1.10", dst: "203.0.113.9", ttl: 1, icmpType: gplayers.ICMPv4TypeEchoRequest},
		{src: "203.0.113.9", dst: "192.168.1.10", ttl: 64, icmpType: gplayers.ICMPv4TypeTimeExceeded},
		{src: "192.168.1.10", dst: "203.0.113.9", ttl: 2, icmpType: gplayers.ICMPv4TypeEchoRequest},
		{src: "203.0.113.9", dst: "192.168.1.10", ttl: 64, icmpType: gplayers.ICMPv4TypeEchoReply},
	}, readCapture(t, filename))
}

func TestCaptureBadFilename(t *testing.T) {
	t.Parallel()

	sim := test.MustNewSimulation(t, test.ScenarioConfig(t.Name()))
	host1 := test.MustInterface(t, sim, "host1")

	_, err := application.Ping(host1, network.LoopbackAddress, application.ProbeConfig{
		Capture: &application.CaptureConfig{Filename: filepath.Join(t.TempDir(), "missing", "ping.pcapng")},
	})
	assert.Error(t, err)
}
