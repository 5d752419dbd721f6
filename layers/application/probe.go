package application

import (
	"fmt"
	"time"

	"github.com/matheuscscp/world-net/layers/network"
	pkgnet "github.com/matheuscscp/world-net/pkg/net"

	"github.com/sirupsen/logrus"
)

type (
	// ProbeConfig contains the configs for Ping() and Traceroute().
	ProbeConfig struct {
		// HopLatency is the simulated one-way latency of each hop.
		HopLatency time.Duration  `yaml:"hopLatency"`
		Capture    *CaptureConfig `yaml:"capture"`
	}

	// PingResult is the outcome of a successful Ping().
	PingResult struct {
		Target pkgnet.Address
		Node   network.WebNode
		Hops   int
		RTT    time.Duration
	}

	// Hop is one line of a traceroute: the node answering a probe
	// sent with the given TTL.
	Hop struct {
		TTL         int
		Network     network.NetworkID
		NetworkName string
		// Address is the public address of a transit network, or the
		// target for the final hop. Zero means the network does not
		// advertise an address (printed as "*").
		Address pkgnet.Address
		ISP     string
		RTT     time.Duration
	}

	// Trace is the outcome of a successful Traceroute().
	Trace struct {
		Target pkgnet.Address
		Node   network.WebNode
		Hops   []Hop
	}
)

const (
	defaultReplyTTL = 64
)

// Ping resolves target through the interface and measures the
// simulated round trip: two traversals of every hop.
func Ping(intf *network.NetworkInterface, target pkgnet.Address, conf ProbeConfig) (*PingResult, error) {
	node, hops, err := resolve(intf, target)
	if err != nil {
		return nil, err
	}
	res := &PingResult{
		Target: target,
		Node:   node,
		Hops:   hops,
		RTT:    rtt(hops, conf.HopLatency),
	}

	if conf.Capture != nil {
		err := withCapture(*conf.Capture, func(c *Capture) error {
			answeredBy := target
			if hops == 0 {
				answeredBy = intf.LocalAddress()
			}
			return c.writeExchange(time.Now(), res.RTT, intf.LocalAddress(), target, answeredBy,
				int(intf.Device()), defaultReplyTTL, true /*final*/)
		})
		if err != nil {
			return nil, err
		}
	}

	logrus.
		WithField("device_id", intf.Device()).
		WithField("target_address", target.String()).
		WithField("hops", hops).
		WithField("rtt", res.RTT.String()).
		Debug("ping")

	return res, nil
}

// Traceroute resolves target through the interface and lists the
// networks a probe crosses, one Hop per TTL value.
func Traceroute(intf *network.NetworkInterface, target pkgnet.Address, conf ProbeConfig) (*Trace, error) {
	node, _, err := resolve(intf, target)
	if err != nil {
		return nil, err
	}
	path, err := intf.Route(node)
	if err != nil {
		return nil, err
	}
	if path == nil { // topology changed since resolve()
		return nil, fmt.Errorf("%w: %s", ErrHostUnreachable, target)
	}

	sim := intf.Simulation()
	if len(path) == 0 { // the device itself
		d, _ := sim.Device(intf.Device())
		path = []network.NetworkID{d.Network}
	}

	trace := &Trace{
		Target: target,
		Node:   node,
		Hops:   make([]Hop, 0, len(path)),
	}
	for ttl := 1; ttl <= len(path); ttl++ {
		final := ttl == len(path)
		id := path[ttl-1]
		if ttl < len(path) {
			id = path[ttl]
		}
		n, _ := sim.Network(id)
		hop := Hop{
			TTL:         ttl,
			Network:     id,
			NetworkName: n.Name,
			Address:     n.PublicAddress,
			RTT:         rtt(ttl, conf.HopLatency),
		}
		if final {
			hop.Address = target
		}
		// the block owning the answering address names the ISP, the
		// network's own ISP covers hops without a public address
		if isp, ok := sim.ISPForAddress(hop.Address); ok && hop.Address != 0 {
			hop.ISP = isp.Name
		} else if isp, ok := sim.ISP(n.ISP); ok {
			hop.ISP = isp.Name
		}
		trace.Hops = append(trace.Hops, hop)
	}

	if conf.Capture != nil {
		if len(trace.Hops) > MaxTTL {
			return nil, fmt.Errorf("cannot capture a route of %d hops, the limit is %d", len(trace.Hops), MaxTTL)
		}
		err := withCapture(*conf.Capture, func(c *Capture) error {
			src := intf.LocalAddress()
			ts := time.Now()
			for _, hop := range trace.Hops {
				final := hop.TTL == len(trace.Hops)
				answeredBy := hop.Address
				if final && hop.TTL == 1 && target.IsLoopback() {
					answeredBy = src
				}
				err := c.writeExchange(ts, hop.RTT, src, target, answeredBy, int(intf.Device()), hop.TTL, final)
				if err != nil {
					return err
				}
				ts = ts.Add(hop.RTT)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return trace, nil
}

func resolve(intf *network.NetworkInterface, target pkgnet.Address) (network.WebNode, int, error) {
	node, ok, err := intf.MapAddressToNode(target)
	if err != nil {
		return network.WebNode{}, 0, err
	}
	if !ok {
		return network.WebNode{}, 0, fmt.Errorf("%w: %s", ErrNoSuchHost, target)
	}
	hops, err := intf.GetHopsCount(node)
	if err != nil {
		return network.WebNode{}, 0, err
	}
	if hops == network.Unreachable {
		return network.WebNode{}, 0, fmt.Errorf("%w: %s", ErrHostUnreachable, target)
	}
	return node, hops, nil
}

func rtt(hops int, hopLatency time.Duration) time.Duration {
	return 2 * time.Duration(hops) * hopLatency
}

func withCapture(conf CaptureConfig, f func(c *Capture) error) error {
	c, err := NewCapture(conf)
	if err != nil {
		return err
	}
	if err := f(c); err != nil {
		c.Close()
		return err
	}
	return c.Close()
}

// String renders the hop like a traceroute output line.
func (h Hop) String() string {
	addr := "*"
	if h.Address != 0 {
		addr = h.Address.String()
	}
	s := fmt.Sprintf("%2d  %s (%s)  %s", h.TTL, addr, h.NetworkName, h.RTT)
	if h.ISP != "" {
		s += fmt.Sprintf("  [%s]", h.ISP)
	}
	return s
}
