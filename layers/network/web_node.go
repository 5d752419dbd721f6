package network

import (
	"fmt"
)

type (
	// WebNodeKind tags the endpoint kinds a WebNode can stand for.
	WebNodeKind int

	// WebNode is any addressable endpoint of the simulated internetwork.
	// Routing and hop-distance code takes WebNodes so that local and
	// remote destinations are handled uniformly.
	//
	// A WebNodeDevice carries Device; a WebNodeNetwork carries Network
	// and stands for a network reachable through its public address
	// that has no device answering for it.
	WebNode struct {
		Kind    WebNodeKind
		Device  DeviceID
		Network NetworkID
	}
)

const (
	WebNodeDevice WebNodeKind = iota + 1
	WebNodeNetwork
)

func DeviceEndpoint(id DeviceID) WebNode {
	return WebNode{Kind: WebNodeDevice, Device: id}
}

func NetworkEndpoint(id NetworkID) WebNode {
	return WebNode{Kind: WebNodeNetwork, Network: id}
}

func (k WebNodeKind) String() string {
	switch k {
	case WebNodeDevice:
		return "device"
	case WebNodeNetwork:
		return "network"
	default:
		return fmt.Sprintf("WebNodeKind(%d)", int(k))
	}
}

func (w WebNode) String() string {
	switch w.Kind {
	case WebNodeDevice:
		return fmt.Sprintf("device/%d", w.Device)
	case WebNodeNetwork:
		return fmt.Sprintf("network/%d", w.Network)
	default:
		return "none"
	}
}
