package network

import (
	pkgnet "github.com/matheuscscp/world-net/pkg/net"
)

const (
	// LoopbackAddress always resolves to the querying device itself.
	LoopbackAddress = pkgnet.LoopbackAddress

	// Unreachable is the hop count returned when no path connects
	// the origin to the destination.
	Unreachable = -1

	// DefaultWorldName names a simulation created without a name.
	DefaultWorldName = "default"

	promNamespace = "network_layer"
)
