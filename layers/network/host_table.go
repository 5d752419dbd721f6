package network

import (
	pkgnet "github.com/matheuscscp/world-net/pkg/net"
)

type (
	// hostTable indexes the members of one network by host bits,
	// like an ARP table maps protocol addresses to hardware ones.
	// It is guarded by the simulation lock.
	hostTable struct {
		mp map[pkgnet.Address]DeviceID
	}
)

func (h *hostTable) FindDevice(host pkgnet.Address) (DeviceID, bool) {
	if h.mp == nil {
		return 0, false
	}
	id, ok := h.mp[host]
	return id, ok
}

func (h *hostTable) StoreDevice(host pkgnet.Address, id DeviceID) {
	if h.mp == nil {
		h.mp = make(map[pkgnet.Address]DeviceID)
	}
	h.mp[host] = id
}

func (h *hostTable) DeleteDevice(host pkgnet.Address) {
	delete(h.mp, host)
}

func (h *hostTable) Len() int {
	return len(h.mp)
}

// Lowest returns the member with the lowest host address.
func (h *hostTable) Lowest() (host pkgnet.Address, id DeviceID, ok bool) {
	for k, v := range h.mp {
		if !ok || k < host {
			host, id, ok = k, v, true
		}
	}
	return
}
