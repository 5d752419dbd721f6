package network

import (
	"fmt"

	pkgnet "github.com/matheuscscp/world-net/pkg/net"
)

type (
	// ForwardingTable is a trie which is able to find the ISP owning
	// a public address with an O(32) scan in the worst case. The
	// address bits are used to index the trie, starting from the
	// most significant bit. The scan only stops when the next trie
	// node doesn't have the next bit, hence returning the most
	// specific known block.
	//
	// The table is not thread-safe, NetworkSimulation guards it with
	// its own lock.
	ForwardingTable struct {
		root *forwardingTableNode
	}

	forwardingTableNode struct {
		parent *forwardingTableNode
		zero   *forwardingTableNode
		one    *forwardingTableNode
		isp    *ISPID
	}
)

func (f *ForwardingTable) FindRoute(address pkgnet.Address) (isp ISPID, ok bool) {
	if f.root == nil {
		return
	}
	u := f.root
	if u.isp != nil {
		isp, ok = *u.isp, true
	}
	for i := 31; 0 <= i; i-- {
		if (address>>i)&1 == 1 {
			u = u.one
		} else {
			u = u.zero
		}
		if u == nil {
			return
		}
		if u.isp != nil {
			isp, ok = *u.isp, true
		}
	}

	return
}

// HasRoute tells whether the exact block is stored.
func (f *ForwardingTable) HasRoute(network, mask pkgnet.Address) bool {
	u := f.findNode(network, pkgnet.PrefixLength(mask), false /*create*/)
	return u != nil && u.isp != nil
}

func (f *ForwardingTable) StoreRoute(network, mask pkgnet.Address, isp ISPID) error {
	if !pkgnet.IsPrefixMask(mask) {
		return fmt.Errorf("mask %s is not a prefix mask", mask)
	}
	u := f.findNode(network, pkgnet.PrefixLength(mask), true /*create*/)
	u.isp = &isp
	return nil
}

func (f *ForwardingTable) DeleteRoute(network, mask pkgnet.Address) {
	u := f.findNode(network, pkgnet.PrefixLength(mask), false /*create*/)
	if u == nil {
		return
	}

	// delete route
	u.isp = nil

	// cleanup trie
	for {
		// are there still relevant routes under u?
		if u.one != nil || u.zero != nil || u.isp != nil {
			return
		}
		// no, u can be reaped

		if u.parent == nil { // u is the root
			break
		}

		// cleanup bidirectional edge between u and u.parent
		parent := u.parent
		u.parent = nil
		if parent.one == u {
			parent.one = nil
		} else {
			parent.zero = nil
		}
		u = parent
	}
	// u is the root at this point
	f.root = nil
}

func (f *ForwardingTable) findNode(
	network pkgnet.Address,
	prefixLength int,
	create bool,
) *forwardingTableNode {
	if f.root == nil {
		if !create {
			return nil
		}
		f.root = &forwardingTableNode{}
	}

	u := f.root
	for bitIdx := 0; bitIdx < prefixLength; bitIdx++ {
		if (network>>(31-bitIdx))&1 == 1 {
			if u.one == nil {
				if !create {
					return nil
				}
				u.one = &forwardingTableNode{parent: u}
			}
			u = u.one
		} else {
			if u.zero == nil {
				if !create {
					return nil
				}
				u.zero = &forwardingTableNode{parent: u}
			}
			u = u.zero
		}
	}

	return u
}
