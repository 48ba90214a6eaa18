package domain

import (
	"net/netip"
	"time"

	"github.com/samber/lo"
)

// DatagramPeer is a known source address on the relay's connectionless endpoint.
// The address is both its identity and its destination.
type DatagramPeer struct {
	Addr     netip.AddrPort
	LastSeen time.Time
}

// DatagramRoster is the ordered registry of datagram peers.
// It is not safe for concurrent use: the datagram coordinator is its only owner.
type DatagramRoster struct {
	peers []*DatagramPeer
}

func NewDatagramRoster() *DatagramRoster {
	return &DatagramRoster{}
}

// Touch records traffic from addr at now and reports whether addr was unseen.
func (r *DatagramRoster) Touch(addr netip.AddrPort, now time.Time) bool {
	if peer, ok := r.lookup(addr); ok {
		peer.LastSeen = now
		return false
	}
	r.peers = append(r.peers, &DatagramPeer{Addr: addr, LastSeen: now})
	return true
}

func (r *DatagramRoster) Contains(addr netip.AddrPort) bool {
	_, ok := r.lookup(addr)
	return ok
}

// Recipients lists every known address except source, in arrival order.
func (r *DatagramRoster) Recipients(source netip.AddrPort) []netip.AddrPort {
	return lo.FilterMap(r.peers, func(p *DatagramPeer, _ int) (netip.AddrPort, bool) {
		return p.Addr, p.Addr != source
	})
}

// Expire removes peers not heard from within ttl and returns them.
// A zero ttl disables expiry.
func (r *DatagramRoster) Expire(now time.Time, ttl time.Duration) []netip.AddrPort {
	if ttl <= 0 {
		return nil
	}
	stale, fresh := lo.FilterReject(r.peers, func(p *DatagramPeer, _ int) bool {
		return now.Sub(p.LastSeen) > ttl
	})
	r.peers = fresh
	return lo.Map(stale, func(p *DatagramPeer, _ int) netip.AddrPort {
		return p.Addr
	})
}

func (r *DatagramRoster) Len() int {
	return len(r.peers)
}

func (r *DatagramRoster) lookup(addr netip.AddrPort) (*DatagramPeer, bool) {
	return lo.Find(r.peers, func(p *DatagramPeer) bool {
		return p.Addr == addr
	})
}
