package peer

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"golang.org/x/net/ipv4"
)

// joinGroup binds the group port on every interface and joins the group.
// Several peers on the same host share the port thanks to address reuse.
// TTL 1 keeps the traffic on the local segment; loopback lets local peers
// hear each other, the sender included.
func joinGroup(ctx context.Context, group *net.UDPAddr) (*net.UDPConn, error) {
	lc := net.ListenConfig{Control: reuseControl}
	pc, err := lc.ListenPacket(ctx, "udp4", net.JoinHostPort("0.0.0.0", strconv.Itoa(group.Port)))
	if err != nil {
		return nil, fmt.Errorf("bind group port %d: %w", group.Port, err)
	}
	conn := pc.(*net.UDPConn)

	p := ipv4.NewPacketConn(conn)
	if err := p.JoinGroup(nil, &net.UDPAddr{IP: group.IP}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("join group %s: %w", group.IP, err)
	}
	if err := p.SetMulticastTTL(1); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set multicast ttl: %w", err)
	}
	if err := p.SetMulticastLoopback(true); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set multicast loopback: %w", err)
	}
	return conn, nil
}
