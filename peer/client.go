// Package peer is the interactive side of the relay: a client holding the
// three channels (relayed stream, relayed datagram, multicast group) and the
// console driving it from a terminal.
package peer

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
)

const helloText = "Hello from client"

var _ contract.Sender = (*Client)(nil)

type Client struct {
	mu        sync.Mutex
	log       *slog.Logger
	name      domain.Identity
	stream    net.Conn
	datagram  *net.UDPConn
	group     *net.UDPConn
	groupAddr *net.UDPAddr
}

// Dial connects the stream channel and the datagram channel to the relay and
// joins the multicast group. The group is optional: an empty groupAddr or a
// failed join only disables the group channel.
func Dial(ctx context.Context, log *slog.Logger, relayAddr, groupAddr string) (*Client, error) {
	var dialer net.Dialer
	stream, err := dialer.DialContext(ctx, "tcp", relayAddr)
	if err != nil {
		return nil, fmt.Errorf("could not connect to relay at %s: %w", relayAddr, err)
	}

	udpAddr, err := net.ResolveUDPAddr("udp", relayAddr)
	if err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("could not resolve %s: %w", relayAddr, err)
	}
	datagram, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("could not open datagram channel to %s: %w", relayAddr, err)
	}

	client := &Client{log: log, stream: stream, datagram: datagram}
	if groupAddr == "" {
		return client, nil
	}

	group, err := net.ResolveUDPAddr("udp4", groupAddr)
	if err != nil {
		log.Warn("Multicast group disabled", "addr", groupAddr, "error", err)
		return client, nil
	}
	conn, err := joinGroup(ctx, group)
	if err != nil {
		log.Warn("Multicast group disabled", "addr", groupAddr, "error", err)
		return client, nil
	}
	if group.Port == 0 {
		// Port picked by the system, only useful when peers share this process
		group = &net.UDPAddr{IP: group.IP, Port: conn.LocalAddr().(*net.UDPAddr).Port}
	}
	client.group, client.groupAddr = conn, group
	log.Debug("Multicast group joined", "addr", group.String())
	return client, nil
}

// Hello binds the identity used for every stream message and announces it to the relay.
func (c *Client) Hello(name string) error {
	identity := domain.Identity(strings.TrimSpace(name))
	if identity == "" {
		return errors.ErrEmptyIdentity
	}
	if strings.Contains(string(identity), domain.Delimiter) {
		return fmt.Errorf("%w: %q", errors.ErrInvalidIdentity, identity)
	}
	c.mu.Lock()
	c.name = identity
	c.mu.Unlock()
	return c.SendStream(helloText)
}

func (c *Client) Name() domain.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *Client) SendStream(text string) error {
	name := c.Name()
	if name == "" {
		return errors.ErrEmptyIdentity
	}
	if _, err := c.stream.Write([]byte(domain.FormatFrame(name, text))); err != nil {
		return fmt.Errorf("stream send: %w", err)
	}
	return nil
}

// SendDatagram sends the raw text, the relay forwards it without prefix.
func (c *Client) SendDatagram(text string) error {
	if _, err := c.datagram.Write([]byte(text)); err != nil {
		return fmt.Errorf("datagram send: %w", err)
	}
	return nil
}

func (c *Client) SendGroup(text string) error {
	if c.group == nil {
		return errors.ErrGroupUnavailable
	}
	if _, err := c.group.WriteToUDP([]byte(text), c.groupAddr); err != nil {
		return fmt.Errorf("group send: %w", err)
	}
	return nil
}

// Receivers returns one worker per open channel, printing what arrives.
func (c *Client) Receivers(printer *Printer) []contract.Worker {
	res := []contract.Worker{
		NewStreamReceiver(c.log, c.stream, printer),
		NewDatagramReceiver(c.log, "udp", c.datagram, datagramStyle, printer),
	}
	if c.group != nil {
		res = append(res, NewDatagramReceiver(c.log, "group", c.group, groupStyle, printer))
	}
	return res
}

func (c *Client) Close() error {
	var errs []error
	errs = append(errs, c.stream.Close(), c.datagram.Close())
	if c.group != nil {
		errs = append(errs, c.group.Close())
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
