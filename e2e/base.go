package e2e

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

const ioTimeout = 3 * time.Second

// BaseRelaySuite talks to a relay started outside the test process.
type BaseRelaySuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.RelayStreamAddr == "" {
		s.T().Skip("RELAY_STREAM_ADDR not set, no relay to test against")
	}
}

func (s *BaseRelaySuite) header(t *testing.T, name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)
}

// StreamPeer opens a stream connection and announces name.
func (s *BaseRelaySuite) StreamPeer(name string) net.Conn {
	s.header(s.T(), "Stream peer "+name)
	conn, err := net.DialTimeout("tcp", s.Config.RelayStreamAddr, ioTimeout)
	s.Require().NoError(err, "Failed to connect to relay at "+s.Config.RelayStreamAddr)
	s.T().Cleanup(func() { _ = conn.Close() })
	s.Send(conn, name+": hello")
	return conn
}

// DatagramPeer opens a datagram socket connected to the relay.
func (s *BaseRelaySuite) DatagramPeer(name string) *net.UDPConn {
	s.header(s.T(), "Datagram peer "+name)
	addr, err := net.ResolveUDPAddr("udp", s.Config.RelayDatagramAddr)
	s.Require().NoError(err)
	conn, err := net.DialUDP("udp", nil, addr)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

func (s *BaseRelaySuite) Send(conn net.Conn, payload string) {
	_, err := conn.Write([]byte(payload))
	s.Require().NoError(err)
	s.T().Logf("sent %q from %s", payload, conn.LocalAddr())
}

func (s *BaseRelaySuite) Receive(conn net.Conn) string {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(ioTimeout)))
	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	s.Require().NoError(err)
	s.T().Logf("received %q on %s", buf[:n], conn.LocalAddr())
	return string(buf[:n])
}

// Settle leaves the relay time to process what was sent.
func (s *BaseRelaySuite) Settle() {
	time.Sleep(100 * time.Millisecond)
}
