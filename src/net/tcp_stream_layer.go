package net

import (
	"context"
	"net"
	"strconv"
	"time"
)

// TCPDialer dials with the protocol of its TransportChoice.
type TCPDialer struct {
	transport TransportChoice
}

// NewTCPDialer ...
func NewTCPDialer(transport TransportChoice) *TCPDialer {
	return &TCPDialer{transport: transport}
}

// Dial implements the Dialer interface.
func (d *TCPDialer) Dial(ctx context.Context, address string, timeout time.Duration) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: timeout}
	dialer.SetMultipathTCP(d.transport == MultipathTCP)
	return dialer.DialContext(ctx, "tcp", address)
}

// Transport returns the protocol used by the dialer.
func (d *TCPDialer) Transport() TransportChoice {
	return d.transport
}

// TCPStreamLayer implements StreamLayer interface for TCP and MPTCP.
type TCPStreamLayer struct {
	*TCPDialer
	listener net.Listener
}

// BindAddr returns the address a node with the given port listens on: every
// local interface.
func BindAddr(port int) string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(port))
}

// BindTCP binds bindAddr with the selected transport.
func BindTCP(bindAddr string, transport TransportChoice) (*TCPStreamLayer, error) {
	lc := net.ListenConfig{}
	lc.SetMultipathTCP(transport == MultipathTCP)

	list, err := lc.Listen(context.Background(), "tcp", bindAddr)
	if err != nil {
		return nil, err
	}

	return &TCPStreamLayer{
		TCPDialer: NewTCPDialer(transport),
		listener:  list,
	}, nil
}

// Accept implements the net.Listener interface.
func (t *TCPStreamLayer) Accept() (c net.Conn, err error) {
	return t.listener.Accept()
}

// Close implements the net.Listener interface.
func (t *TCPStreamLayer) Close() (err error) {
	return t.listener.Close()
}

// Addr implements the net.Listener interface.
func (t *TCPStreamLayer) Addr() net.Addr {
	return t.listener.Addr()
}
