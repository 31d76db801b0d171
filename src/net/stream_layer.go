package net

import (
	"context"
	"net"
	"time"
)

// Dialer opens outbound connections.
type Dialer interface {
	// Dial is used to create a new outgoing connection. It gives up after
	// timeout or when ctx is done, whichever comes first.
	Dial(ctx context.Context, address string, timeout time.Duration) (net.Conn, error)
}

// StreamLayer is used by the Listener and the Sender to provide the low level
// stream abstraction.
type StreamLayer interface {
	net.Listener
	Dialer

	// Transport returns the protocol used by the stream.
	Transport() TransportChoice
}
