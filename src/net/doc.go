// Package net implements the network loops of a mesh node.
//
// A node runs two independent loops over the same read-only peer table:
//
// - Listener: accepts inbound connections on the node's own port. Each
// connection is read once, up to MaxMessageSize bytes, in its own goroutine,
// recorded, and closed.
//
// - Sender: every Interval, dials every other peer in table order, writes a
// single greeting, closes the connection, and records the outcome. Peers are
// attempted one after the other; a failure never stops the cycle.
//
// Both loops go through a StreamLayer, which binds and dials plain TCP or
// Multipath TCP depending on the TransportChoice resolved at startup. There is
// no framing: a message is whatever a single read returns.
package net
