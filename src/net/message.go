package net

import "fmt"

// MaxMessageSize is the size of the single read of an inbound connection.
const MaxMessageSize = 1024

// Greeting is the message a node sends to a peer.
func Greeting(local, peer string) string {
	return fmt.Sprintf("Hello from %s to %s", local, peer)
}
