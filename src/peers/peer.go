package peers

import (
	"net"
	"strconv"
)

// Peer is a named participant of the mesh.
type Peer struct {
	Hostname string `json:"hostname"`
	Address  string `json:"address"`
	Port     int    `json:"port"`
}

// NewPeer ...
func NewPeer(hostname, address string) *Peer {
	return &Peer{
		Hostname: hostname,
		Address:  address,
	}
}

// NetAddr returns the host:port where the peer listens.
func (p *Peer) NetAddr() string {
	return net.JoinHostPort(p.Address, strconv.Itoa(p.Port))
}

// IsMetadataKey reports whether a key of the peer file carries metadata
// instead of a peer.
func IsMetadataKey(key string) bool {
	return len(key) > 0 && key[0] == '_'
}
