package peers

import (
	"errors"
	"fmt"
)

// DefaultBasePort is the port of the first peer in the table.
const DefaultBasePort = 5000

var (
	// ErrUnknownHost is returned when a hostname is not in the table.
	ErrUnknownHost = errors.New("unknown host")

	// ErrEmptyPeerTable is returned when a table would contain no peers.
	ErrEmptyPeerTable = errors.New("empty peer table")

	// ErrInvalidPeer is returned for empty, duplicate or reserved entries.
	ErrInvalidPeer = errors.New("invalid peer")
)

// PeerTable is the ordered, immutable list of peers. Ports are derived from
// the order once, when the table is built.
type PeerTable struct {
	peers      []*Peer
	byHostname map[string]int
	basePort   int
}

// NewPeerTable builds a table from an ordered list of peers. The Port of every
// peer is set to basePort plus its index. The input peers are copied.
func NewPeerTable(peers []*Peer, basePort int) (*PeerTable, error) {
	if len(peers) == 0 {
		return nil, ErrEmptyPeerTable
	}

	if basePort <= 0 || basePort+len(peers)-1 > 65535 {
		return nil, fmt.Errorf("base port %d cannot hold %d peers", basePort, len(peers))
	}

	table := &PeerTable{
		peers:      make([]*Peer, 0, len(peers)),
		byHostname: make(map[string]int, len(peers)),
		basePort:   basePort,
	}

	for _, p := range peers {
		if p == nil || p.Hostname == "" || p.Address == "" {
			return nil, fmt.Errorf("%w: peers need a hostname and an address", ErrInvalidPeer)
		}
		if IsMetadataKey(p.Hostname) {
			return nil, fmt.Errorf("%w: %q is a reserved name", ErrInvalidPeer, p.Hostname)
		}
		if _, ok := table.byHostname[p.Hostname]; ok {
			return nil, fmt.Errorf("%w: duplicate hostname %q", ErrInvalidPeer, p.Hostname)
		}

		index := len(table.peers)
		table.byHostname[p.Hostname] = index
		table.peers = append(table.peers, &Peer{
			Hostname: p.Hostname,
			Address:  p.Address,
			Port:     basePort + index,
		})
	}

	return table, nil
}

// Len returns the number of peers.
func (t *PeerTable) Len() int {
	return len(t.peers)
}

// BasePort returns the port of the first peer.
func (t *PeerTable) BasePort() int {
	return t.basePort
}

// Peers returns a copy of the peers in table order.
func (t *PeerTable) Peers() []*Peer {
	res := make([]*Peer, len(t.peers))
	for i, p := range t.peers {
		c := *p
		res[i] = &c
	}
	return res
}

// ByHostname looks up a peer.
func (t *PeerTable) ByHostname(hostname string) (*Peer, bool) {
	index, ok := t.byHostname[hostname]
	if !ok {
		return nil, false
	}
	c := *t.peers[index]
	return &c, true
}

// IndexOf returns the position of hostname in the table.
func (t *PeerTable) IndexOf(hostname string) (int, error) {
	index, ok := t.byHostname[hostname]
	if !ok {
		return -1, fmt.Errorf("%w: %s", ErrUnknownHost, hostname)
	}
	return index, nil
}

// PortFor returns the port assigned to hostname.
func (t *PeerTable) PortFor(hostname string) (int, error) {
	index, err := t.IndexOf(hostname)
	if err != nil {
		return 0, err
	}
	return t.basePort + index, nil
}

// Others returns, in table order, every peer except local.
func (t *PeerTable) Others(local string) []*Peer {
	res := make([]*Peer, 0, len(t.peers))
	for _, p := range t.peers {
		if p.Hostname == local {
			continue
		}
		c := *p
		res = append(res, &c)
	}
	return res
}
