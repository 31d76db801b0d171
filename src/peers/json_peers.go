package peers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"sync"

	pkgerrors "github.com/pkg/errors"
)

// ErrInvalidPeerFile is returned when the peer file is not a JSON object of
// hostname/address strings.
var ErrInvalidPeerFile = errors.New("invalid peer file")

// JSONPeers reads a PeerTable from a JSON file. The file is a single object
// whose key order defines the table order. This allows human operators to
// manipulate the file.
type JSONPeers struct {
	l    sync.Mutex
	path string
}

// NewJSONPeers creates a new JSONPeers store.
func NewJSONPeers(path string) *JSONPeers {
	return &JSONPeers{
		path: path,
	}
}

// Path returns the location of the JSON file.
func (j *JSONPeers) Path() string {
	return j.path
}

// PeerTable parses the underlying JSON file and returns the corresponding
// PeerTable.
func (j *JSONPeers) PeerTable(basePort int) (*PeerTable, error) {
	j.l.Lock()
	defer j.l.Unlock()

	buf, err := ioutil.ReadFile(j.path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "reading peer file")
	}

	peers, err := DecodePeers(buf)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "decoding %s", j.path)
	}

	return NewPeerTable(peers, basePort)
}

// Write persists peers to the JSON file, in order.
func (j *JSONPeers) Write(peers []*Peer) error {
	j.l.Lock()
	defer j.l.Unlock()

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, p := range peers {
		k, err := json.Marshal(p.Hostname)
		if err != nil {
			return err
		}
		v, err := json.Marshal(p.Address)
		if err != nil {
			return err
		}
		buf.WriteString("    ")
		buf.Write(k)
		buf.WriteString(": ")
		buf.Write(v)
		if i < len(peers)-1 {
			buf.WriteString(",")
		}
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")

	return ioutil.WriteFile(j.path, buf.Bytes(), 0644)
}

// DecodePeers decodes a JSON object of hostname/address pairs, keeping the
// order of the keys and skipping metadata keys.
func DecodePeers(data []byte) ([]*Peer, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPeerFile, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidPeerFile)
	}

	var peers []*Peer
	seen := make(map[string]bool)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPeerFile, err)
		}
		key := tok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPeerFile, err)
		}

		if IsMetadataKey(key) {
			continue
		}

		var address string
		if err := json.Unmarshal(value, &address); err != nil {
			return nil, fmt.Errorf("%w: address of %q is not a string", ErrInvalidPeerFile, key)
		}

		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate hostname %q", ErrInvalidPeerFile, key)
		}
		seen[key] = true

		peers = append(peers, NewPeer(key, address))
	}

	// closing brace
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPeerFile, err)
	}

	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after object", ErrInvalidPeerFile)
	}

	if len(peers) == 0 {
		return nil, ErrEmptyPeerTable
	}

	return peers, nil
}
