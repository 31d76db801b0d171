package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/mosaicnetworks/peermesh/src/activity"
	"github.com/mosaicnetworks/peermesh/src/peers"
)

// freeBasePort returns a port p such that p, p+1, ..., p+n-1 could be bound
// on the loopback interface when it was called.
func freeBasePort(t *testing.T, n int) int {
	t.Helper()

	for attempt := 0; attempt < 20; attempt++ {
		probe, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		base := probe.Addr().(*net.TCPAddr).Port
		probe.Close()

		if base+n > 65535 {
			continue
		}

		ok := true
		var held []net.Listener
		for i := 0; i < n; i++ {
			l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", base+i))
			if err != nil {
				ok = false
				break
			}
			held = append(held, l)
		}
		for _, l := range held {
			l.Close()
		}
		if ok {
			return base
		}
	}

	t.Fatalf("could not find %d consecutive free ports", n)
	return 0
}

func loopbackTable(t *testing.T, basePort int, hostnames ...string) *peers.PeerTable {
	t.Helper()

	ps := make([]*peers.Peer, len(hostnames))
	for i, h := range hostnames {
		ps[i] = peers.NewPeer(h, "127.0.0.1")
	}
	table, err := peers.NewPeerTable(ps, basePort)
	if err != nil {
		t.Fatal(err)
	}
	return table
}

// waitForRecords polls rec until it holds n records or the timeout expires.
func waitForRecords(t *testing.T, rec *activity.InmemRecorder, n int, timeout time.Duration) []activity.Record {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		records, _, err := rec.Since(-1)
		if err != nil {
			t.Fatal(err)
		}
		if len(records) >= n {
			return records
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %d records, got %d", n, len(records))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// pipeDialer returns connections nobody reads from, so writes block until
// their deadline.
type pipeDialer struct{}

func (pipeDialer) Dial(ctx context.Context, address string, timeout time.Duration) (net.Conn, error) {
	client, _ := net.Pipe()
	return client, nil
}

// hangingDialer never connects; it fails once the timeout is reached.
type hangingDialer struct{}

func (hangingDialer) Dial(ctx context.Context, address string, timeout time.Duration) (net.Conn, error) {
	select {
	case <-time.After(timeout):
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: context.DeadlineExceeded}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// scriptedDialer fails the addresses listed in errs and delegates the others.
type scriptedDialer struct {
	errs map[string]error
	next Dialer
}

func (s *scriptedDialer) Dial(ctx context.Context, address string, timeout time.Duration) (net.Conn, error) {
	if err, ok := s.errs[address]; ok {
		return nil, err
	}
	if s.next == nil {
		return nil, errors.New("no route")
	}
	return s.next.Dial(ctx, address, timeout)
}

func itoaPort(port int) string {
	return fmt.Sprintf("%d", port)
}
