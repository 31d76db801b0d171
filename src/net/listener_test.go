package net

import (
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/mosaicnetworks/peermesh/src/activity"
	"github.com/mosaicnetworks/peermesh/src/common"
)

func newTestListener(t *testing.T, rec activity.Recorder, readTimeout time.Duration) *Listener {
	stream, err := BindTCP("127.0.0.1:0", StandardTCP)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	l := NewListener(stream, "B", rec, readTimeout, common.NewTestEntry(t, common.TestLogLevel))
	go l.Listen()
	return l
}

func TestListener_StartStop(t *testing.T) {
	rec := activity.NewInmemRecorder(10)
	l := newTestListener(t, rec, time.Second)

	if err := l.Close(); err != nil {
		t.Fatalf("err: %v", err)
	}
	if !l.IsShutdown() {
		t.Fatalf("listener should be shut down")
	}
	// Closing twice is fine
	if err := l.Close(); err != nil {
		t.Fatalf("err: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if rec.Total() != 0 {
		t.Fatalf("closing the listener should not record anything, got %d", rec.Total())
	}
}

func TestListener_ReceiveOne(t *testing.T) {
	rec := activity.NewInmemRecorder(10)
	l := newTestListener(t, rec, time.Second)
	defer l.Close()

	conn, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(Greeting("A", "B"))); err != nil {
		t.Fatalf("err: %v", err)
	}

	records := waitForRecords(t, rec, 1, 2*time.Second)
	if len(records) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(records))
	}

	r := records[0]
	if r.Action != activity.Receive || r.Outcome != activity.Success {
		t.Fatalf("unexpected record: %+v", r)
	}
	if r.Message != "Hello from A to B" {
		t.Fatalf("unexpected message %q", r.Message)
	}
	if r.Hostname != "B" || r.OtherHostname != activity.UnknownHostname {
		t.Fatalf("unexpected hostnames: %+v", r)
	}
	local := conn.LocalAddr().(*net.TCPAddr)
	if r.Address != "127.0.0.1" || r.Port != local.Port {
		t.Fatalf("record should carry the remote address %s, got %s:%d", local, r.Address, r.Port)
	}

	// The listener closes the connection after the read
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("expected EOF after the single read, got %v", err)
	}
}

func TestListener_TruncatesAtMaxMessageSize(t *testing.T) {
	rec := activity.NewInmemRecorder(10)
	l := newTestListener(t, rec, time.Second)
	defer l.Close()

	conn, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer conn.Close()

	exact := strings.Repeat("x", MaxMessageSize)
	if _, err := conn.Write([]byte(exact)); err != nil {
		t.Fatalf("err: %v", err)
	}

	records := waitForRecords(t, rec, 1, 2*time.Second)
	if len(records[0].Message) > MaxMessageSize {
		t.Fatalf("message longer than %d bytes: %d", MaxMessageSize, len(records[0].Message))
	}
	if records[0].Outcome != activity.Success {
		t.Fatalf("unexpected outcome %s", records[0].Outcome)
	}
}

func TestListener_SilentPeerDoesNotBlockOthers(t *testing.T) {
	rec := activity.NewInmemRecorder(10)
	l := newTestListener(t, rec, 300*time.Millisecond)
	defer l.Close()

	// A peer that connects and never writes
	silent, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer silent.Close()

	// A well-behaved peer right behind it
	conn, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	conn.Write([]byte(Greeting("C", "B")))
	conn.Close()

	records := waitForRecords(t, rec, 1, 200*time.Millisecond)
	if records[0].Outcome != activity.Success {
		t.Fatalf("first record should be the greeting, got %+v", records[0])
	}

	// The silent one times out
	records = waitForRecords(t, rec, 2, 2*time.Second)
	if records[1].Outcome != activity.Timeout {
		t.Fatalf("silent peer should time out, got %+v", records[1])
	}
}

func TestListener_OnMessage(t *testing.T) {
	rec := activity.NewInmemRecorder(10)
	stream, err := BindTCP("127.0.0.1:0", StandardTCP)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	l := NewListener(stream, "B", rec, time.Second, common.NewTestEntry(t, common.TestLogLevel))

	msgCh := make(chan string, 1)
	l.OnMessage = func(from net.Addr, msg string) {
		msgCh <- msg
	}
	go l.Listen()
	defer l.Close()

	conn, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	conn.Write([]byte("ping"))
	conn.Close()

	select {
	case msg := <-msgCh:
		if msg != "ping" {
			t.Fatalf("unexpected message %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout")
	}
}
