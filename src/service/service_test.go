package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mosaicnetworks/peermesh/src/activity"
	"github.com/mosaicnetworks/peermesh/src/common"
	"github.com/mosaicnetworks/peermesh/src/peers"
)

func newTestService(t *testing.T, cacheSize int) (*Service, *activity.InmemRecorder) {
	table, err := peers.NewPeerTable([]*peers.Peer{
		peers.NewPeer("A", "127.0.0.1"),
		peers.NewPeer("B", "127.0.0.1"),
	}, 5000)
	if err != nil {
		t.Fatal(err)
	}

	rec := activity.NewInmemRecorder(cacheSize)

	s := NewService("127.0.0.1:0",
		Info{Hostname: "A", Port: 5000, Transport: "TCP"},
		table,
		rec,
		common.NewTestEntry(t, common.TestLogLevel))

	return s, rec
}

func get(t *testing.T, s *Service, url string, v interface{}) int {
	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code == http.StatusOK && v != nil {
		if err := json.NewDecoder(w.Body).Decode(v); err != nil {
			t.Fatalf("decoding %s: %v", url, err)
		}
	}
	return w.Code
}

func TestGetPeers(t *testing.T) {
	s, _ := newTestService(t, 10)

	var res []peers.Peer
	if code := get(t, s, "/peers", &res); code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if len(res) != 2 || res[1].Hostname != "B" || res[1].Port != 5001 {
		t.Fatalf("unexpected peers: %v", res)
	}
}

func TestGetActivityAndStats(t *testing.T) {
	s, rec := newTestService(t, 1)

	for i := 0; i < 3; i++ {
		rec.Record(activity.Record{
			Timestamp: time.Now(),
			Action:    activity.Send,
			Hostname:  "A",
			Outcome:   activity.Refused,
		})
	}
	rec.Record(activity.Record{Action: activity.Receive, Outcome: activity.Success})

	var act Activity
	if code := get(t, s, "/activity?since=2", &act); code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if act.Last != 3 || len(act.Records) != 1 || act.Records[0].Action != activity.Receive {
		t.Fatalf("unexpected activity: %+v", act)
	}

	// With a cache of 1, record 0 is gone
	if code := get(t, s, "/activity?since=-1", nil); code != http.StatusGone {
		t.Fatalf("expected 410, got %d", code)
	}

	if code := get(t, s, "/activity?since=abc", nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}

	var stats Stats
	if code := get(t, s, "/stats", &stats); code != http.StatusOK {
		t.Fatalf("unexpected status %d", code)
	}
	if stats.Hostname != "A" || stats.Peers != 2 || stats.Total != 4 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.Send[activity.Refused] != 3 || stats.Receive[activity.Success] != 1 {
		t.Fatalf("unexpected counters: %+v", stats)
	}
}

func TestServeAndClose(t *testing.T) {
	s, _ := newTestService(t, 10)

	done := make(chan error, 1)
	go func() {
		done <- s.Serve()
	}()

	time.Sleep(50 * time.Millisecond)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve should return nil after Close, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Serve did not return")
	}
}
