package activity

import (
	"encoding/csv"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mosaicnetworks/peermesh/src/common"
)

func testRecord(i int, outcome Outcome) Record {
	return Record{
		Timestamp:     time.Date(2024, 5, 1, 12, 0, i, 0, time.UTC),
		Action:        Send,
		Hostname:      "A",
		OtherHostname: fmt.Sprintf("peer%d", i),
		Address:       "127.0.0.1",
		Port:          5000 + i,
		Outcome:       outcome,
		Message:       fmt.Sprintf("Hello from A to peer%d", i),
	}
}

func TestCSVRecorderHeaderOnce(t *testing.T) {
	dir, err := ioutil.TempDir("", "peermesh")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "data", "communication.csv")

	rec, err := NewCSVRecorder(path, common.NewTestEntry(t, common.TestLogLevel))
	if err != nil {
		t.Fatal(err)
	}
	rec.Record(testRecord(1, Success))

	// A second recorder on the same file, as after a restart
	rec2, err := NewCSVRecorder(path, common.NewTestEntry(t, common.TestLogLevel))
	if err != nil {
		t.Fatal(err)
	}
	rec2.Record(testRecord(2, Refused))
	rec2.Record(Record{
		Timestamp: time.Date(2024, 5, 1, 12, 0, 3, 0, time.UTC),
		Action:    Receive,
		Hostname:  "A",
		Outcome:   Error,
	})

	rows := readCSV(t, path)
	if len(rows) != 4 {
		t.Fatalf("expected header and 3 rows, got %d rows", len(rows))
	}

	for i, h := range CSVHeader {
		if rows[0][i] != h {
			t.Fatalf("header[%d] should be %s, not %s", i, h, rows[0][i])
		}
	}

	expected := []string{"2024-05-01 12:00:02", "send", "A", "peer2", "127.0.0.1", "5002", "refused"}
	for i, v := range expected {
		if rows[2][i] != v {
			t.Fatalf("row 2, column %d should be %s, not %s", i, v, rows[2][i])
		}
	}

	failed := []string{"2024-05-01 12:00:03", "receive", "A", "N/A", "N/A", "N/A", "error"}
	for i, v := range failed {
		if rows[3][i] != v {
			t.Fatalf("row 3, column %d should be %s, not %s", i, v, rows[3][i])
		}
	}
}

func TestCSVRecorderConcurrent(t *testing.T) {
	dir, err := ioutil.TempDir("", "peermesh")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "communication.csv")

	rec, err := NewCSVRecorder(path, common.NewTestEntry(t, common.TestLogLevel))
	if err != nil {
		t.Fatal(err)
	}

	writers := 8
	perWriter := 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				rec.Record(testRecord(w, Success))
			}
		}(w)
	}
	wg.Wait()

	rows := readCSV(t, path)
	if len(rows) != 1+writers*perWriter {
		t.Fatalf("expected %d rows, got %d", 1+writers*perWriter, len(rows))
	}
	for i, row := range rows {
		if len(row) != len(CSVHeader) {
			t.Fatalf("row %d has %d columns", i, len(row))
		}
	}
}

func readCSV(t *testing.T, path string) [][]string {
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestInmemRecorder(t *testing.T) {
	rec := NewInmemRecorder(10)

	if _, err := rec.Last(); !common.IsStore(err, common.Empty) {
		t.Fatalf("Last should return Empty, got %v", err)
	}

	for i := 0; i < 5; i++ {
		rec.Record(testRecord(i, Success))
	}
	rec.Record(testRecord(5, Timeout))
	rec.Record(Record{Action: Receive, Outcome: Success})

	records, last, err := rec.Since(-1)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 7 || last != 6 {
		t.Fatalf("expected 7 records up to 6, got %d up to %d", len(records), last)
	}

	records, _, err = rec.Since(4)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0].Outcome != Timeout {
		t.Fatalf("unexpected records since 4: %v", records)
	}

	stats := rec.Stats()
	if stats[Send][Success] != 5 || stats[Send][Timeout] != 1 || stats[Receive][Success] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
	if rec.Total() != 7 {
		t.Fatalf("Total should be 7, not %d", rec.Total())
	}
}

func TestBadgerRecorder(t *testing.T) {
	dir, err := ioutil.TempDir("", "peermesh")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "badger_db")

	rec, err := NewBadgerRecorder(path, common.NewTestEntry(t, common.TestLogLevel))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 12; i++ {
		rec.Record(testRecord(i, Success))
	}

	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen and append, new records must sort after the old ones
	rec, err = NewBadgerRecorder(path, common.NewTestEntry(t, common.TestLogLevel))
	if err != nil {
		t.Fatal(err)
	}
	defer rec.Close()

	rec.Record(testRecord(12, Refused))

	records, err := rec.Records()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 13 {
		t.Fatalf("expected 13 records, got %d", len(records))
	}

	for i, r := range records {
		expected := testRecord(i, Success)
		if i == 12 {
			expected.Outcome = Refused
		}
		if r.OtherHostname != expected.OtherHostname ||
			r.Port != expected.Port ||
			r.Outcome != expected.Outcome ||
			r.Message != expected.Message ||
			!r.Timestamp.Equal(expected.Timestamp) {
			t.Fatalf("records[%d] should be %+v, not %+v", i, expected, r)
		}
	}
}

func TestAsyncRecorder(t *testing.T) {
	inmem := NewInmemRecorder(100)
	async := NewAsyncRecorder(inmem, 100, common.NewTestEntry(t, common.TestLogLevel))

	for i := 0; i < 50; i++ {
		async.Record(testRecord(i, Success))
	}
	async.Close()

	if inmem.Total()+async.Dropped() != 50 {
		t.Fatalf("expected 50 records forwarded or dropped, got %d + %d",
			inmem.Total(), async.Dropped())
	}

	// Records after Close are ignored
	async.Record(testRecord(99, Success))
	if inmem.Total()+async.Dropped() != 50 {
		t.Fatalf("record accepted after Close")
	}
}

func TestMultiRecorder(t *testing.T) {
	a := NewInmemRecorder(10)
	b := NewInmemRecorder(10)

	MultiRecorder{a, b, NopRecorder{}}.Record(testRecord(0, Success))

	if a.Total() != 1 || b.Total() != 1 {
		t.Fatalf("each recorder should see the record once")
	}
}
