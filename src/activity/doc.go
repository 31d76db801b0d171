// Package activity records every send and receive attempt of a mesh node.
//
// The network loops only ever call Recorder.Record, which must not block them
// for long and never reports an error back; persistence failures are logged by
// the recorder itself. Several implementations are provided:
//
//   - CSVRecorder: appends rows to a CSV file with a fixed header.
//   - BadgerRecorder: stores records in a Badger database.
//   - InmemRecorder: keeps a rolling window of recent records and counters.
//   - AsyncRecorder: moves the writes of another Recorder to a goroutine.
//   - MultiRecorder: fans a record out to several recorders.
package activity
