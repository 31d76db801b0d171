package activity

import (
	"bytes"
	"time"

	"github.com/ugorji/go/codec"
)

// Action is the kind of attempt.
type Action string

// Actions
const (
	Send    Action = "send"
	Receive Action = "receive"
)

// Outcome classifies the result of an attempt. The values are mutually
// exclusive.
type Outcome string

// Outcomes
const (
	Success      Outcome = "success"
	Refused      Outcome = "refused"
	Timeout      Outcome = "timeout"
	AddressError Outcome = "address error"
	Error        Outcome = "error"
)

const (
	// UnknownHostname is used for inbound connections, which are not matched
	// to a peer.
	UnknownHostname = "unknown"

	// NotAvailable fills the fields of a failed accept.
	NotAvailable = "N/A"

	// TimestampFormat is the layout of timestamps in text outputs.
	TimestampFormat = "2006-01-02 15:04:05"
)

// Record is one send or receive attempt.
type Record struct {
	Timestamp     time.Time `json:"timestamp"`
	Action        Action    `json:"action"`
	Hostname      string    `json:"hostname"`
	OtherHostname string    `json:"other_hostname"`
	Address       string    `json:"ip"`
	Port          int       `json:"port"`
	Outcome       Outcome   `json:"status"`
	Message       string    `json:"message,omitempty"`
}

// Marshal - json encoding of Record
func (r *Record) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(r); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (r *Record) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(r)
}

// Recorder accepts activity records. Implementations must be safe for
// concurrent use.
type Recorder interface {
	Record(r Record)
}

// MultiRecorder sends every record to each of its recorders, in order.
type MultiRecorder []Recorder

// Record implements the Recorder interface.
func (m MultiRecorder) Record(r Record) {
	for _, rec := range m {
		rec.Record(r)
	}
}

// NopRecorder drops every record.
type NopRecorder struct{}

// Record implements the Recorder interface.
func (NopRecorder) Record(Record) {}
