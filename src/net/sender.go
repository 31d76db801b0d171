package net

import (
	"context"
	"time"

	"github.com/mosaicnetworks/peermesh/src/activity"
	"github.com/mosaicnetworks/peermesh/src/peers"
	"github.com/sirupsen/logrus"
)

// Default Sender timings.
const (
	DefaultInterval     = 5 * time.Second
	DefaultDialTimeout  = 5 * time.Second
	DefaultWriteTimeout = 5 * time.Second
)

// SenderConfig holds the timings of a Sender.
type SenderConfig struct {
	// Interval is the pause between two cycles.
	Interval time.Duration

	// DialTimeout bounds the connection attempt to a peer.
	DialTimeout time.Duration

	// WriteTimeout bounds the write of the greeting.
	WriteTimeout time.Duration
}

// DefaultSenderConfig ...
func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		Interval:     DefaultInterval,
		DialTimeout:  DefaultDialTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
}

// Sender greets every other peer of the table, over and over.
type Sender struct {
	dialer   Dialer
	local    string
	targets  []*peers.Peer
	recorder activity.Recorder
	conf     SenderConfig
	logger   *logrus.Entry
}

// NewSender creates a Sender for the node named local, which must be in the
// table. The list of targets and their ports is computed once, here.
func NewSender(
	dialer Dialer,
	table *peers.PeerTable,
	local string,
	recorder activity.Recorder,
	conf SenderConfig,
	logger *logrus.Entry,
) (*Sender, error) {

	if _, err := table.IndexOf(local); err != nil {
		return nil, err
	}

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	if recorder == nil {
		recorder = activity.NopRecorder{}
	}

	if conf.Interval <= 0 {
		conf.Interval = DefaultInterval
	}
	if conf.DialTimeout <= 0 {
		conf.DialTimeout = DefaultDialTimeout
	}
	if conf.WriteTimeout <= 0 {
		conf.WriteTimeout = DefaultWriteTimeout
	}

	return &Sender{
		dialer:   dialer,
		local:    local,
		targets:  table.Others(local),
		recorder: recorder,
		conf:     conf,
		logger:   logger,
	}, nil
}

// Targets returns the peers greeted by every cycle, in order.
func (s *Sender) Targets() []*peers.Peer {
	return s.targets
}

// Run runs cycles separated by the configured interval until ctx is done.
func (s *Sender) Run(ctx context.Context) error {
	for {
		s.RunCycle(ctx)

		timer := time.NewTimer(s.conf.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RunCycle greets every target once, in order, and returns the records it
// produced. It stops early, without recording the interrupted attempt, when
// ctx is done.
func (s *Sender) RunCycle(ctx context.Context) []activity.Record {
	records := make([]activity.Record, 0, len(s.targets))

	for _, p := range s.targets {
		if ctx.Err() != nil {
			break
		}

		rec := s.send(ctx, p)
		if ctx.Err() != nil {
			break
		}

		s.recorder.Record(rec)
		records = append(records, rec)
	}

	return records
}

func (s *Sender) send(ctx context.Context, p *peers.Peer) activity.Record {
	addr := p.NetAddr()
	msg := Greeting(s.local, p.Hostname)

	logger := s.logger.WithFields(logrus.Fields{
		"peer": p.Hostname,
		"addr": addr,
	})

	logger.Debugf("Attempting to connect to %s at %s", p.Hostname, addr)

	err := s.deliver(ctx, addr, msg)

	rec := activity.Record{
		Timestamp:     time.Now(),
		Action:        activity.Send,
		Hostname:      s.local,
		OtherHostname: p.Hostname,
		Address:       p.Address,
		Port:          p.Port,
		Outcome:       Classify(err),
		Message:       msg,
	}

	switch rec.Outcome {
	case activity.Success:
		logger.Infof("Sent message from %s to %s at %s", s.local, p.Hostname, addr)
	case activity.AddressError:
		logger.WithError(err).Errorf("Address-related error connecting to %s at %s", p.Hostname, addr)
	case activity.Refused:
		logger.WithError(err).Errorf("Connection refused connecting to %s at %s", p.Hostname, addr)
	case activity.Timeout:
		logger.WithError(err).Errorf("Connection to %s at %s timed out", p.Hostname, addr)
	default:
		logger.WithError(err).Errorf("Unexpected error connecting to %s at %s", p.Hostname, addr)
	}

	return rec
}

// deliver opens a connection, writes msg once, and closes.
func (s *Sender) deliver(ctx context.Context, addr string, msg string) error {
	conn, err := s.dialer.Dial(ctx, addr, s.conf.DialTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(s.conf.WriteTimeout)); err != nil {
		return err
	}

	if _, err := conn.Write([]byte(msg)); err != nil {
		return err
	}

	return conn.Close()
}
