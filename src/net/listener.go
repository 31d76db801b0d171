package net

import (
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/mosaicnetworks/peermesh/src/activity"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultReadTimeout bounds the single read of an inbound connection.
	DefaultReadTimeout = 5 * time.Second

	acceptErrorDelay = 50 * time.Millisecond
)

// Listener accepts inbound peer connections on a bound StreamLayer.
type Listener struct {
	stream      StreamLayer
	local       string
	recorder    activity.Recorder
	readTimeout time.Duration
	logger      *logrus.Entry

	// OnMessage, when set, is called with every message received. It is
	// called from the connection goroutines.
	OnMessage func(from net.Addr, msg string)

	handlers sync.WaitGroup

	shutdown     bool
	shutdownCh   chan struct{}
	shutdownLock sync.Mutex
}

// NewListener creates a Listener for the node named local. The stream must
// already be bound.
func NewListener(
	stream StreamLayer,
	local string,
	recorder activity.Recorder,
	readTimeout time.Duration,
	logger *logrus.Entry,
) *Listener {

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	if recorder == nil {
		recorder = activity.NopRecorder{}
	}

	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	return &Listener{
		stream:      stream,
		local:       local,
		recorder:    recorder,
		readTimeout: readTimeout,
		logger:      logger,
		shutdownCh:  make(chan struct{}),
	}
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.stream.Addr()
}

// Close stops the accept loop and waits for in-flight reads to finish.
func (l *Listener) Close() error {
	l.shutdownLock.Lock()

	var err error
	if !l.shutdown {
		close(l.shutdownCh)
		err = l.stream.Close()

		l.shutdown = true
	}

	l.shutdownLock.Unlock()

	l.handlers.Wait()

	return err
}

// IsShutdown is used to check if the listener is closed.
func (l *Listener) IsShutdown() bool {
	select {
	case <-l.shutdownCh:
		return true
	default:
		return false
	}
}

// Listen runs the accept loop until Close is called.
func (l *Listener) Listen() {
	for {
		// Accept incoming connections
		conn, err := l.stream.Accept()
		if err != nil {
			if l.IsShutdown() {
				return
			}
			l.logger.WithField("error", err).Error("Error accepting connection")
			l.recorder.Record(activity.Record{
				Timestamp:     time.Now(),
				Action:        activity.Receive,
				Hostname:      l.local,
				OtherHostname: activity.NotAvailable,
				Address:       activity.NotAvailable,
				Outcome:       activity.Error,
			})

			select {
			case <-time.After(acceptErrorDelay):
			case <-l.shutdownCh:
				return
			}
			continue
		}

		l.logger.WithFields(logrus.Fields{
			"node": conn.LocalAddr(),
			"from": conn.RemoteAddr(),
		}).Debug("Accepted connection")

		// Handle the connection in dedicated routine
		l.handlers.Add(1)
		go l.handleConn(conn)
	}
}

// handleConn reads a single message and closes the connection.
func (l *Listener) handleConn(conn net.Conn) {
	defer l.handlers.Done()
	defer conn.Close()

	host, port := splitAddr(conn.RemoteAddr())

	rec := activity.Record{
		Action:        activity.Receive,
		Hostname:      l.local,
		OtherHostname: activity.UnknownHostname,
		Address:       host,
		Port:          port,
	}

	if err := conn.SetReadDeadline(time.Now().Add(l.readTimeout)); err != nil {
		l.logger.WithError(err).Warn("Failed to set read deadline")
	}

	buf := make([]byte, MaxMessageSize)
	n, err := conn.Read(buf)
	rec.Timestamp = time.Now()

	if err != nil && err != io.EOF {
		rec.Outcome = Classify(err)
		l.logger.WithFields(logrus.Fields{
			"from":  conn.RemoteAddr(),
			"error": err,
		}).Error("Error reading message")
		l.recorder.Record(rec)
		return
	}

	msg := string(buf[:n])
	rec.Outcome = activity.Success
	rec.Message = msg

	l.logger.WithFields(logrus.Fields{
		"from":    conn.RemoteAddr(),
		"message": msg,
	}).Infof("%s received from %s", l.local, conn.RemoteAddr())

	l.recorder.Record(rec)

	if l.OnMessage != nil {
		l.OnMessage(conn.RemoteAddr(), msg)
	}
}

func splitAddr(addr net.Addr) (string, int) {
	if addr == nil {
		return activity.NotAvailable, 0
	}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String(), tcp.Port
	}
	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String(), 0
	}
	port, _ := strconv.Atoi(portStr)
	return host, port
}
