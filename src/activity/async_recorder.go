package activity

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultQueueSize is the default capacity of an AsyncRecorder queue.
const DefaultQueueSize = 256

// AsyncRecorder hands records to a background goroutine which forwards them to
// another Recorder. When the queue is full, records are dropped and counted
// rather than blocking the caller.
type AsyncRecorder struct {
	next   Recorder
	queue  chan Record
	logger *logrus.Entry

	l       sync.Mutex
	closed  bool
	dropped int

	done chan struct{}
}

// NewAsyncRecorder starts the forwarding goroutine.
func NewAsyncRecorder(next Recorder, queueSize int, logger *logrus.Entry) *AsyncRecorder {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	a := &AsyncRecorder{
		next:   next,
		queue:  make(chan Record, queueSize),
		logger: logger,
		done:   make(chan struct{}),
	}

	go a.loop()

	return a
}

func (a *AsyncRecorder) loop() {
	defer close(a.done)
	for r := range a.queue {
		a.next.Record(r)
	}
}

// Record implements the Recorder interface.
func (a *AsyncRecorder) Record(r Record) {
	a.l.Lock()
	defer a.l.Unlock()

	if a.closed {
		return
	}

	select {
	case a.queue <- r:
	default:
		a.dropped++
		a.logger.WithField("dropped", a.dropped).Warn("Activity queue full, dropping record")
	}
}

// Dropped returns the number of records dropped because the queue was full.
func (a *AsyncRecorder) Dropped() int {
	a.l.Lock()
	defer a.l.Unlock()

	return a.dropped
}

// Close stops accepting records and waits until the queued ones have been
// forwarded.
func (a *AsyncRecorder) Close() {
	a.l.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.l.Unlock()

	<-a.done
}
