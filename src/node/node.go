package node

import (
	"context"
	"fmt"
	"sync"

	"github.com/mosaicnetworks/peermesh/src/activity"
	"github.com/mosaicnetworks/peermesh/src/config"
	"github.com/mosaicnetworks/peermesh/src/ipinfo"
	pnet "github.com/mosaicnetworks/peermesh/src/net"
	"github.com/mosaicnetworks/peermesh/src/peers"
	"github.com/mosaicnetworks/peermesh/src/service"
	"github.com/oklog/run"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Node is one named host of the mesh.
type Node struct {
	state

	conf   *config.Config
	logger *logrus.Entry

	transport pnet.TransportChoice
	table     *peers.PeerTable
	port      int

	listener *pnet.Listener
	sender   *pnet.Sender
	service  *service.Service

	inmem    *activity.InmemRecorder
	recorder activity.Recorder
	closers  []func() error

	cancelLock sync.Mutex
	cancel     context.CancelFunc
}

// NewNode returns a Node for conf. If table is nil, Init loads it from the
// peer file of conf.
func NewNode(conf *config.Config, table *peers.PeerTable) *Node {
	return &Node{
		conf:   conf,
		logger: conf.Logger().WithField("hostname", conf.Hostname),
		table:  table,
	}
}

// Init runs the startup sequence. On error nothing is left open.
func (n *Node) Init() (err error) {
	if n.getState() != Created {
		return fmt.Errorf("cannot initialise a node in state %s", n.getState())
	}

	n.transport = pnet.ResolveTransport(n.conf.MultipathTCP, n.logger)
	n.logger.WithField("transport", n.transport).Info("Socket protocol")

	if err := n.initPeers(); err != nil {
		return err
	}

	port, err := n.table.PortFor(n.conf.Hostname)
	if err != nil {
		return errors.Wrapf(err, "hostname %s not found in config", n.conf.Hostname)
	}
	n.port = port

	if !n.conf.NoIPLookup {
		n.lookupIPs()
	}

	defer func() {
		if err != nil {
			n.closeRecorders()
		}
	}()

	if err := n.initRecorders(); err != nil {
		return err
	}

	if err := n.initTransport(); err != nil {
		return err
	}

	if !n.conf.NoService {
		n.service = service.NewService(
			n.conf.ServiceAddr,
			service.Info{
				Hostname:  n.conf.Hostname,
				Port:      n.port,
				Transport: n.transport.String(),
			},
			n.table,
			n.inmem,
			n.logger.WithField("component", "service"),
		)
	}

	n.setState(Initialised)

	return nil
}

func (n *Node) initPeers() error {
	if n.table != nil {
		return nil
	}

	store := peers.NewJSONPeers(n.conf.PeersPath())

	n.logger.WithField("path", store.Path()).Debug("Loading configuration")

	table, err := store.PeerTable(n.conf.BasePort)
	if err != nil {
		return err
	}

	n.logger.WithField("peers", table.Len()).Debug("Configuration loaded successfully")

	n.table = table

	return nil
}

func (n *Node) initRecorders() error {
	n.inmem = activity.NewInmemRecorder(n.conf.CacheSize)

	recorders := activity.MultiRecorder{n.inmem}

	if n.conf.ActivityCSV {
		csvRec, err := activity.NewCSVRecorder(n.conf.ActivityPath(), n.logger.WithField("component", "csv"))
		if err != nil {
			return err
		}
		async := activity.NewAsyncRecorder(csvRec, activity.DefaultQueueSize, n.logger)
		n.closers = append(n.closers, func() error { async.Close(); return nil })
		recorders = append(recorders, async)
	}

	if n.conf.Store {
		badgerRec, err := activity.NewBadgerRecorder(n.conf.DatabaseDir, n.logger.WithField("component", "badger"))
		if err != nil {
			return errors.Wrap(err, "opening activity store")
		}
		async := activity.NewAsyncRecorder(badgerRec, activity.DefaultQueueSize, n.logger)
		// the queue must drain before the database closes
		n.closers = append(n.closers, func() error { async.Close(); return badgerRec.Close() })
		recorders = append(recorders, async)
	}

	n.recorder = recorders

	return nil
}

func (n *Node) initTransport() error {
	bindAddr := pnet.BindAddr(n.port)

	stream, err := pnet.BindTCP(bindAddr, n.transport)
	if err != nil {
		return errors.Wrapf(err, "binding %s", bindAddr)
	}

	n.logger.WithField("bind_address", stream.Addr()).Infof("Host %s listening on %s", n.conf.Hostname, bindAddr)

	n.listener = pnet.NewListener(
		stream,
		n.conf.Hostname,
		n.recorder,
		n.conf.ReadTimeout,
		n.logger.WithField("component", "listener"),
	)

	sender, err := pnet.NewSender(
		stream,
		n.table,
		n.conf.Hostname,
		n.recorder,
		pnet.SenderConfig{
			Interval:     n.conf.Interval,
			DialTimeout:  n.conf.DialTimeout,
			WriteTimeout: n.conf.DialTimeout,
		},
		n.logger.WithField("component", "sender"),
	)
	if err != nil {
		n.listener.Close()
		return err
	}
	n.sender = sender

	return nil
}

func (n *Node) lookupIPs() {
	ctx, cancel := context.WithTimeout(context.Background(), ipinfo.DefaultLookupTimeout)
	defer cancel()

	if ip, err := ipinfo.PublicIP(ctx, nil, n.conf.PublicIPURL); err != nil {
		n.logger.WithError(err).Warn("Error fetching public IP")
	} else {
		n.logger.WithField("ip", ip).Info("Your public IP address")
	}

	if ip, err := ipinfo.LocalIP(); err != nil {
		n.logger.WithError(err).Warn("Error fetching local IP")
	} else {
		n.logger.WithField("ip", ip).Info("Your local IP address")
	}
}

// Run runs the listener, the sender and the service until ctx is done,
// Shutdown is called, or one of them fails. It returns nil on a requested
// stop.
func (n *Node) Run(ctx context.Context) error {
	n.cancelLock.Lock()
	if !n.compareAndSetState(Initialised, Running) {
		n.cancelLock.Unlock()
		return fmt.Errorf("cannot run a node in state %s", n.getState())
	}
	ctx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	n.cancelLock.Unlock()

	var g run.Group
	{
		// Stop on cancellation.
		g.Add(func() error {
			<-ctx.Done()
			return ctx.Err()
		}, func(error) {
			cancel()
		})
	}
	{
		// Accept inbound greetings.
		g.Add(func() error {
			n.listener.Listen()
			return errors.New("listener stopped")
		}, func(error) {
			n.listener.Close()
		})
	}
	{
		// Greet every peer, every interval.
		senderCtx, senderCancel := context.WithCancel(ctx)
		g.Add(func() error {
			return n.sender.Run(senderCtx)
		}, func(error) {
			senderCancel()
		})
	}
	if n.service != nil {
		g.Add(func() error {
			return n.service.Serve()
		}, func(error) {
			n.service.Close()
		})
	}

	err := g.Run()

	n.setState(Shutdown)
	n.closeRecorders()

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Shutdown stops a running node. Run returns once everything is stopped. It
// can be called several times, and on a node that never ran, in which case it
// releases what Init opened.
func (n *Node) Shutdown() {
	n.cancelLock.Lock()
	defer n.cancelLock.Unlock()

	if n.compareAndSetState(Initialised, Shutdown) {
		n.listener.Close()
		n.closeRecorders()
		return
	}

	if n.cancel != nil {
		n.cancel()
	}
}

func (n *Node) closeRecorders() {
	closers := n.closers
	n.closers = nil

	for _, c := range closers {
		if err := c(); err != nil {
			n.logger.WithError(err).Error("Closing activity recorder")
		}
	}
}

// State returns the current state of the node.
func (n *Node) State() State {
	return n.getState()
}

// Hostname returns the local identity of the node.
func (n *Node) Hostname() string {
	return n.conf.Hostname
}

// Port returns the port the node listens on.
func (n *Node) Port() int {
	return n.port
}

// Transport returns the protocol of the node's sockets.
func (n *Node) Transport() pnet.TransportChoice {
	return n.transport
}

// PeerTable returns the peer table.
func (n *Node) PeerTable() *peers.PeerTable {
	return n.table
}

// Activity returns the in-memory recorder of the node.
func (n *Node) Activity() *activity.InmemRecorder {
	return n.inmem
}
