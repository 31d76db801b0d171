// Package node implements the lifecycle of a mesh node.
//
// Init performs the startup sequence in a fixed order: resolve the transport
// protocol, load the peer table, check that the local hostname is one of its
// keys, open the activity recorders, and bind the listening port. Any failure
// is returned before a single goroutine is started, and an unknown hostname is
// reported before anything is bound.
//
// Run then supervises the listener, the sender, and the optional HTTP service
// as members of one run group. When any of them returns, or when the context
// passed to Run is cancelled, or Shutdown is called, all of them are
// interrupted: the listening socket is closed, the sender's context is
// cancelled (an in-flight attempt is abandoned), and the service is shut down.
// Recorders are flushed and closed last.
package node
