package node

import (
	"sync/atomic"
)

// State captures the state of a node: Created, Initialised, Running or
// Shutdown
type State uint32

const (
	//Created is the state of a node before Init.
	Created State = iota
	//Initialised means the port is bound but the loops are not running.
	Initialised
	//Running means the loops are running.
	Running
	//Shutdown is shutdown
	Shutdown
)

// String ...
func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Initialised:
		return "Initialised"
	case Running:
		return "Running"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

type state struct {
	state State
}

func (b *state) getState() State {
	stateAddr := (*uint32)(&b.state)
	return State(atomic.LoadUint32(stateAddr))
}

func (b *state) setState(s State) {
	stateAddr := (*uint32)(&b.state)
	atomic.StoreUint32(stateAddr, uint32(s))
}

// compareAndSetState moves from old to new atomically and reports whether it
// did.
func (b *state) compareAndSetState(old, new State) bool {
	stateAddr := (*uint32)(&b.state)
	return atomic.CompareAndSwapUint32(stateAddr, uint32(old), uint32(new))
}
