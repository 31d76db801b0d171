package net

import (
	"io/ioutil"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// TransportChoice selects the transport protocol of every socket of a node.
type TransportChoice int

const (
	// StandardTCP is plain TCP.
	StandardTCP TransportChoice = iota
	// MultipathTCP is MPTCP (RFC 8684).
	MultipathTCP
)

func (t TransportChoice) String() string {
	switch t {
	case MultipathTCP:
		return "MPTCP"
	default:
		return "TCP"
	}
}

const mptcpSysctl = "/proc/sys/net/mptcp/enabled"

// multipathSupported reports whether the platform can open MPTCP sockets.
var multipathSupported = func() bool {
	if runtime.GOOS != "linux" {
		return false
	}
	data, err := ioutil.ReadFile(mptcpSysctl)
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == "1"
}

// ResolveTransport returns MultipathTCP if it was requested and the platform
// supports it, StandardTCP otherwise.
func ResolveTransport(requested bool, logger *logrus.Entry) TransportChoice {
	if !requested {
		return StandardTCP
	}

	if !multipathSupported() {
		if logger != nil {
			logger.Warn("MPTCP is not available. Using TCP instead.")
		}
		return StandardTCP
	}

	return MultipathTCP
}
