package net

import (
	"context"
	"errors"
	"net"
	"os"
	"syscall"

	"github.com/mosaicnetworks/peermesh/src/activity"
)

// Classify maps the error of a connection attempt to its Outcome. A nil error
// is a Success.
func Classify(err error) activity.Outcome {
	if err == nil {
		return activity.Success
	}

	var dnsErr *net.DNSError
	var addrErr *net.AddrError
	var parseErr *net.ParseError
	if errors.As(err, &dnsErr) || errors.As(err, &addrErr) || errors.As(err, &parseErr) {
		return activity.AddressError
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return activity.Refused
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return activity.Timeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return activity.Timeout
	}

	return activity.Error
}
