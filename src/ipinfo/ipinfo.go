// Package ipinfo looks up the public and local IP addresses of the machine.
// The results are informational only.
package ipinfo

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/ugorji/go/codec"
)

// DefaultPublicIPURL is a service answering {"ip": "<address>"}.
const DefaultPublicIPURL = "https://api.ipify.org?format=json"

// DefaultLookupTimeout bounds a public IP lookup.
const DefaultLookupTimeout = 5 * time.Second

type ipResponse struct {
	IP string `json:"ip"`
}

// PublicIP queries url for the public address of this machine.
func PublicIP(ctx context.Context, client *http.Client, url string) (string, error) {
	if client == nil {
		client = &http.Client{Timeout: DefaultLookupTimeout}
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(err, "building public IP request")
	}

	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return "", errors.Wrap(err, "fetching public IP")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching public IP: %s", resp.Status)
	}

	var body ipResponse
	if err := codec.NewDecoder(resp.Body, new(codec.JsonHandle)).Decode(&body); err != nil {
		return "", errors.Wrap(err, "decoding public IP response")
	}

	if net.ParseIP(body.IP) == nil {
		return "", fmt.Errorf("public IP service returned %q", body.IP)
	}

	return body.IP, nil
}

// LocalIP resolves the hostname of the machine to its first IPv4 address, or
// its first address if it has no IPv4 one.
func LocalIP() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", errors.Wrap(err, "reading hostname")
	}

	addrs, err := net.LookupHost(hostname)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s", hostname)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("no address for %s", hostname)
	}

	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && ip.To4() != nil {
			return a, nil
		}
	}

	return addrs[0], nil
}
