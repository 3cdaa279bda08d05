package proxy

import (
	"fmt"
	"net"
	"strconv"
)

const loopbackHost = "127.0.0.1"

// defaultCandidatePorts are tried in order when the caller expresses no
// preference. 2080 matches the port the wider tool has historically parked
// its proxy on.
var defaultCandidatePorts = []int{2080, 2081, 2082, 2083}

// findOpenPort probes each candidate in order with a bind-and-release on
// loopback and returns the first that is free. If every candidate is taken it
// falls back to an OS-assigned ephemeral port. The returned port was free at
// the moment of the check only; the caller's real bind can still lose the
// race and must treat that as a hard failure.
func findOpenPort(candidates []int) (int, error) {
	for _, port := range candidates {
		if port <= 0 {
			continue
		}
		ln, err := net.Listen("tcp", net.JoinHostPort(loopbackHost, strconv.Itoa(port)))
		if err != nil {
			continue
		}
		_ = ln.Close()
		return port, nil
	}

	ln, err := net.Listen("tcp", loopbackHost+":0")
	if err != nil {
		return 0, fmt.Errorf("no free port: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port, nil
}
