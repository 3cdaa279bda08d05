package proxy

import (
	"net"
	"testing"
)

// grabPort returns a port that is currently free by binding and releasing an
// ephemeral listener.
func grabPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

func TestFindOpenPortPrefersFirstFreeCandidate(t *testing.T) {
	port := grabPort(t)
	got, err := findOpenPort([]int{port})
	if err != nil {
		t.Fatalf("findOpenPort: %v", err)
	}
	if got != port {
		t.Fatalf("expected first free candidate %d, got %d", port, got)
	}
}

func TestFindOpenPortSkipsOccupiedCandidate(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	occupied := ln.Addr().(*net.TCPAddr).Port
	free := grabPort(t)

	got, err := findOpenPort([]int{occupied, free})
	if err != nil {
		t.Fatalf("findOpenPort: %v", err)
	}
	if got == occupied {
		t.Fatalf("expected occupied port %d to be skipped", occupied)
	}
	if got != free {
		t.Fatalf("expected fallback candidate %d, got %d", free, got)
	}
}

func TestFindOpenPortFallsBackToEphemeral(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	occupied := ln.Addr().(*net.TCPAddr).Port

	got, err := findOpenPort([]int{occupied})
	if err != nil {
		t.Fatalf("findOpenPort: %v", err)
	}
	if got == 0 || got == occupied {
		t.Fatalf("expected an ephemeral port distinct from %d, got %d", occupied, got)
	}
}

func TestFindOpenPortEmptyCandidates(t *testing.T) {
	got, err := findOpenPort(nil)
	if err != nil {
		t.Fatalf("findOpenPort: %v", err)
	}
	if got <= 0 {
		t.Fatalf("expected a positive ephemeral port, got %d", got)
	}
}
