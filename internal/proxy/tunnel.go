package proxy

import (
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
)

// tunnelUpgrade handles an HTTP Upgrade (WebSocket) handshake for a resolved
// route: it hijacks the client connection, opens a raw connection to the
// backend, replays the original request line and headers with the Host header
// substituted, then relays bytes in both directions until either side closes
// or errors. Failures are contained to this one connection and surface as a
// socket close, never as a framed HTTP error.
func tunnelUpgrade(w http.ResponseWriter, r *http.Request, rt Route) {
	target := net.JoinHostPort(rt.TargetHost, strconv.Itoa(rt.TargetPort))

	backend, err := net.Dial("tcp", target)
	if err != nil {
		log.Printf("tunnel %s: backend %s: %v", rt.Name, target, err)
		abortConnection(w)
		return
	}

	hj, ok := w.(http.Hijacker)
	if !ok {
		backend.Close()
		http.Error(w, "upgrade not supported", http.StatusInternalServerError)
		return
	}
	client, buf, err := hj.Hijack()
	if err != nil {
		backend.Close()
		return
	}

	if err := writeHandshake(backend, r, target); err != nil {
		log.Printf("tunnel %s: handshake: %v", rt.Name, err)
		client.Close()
		backend.Close()
		return
	}

	// Two copy loops, one per direction. The first EOF or error on either
	// side closes both: no partial-duplex survives one side's failure.
	var once sync.Once
	closeBoth := func() {
		once.Do(func() {
			client.Close()
			backend.Close()
		})
	}
	go func() {
		// buf may hold body bytes read ahead of the hijack; copying from it
		// flushes those to the backend before any new client bytes.
		_, _ = io.Copy(backend, buf)
		closeBoth()
	}()
	_, _ = io.Copy(client, backend)
	closeBoth()
}

// writeHandshake reconstructs the original request line and header block for
// the backend, substituting the Host header with the backend address.
func writeHandshake(backend net.Conn, r *http.Request, target string) error {
	if _, err := fmt.Fprintf(backend, "%s %s %s\r\n", r.Method, r.URL.RequestURI(), r.Proto); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(backend, "Host: %s\r\n", target); err != nil {
		return err
	}
	// The Host header is already promoted off r.Header, so this writes the
	// rest of the original block verbatim, Connection and Upgrade included.
	if err := r.Header.Write(backend); err != nil {
		return err
	}
	_, err := io.WriteString(backend, "\r\n")
	return err
}
