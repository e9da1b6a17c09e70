// Package ingest implements the ingestion service: a tuned TCP listener
// whose accepted connections are handed to a bounded worker pool, with a
// single aggregator reconciling per-connection counters into running
// totals.
package ingest

import (
	"context"
	"log"
	"net"
	"strconv"
	"time"

	"Go2NetPulse/internal/transport"
)

// acceptPollInterval bounds how long an empty accept call blocks before
// the loop rechecks cancellation.
const acceptPollInterval = time.Millisecond

// handoffEntry carries an accepted connection from the dispatcher to a
// worker. A zero-value entry (nil Conn) is the shutdown sentinel.
type handoffEntry struct {
	Conn net.Conn
	Peer string
}

// Dispatcher accepts inbound connections, tunes each socket, and places
// them onto the bounded hand-off queue. A full queue blocks the accept
// loop, which is the service's backpressure valve against connection
// buildup.
type Dispatcher struct {
	ln         *net.TCPListener
	queue      chan handoffEntry
	numWorkers int
}

// NewDispatcher wraps an already-bound listener.
func NewDispatcher(ln *net.TCPListener, queue chan handoffEntry, numWorkers int) *Dispatcher {
	return &Dispatcher{ln: ln, queue: queue, numWorkers: numWorkers}
}

// Listen binds a tuned listening socket on the given address.
func Listen(host string, port int) (*net.TCPListener, error) {
	lc := net.ListenConfig{Control: transport.ListenControl}
	ln, err := lc.Listen(context.Background(), "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	return ln.(*net.TCPListener), nil
}

// Run drives the accept loop until the context is cancelled, then closes
// the listener and pushes one sentinel per worker so the pool drains out.
func (d *Dispatcher) Run(ctx context.Context) {
	defer d.shutdown()

	for {
		if ctx.Err() != nil {
			return
		}

		d.ln.SetDeadline(time.Now().Add(acceptPollInterval))
		conn, err := d.ln.AcceptTCP()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			log.Printf("Accept error: %v", err)
			return
		}

		peer := conn.RemoteAddr().String()
		log.Printf("New connection from %s", peer)
		if err := transport.Tune(conn); err != nil {
			log.Printf("Failed to tune connection from %s: %v", peer, err)
		}

		// Blocks when the queue is full until a worker drains capacity.
		select {
		case d.queue <- handoffEntry{Conn: conn, Peer: peer}:
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}

// shutdown closes the listening socket and signals every worker to exit.
func (d *Dispatcher) shutdown() {
	d.ln.Close()
	for i := 0; i < d.numWorkers; i++ {
		d.queue <- handoffEntry{}
	}
}
