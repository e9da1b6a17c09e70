package ingest

import (
	"context"
	"net"
	"testing"
	"time"
)

// Fill the hand-off queue with no workers draining it: the C+1-th
// connection must wait in the accept loop rather than be dropped.
func TestDispatcherBackpressureBlocksAcceptLoop(t *testing.T) {
	ln, err := Listen("127.0.0.1", 0)
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	const capacity = 2
	queue := make(chan handoffEntry, capacity)
	d := NewDispatcher(ln, queue, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	var conns []net.Conn
	for i := 0; i < capacity+1; i++ {
		conn, err := net.Dial("tcp", ln.Addr().String())
		if err != nil {
			t.Fatalf("Dial %d failed: %v", i, err)
		}
		conns = append(conns, conn)
	}
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()

	// The queue fills to capacity and stays there; the last accepted
	// connection is held by the blocked enqueue.
	deadline := time.After(2 * time.Second)
	for len(queue) < capacity {
		select {
		case <-deadline:
			t.Fatalf("Queue never filled: %d of %d", len(queue), capacity)
		case <-time.After(10 * time.Millisecond):
		}
	}
	time.Sleep(100 * time.Millisecond)
	if len(queue) != capacity {
		t.Fatalf("Expected queue pinned at %d, got %d", capacity, len(queue))
	}

	// Draining one entry unblocks the acceptor and the held connection
	// gets enqueued.
	entry := <-queue
	entry.Conn.Close()

	deadline = time.After(2 * time.Second)
	for len(queue) < capacity {
		select {
		case <-deadline:
			t.Fatal("Blocked connection was never enqueued after drain")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Dispatcher did not stop on cancellation")
	}

	// Drain remaining real entries so their handles are released.
	for len(queue) > 0 {
		e := <-queue
		if e.Conn != nil {
			e.Conn.Close()
		}
	}
}

func TestDispatcherSendsSentinelsOnShutdown(t *testing.T) {
	ln, err := Listen("127.0.0.1", 0)
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	const numWorkers = 3
	queue := make(chan handoffEntry, numWorkers)
	d := NewDispatcher(ln, queue, numWorkers)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Dispatcher did not stop on cancellation")
	}

	for i := 0; i < numWorkers; i++ {
		select {
		case entry := <-queue:
			if entry.Conn != nil {
				t.Errorf("Expected sentinel entry %d, got a connection", i)
			}
		case <-time.After(time.Second):
			t.Fatalf("Missing sentinel %d of %d", i+1, numWorkers)
		}
	}

	// The listening socket must be closed.
	if _, err := net.DialTimeout("tcp", ln.Addr().String(), 200*time.Millisecond); err == nil {
		t.Error("Expected dial to closed listener to fail")
	}
}
