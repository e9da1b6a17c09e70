package ingest

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"Go2NetPulse/internal/model"
)

const (
	// ReadSize is the fixed receive granularity. The wire carries an
	// undifferentiated byte stream, so a "packet" here is simply one read
	// of this many bytes; it need not align with any sender-side batch
	// boundary.
	ReadSize = 32

	// ReportEvery is the number of received packets between stats reports
	// to the aggregator.
	ReportEvery = 100

	// dequeueTimeout bounds how long a worker waits on the hand-off queue
	// before rechecking cancellation.
	dequeueTimeout = time.Second
)

// worker is one pool member. It pulls hand-off entries and runs a read
// loop per connection until the peer closes.
type worker struct {
	id      int
	queue   <-chan handoffEntry
	reports chan<- model.StatsReport
}

// run loops until the sentinel entry arrives or the context is cancelled.
func (w *worker) run(ctx context.Context) {
	log.Printf("Worker %d started", w.id)
	defer log.Printf("Worker %d shutting down", w.id)

	timer := time.NewTimer(dequeueTimeout)
	defer timer.Stop()

	for {
		timer.Reset(dequeueTimeout)
		select {
		case entry := <-w.queue:
			if entry.Conn == nil {
				return
			}
			w.handleConn(ctx, entry)
		case <-timer.C:
			if ctx.Err() != nil {
				return
			}
		}
	}
}

// handleConn runs the read loop for a single connection. The counters it
// maintains are owned by this loop alone and are discarded on exit;
// anything not yet reported is never rolled into the aggregate.
func (w *worker) handleConn(ctx context.Context, entry handoffEntry) {
	log.Printf("Worker %d handling client %s", w.id, entry.Peer)
	defer entry.Conn.Close()

	stats := model.ConnStats{
		ConnID:    entry.Peer,
		StartTime: time.Now(),
	}
	buf := make([]byte, ReadSize)

	for {
		n, err := entry.Conn.Read(buf)
		if n > 0 {
			stats.PacketsReceived++
			stats.BytesReceived += uint64(n)
			stats.LastPacketTime = time.Now()

			if stats.PacketsReceived%ReportEvery == 0 {
				select {
				case w.reports <- stats.Report(w.id):
				case <-ctx.Done():
					return
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("Worker %d error on client %s: %v", w.id, entry.Peer, err)
			}
			break
		}
		if n == 0 {
			// A zero-length read signals peer closure.
			break
		}
	}

	log.Printf("Client %s disconnected from worker %d", entry.Peer, w.id)
}
