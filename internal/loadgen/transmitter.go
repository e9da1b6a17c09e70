package loadgen

import (
	"context"
	"log"
	"net"
	"time"

	"Go2NetPulse/internal/model"
	"Go2NetPulse/internal/transport"
)

// Transmitter drives one paced connection for a configured duration and
// owns that connection's run statistics. Nothing here is shared with
// other transmitters.
type Transmitter struct {
	id         string
	targetRate float64
	duration   time.Duration

	dial   func(ctx context.Context) (net.Conn, error)
	sender *BatchSender
	stats  model.ClientStats
}

// NewTransmitter creates a transmitter for the given target address.
func NewTransmitter(id, addr string, targetRate float64, duration time.Duration) *Transmitter {
	dialer := transport.Dialer{Addr: addr}
	return &Transmitter{
		id:         id,
		targetRate: targetRate,
		duration:   duration,
		dial:       dialer.Dial,
	}
}

// newTransmitterWithDial is the test seam: it injects the connection
// factory used both for the initial connect and for reconnects.
func newTransmitterWithDial(id string, targetRate float64, duration time.Duration, dial func(ctx context.Context) (net.Conn, error)) *Transmitter {
	return &Transmitter{
		id:         id,
		targetRate: targetRate,
		duration:   duration,
		dial:       dial,
	}
}

// Connect establishes the transport channel. The same dial sequence,
// bounded retries with backoff included, is reused on mid-run reconnects.
func (t *Transmitter) Connect(ctx context.Context) error {
	conn, err := t.dial(ctx)
	if err != nil {
		return err
	}
	t.sender = NewBatchSender(conn, func() (net.Conn, error) {
		log.Printf("Client %s connection lost, reconnecting...", t.id)
		return t.dial(ctx)
	})
	log.Printf("Client %s connected to %s", t.id, conn.RemoteAddr())
	return nil
}

// Run executes the pacing loop until the configured duration elapses or
// the context is cancelled, then finalizes and emits the statistics
// block. Per-batch failures are counted, never fatal.
func (t *Transmitter) Run(ctx context.Context) {
	start := time.Now()
	t.stats = model.ClientStats{ClientID: t.id, StartTime: start}
	end := start.Add(t.duration)

	log.Printf("Client %s starting transmission at %.0f Hz for %s", t.id, t.targetRate, t.duration)

	pacer := NewPacer(t.targetRate, BatchSize)
	pacer.Start(start)

	for {
		now := time.Now()
		if !now.Before(end) || ctx.Err() != nil {
			break
		}

		if pacer.Due(now) {
			written, err := t.sender.SendBatch()
			if err != nil {
				t.stats.Errors += BatchSize
				log.Printf("Client %s batch send error: %v", t.id, err)
			} else {
				t.stats.PacketsSent += BatchSize
				t.stats.BytesSent += uint64(written)
			}
			pacer.Advance()
		}

		select {
		case <-time.After(pacer.SleepFor(time.Now())):
		case <-ctx.Done():
		}
	}

	t.finalize()
}

// finalize stamps the end time and emits the delimited statistics block
// consumed by external log analyzers.
func (t *Transmitter) finalize() {
	t.stats.EndTime = time.Now()

	log.Printf("Client %s transmission completed:", t.id)
	for _, line := range FinalStatsLines(t.stats) {
		log.Println(line)
	}
}

// Close releases the transport channel.
func (t *Transmitter) Close() {
	if t.sender != nil {
		t.sender.Conn().Close()
	}
}

// Stats returns the run statistics. Only meaningful after Run returns.
func (t *Transmitter) Stats() model.ClientStats {
	return t.stats
}
