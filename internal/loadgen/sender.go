package loadgen

import (
	"bytes"
	"fmt"
	"net"
	"time"
)

const (
	// UnitSize is the payload chunk the rate target is expressed in. It
	// is deliberately independent of the server's read granularity: the
	// link is a raw byte stream with no framing.
	UnitSize = 16

	// BatchSize is the number of units transmitted per send attempt.
	BatchSize = 804

	// maxSendRetries bounds how many consecutive no-progress attempts a
	// batch gets before it is counted as failed.
	maxSendRetries = 3

	// sendRetryDelay is the pause after a buffer-full condition.
	sendRetryDelay = time.Millisecond

	// sendAttemptTimeout is the per-attempt write deadline; hitting it
	// means the socket buffer is full, which is a retry, not a failure.
	sendAttemptTimeout = time.Millisecond
)

// BatchSender transmits one pre-built batch over a connection, handling
// partial writes, buffer-full backpressure and connection loss. The
// reconnect callback re-establishes the transport; it is invoked at most
// once per batch.
type BatchSender struct {
	conn      net.Conn
	batch     []byte
	reconnect func() (net.Conn, error)
}

// NewBatchSender builds the batch payload once and reuses it for every
// send.
func NewBatchSender(conn net.Conn, reconnect func() (net.Conn, error)) *BatchSender {
	return &BatchSender{
		conn:      conn,
		batch:     bytes.Repeat([]byte("X"), UnitSize*BatchSize),
		reconnect: reconnect,
	}
}

// BatchBytes returns the size of one full batch on the wire.
func (s *BatchSender) BatchBytes() int {
	return len(s.batch)
}

// Conn returns the current connection, which may have been replaced by a
// reconnect.
func (s *BatchSender) Conn() net.Conn {
	return s.conn
}

// SendBatch writes the whole batch, looping on partial writes. It
// returns the bytes written and nil only when the batch completed; any
// error means the batch failed and nothing should be credited.
func (s *BatchSender) SendBatch() (int, error) {
	sent := 0
	retries := 0
	reconnected := false

	for sent < len(s.batch) {
		s.conn.SetWriteDeadline(time.Now().Add(sendAttemptTimeout))
		n, err := s.conn.Write(s.batch[sent:])
		sent += n

		if err == nil {
			if n == 0 {
				// A zero-length successful write means the peer is gone.
				if !s.recover(&reconnected) {
					return sent, fmt.Errorf("connection lost after %d bytes", sent)
				}
				retries = 0
				continue
			}
			retries = 0
			continue
		}

		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			// Send buffer full: bounded retry with a short pause. Progress
			// resets the budget.
			if n > 0 {
				retries = 0
				continue
			}
			retries++
			if retries >= maxSendRetries {
				return sent, fmt.Errorf("send buffer full after %d retries: %w", retries, err)
			}
			time.Sleep(sendRetryDelay)
			continue
		}

		// Anything else is connection loss: one reconnect sequence, then
		// resume the same batch's remaining bytes.
		if !s.recover(&reconnected) {
			return sent, fmt.Errorf("send failed after %d bytes: %w", sent, err)
		}
		retries = 0
	}

	s.conn.SetWriteDeadline(time.Time{})
	return sent, nil
}

// recover attempts the single per-batch reconnect. It reports whether
// sending may continue.
func (s *BatchSender) recover(reconnected *bool) bool {
	if *reconnected || s.reconnect == nil {
		return false
	}
	*reconnected = true

	s.conn.Close()
	conn, err := s.reconnect()
	if err != nil {
		return false
	}
	s.conn = conn
	return true
}
