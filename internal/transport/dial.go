package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"syscall"
	"time"
)

// RetryPolicy controls connection establishment: attempts with exponential
// backoff between them, capped at MaxDelay.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryPolicy matches the reference tuning: up to 10 attempts,
// starting at 500ms and growing by 1.5x up to a 2s ceiling.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:  10,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     2 * time.Second,
	Multiplier:   1.5,
}

// NextDelay returns the backoff delay that follows the given one.
func (p RetryPolicy) NextDelay(delay time.Duration) time.Duration {
	next := time.Duration(float64(delay) * p.Multiplier)
	if next > p.MaxDelay {
		next = p.MaxDelay
	}
	return next
}

// Dialer establishes tuned TCP connections with bounded retries. The zero
// policy falls back to DefaultRetryPolicy.
type Dialer struct {
	Addr    string
	Policy  RetryPolicy
	Timeout time.Duration
}

// Dial connects to the configured address, retrying transient failures
// according to the policy. Errors that are neither timeouts nor OS-level
// connect failures abort immediately.
func (d Dialer) Dial(ctx context.Context) (net.Conn, error) {
	policy := d.Policy
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	nd := net.Dialer{Timeout: timeout}
	delay := policy.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		conn, err := nd.DialContext(ctx, "tcp", d.Addr)
		if err == nil {
			if err := Tune(conn); err != nil {
				log.Printf("Failed to tune connection to %s: %v", d.Addr, err)
			}
			return conn, nil
		}
		lastErr = err

		if !retryable(err) {
			return nil, fmt.Errorf("unexpected connection error: %w", err)
		}
		if attempt == policy.MaxAttempts {
			break
		}

		log.Printf("Connection attempt %d to %s failed: %v, retrying in %s...", attempt, d.Addr, err, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay = policy.NextDelay(delay)
	}

	return nil, fmt.Errorf("all %d connection attempts to %s failed: %w", policy.MaxAttempts, d.Addr, lastErr)
}

// retryable reports whether a dial error is worth another attempt:
// timeouts, refused or in-progress connects, and other OS-level socket
// errors. Anything else (bad address, unsupported network) is permanent.
func retryable(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EINPROGRESS) {
		return true
	}
	var errno syscall.Errno
	return errors.As(err, &errno)
}
