// Package loadgen implements the client side of the harness: paced
// transmitters that push fixed-size units in batches at a target rate,
// with send-failure recovery, plus a simulator that runs many of them
// concurrently.
package loadgen

import (
	"time"
)

// minPaceSleep floors the pacing sleep so the loop never degrades into a
// busy-wait.
const minPaceSleep = 100 * time.Microsecond

// Pacer schedules batch sends so the average unit rate converges on the
// target. Pacing operates at batch granularity: after each send the
// deadline advances by one full batch worth of unit intervals.
type Pacer struct {
	unitInterval time.Duration
	batchSize    int
	next         time.Time
}

// NewPacer creates a pacer for the given per-unit target rate in Hz.
func NewPacer(targetRate float64, batchSize int) *Pacer {
	return &Pacer{
		unitInterval: time.Duration(float64(time.Second) / targetRate),
		batchSize:    batchSize,
	}
}

// Start initializes the schedule so the first batch is due immediately.
func (p *Pacer) Start(now time.Time) {
	p.next = now
}

// Due reports whether the next batch send is due.
func (p *Pacer) Due(now time.Time) bool {
	return !now.Before(p.next)
}

// Advance moves the deadline forward by one batch interval. Called once
// per triggered send, whether or not the send succeeded, so a failing
// link does not compress the schedule.
func (p *Pacer) Advance() {
	p.next = p.next.Add(p.unitInterval * time.Duration(p.batchSize))
}

// SleepFor returns how long to sleep before rechecking the deadline:
// half the remaining time, floored at minPaceSleep. Halving converges on
// the deadline without oversleeping past it.
func (p *Pacer) SleepFor(now time.Time) time.Duration {
	d := p.next.Sub(now) / 2
	if d < minPaceSleep {
		d = minPaceSleep
	}
	return d
}
