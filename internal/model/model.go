package model

import (
	"time"
)

// ConnStats holds the receive counters for a single accepted connection.
// It is owned exclusively by the read loop that created it; other
// components only ever see immutable StatsReport copies.
type ConnStats struct {
	ConnID          string
	PacketsReceived uint64
	BytesReceived   uint64
	StartTime       time.Time
	LastPacketTime  time.Time
}

// AvgRate returns the average packet rate since the connection was accepted.
func (s *ConnStats) AvgRate() float64 {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.PacketsReceived) / elapsed
}

// Report builds an immutable snapshot of the counters for the aggregator.
func (s *ConnStats) Report(workerID int) StatsReport {
	return StatsReport{
		WorkerID:        workerID,
		ConnID:          s.ConnID,
		PacketsReceived: s.PacketsReceived,
		BytesReceived:   s.BytesReceived,
		AvgRate:         s.AvgRate(),
	}
}

// StatsReport is a point-in-time snapshot of one connection's counters,
// emitted by a worker's read loop and consumed exactly once by the
// stats aggregator.
type StatsReport struct {
	WorkerID        int
	ConnID          string
	PacketsReceived uint64
	BytesReceived   uint64
	AvgRate         float64
}

// AggregateSnapshot is a copy of the aggregator's running totals, safe to
// hand to the telemetry publisher, the HTTP API, and the alerter.
type AggregateSnapshot struct {
	TotalPackets uint64    `json:"total_packets"`
	TotalBytes   uint64    `json:"total_bytes"`
	Rate         float64   `json:"rate"`
	Elapsed      float64   `json:"elapsed_seconds"`
	Timestamp    time.Time `json:"timestamp"`
}

// ClientStats holds the send counters for a single paced transmitter.
// Mutated only by that transmitter's send loop and finalized once when
// the run ends.
type ClientStats struct {
	ClientID    string
	PacketsSent uint64
	BytesSent   uint64
	Errors      uint64
	StartTime   time.Time
	EndTime     time.Time
}

// Duration returns the wall-clock length of the finalized run.
func (s *ClientStats) Duration() float64 {
	return s.EndTime.Sub(s.StartTime).Seconds()
}

// AvgRate returns the average send rate over the finalized run.
func (s *ClientStats) AvgRate() float64 {
	d := s.Duration()
	if d <= 0 {
		return 0
	}
	return float64(s.PacketsSent) / d
}

// SummaryStats is the roll-up over all transmitters in one simulator run.
type SummaryStats struct {
	TotalClients     int
	TotalPackets     uint64
	TotalBytes       uint64
	TotalErrors      uint64
	AvgRatePerClient float64
	TotalRate        float64
}
