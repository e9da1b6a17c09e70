package loadgen

import (
	"context"
	"net"
	"testing"
	"time"
)

func newScriptedDial(conn net.Conn) func(context.Context) (net.Conn, error) {
	return func(context.Context) (net.Conn, error) { return conn, nil }
}

func TestTransmitterCreditsOnlySuccessfulBatches(t *testing.T) {
	conn := &scriptedConn{}
	tx := newTransmitterWithDial("client_000", 100000, 50*time.Millisecond, newScriptedDial(conn))
	if err := tx.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	tx.Run(context.Background())

	stats := tx.Stats()
	if stats.Errors != 0 {
		t.Errorf("Expected zero errors, got %d", stats.Errors)
	}
	if stats.PacketsSent == 0 {
		t.Fatal("Expected at least one batch to be sent")
	}
	if stats.PacketsSent%BatchSize != 0 {
		t.Errorf("Packets sent %d is not a whole number of batches", stats.PacketsSent)
	}
	batches := stats.PacketsSent / BatchSize
	if expected := batches * UnitSize * BatchSize; stats.BytesSent != expected {
		t.Errorf("Expected %d bytes for %d batches, got %d", expected, batches, stats.BytesSent)
	}
	if stats.EndTime.Before(stats.StartTime) {
		t.Error("Finalized stats have end before start")
	}
}

// brokenConn times out on every write, so every batch exhausts its retry
// budget.
type brokenConn struct {
	scriptedConn
}

func (c *brokenConn) Write(p []byte) (int, error) {
	c.calls++
	return 0, timeoutErr{}
}

func TestTransmitterCountsFailedBatches(t *testing.T) {
	conn := &brokenConn{}
	tx := newTransmitterWithDial("client_001", 100000, 30*time.Millisecond, newScriptedDial(conn))
	if err := tx.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	tx.Run(context.Background())

	stats := tx.Stats()
	if stats.PacketsSent != 0 {
		t.Errorf("Expected no packets credited on a dead link, got %d", stats.PacketsSent)
	}
	if stats.BytesSent != 0 {
		t.Errorf("Expected no bytes credited on a dead link, got %d", stats.BytesSent)
	}
	if stats.Errors == 0 {
		t.Fatal("Expected failed batches to be counted")
	}
	if stats.Errors%BatchSize != 0 {
		t.Errorf("Errors %d is not a whole number of batches", stats.Errors)
	}
}
