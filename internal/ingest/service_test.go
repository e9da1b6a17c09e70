package ingest

import (
	"context"
	"net"
	"testing"
	"time"

	"Go2NetPulse/internal/config"
	"Go2NetPulse/internal/loadgen"
)

// End-to-end loopback run: one worker, one paced client at 1000 Hz for
// two seconds. The link is lossless, so the client must finish without
// errors and the aggregate totals must land within one unreported report
// interval of what the client sent.
func TestLoopbackRunConverges(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping loopback run in short mode")
	}

	cfg := config.IngestConfig{
		Host:                "127.0.0.1",
		Port:                0,
		NumWorkers:          1,
		MaxClients:          4,
		SizeOfReportChannel: 256,
	}
	svc, err := NewService(cfg)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	svc.Start(context.Background())

	addr := svc.Addr().(*net.TCPAddr)
	tx := loadgen.NewTransmitter("client_000", addr.String(), 1000, 2*time.Second)
	if err := tx.Connect(context.Background()); err != nil {
		t.Fatalf("Client failed to connect: %v", err)
	}

	tx.Run(context.Background())
	tx.Close()

	stats := tx.Stats()
	if stats.Errors != 0 {
		t.Errorf("Expected zero errors on lossless loopback, got %d", stats.Errors)
	}
	if stats.PacketsSent%loadgen.BatchSize != 0 {
		t.Errorf("Packets sent %d is not a whole number of batches", stats.PacketsSent)
	}
	// Batch-granular pacing at 1000 Hz over 2s triggers two to four
	// batches depending on scheduling.
	if stats.PacketsSent < 2*loadgen.BatchSize || stats.PacketsSent > 4*loadgen.BatchSize {
		t.Errorf("Packets sent %d outside expected pacing window", stats.PacketsSent)
	}

	// Wait for the server to drain the tail of the stream, then compare
	// byte totals: at most one report interval of reads may be
	// unreported when the read loop exits.
	maxLag := uint64(ReportEvery * ReadSize)
	deadline := time.After(3 * time.Second)
	for {
		snap := svc.Snapshot()
		if snap.TotalBytes+maxLag >= stats.BytesSent {
			if snap.TotalBytes > stats.BytesSent {
				t.Errorf("Server counted %d bytes, more than the %d sent", snap.TotalBytes, stats.BytesSent)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("Aggregate never converged: server %d bytes, client %d bytes",
				snap.TotalBytes, stats.BytesSent)
		case <-time.After(50 * time.Millisecond):
		}
	}

	svc.Stop()
}

func TestServiceStopIsClean(t *testing.T) {
	cfg := config.IngestConfig{
		Host:                "127.0.0.1",
		Port:                0,
		NumWorkers:          2,
		MaxClients:          2,
		SizeOfReportChannel: 16,
	}
	svc, err := NewService(cfg)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	svc.Start(context.Background())

	// A connected idle client must not wedge shutdown: closing our end
	// unblocks the read loop.
	conn, err := net.Dial("tcp", svc.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	conn.Close()

	done := make(chan struct{})
	go func() {
		svc.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Service did not stop cleanly")
	}
}
