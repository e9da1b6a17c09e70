package loadgen

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"
	"time"

	"Go2NetPulse/internal/config"
	"Go2NetPulse/internal/model"
)

// Simulator owns a fixed set of paced transmitters and runs them
// concurrently against one ingestion endpoint.
type Simulator struct {
	cfg          config.LoadgenConfig
	transmitters []*Transmitter
	wg           sync.WaitGroup
}

// NewSimulator creates a simulator from the loadgen configuration.
func NewSimulator(cfg config.LoadgenConfig) *Simulator {
	return &Simulator{cfg: cfg}
}

// Start connects and launches all transmitters. Transmitters that fail
// to connect are dropped from the run; it is an error only if none
// connect.
func (s *Simulator) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	duration := time.Duration(s.cfg.Duration * float64(time.Second))

	log.Printf("Starting %d clients", s.cfg.NumClients)
	log.Printf("Target rate: %.0f Hz per client", s.cfg.TargetRate)
	log.Printf("Total target rate: %.0f Hz", s.cfg.TargetRate*float64(s.cfg.NumClients))

	for i := 0; i < s.cfg.NumClients; i++ {
		id := fmt.Sprintf("client_%03d", i)
		tx := NewTransmitter(id, addr, s.cfg.TargetRate, duration)
		if err := tx.Connect(ctx); err != nil {
			log.Printf("Client %s connection failed: %v", id, err)
			continue
		}
		s.transmitters = append(s.transmitters, tx)
	}

	if len(s.transmitters) == 0 {
		return fmt.Errorf("no clients connected to %s", addr)
	}

	for _, tx := range s.transmitters {
		s.wg.Add(1)
		go func(tx *Transmitter) {
			defer s.wg.Done()
			defer tx.Close()
			tx.Run(ctx)
		}(tx)
	}

	log.Println("All clients started")
	return nil
}

// Wait blocks until every transmitter has finished its run.
func (s *Simulator) Wait() {
	s.wg.Wait()
}

// Summary sums and averages the finalized statistics of all transmitters
// that took part in the run.
func (s *Simulator) Summary() model.SummaryStats {
	summary := model.SummaryStats{TotalClients: len(s.transmitters)}
	if len(s.transmitters) == 0 {
		return summary
	}

	var rateSum float64
	for _, tx := range s.transmitters {
		stats := tx.Stats()
		summary.TotalPackets += stats.PacketsSent
		summary.TotalBytes += stats.BytesSent
		summary.TotalErrors += stats.Errors
		rateSum += stats.AvgRate()
	}
	summary.AvgRatePerClient = rateSum / float64(len(s.transmitters))
	summary.TotalRate = summary.AvgRatePerClient * float64(len(s.transmitters))
	return summary
}
