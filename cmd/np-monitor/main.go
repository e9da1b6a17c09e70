package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"Go2NetPulse/internal/config"
	"Go2NetPulse/internal/model"
	"Go2NetPulse/internal/telemetry"
)

// np-monitor tails the aggregate snapshot stream published by np-ingest,
// for watching a run from another host without scraping logs.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	sub, err := telemetry.NewSubscriber(cfg.Telemetry)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}
	defer sub.Close()

	handler := func(snap model.AggregateSnapshot) {
		log.Printf("Total: %d packets, %d bytes, Rate: %.1f packets/sec",
			snap.TotalPackets, snap.TotalBytes, snap.Rate)
	}
	if err := sub.Start(handler); err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
}
