package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"Go2NetPulse/internal/config"
	"Go2NetPulse/internal/loadgen"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	host := flag.String("host", "", "Server host (overrides config).")
	port := flag.Int("port", 0, "Server port (overrides config).")
	clients := flag.Int("clients", 0, "Number of clients (overrides config).")
	rate := flag.Float64("rate", 0, "Target rate per client in Hz (overrides config).")
	duration := flag.Float64("duration", 0, "Test duration in seconds (overrides config).")
	flag.Parse()

	log.Println("Starting np-loadgen...")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *host != "" {
		cfg.Loadgen.Host = *host
	}
	if *port > 0 {
		cfg.Loadgen.Port = *port
	}
	if *clients > 0 {
		cfg.Loadgen.NumClients = *clients
	}
	if *rate > 0 {
		cfg.Loadgen.TargetRate = *rate
	}
	if *duration > 0 {
		cfg.Loadgen.Duration = *duration
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// An interrupt cuts the run short; transmitters still finalize and
	// emit their statistics blocks.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Interrupt received, stopping clients...")
		cancel()
	}()

	sim := loadgen.NewSimulator(cfg.Loadgen)
	if err := sim.Start(ctx); err != nil {
		log.Fatalf("Failed to start clients: %v", err)
	}
	sim.Wait()

	for _, line := range loadgen.SummaryLines(sim.Summary()) {
		fmt.Println(line)
	}
}
