package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"Go2NetPulse/internal/alerter"
	"Go2NetPulse/internal/config"
	"Go2NetPulse/internal/ingest"
	"Go2NetPulse/internal/model"
	"Go2NetPulse/internal/notification"
	"Go2NetPulse/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	host := flag.String("host", "", "Listen host (overrides config).")
	port := flag.Int("port", 0, "Listen port (overrides config).")
	workers := flag.Int("workers", 0, "Number of workers (overrides config).")
	maxClients := flag.Int("max-clients", 0, "Maximum clients (overrides config).")
	flag.Parse()

	log.Println("Starting np-ingest...")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *host != "" {
		cfg.Ingest.Host = *host
	}
	if *port > 0 {
		cfg.Ingest.Port = *port
	}
	if *workers > 0 {
		cfg.Ingest.NumWorkers = *workers
	}
	if *maxClients > 0 {
		cfg.Ingest.MaxClients = *maxClients
	}
	log.Println("Configuration loaded successfully.")

	svc, err := ingest.NewService(cfg.Ingest)
	if err != nil {
		log.Fatalf("Failed to start ingestion service: %v", err)
	}

	var pub *telemetry.Publisher
	if cfg.Telemetry.Enabled {
		pub, err = telemetry.NewPublisher(cfg.Telemetry)
		if err != nil {
			log.Fatalf("Failed to connect telemetry publisher: %v", err)
		}
		defer pub.Close()
		svc.AttachPublisher(pub)
	}

	svc.Start(context.Background())

	var alrt *alerter.Alerter
	if cfg.Alerter.Enabled {
		var notifier model.Notifier
		if cfg.SMTP.Host != "" {
			notifier = notification.NewEmailNotifier(cfg.SMTP)
		}
		alrt, err = alerter.NewAlerter(&cfg.Alerter, svc.Snapshot, notifier)
		if err != nil {
			log.Fatalf("Failed to create alerter: %v", err)
		}
		go alrt.Start()
	}

	var apiServer *http.Server
	if cfg.API.Enabled {
		apiServer = startAPI(cfg.API.ListenAddr, svc)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutdown signal received, stopping service...")
	if apiServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := apiServer.Shutdown(ctx); err != nil {
			log.Printf("API server forced to shutdown: %v", err)
		}
		cancel()
	}
	if alrt != nil {
		alrt.Stop()
	}
	svc.Stop()

	snap := svc.Snapshot()
	log.Printf("Final totals: %d packets, %d bytes, Rate: %.1f packets/sec",
		snap.TotalPackets, snap.TotalBytes, snap.Rate)
	log.Println("Shutdown complete.")
}

// startAPI serves the aggregate totals over HTTP for external monitors.
func startAPI(addr string, svc *ingest.Service) *http.Server {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Snapshot()); err != nil {
			log.Printf("Failed to encode stats response: %v", err)
		}
	}).Methods("GET")

	server := &http.Server{Addr: addr, Handler: r}
	go func() {
		log.Printf("Stats API starting on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", addr, err)
		}
	}()
	return server
}
