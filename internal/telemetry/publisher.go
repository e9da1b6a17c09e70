// Package telemetry streams aggregate snapshots over NATS so external
// monitors can follow a run live without scraping logs.
package telemetry

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"

	"Go2NetPulse/internal/config"
	"Go2NetPulse/internal/model"
)

// Publisher pushes aggregate snapshots to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher connects to the configured NATS server.
func NewPublisher(cfg config.TelemetryConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Publisher{nc: nc, subject: cfg.Subject}, nil
}

// Publish serializes a snapshot to JSON and publishes it.
func (p *Publisher) Publish(snap model.AggregateSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
