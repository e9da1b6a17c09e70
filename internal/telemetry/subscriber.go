package telemetry

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"

	"Go2NetPulse/internal/config"
	"Go2NetPulse/internal/model"
)

// SnapshotHandler is a function that processes a received snapshot.
type SnapshotHandler func(snap model.AggregateSnapshot)

// Subscriber consumes aggregate snapshots from a NATS subject.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber connects to the configured NATS server.
func NewSubscriber(cfg config.TelemetryConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Subscriber{nc: nc, subject: cfg.Subject}, nil
}

// Start subscribes and dispatches each decoded snapshot to the handler.
func (s *Subscriber) Start(handler SnapshotHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		var snap model.AggregateSnapshot
		if err := json.Unmarshal(msg.Data, &snap); err != nil {
			log.Printf("Error unmarshalling snapshot: %v", err)
			return
		}
		handler(snap)
	})
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for snapshots...", s.subject)
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
}
