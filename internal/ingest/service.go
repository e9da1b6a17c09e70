package ingest

import (
	"context"
	"log"
	"net"
	"sync"
	"time"

	"Go2NetPulse/internal/config"
	"Go2NetPulse/internal/model"
)

const (
	// workerJoinTimeout bounds how long Stop waits for the pool before
	// giving up on stragglers.
	workerJoinTimeout = 5 * time.Second

	// publishInterval is the cadence at which aggregate snapshots are
	// handed to an attached publisher.
	publishInterval = time.Second
)

// SnapshotPublisher receives periodic aggregate snapshots, e.g. to a
// message bus for external monitors.
type SnapshotPublisher interface {
	Publish(model.AggregateSnapshot) error
}

// Service wires the dispatcher, the worker pool and the aggregator into
// one ingestion endpoint.
type Service struct {
	cfg        config.IngestConfig
	ln         *net.TCPListener
	dispatcher *Dispatcher
	aggregator *Aggregator
	queue      chan handoffEntry
	reports    chan model.StatsReport
	aggStop    chan struct{}
	publisher  SnapshotPublisher

	cancel       context.CancelFunc
	workerWg     sync.WaitGroup
	dispatcherWg sync.WaitGroup
	aggregatorWg sync.WaitGroup
	publisherWg  sync.WaitGroup
}

// NewService binds the listening socket and prepares the pipeline. The
// hand-off queue holds twice the client limit so the accept loop blocks,
// rather than drops, when the pool falls behind.
func NewService(cfg config.IngestConfig) (*Service, error) {
	ln, err := Listen(cfg.Host, cfg.Port)
	if err != nil {
		return nil, err
	}

	queue := make(chan handoffEntry, cfg.QueueSize())
	reports := make(chan model.StatsReport, cfg.SizeOfReportChannel)

	return &Service{
		cfg:        cfg,
		ln:         ln,
		dispatcher: NewDispatcher(ln, queue, cfg.NumWorkers),
		aggregator: NewAggregator(reports),
		queue:      queue,
		reports:    reports,
		aggStop:    make(chan struct{}),
	}, nil
}

// Addr returns the bound listen address.
func (s *Service) Addr() net.Addr {
	return s.ln.Addr()
}

// AttachPublisher registers a snapshot publisher. Must be called before
// Start.
func (s *Service) AttachPublisher(p SnapshotPublisher) {
	s.publisher = p
}

// Snapshot exposes the aggregator's running totals.
func (s *Service) Snapshot() model.AggregateSnapshot {
	return s.aggregator.Snapshot()
}

// Start launches the aggregator, the worker pool and the accept loop.
func (s *Service) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	log.Printf("Starting ingestion service on %s", s.ln.Addr())
	log.Printf("Workers: %d, Max clients: %d", s.cfg.NumWorkers, s.cfg.MaxClients)

	s.aggregatorWg.Add(1)
	go func() {
		defer s.aggregatorWg.Done()
		s.aggregator.Run(s.aggStop)
	}()

	s.workerWg.Add(s.cfg.NumWorkers)
	for i := 0; i < s.cfg.NumWorkers; i++ {
		w := &worker{id: i, queue: s.queue, reports: s.reports}
		go func() {
			defer s.workerWg.Done()
			w.run(ctx)
		}()
	}

	s.dispatcherWg.Add(1)
	go func() {
		defer s.dispatcherWg.Done()
		s.dispatcher.Run(ctx)
	}()

	if s.publisher != nil {
		s.publisherWg.Add(1)
		go func() {
			defer s.publisherWg.Done()
			s.publishLoop(ctx)
		}()
	}

	log.Println("Ingestion service started, waiting for connections...")
}

// publishLoop pushes periodic snapshots to the attached publisher.
func (s *Service) publishLoop(ctx context.Context) {
	ticker := time.NewTicker(publishInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.publisher.Publish(s.aggregator.Snapshot()); err != nil {
				log.Printf("Failed to publish snapshot: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Stop shuts the pipeline down in order: the dispatcher closes the
// listener and sends one sentinel per worker, the pool is joined with a
// bounded timeout, then the report channel is closed so the aggregator
// drains out.
func (s *Service) Stop() {
	log.Println("Stopping ingestion service...")
	s.cancel()
	s.dispatcherWg.Wait()

	done := make(chan struct{})
	go func() {
		s.workerWg.Wait()
		close(done)
	}()
	select {
	case <-done:
		// Safe to close: no worker can still be sending.
		close(s.reports)
	case <-time.After(workerJoinTimeout):
		log.Printf("Workers did not stop within %s, abandoning stragglers", workerJoinTimeout)
		close(s.aggStop)
	}
	s.aggregatorWg.Wait()
	s.publisherWg.Wait()
	log.Println("Ingestion service stopped")
}
