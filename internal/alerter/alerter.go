// Package alerter watches the aggregate receive rate and notifies an
// operator when a long-running measurement degrades below its floor.
package alerter

import (
	"fmt"
	"log"
	"sync"
	"time"

	"Go2NetPulse/internal/config"
	"Go2NetPulse/internal/model"
)

// SnapshotFunc supplies the current aggregate totals to evaluate.
type SnapshotFunc func() model.AggregateSnapshot

// Alerter periodically evaluates the aggregate rate against the
// configured minimum and sends a notification when it underruns.
type Alerter struct {
	snapshot      SnapshotFunc
	notifier      model.Notifier
	minRate       float64
	checkInterval time.Duration
	warmUp        time.Duration
	stopChan      chan struct{}
	wg            sync.WaitGroup
}

// NewAlerter creates a new Alerter instance.
func NewAlerter(cfg *config.AlerterConfig, snapshot SnapshotFunc, notifier model.Notifier) (*Alerter, error) {
	interval, err := time.ParseDuration(cfg.CheckInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid check_interval for alerter: %w", err)
	}

	warmUp := time.Duration(0)
	if cfg.WarmUp != "" {
		warmUp, err = time.ParseDuration(cfg.WarmUp)
		if err != nil {
			return nil, fmt.Errorf("invalid warm_up for alerter: %w", err)
		}
	}

	return &Alerter{
		snapshot:      snapshot,
		notifier:      notifier,
		minRate:       cfg.MinRate,
		checkInterval: interval,
		warmUp:        warmUp,
		stopChan:      make(chan struct{}),
	}, nil
}

// Start begins the periodic evaluation loop.
func (a *Alerter) Start() {
	log.Println("Alerter started")

	a.wg.Add(1)
	defer a.wg.Done()

	started := time.Now()
	ticker := time.NewTicker(a.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if time.Since(started) < a.warmUp {
				continue
			}
			a.Evaluate()
		case <-a.stopChan:
			return
		}
	}
}

// Stop gracefully stops the evaluation loop.
func (a *Alerter) Stop() {
	log.Println("Stopping Alerter...")
	close(a.stopChan)
	a.wg.Wait()
}

// Evaluate checks the current snapshot against the rate floor and sends
// one notification when it underruns.
func (a *Alerter) Evaluate() {
	snap := a.snapshot()
	if snap.Rate >= a.minRate {
		return
	}

	log.Printf("Alert: aggregate rate %.1f packets/sec is below floor %.1f", snap.Rate, a.minRate)

	if a.notifier == nil {
		return
	}

	subject := fmt.Sprintf("Go2NetPulse Alert: rate %.1f below %.1f", snap.Rate, a.minRate)
	body := fmt.Sprintf(
		"Aggregate receive rate underrun at %s\n\n"+
			"Rate: %.1f packets/sec (floor %.1f)\n"+
			"Total packets: %d\n"+
			"Total bytes: %d\n"+
			"Elapsed: %.1fs\n",
		snap.Timestamp.Format(time.RFC3339), snap.Rate, a.minRate,
		snap.TotalPackets, snap.TotalBytes, snap.Elapsed)

	if err := a.notifier.Send(subject, body); err != nil {
		log.Printf("ERROR: Failed to send alert notification: %v", err)
	} else {
		log.Printf("INFO: Alert notification sent successfully.")
	}
}
