package ingest

import (
	"log"
	"sync"
	"time"

	"Go2NetPulse/internal/model"
)

// reportKey identifies one connection's report stream.
type reportKey struct {
	workerID int
	connID   string
}

// Aggregator is the single consumer of stats reports. It reconciles them
// into monotonic totals: for a key seen before, only the positive delta
// against the previous report is added, so re-sent or out-of-order
// reports never double count.
type Aggregator struct {
	reports <-chan model.StatsReport

	mu           sync.Mutex
	totalPackets uint64
	totalBytes   uint64
	last         map[reportKey]model.StatsReport
	startTime    time.Time
}

// NewAggregator creates an aggregator draining the given report channel.
func NewAggregator(reports <-chan model.StatsReport) *Aggregator {
	return &Aggregator{
		reports:   reports,
		last:      make(map[reportKey]model.StatsReport),
		startTime: time.Now(),
	}
}

// Run consumes reports until the channel is closed or stop fires. The
// stop channel is the escape hatch for the case where a straggling
// worker keeps the report channel from being closed safely.
func (a *Aggregator) Run(stop <-chan struct{}) {
	defer log.Println("Stats aggregator stopped")
	for {
		select {
		case report, ok := <-a.reports:
			if !ok {
				return
			}
			a.Apply(report)
			snap := a.Snapshot()
			log.Printf("Total: %d packets, %d bytes, Rate: %.1f packets/sec",
				snap.TotalPackets, snap.TotalBytes, snap.Rate)
		case <-stop:
			return
		}
	}
}

// Apply folds one report into the totals using delta dedup. The stored
// previous report is always replaced, even when the delta is discarded.
func (a *Aggregator) Apply(report model.StatsReport) {
	key := reportKey{workerID: report.WorkerID, connID: report.ConnID}

	a.mu.Lock()
	defer a.mu.Unlock()

	if prev, ok := a.last[key]; ok {
		if report.PacketsReceived > prev.PacketsReceived {
			a.totalPackets += report.PacketsReceived - prev.PacketsReceived
		}
		if report.BytesReceived > prev.BytesReceived {
			a.totalBytes += report.BytesReceived - prev.BytesReceived
		}
	} else {
		a.totalPackets += report.PacketsReceived
		a.totalBytes += report.BytesReceived
	}
	a.last[key] = report
}

// Snapshot returns a copy of the running totals with the instantaneous
// aggregate rate.
func (a *Aggregator) Snapshot() model.AggregateSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(a.startTime).Seconds()
	snap := model.AggregateSnapshot{
		TotalPackets: a.totalPackets,
		TotalBytes:   a.totalBytes,
		Elapsed:      elapsed,
		Timestamp:    now,
	}
	if elapsed > 0 {
		snap.Rate = float64(a.totalPackets) / elapsed
	}
	return snap
}
