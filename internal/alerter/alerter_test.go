package alerter

import (
	"testing"
	"time"

	"Go2NetPulse/internal/config"
	"Go2NetPulse/internal/model"
)

type recordingNotifier struct {
	subjects []string
}

func (n *recordingNotifier) Send(subject, body string) error {
	n.subjects = append(n.subjects, subject)
	return nil
}

func snapshotWithRate(rate float64) SnapshotFunc {
	return func() model.AggregateSnapshot {
		return model.AggregateSnapshot{
			TotalPackets: 1000,
			TotalBytes:   32000,
			Rate:         rate,
			Elapsed:      10,
			Timestamp:    time.Now(),
		}
	}
}

func TestAlerterNotifiesOnUnderrun(t *testing.T) {
	notifier := &recordingNotifier{}
	cfg := &config.AlerterConfig{MinRate: 5000, CheckInterval: "10ms"}

	a, err := NewAlerter(cfg, snapshotWithRate(100), notifier)
	if err != nil {
		t.Fatalf("Failed to create alerter: %v", err)
	}

	a.Evaluate()
	if len(notifier.subjects) != 1 {
		t.Fatalf("Expected one notification, got %d", len(notifier.subjects))
	}
}

func TestAlerterSilentAtOrAboveFloor(t *testing.T) {
	notifier := &recordingNotifier{}
	cfg := &config.AlerterConfig{MinRate: 5000, CheckInterval: "10ms"}

	a, err := NewAlerter(cfg, snapshotWithRate(5000), notifier)
	if err != nil {
		t.Fatalf("Failed to create alerter: %v", err)
	}

	a.Evaluate()
	if len(notifier.subjects) != 0 {
		t.Fatalf("Expected no notification at the floor, got %d", len(notifier.subjects))
	}
}

func TestAlerterRejectsBadInterval(t *testing.T) {
	cfg := &config.AlerterConfig{MinRate: 5000, CheckInterval: "soon"}
	if _, err := NewAlerter(cfg, snapshotWithRate(0), nil); err == nil {
		t.Fatal("Expected error for unparseable check_interval")
	}
}
