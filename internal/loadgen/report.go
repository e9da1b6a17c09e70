package loadgen

import (
	"fmt"

	"Go2NetPulse/internal/model"
)

// Markers delimiting the final statistics block. External analyzers key
// on these exact strings.
const (
	FinalStatsHeader = "=== CLIENT FINAL STATISTICS ==="
	FinalStatsFooter = "=== END CLIENT STATISTICS ==="
)

// FinalStatsLines renders one transmitter's finalized statistics as the
// delimited block external analyzers parse. The field lines are a hard
// compatibility surface.
func FinalStatsLines(s model.ClientStats) []string {
	return []string{
		FinalStatsHeader,
		fmt.Sprintf("Total packets sent: %d", s.PacketsSent),
		fmt.Sprintf("Total bytes sent: %d", s.BytesSent),
		fmt.Sprintf("Duration: %.2fs", s.Duration()),
		fmt.Sprintf("Average rate: %.1fHz", s.AvgRate()),
		fmt.Sprintf("Errors: %d", s.Errors),
		FinalStatsFooter,
	}
}

// SummaryLines renders the simulator roll-up printed after all
// transmitters finish.
func SummaryLines(s model.SummaryStats) []string {
	return []string{
		"=== CLIENT SUMMARY ===",
		fmt.Sprintf("Total clients: %d", s.TotalClients),
		fmt.Sprintf("Total packets: %d", s.TotalPackets),
		fmt.Sprintf("Total bytes: %d", s.TotalBytes),
		fmt.Sprintf("Total errors: %d", s.TotalErrors),
		fmt.Sprintf("Average rate per client: %.1fHz", s.AvgRatePerClient),
		fmt.Sprintf("Total rate: %.1fHz", s.TotalRate),
	}
}
