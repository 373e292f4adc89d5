package domain

import "time"

// ScanState is the lifecycle state of the detection loop.
type ScanState string

const (
	ScanStateIdle         ScanState = "idle"
	ScanStateScanning     ScanState = "scanning"
	ScanStateSleeping     ScanState = "sleeping"
	ScanStateShuttingDown ScanState = "shutting_down"
	ScanStateStopped      ScanState = "stopped"
)

// ScanStats is a point-in-time snapshot of the detection loop's counters.
// It is produced for the status endpoint and for shutdown logging; the live
// counters are owned by the scanner and mutated under its lock.
type ScanStats struct {
	State              ScanState `json:"state"`
	StartedAt          time.Time `json:"started_at"`
	LastScanAt         time.Time `json:"last_scan_at"`
	ScanCount          int64     `json:"scan_count"`
	OpportunitiesFound int64     `json:"opportunities_found"`
	NotificationsSent  int64     `json:"notifications_sent"`
	TransientErrors    int64     `json:"transient_errors"`
	RateLimited        int64     `json:"rate_limited"`
}

// Uptime returns the elapsed time since the scanner started, or zero if it
// has not started yet.
func (s ScanStats) Uptime(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	return now.Sub(s.StartedAt)
}
