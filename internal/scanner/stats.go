package scanner

import (
	"sync"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// stats holds the live detection-loop counters. The scanner owns the only
// instance; concurrent pair workers update it through locked methods so
// aggregation is ordering-insensitive.
type stats struct {
	mu sync.Mutex

	state              domain.ScanState
	startedAt          time.Time
	lastScanAt         time.Time
	scanCount          int64
	opportunitiesFound int64
	notificationsSent  int64
	transientErrors    int64
	rateLimited        int64
}

func newStats() *stats {
	return &stats{state: domain.ScanStateIdle}
}

func (s *stats) markStarted(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startedAt = now
}

func (s *stats) setState(state domain.ScanState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *stats) recordScan(now time.Time) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanCount++
	s.lastScanAt = now
	return s.scanCount
}

func (s *stats) addOpportunity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opportunitiesFound++
}

func (s *stats) addNotification() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notificationsSent++
}

func (s *stats) addTransientError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transientErrors++
}

func (s *stats) addRateLimited() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimited++
}

// snapshot returns a copy of the counters for external readers.
func (s *stats) snapshot() domain.ScanStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ScanStats{
		State:              s.state,
		StartedAt:          s.startedAt,
		LastScanAt:         s.lastScanAt,
		ScanCount:          s.scanCount,
		OpportunitiesFound: s.opportunitiesFound,
		NotificationsSent:  s.notificationsSent,
		TransientErrors:    s.transientErrors,
		RateLimited:        s.rateLimited,
	}
}
