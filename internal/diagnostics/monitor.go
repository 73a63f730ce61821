package diagnostics

import (
	"context"
	"log"
	"time"

	"github.com/rangenet/umts-nodeb/internal/fec"
)

// FERSource is the subset of fec.FERTracker the monitor needs, kept as an
// interface so tests can substitute a fake tracker.
type FERSource interface {
	Value() float64
}

var _ FERSource = (*fec.FERTracker)(nil)

// Monitor periodically samples a DCH session's FER tracker and appends
// the reading to the diagnostics store, grounded on the teacher's
// ticker-driven background-loop pattern.
type Monitor struct {
	repo      *Repository
	sessionID string
	tracker   FERSource
	interval  time.Duration
	frames    func() uint64
}

// NewMonitor builds a monitor for one open session.
func NewMonitor(repo *Repository, sessionID string, tracker FERSource, frames func() uint64, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Monitor{repo: repo, sessionID: sessionID, tracker: tracker, frames: frames, interval: interval}
}

// Run samples until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var n uint64
			if m.frames != nil {
				n = m.frames()
			}
			if err := m.repo.RecordFER(m.sessionID, m.tracker.Value(), n); err != nil {
				log.Printf("diagnostics: record FER for session %s: %v", m.sessionID, err)
			}
		}
	}
}
