package diagnostics

import (
	"context"
	"testing"
	"time"
)

type fakeFERSource struct{ v float64 }

func (f fakeFERSource) Value() float64 { return f.v }

func TestMonitorRunRecordsSamples(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db.GetDB())

	s := NewDCHSession(1, 32, 0, "turbo")
	if err := repo.OpenSession(s); err != nil {
		t.Fatalf("OpenSession() error: %v", err)
	}

	frames := uint64(0)
	m := NewMonitor(repo, s.ID, fakeFERSource{v: 0.02}, func() uint64 { frames++; return frames }, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Millisecond)
	defer cancel()
	m.Run(ctx)

	hist, err := repo.FERHistory(s.ID, 100)
	if err != nil {
		t.Fatalf("FERHistory() error: %v", err)
	}
	if len(hist) == 0 {
		t.Fatalf("Monitor.Run() recorded no samples over its window")
	}
	for _, sample := range hist {
		if sample.FER != 0.02 {
			t.Errorf("sample.FER = %v, want 0.02", sample.FER)
		}
	}
}

func TestMonitorDefaultsIntervalWhenNonPositive(t *testing.T) {
	m := NewMonitor(nil, "id", fakeFERSource{}, nil, 0)
	if m.interval != 10*time.Second {
		t.Errorf("interval = %v, want the 10s default", m.interval)
	}
}
