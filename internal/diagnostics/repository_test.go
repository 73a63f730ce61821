package diagnostics

import (
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(Config{Path: ":memory:"}, nil)
	if err != nil {
		t.Fatalf("NewDB() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRepositoryOpenAndCloseSession(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db.GetDB())

	s := NewDCHSession(123, 32, 7, "turbo")
	if err := repo.OpenSession(s); err != nil {
		t.Fatalf("OpenSession() error: %v", err)
	}

	got, err := repo.GetSession(s.ID)
	if err != nil {
		t.Fatalf("GetSession() error: %v", err)
	}
	if !got.IsOpen() {
		t.Errorf("newly opened session should be IsOpen()")
	}
	if got.ScramblingCode != 123 || got.SpreadingFactor != 32 || got.ChannelCode != 7 || got.Coder != "turbo" {
		t.Errorf("GetSession() = %+v, want matching fields from NewDCHSession", got)
	}

	if err := repo.CloseSession(s.ID, "released"); err != nil {
		t.Fatalf("CloseSession() error: %v", err)
	}
	closed, err := repo.GetSession(s.ID)
	if err != nil {
		t.Fatalf("GetSession() after close error: %v", err)
	}
	if closed.IsOpen() {
		t.Errorf("closed session should not be IsOpen()")
	}
	if closed.CloseReason != "released" {
		t.Errorf("CloseReason = %q, want %q", closed.CloseReason, "released")
	}
}

func TestRepositoryOpenSessionsExcludesClosed(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db.GetDB())

	open := NewDCHSession(1, 64, 2, "conv-k5")
	closed := NewDCHSession(2, 64, 3, "conv-k9")
	if err := repo.OpenSession(open); err != nil {
		t.Fatalf("OpenSession() error: %v", err)
	}
	if err := repo.OpenSession(closed); err != nil {
		t.Fatalf("OpenSession() error: %v", err)
	}
	if err := repo.CloseSession(closed.ID, "test"); err != nil {
		t.Fatalf("CloseSession() error: %v", err)
	}

	sessions, err := repo.OpenSessions()
	if err != nil {
		t.Fatalf("OpenSessions() error: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != open.ID {
		t.Fatalf("OpenSessions() = %v, want only %s", sessions, open.ID)
	}
}

func TestRepositoryFERHistoryReturnsAllSamples(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db.GetDB())

	s := NewDCHSession(1, 32, 0, "turbo")
	if err := repo.OpenSession(s); err != nil {
		t.Fatalf("OpenSession() error: %v", err)
	}

	for i, fer := range []float64{0.1, 0.2, 0.05} {
		if err := repo.RecordFER(s.ID, fer, uint64(i*20)); err != nil {
			t.Fatalf("RecordFER() error: %v", err)
		}
	}

	hist, err := repo.FERHistory(s.ID, 10)
	if err != nil {
		t.Fatalf("FERHistory() error: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("FERHistory() returned %d samples, want 3", len(hist))
	}
}

func TestRepositoryCount(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db.GetDB())

	for i := 0; i < 3; i++ {
		if err := repo.OpenSession(NewDCHSession(uint32(i), 16, i, "conv-k5")); err != nil {
			t.Fatalf("OpenSession() error: %v", err)
		}
	}
	count, err := repo.Count()
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}
}

func TestRepositoryHealthCheck(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db.GetDB())
	if err := repo.HealthCheck(); err != nil {
		t.Fatalf("HealthCheck() error: %v", err)
	}
}
