package services

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSessionManagerExpiry(t *testing.T) {
	t.Parallel()

	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	sm := NewSessionManager(10*time.Minute, zerolog.Nop())
	sm.now = func() time.Time { return clock }

	first := sm.Get(testPhone)
	if again := sm.Get(testPhone); again != first {
		t.Fatal("Get() returned a new session before expiry")
	}

	clock = clock.Add(8 * time.Minute)
	sm.Touch(testPhone)
	clock = clock.Add(8 * time.Minute)
	if sm.ActiveCount() != 1 {
		t.Fatal("touched session expired early")
	}

	clock = clock.Add(5 * time.Minute)
	if sm.ActiveCount() != 0 {
		t.Errorf("ActiveCount() = %d after expiry", sm.ActiveCount())
	}
	if removed := sm.CleanupExpired(); removed != 1 {
		t.Errorf("CleanupExpired() = %d, want 1", removed)
	}
	if next := sm.Get(testPhone); next.SessionID == first.SessionID {
		t.Error("expired session reused")
	}
}

func TestSessionManagerReset(t *testing.T) {
	t.Parallel()

	sm := NewSessionManager(0, zerolog.Nop())
	s := sm.Get(testPhone)
	s.LastChoices = []string{"a"}

	sm.Reset(testPhone)
	if fresh := sm.Get(testPhone); len(fresh.LastChoices) != 0 || fresh == s {
		t.Error("Reset() kept the old session")
	}
}
