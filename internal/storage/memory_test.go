package storage

import (
	"errors"
	"sync"
	"testing"

	"github.com/Ananth-NQI/tripguide-backend/internal/models"
)

func TestMemoryStoreGetOrCreate(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	u, created, err := s.GetOrCreate("+59899000001")
	if err != nil || !created {
		t.Fatalf("GetOrCreate() = %v, %v, %v", u, created, err)
	}
	if u.State != models.StateStart {
		t.Errorf("new user state = %s, want start", u.State)
	}

	again, created, err := s.GetOrCreate("+59899000001")
	if err != nil || created || again != u {
		t.Fatalf("second GetOrCreate() = %p, %v, %v; want %p, false, nil", again, created, err, u)
	}
	if s.Count() != 1 {
		t.Errorf("Count() = %d, want 1", s.Count())
	}

	if _, _, err := s.GetOrCreate(""); err == nil {
		t.Error("GetOrCreate accepted an empty phone")
	}
}

func TestMemoryStoreGetDelete(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	if _, err := s.Get("+1"); !errors.Is(err, models.ErrUserNotFound) {
		t.Fatalf("Get() error = %v, want ErrUserNotFound", err)
	}
	if _, _, err := s.GetOrCreate("+1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("+1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("+1"); !errors.Is(err, models.ErrUserNotFound) {
		t.Fatalf("second Delete() error = %v", err)
	}
}

func TestMemoryStoreClose(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	u, _, _ := s.GetOrCreate("+1")
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(u); err == nil {
		t.Error("Save after Close succeeded")
	}
	if s.Count() != 0 {
		t.Error("Close kept users")
	}
}

// Concurrent messages of one identity must not lose interest updates
func TestMemoryStoreLockSerializes(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	const phone = "+59899000002"
	const workers = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.Lock(phone)
			defer unlock()

			u, _, err := s.GetOrCreate(phone)
			if err != nil {
				t.Error(err)
				return
			}
			u.Deliveries = append(u.Deliveries, models.DeliveryRecord{PlaceID: "x"})
			if err := s.Save(u); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	u, err := s.Get(phone)
	if err != nil {
		t.Fatal(err)
	}
	if len(u.Deliveries) != workers {
		t.Errorf("got %d records, want %d", len(u.Deliveries), workers)
	}
	if n := s.heldLocks(); n != 0 {
		t.Errorf("%d locks left after all workers finished", n)
	}
}

func TestMemoryStoreReleasesLocks(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	for _, phone := range []string{"+1", "+2", "+3"} {
		unlock := s.Lock(phone)
		if s.heldLocks() != 1 {
			t.Fatalf("held locks = %d while %s is locked", s.heldLocks(), phone)
		}
		unlock()
		unlock()
	}
	if n := s.heldLocks(); n != 0 {
		t.Errorf("held locks = %d, want 0", n)
	}

	first := s.Lock("+1")
	done := make(chan struct{})
	go func() {
		s.Lock("+1")()
		close(done)
	}()
	first()
	<-done
	if n := s.heldLocks(); n != 0 {
		t.Errorf("held locks = %d after a waiter finished, want 0", n)
	}
}
