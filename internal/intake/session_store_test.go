package intake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryStoreGetUnknownSession(t *testing.T) {
	store := NewMemorySessionStore(time.Hour)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestMemoryStoreUpdateCreatesSession(t *testing.T) {
	store := NewMemorySessionStore(time.Hour)
	ctx := context.Background()

	rec, err := store.Update(ctx, "s1", func(rec *Record) error {
		rec.FemaleAge = intPtr(30)
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if rec.SessionID != "s1" || *rec.FemaleAge != 30 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FemaleAge == nil || *got.FemaleAge != 30 {
		t.Fatalf("persisted record lost the update: %+v", got)
	}
}

func TestMemoryStoreFailedUpdateDiscardsChanges(t *testing.T) {
	store := NewMemorySessionStore(time.Hour)
	ctx := context.Background()

	if _, err := store.Update(ctx, "s1", func(rec *Record) error { return nil }); err != nil {
		t.Fatalf("seed: %v", err)
	}

	boom := errors.New("boom")
	_, err := store.Update(ctx, "s1", func(rec *Record) error {
		rec.FemaleAge = intPtr(99)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}

	rec, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.FemaleAge != nil {
		t.Fatalf("failed update leaked changes: %+v", rec)
	}
}

func TestMemoryStoreHandsOutSnapshots(t *testing.T) {
	store := NewMemorySessionStore(time.Hour)
	ctx := context.Background()

	if _, err := store.Update(ctx, "s1", func(rec *Record) error {
		rec.FemaleTests = []string{"Ultrasound scans"}
		return nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	snap, _ := store.Get(ctx, "s1")
	snap.FemaleTests[0] = "tampered"

	fresh, _ := store.Get(ctx, "s1")
	if fresh.FemaleTests[0] != "Ultrasound scans" {
		t.Fatalf("snapshot mutation reached the store: %v", fresh.FemaleTests)
	}
}

func TestMemoryStoreSerializesConcurrentUpdates(t *testing.T) {
	store := NewMemorySessionStore(time.Hour)
	ctx := context.Background()
	const workers = 32

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "s1", func(rec *Record) error {
				rec.Documents = append(rec.Documents, Document{TestKind: "AMH"})
				return nil
			})
			if err != nil {
				t.Errorf("update: %v", err)
			}
		}()
	}
	wg.Wait()

	rec, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(rec.Documents) != workers {
		t.Fatalf("lost updates: %d documents, want %d", len(rec.Documents), workers)
	}
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	current := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }
	ctx := context.Background()

	if _, err := store.Update(ctx, "s1", func(rec *Record) error { return nil }); err != nil {
		t.Fatalf("seed: %v", err)
	}

	current = current.Add(30 * time.Second)
	if _, err := store.Get(ctx, "s1"); err != nil {
		t.Fatalf("session expired early: %v", err)
	}

	// Each access extends the TTL, so expiry is measured from the last touch.
	current = current.Add(2 * time.Minute)
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound after TTL", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemorySessionStore(time.Hour)
	ctx := context.Background()

	if _, err := store.Update(ctx, "s1", func(rec *Record) error { return nil }); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}
