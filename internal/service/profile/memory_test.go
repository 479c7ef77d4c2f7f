package profile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryStoreContract(t *testing.T) {
	storeContract(t, func(t *testing.T) Store { return NewMemoryStore(DefaultMaxAttempts) })
}

func TestMemoryStoreLegacyTokensConverge(t *testing.T) {
	s := NewMemoryStore(DefaultMaxAttempts)
	ctx := context.Background()
	s.Put(&Profile{ID: "legacy", Name: "Legacy"})
	if err := s.PutLegacyTokens("legacy", LegacyTokens{
		ExpoPushToken: "single",
		PushTokens:    []string{"arr", "single"},
		PushToken:     "generic",
	}); err != nil {
		t.Fatalf("put legacy: %v", err)
	}

	p, err := s.Get(ctx, "legacy")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !slices.Equal(p.PushTokens, []string{"single", "arr", "generic"}) {
		t.Fatalf("expected normalized tokens, got %v", p.PushTokens)
	}

	added, err := s.AddPushToken(ctx, "legacy", "single")
	if err != nil {
		t.Fatalf("add token: %v", err)
	}
	if !added {
		t.Fatal("expected legacy fields to force a write")
	}
	raw, err := s.LegacyTokens("legacy")
	if err != nil {
		t.Fatalf("legacy tokens: %v", err)
	}
	if raw.ExpoPushToken != "" || raw.PushToken != "" || len(raw.PushTokens) != 0 {
		t.Fatalf("legacy fields must be dropped on write: %+v", raw)
	}
	if !slices.Equal(raw.ExpoPushTokens, []string{"single", "arr", "generic"}) {
		t.Fatalf("canonical field not written: %v", raw.ExpoPushTokens)
	}
}

func TestMemoryStoreTransactionRetriesOnConflict(t *testing.T) {
	s := NewMemoryStore(3)
	ctx := context.Background()
	s.Put(&Profile{ID: "a", Name: "A"})
	s.Put(&Profile{ID: "b", Name: "B"})

	var commits atomic.Int32
	s.SetBeforeCommit(func() {
		// The first attempt loses to a concurrent invite code write.
		if commits.Add(1) == 1 {
			_ = s.SetInviteCode(ctx, "a", "RACE01")
		}
	})

	var runs int
	err := s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		runs++
		if _, err := tx.Get("a"); err != nil {
			return err
		}
		return tx.SetLink("a", Link{PartnerID: "b", LinkedAt: time.Now()})
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if runs != 2 {
		t.Fatalf("expected 2 runs, got %d", runs)
	}
	p, _ := s.Get(ctx, "a")
	if p.InviteCode != "RACE01" || !p.IsLinkedWith("b") {
		t.Fatalf("expected both writes to survive: %+v", p)
	}
}

func TestMemoryStoreTransactionExhaustsBudget(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()
	s.Put(&Profile{ID: "a", Name: "A"})
	s.SetBeforeCommit(func() { _ = s.SetInviteCode(ctx, "a", "NOISE1") })

	var runs int
	err := s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		runs++
		_, err := tx.Get("a")
		return err
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if runs != 2 {
		t.Fatalf("expected budget of 2 runs, got %d", runs)
	}
}

func TestMemoryStoreTransactionRejectsReadAfterWrite(t *testing.T) {
	s := NewMemoryStore(1)
	s.Put(&Profile{ID: "a"})
	s.Put(&Profile{ID: "b"})
	err := s.RunTransaction(context.Background(), func(ctx context.Context, tx Tx) error {
		if err := tx.SetLink("a", Link{PartnerID: "b"}); err != nil {
			return err
		}
		_, err := tx.Get("b")
		return err
	})
	if !errors.Is(err, errWriteBeforeRead) {
		t.Fatalf("expected errWriteBeforeRead, got %v", err)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore(1)
	s.Put(&Profile{ID: "a", PushTokens: []string{"t"}})
	p, _ := s.Get(context.Background(), "a")
	p.PushTokens[0] = "mutated"
	again, _ := s.Get(context.Background(), "a")
	if again.PushTokens[0] != "t" {
		t.Fatal("store leaked internal state")
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	s := NewMemoryStore(DefaultMaxAttempts)
	ctx := context.Background()
	s.Put(&Profile{ID: "shared"})

	var wg sync.WaitGroup
	for i := range 40 {
		wg.Go(func() {
			switch i % 5 {
			case 0:
				_, _ = s.Get(ctx, "shared")
			case 1:
				_ = s.SetInviteCode(ctx, "shared", "CODE00")
			case 2:
				_, _ = s.AddPushToken(ctx, "shared", "t")
			case 3:
				_, _ = s.FindByInviteCode(ctx, "CODE00", 1)
			case 4:
				_, _ = s.RemovePushTokens(ctx, "shared", []string{"t"})
			}
		})
	}
	wg.Wait()
}

func TestMemoryStoreClear(t *testing.T) {
	s := NewMemoryStore(1)
	s.Put(&Profile{ID: "a"})
	s.Clear()
	if _, err := s.Get(context.Background(), "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
}

func TestMemoryStoreConcurrentTokenWrites(t *testing.T) {
	s := NewMemoryStore(DefaultMaxAttempts)
	ctx := context.Background()
	old := []string{"old-0", "old-1", "old-2", "old-3", "old-4"}
	s.Put(&Profile{ID: "race", PushTokens: old})

	var wg sync.WaitGroup
	for i := range 5 {
		wg.Go(func() {
			if _, err := s.AddPushToken(ctx, "race", fmt.Sprintf("new-%d", i)); err != nil {
				t.Errorf("add: %v", err)
			}
		})
		wg.Go(func() {
			if _, err := s.RemovePushTokens(ctx, "race", []string{old[i]}); err != nil {
				t.Errorf("remove: %v", err)
			}
		})
	}
	wg.Wait()

	got, err := s.Get(ctx, "race")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	slices.Sort(got.PushTokens)
	want := []string{"new-0", "new-1", "new-2", "new-3", "new-4"}
	if !slices.Equal(got.PushTokens, want) {
		t.Fatalf("expected %v, got %v", want, got.PushTokens)
	}
}
