package profile

import (
	"context"
	"slices"
	"testing"

	"github.com/janisto/ringlink/internal/testutil"
)

func TestFirestoreStoreContract(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		return NewFirestoreStore(testutil.NewFirestoreClient(t))
	})
}

func TestFirestoreLegacyTokensConverge(t *testing.T) {
	client := testutil.NewFirestoreClient(t)
	store := NewFirestoreStore(client)
	ctx := context.Background()

	_, err := client.Collection(usersCollection).Doc("legacy").Set(ctx, map[string]any{
		"name":          "Legacy",
		"expoPushToken": "single",
		"pushTokens":    []string{"arr", "single"},
		"pushToken":     "generic",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	p, err := store.Get(ctx, "legacy")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !slices.Equal(p.PushTokens, []string{"single", "arr", "generic"}) {
		t.Fatalf("expected normalized tokens, got %v", p.PushTokens)
	}

	if _, err := store.AddPushToken(ctx, "legacy", "single"); err != nil {
		t.Fatalf("add token: %v", err)
	}
	snap, err := client.Collection(usersCollection).Doc("legacy").Get(ctx)
	if err != nil {
		t.Fatalf("raw get: %v", err)
	}
	data := snap.Data()
	for _, field := range []string{fieldExpoPushToken, fieldPushTokens, fieldPushToken} {
		if _, ok := data[field]; ok {
			t.Errorf("expected legacy field %s to be deleted", field)
		}
	}
	if data["name"] != "Legacy" {
		t.Errorf("merge write clobbered name: %v", data["name"])
	}
}

func TestNewFirestoreStoreOptions(t *testing.T) {
	s := NewFirestoreStore(nil, WithMaxAttempts(9))
	if s.maxAttempts != 9 {
		t.Fatalf("expected 9 attempts, got %d", s.maxAttempts)
	}
	s = NewFirestoreStore(nil, WithMaxAttempts(0))
	if s.maxAttempts != DefaultMaxAttempts {
		t.Fatalf("expected default attempts, got %d", s.maxAttempts)
	}
}
