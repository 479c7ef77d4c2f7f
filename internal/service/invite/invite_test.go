package invite

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/janisto/ringlink/internal/service/profile"
)

var codePattern = regexp.MustCompile(`^[0-9A-Z]{6}$`)

func newStore(ids ...string) *profile.MemoryStore {
	s := profile.NewMemoryStore(profile.DefaultMaxAttempts)
	for _, id := range ids {
		s.Put(&profile.Profile{ID: id, Name: id})
	}
	return s
}

func expectedFirstCode(uid string) string {
	sum := sha256.Sum256([]byte(uid))
	return strings.ToUpper(hex.EncodeToString(sum[:])[:6])
}

func constDigest(v string) DigestFunc {
	return func(string) (string, error) { return v, nil }
}

func TestEnsureMintsFromUserID(t *testing.T) {
	s := newStore("alice")
	g := NewGenerator(s)

	code, err := g.Ensure(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if code != expectedFirstCode("alice") {
		t.Fatalf("expected %s, got %s", expectedFirstCode("alice"), code)
	}
	if !codePattern.MatchString(code) {
		t.Fatalf("code %q does not match format", code)
	}
	p, _ := s.Get(context.Background(), "alice")
	if p.InviteCode != code {
		t.Fatalf("code not persisted: %q", p.InviteCode)
	}
}

func TestEnsureReusesUniqueCode(t *testing.T) {
	s := newStore()
	s.Put(&profile.Profile{ID: "alice", InviteCode: "KEEP01"})
	g := NewGenerator(s)

	code, err := g.Ensure(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if code != "KEEP01" {
		t.Fatalf("expected existing code, got %s", code)
	}
}

func TestEnsureRegeneratesSharedCode(t *testing.T) {
	s := newStore()
	s.Put(&profile.Profile{ID: "alice", InviteCode: "SHARED"})
	s.Put(&profile.Profile{ID: "bob", InviteCode: "SHARED"})
	g := NewGenerator(s)

	code, err := g.Ensure(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if code == "SHARED" {
		t.Fatal("shared code must be replaced")
	}
	bob, _ := s.Get(context.Background(), "bob")
	if bob.InviteCode != "SHARED" {
		t.Fatalf("other holder must keep its code, got %s", bob.InviteCode)
	}
}

func TestEnsureMissingProfile(t *testing.T) {
	g := NewGenerator(newStore())
	if _, err := g.Ensure(context.Background(), "ghost"); !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := g.Ensure(context.Background(), " "); !errors.Is(err, ErrMissingUserID) {
		t.Fatalf("expected ErrMissingUserID, got %v", err)
	}
}

func TestEnsureSkipsCodeHeldByOther(t *testing.T) {
	s := newStore("alice")
	s.Put(&profile.Profile{ID: "squatter", InviteCode: expectedFirstCode("alice")})
	g := NewGenerator(s)

	code, err := g.Ensure(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if code == expectedFirstCode("alice") {
		t.Fatal("candidate held by another profile was accepted")
	}
	if !codePattern.MatchString(code) {
		t.Fatalf("code %q does not match format", code)
	}
}

func TestRefreshReplacesCode(t *testing.T) {
	s := newStore()
	s.Put(&profile.Profile{ID: "alice", InviteCode: expectedFirstCode("alice")})
	g := NewGenerator(s)

	code, err := g.Refresh(context.Background(), "alice")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if code == expectedFirstCode("alice") {
		t.Fatal("refresh returned the current code")
	}
	p, _ := s.Get(context.Background(), "alice")
	if p.InviteCode != code {
		t.Fatalf("code not persisted: %q", p.InviteCode)
	}

	// The discarded code is immediately available to others.
	found, _ := s.FindByInviteCode(context.Background(), expectedFirstCode("alice"), 1)
	if len(found) != 0 {
		t.Fatal("old code still held")
	}
}

func TestRefreshValidation(t *testing.T) {
	g := NewGenerator(newStore())
	if _, err := g.Refresh(context.Background(), ""); !errors.Is(err, ErrMissingUserID) {
		t.Fatalf("expected ErrMissingUserID, got %v", err)
	}
	if _, err := g.Refresh(context.Background(), "ghost"); !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMintExhausted(t *testing.T) {
	s := newStore("alice")
	s.Put(&profile.Profile{ID: "bob", InviteCode: "TAKEN1"})
	g := NewGenerator(s, WithDigest(constDigest("taken1ffff")), WithMaxAttempts(3))
	randomCalls := 0
	g.randomCode = func(int) (string, error) {
		randomCalls++
		return "TAKEN1", nil
	}

	_, err := g.Ensure(context.Background(), "alice")
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if randomCalls != 2 {
		t.Fatalf("expected random fallback on each repeated candidate, got %d calls", randomCalls)
	}
	p, _ := s.Get(context.Background(), "alice")
	if p.InviteCode != "" {
		t.Fatalf("exhaustion must not write, got %q", p.InviteCode)
	}
}

func TestMintRepeatedCandidateFallsBackToRandom(t *testing.T) {
	s := newStore("alice")
	s.Put(&profile.Profile{ID: "bob", InviteCode: "ABCDEF"})
	g := NewGenerator(s, WithDigest(constDigest("abcdef0123")))
	g.randomCode = func(n int) (string, error) { return strings.Repeat("Z", n), nil }

	code, err := g.Ensure(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if code != "ZZZZZZ" {
		t.Fatalf("expected random fallback code, got %s", code)
	}
}

func TestMintDigestFailureFallsBackToRandom(t *testing.T) {
	s := newStore("alice")
	g := NewGenerator(s, WithDigest(func(string) (string, error) {
		return "", errors.New("digest unavailable")
	}))

	code, err := g.Ensure(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if !codePattern.MatchString(code) {
		t.Fatalf("code %q does not match format", code)
	}
}

func TestMintRandomFailurePropagates(t *testing.T) {
	g := NewGenerator(newStore("alice"), WithDigest(func(string) (string, error) {
		return "", errors.New("digest unavailable")
	}))
	boom := errors.New("no entropy")
	g.randomCode = func(int) (string, error) { return "", boom }

	if _, err := g.Ensure(context.Background(), "alice"); !errors.Is(err, boom) {
		t.Fatalf("expected entropy error, got %v", err)
	}
}

func TestCodeLengthOption(t *testing.T) {
	g := NewGenerator(newStore("alice"), WithCodeLength(8))
	code, err := g.Ensure(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if len(code) != 8 {
		t.Fatalf("expected 8 characters, got %q", code)
	}
}

func TestCodesUniqueAcrossUsers(t *testing.T) {
	s := newStore()
	ids := make([]string, 50)
	for i := range ids {
		ids[i] = fmt.Sprintf("user-%02d", i)
		s.Put(&profile.Profile{ID: ids[i]})
	}
	// Force every first candidate onto the same value so the store check matters.
	g := NewGenerator(s, WithDigest(func(seed string) (string, error) {
		if len(seed) == len("user-00") {
			return "samesame", nil
		}
		return SHA256Hex(seed)
	}))

	seen := make(map[string]string)
	for _, id := range ids {
		code, err := g.Ensure(context.Background(), id)
		if err != nil {
			t.Fatalf("ensure %s: %v", id, err)
		}
		if other, dup := seen[code]; dup {
			t.Fatalf("code %s handed to %s and %s", code, other, id)
		}
		seen[code] = id
	}
}

func TestResolve(t *testing.T) {
	s := newStore()
	s.Put(&profile.Profile{ID: "bob", Name: "Bob", InviteCode: "BOB123"})
	g := NewGenerator(s)

	p, err := g.Resolve(context.Background(), "  bob123 ")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.ID != "bob" {
		t.Fatalf("expected bob, got %s", p.ID)
	}
	if _, err := g.Resolve(context.Background(), "   "); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
	if _, err := g.Resolve(context.Background(), "NOPE00"); !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRandomBase36(t *testing.T) {
	for range 20 {
		code, err := randomBase36(6)
		if err != nil {
			t.Fatalf("random: %v", err)
		}
		if !codePattern.MatchString(code) {
			t.Fatalf("code %q does not match format", code)
		}
	}
}
