// Package invite mints and resolves the short codes partners exchange to link.
package invite

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/janisto/ringlink/internal/platform/logging"
	"github.com/janisto/ringlink/internal/service/profile"
)

// Defaults for code minting.
const (
	DefaultCodeLength  = 6
	DefaultMaxAttempts = 7
)

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Service errors
var (
	ErrExhausted     = errors.New("failed to generate unique invite code")
	ErrInvalidCode   = errors.New("invite code is required")
	ErrMissingUserID = errors.New("user id is required")
)

// DigestFunc is a deterministic one-way hash returning a hex or base-encoded string.
type DigestFunc func(seed string) (string, error)

// SHA256Hex is the default DigestFunc.
func SHA256Hex(seed string) (string, error) {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:]), nil
}

// Generator mints invite codes that no other profile holds.
type Generator struct {
	store       profile.Store
	digest      DigestFunc
	codeLength  int
	maxAttempts int
	now         func() time.Time
	randomCode  func(n int) (string, error)
}

// Option configures a Generator.
type Option func(*Generator)

// WithDigest replaces the hash used to derive candidates.
func WithDigest(fn DigestFunc) Option {
	return func(g *Generator) {
		g.digest = fn
	}
}

// WithCodeLength sets the number of characters per code.
func WithCodeLength(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.codeLength = n
		}
	}
}

// WithMaxAttempts sets how many candidates are tried before giving up.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// NewGenerator creates a Generator backed by store.
func NewGenerator(store profile.Store, opts ...Option) *Generator {
	g := &Generator{
		store:       store,
		digest:      SHA256Hex,
		codeLength:  DefaultCodeLength,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		randomCode:  randomBase36,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Ensure returns the user's code if that user is its only holder, and otherwise
// mints and stores a new one.
func (g *Generator) Ensure(ctx context.Context, userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", ErrMissingUserID
	}
	p, err := g.store.Get(ctx, userID)
	if err != nil {
		return "", err
	}

	if p.InviteCode != "" {
		holders, err := g.store.FindByInviteCode(ctx, p.InviteCode, 2)
		if err != nil {
			return "", err
		}
		if len(holders) == 1 && holders[0].ID == userID {
			return p.InviteCode, nil
		}
		logging.LogWarn(ctx, "invite code shared with another profile, regenerating",
			zap.String("userId", userID),
			zap.Int("holders", len(holders)),
		)
	}

	code, err := g.mint(ctx, userID, "")
	if err != nil {
		logging.LogAuditEvent(ctx, "invite_code.ensure", userID, "profile", userID, logging.AuditFailure,
			map[string]any{"error": categorizeError(err)})
		return "", err
	}
	if err := g.store.SetInviteCode(ctx, userID, code); err != nil {
		return "", fmt.Errorf("saving invite code: %w", err)
	}
	logging.LogAuditEvent(ctx, "invite_code.ensure", userID, "profile", userID, logging.AuditSuccess, nil)
	return code, nil
}

// Refresh replaces the user's code with a newly minted one. The old code is
// free for others as soon as the write lands.
func (g *Generator) Refresh(ctx context.Context, userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", ErrMissingUserID
	}
	p, err := g.store.Get(ctx, userID)
	if err != nil {
		return "", err
	}

	code, err := g.mint(ctx, userID, p.InviteCode)
	if err != nil {
		logging.LogAuditEvent(ctx, "invite_code.refresh", userID, "profile", userID, logging.AuditFailure,
			map[string]any{"error": categorizeError(err)})
		return "", err
	}
	if err := g.store.SetInviteCode(ctx, userID, code); err != nil {
		return "", fmt.Errorf("saving invite code: %w", err)
	}
	logging.LogAuditEvent(ctx, "invite_code.refresh", userID, "profile", userID, logging.AuditSuccess, nil)
	return code, nil
}

// Resolve returns the profile holding code. Input is trimmed and upper-cased.
func (g *Generator) Resolve(ctx context.Context, code string) (*profile.Profile, error) {
	normalized := Normalize(code)
	if normalized == "" {
		return nil, ErrInvalidCode
	}
	found, err := g.store.FindByInviteCode(ctx, normalized, 1)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, profile.ErrNotFound
	}
	return found[0], nil
}

// Normalize trims and upper-cases a typed or scanned code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// mint tries up to maxAttempts candidates and returns the first one no other
// profile holds. exclude is never returned.
func (g *Generator) mint(ctx context.Context, userID, exclude string) (string, error) {
	tried := make(map[string]struct{}, g.maxAttempts)
	uid := strings.TrimSpace(userID)

	for attempt := range g.maxAttempts {
		candidate, err := g.candidate(g.seed(uid, attempt))
		if err != nil {
			return "", err
		}
		if _, dup := tried[candidate]; dup {
			if candidate, err = g.randomCode(g.codeLength); err != nil {
				return "", err
			}
		}
		if _, dup := tried[candidate]; dup || candidate == exclude {
			continue
		}
		tried[candidate] = struct{}{}

		holders, err := g.store.FindByInviteCode(ctx, candidate, 2)
		if err != nil {
			return "", err
		}
		if !heldByOther(holders, userID) {
			return candidate, nil
		}
		logging.LogInfo(ctx, "invite code candidate taken",
			zap.String("userId", userID),
			zap.Int("attempt", attempt),
		)
	}
	return "", ErrExhausted
}

func (g *Generator) seed(uid string, attempt int) string {
	if attempt == 0 && uid != "" {
		return uid
	}
	owner := uid
	if owner == "" {
		owner = "anon"
	}
	return fmt.Sprintf("%s-%d-%s", owner, g.now().UnixNano(), uuid.NewString())
}

// candidate derives a code from seed, falling back to a random code when the
// digest fails or is too short.
func (g *Generator) candidate(seed string) (string, error) {
	if sum, err := g.digest(seed); err == nil && len(sum) >= g.codeLength {
		return strings.ToUpper(sum[:g.codeLength]), nil
	}
	return g.randomCode(g.codeLength)
}

func heldByOther(holders []*profile.Profile, userID string) bool {
	for _, h := range holders {
		if h.ID != userID {
			return true
		}
	}
	return false
}

func randomBase36(n int) (string, error) {
	limit := big.NewInt(int64(len(base36)))
	var b strings.Builder
	b.Grow(n)
	for range n {
		i, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("random invite code: %w", err)
		}
		b.WriteByte(base36[i.Int64()])
	}
	return b.String(), nil
}

// categorizeError returns an audit-safe error category.
func categorizeError(err error) string {
	switch {
	case errors.Is(err, ErrExhausted):
		return "exhausted"
	case errors.Is(err, profile.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal_error"
	}
}
