// Package pushtoken keeps the per-user set of push delivery tokens.
package pushtoken

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/janisto/ringlink/internal/platform/logging"
	"github.com/janisto/ringlink/internal/service/profile"
)

// ErrMissingInput is returned when a user id or token is blank.
var ErrMissingInput = errors.New("user id and token are required")

// Registry adds, removes and lists push tokens on user profiles.
type Registry struct {
	store profile.Store
	cache Cache
}

// NewRegistry creates a Registry. A nil cache gets a fresh MemoryCache.
func NewRegistry(store profile.Store, cache Cache) *Registry {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Registry{store: store, cache: cache}
}

// Register adds token to the user's set and turns notifications on. Repeated
// calls for a pair already saved by this registry return without a store round trip.
// Prune and Unregister evict the pairs they remove, so a cached pair is always
// one the store still holds.
func (r *Registry) Register(ctx context.Context, userID, token string) error {
	userID = strings.TrimSpace(userID)
	token = strings.TrimSpace(token)
	if userID == "" || token == "" {
		return ErrMissingInput
	}

	if ok, err := r.cache.Has(ctx, userID, token); err != nil {
		logging.LogWarn(ctx, "push token cache lookup failed", zap.Error(err))
	} else if ok {
		return nil
	}

	added, err := r.store.AddPushToken(ctx, userID, token)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return err
		}
		logging.LogAuditEvent(ctx, "push_token.register", userID, "push_token", userID, logging.AuditFailure,
			map[string]any{"error": categorizeError(err)})
		return fmt.Errorf("saving push token: %w", err)
	}
	if added {
		logging.LogAuditEvent(ctx, "push_token.register", userID, "push_token", userID, logging.AuditSuccess, nil)
	}

	// Only a pair the store has just confirmed goes into the cache.
	if err := r.cache.Add(ctx, userID, token); err != nil {
		logging.LogWarn(ctx, "push token cache update failed", zap.Error(err))
	}
	return nil
}

// Prune removes exactly the named tokens. A missing user or an empty list is a no-op.
func (r *Registry) Prune(ctx context.Context, userID string, invalid []string) error {
	if strings.TrimSpace(userID) == "" || len(invalid) == 0 {
		return nil
	}
	removed, err := r.remove(ctx, userID, invalid)
	if err != nil {
		logging.LogAuditEvent(ctx, "push_token.prune", userID, "push_token", userID, logging.AuditFailure,
			map[string]any{"error": categorizeError(err)})
		return err
	}
	if removed > 0 {
		logging.LogAuditEvent(ctx, "push_token.prune", userID, "push_token", userID, logging.AuditSuccess,
			map[string]any{"removed": removed})
	}
	if err := r.cache.Remove(ctx, userID, invalid...); err != nil {
		logging.LogWarn(ctx, "push token cache update failed", zap.Error(err))
	}
	return nil
}

// Unregister drops token from the user's set, as on logout from a device, and
// forgets every cached registration for the user.
func (r *Registry) Unregister(ctx context.Context, userID, token string) error {
	userID = strings.TrimSpace(userID)
	token = strings.TrimSpace(token)
	if userID == "" || token == "" {
		return ErrMissingInput
	}
	if _, err := r.remove(ctx, userID, []string{token}); err != nil {
		logging.LogAuditEvent(ctx, "push_token.unregister", userID, "push_token", userID, logging.AuditFailure,
			map[string]any{"error": categorizeError(err)})
		return err
	}
	logging.LogAuditEvent(ctx, "push_token.unregister", userID, "push_token", userID, logging.AuditSuccess, nil)
	return r.Forget(ctx, userID)
}

// Forget clears the registration cache for userID.
func (r *Registry) Forget(ctx context.Context, userID string) error {
	if err := r.cache.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clearing push token cache: %w", err)
	}
	return nil
}

// Tokens returns the user's normalized token set.
func (r *Registry) Tokens(ctx context.Context, userID string) ([]string, error) {
	p, err := r.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return p.PushTokens, nil
}

// remove drops the tokens in one atomic store update. A missing profile removes nothing.
func (r *Registry) remove(ctx context.Context, userID string, drop []string) (int, error) {
	removed, err := r.store.RemovePushTokens(ctx, userID, drop)
	if errors.Is(err, profile.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("saving push tokens: %w", err)
	}
	return removed, nil
}

// categorizeError returns an audit-safe error category.
func categorizeError(err error) string {
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal_error"
	}
}
