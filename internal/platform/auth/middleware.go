package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	applog "github.com/janisto/ringlink/internal/platform/logging"
)

type userContextKey struct{}

// NewAuthMiddleware returns huma middleware that enforces bearer authentication on
// operations declaring a Security requirement. Accepted requests carry the user in
// their context and a request logger tagged with the user's ID.
func NewAuthMiddleware(api huma.API, verifier Verifier) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if len(op.Security) == 0 {
			next(ctx)
			return
		}

		token, err := ExtractBearerToken(ctx.Header("Authorization"))
		if err != nil {
			reject(api, ctx, op.OperationID, err, "missing or invalid authorization header")
			return
		}
		user, err := verifier.Verify(ctx.Context(), token)
		if err != nil {
			reject(api, ctx, op.OperationID, err, "invalid or expired token")
			return
		}

		reqCtx := applog.WithFields(ctx.Context(), zap.String("userId", user.UID))
		next(huma.WithContext(ctx, context.WithValue(reqCtx, userContextKey{}, user)))
	}
}

// reject answers 503 while signing keys are unreachable and 401 otherwise.
func reject(api huma.API, ctx huma.Context, operationID string, err error, detail string) {
	applog.LogWarn(ctx.Context(), "request rejected",
		zap.String("operationId", operationID),
		zap.String("reason", categorizeAuthError(err)),
	)
	if errors.Is(err, ErrCertificateFetch) {
		ctx.SetHeader("Retry-After", "30")
		_ = huma.WriteErr(api, ctx, http.StatusServiceUnavailable, "authentication service temporarily unavailable")
		return
	}
	ctx.SetHeader("WWW-Authenticate", "Bearer")
	_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, detail)
}

func categorizeAuthError(err error) string {
	switch {
	case errors.Is(err, ErrNoToken):
		return "no_token"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrTokenRevoked):
		return "token_revoked"
	case errors.Is(err, ErrUserDisabled):
		return "user_disabled"
	case errors.Is(err, ErrCertificateFetch):
		return "certificate_fetch_failed"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	default:
		return "unknown"
	}
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey{}).(*User)
	return user
}
