package pushtoken

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/ringlink/internal/platform/auth"
	applog "github.com/janisto/ringlink/internal/platform/logging"
	profilesvc "github.com/janisto/ringlink/internal/service/profile"
	tokensvc "github.com/janisto/ringlink/internal/service/pushtoken"
)

// Service manages a user's device tokens.
type Service interface {
	Register(ctx context.Context, userID, token string) error
	Unregister(ctx context.Context, userID, token string) error
}

// Register registers push token endpoints.
func Register(api huma.API, svc Service) {
	huma.Register(api, huma.Operation{
		OperationID:   "register-push-token",
		Method:        http.MethodPost,
		Path:          "/push-tokens",
		Summary:       "Register device push token",
		Description:   "Adds the device token to the caller's set and enables notifications. Registering a known token is a no-op.",
		Tags:          []string{"Push tokens"},
		DefaultStatus: http.StatusNoContent,
		Security: []map[string][]string{
			{"bearerAuth": {}},
		},
	}, func(ctx context.Context, input *PushTokenRegisterInput) (*struct{}, error) {
		user := auth.UserFromContext(ctx)

		if err := svc.Register(ctx, user.UID, input.Body.Token); err != nil {
			return nil, mapServiceError(ctx, err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "unregister-push-token",
		Method:        http.MethodDelete,
		Path:          "/push-tokens",
		Summary:       "Unregister device push token",
		Description:   "Removes the device token from the caller's set, as on logout.",
		Tags:          []string{"Push tokens"},
		DefaultStatus: http.StatusNoContent,
		Security: []map[string][]string{
			{"bearerAuth": {}},
		},
	}, func(ctx context.Context, input *PushTokenUnregisterInput) (*struct{}, error) {
		user := auth.UserFromContext(ctx)

		if err := svc.Unregister(ctx, user.UID, input.Token); err != nil {
			return nil, mapServiceError(ctx, err)
		}
		return nil, nil
	})
}

func mapServiceError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, tokensvc.ErrMissingInput):
		return huma.Error422UnprocessableEntity("token is required")
	case errors.Is(err, profilesvc.ErrNotFound):
		return huma.Error404NotFound("profile not found")
	default:
		applog.LogError(ctx, "push token operation failed", err)
		return huma.Error500InternalServerError("internal error")
	}
}
