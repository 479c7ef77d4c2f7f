package invite

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/janisto/ringlink/internal/platform/auth"
	applog "github.com/janisto/ringlink/internal/platform/logging"
	invitesvc "github.com/janisto/ringlink/internal/service/invite"
	profilesvc "github.com/janisto/ringlink/internal/service/profile"
)

// Service is the invite code behavior the endpoints need.
type Service interface {
	Ensure(ctx context.Context, userID string) (string, error)
	Refresh(ctx context.Context, userID string) (string, error)
}

// Register registers invite code endpoints.
func Register(api huma.API, svc Service) {
	huma.Register(api, huma.Operation{
		OperationID: "get-invite-code",
		Method:      http.MethodGet,
		Path:        "/invite-code",
		Summary:     "Get invite code",
		Description: "Returns the caller's invite code, minting one if the caller has none or shares it with another profile.",
		Tags:        []string{"Invite code"},
		Security: []map[string][]string{
			{"bearerAuth": {}},
		},
	}, func(ctx context.Context, _ *InviteCodeGetInput) (*InviteCodeOutput, error) {
		user := auth.UserFromContext(ctx)

		code, err := svc.Ensure(ctx, user.UID)
		if err != nil {
			return nil, mapServiceError(ctx, err)
		}
		return &InviteCodeOutput{Body: InviteCode{InviteCode: code}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "refresh-invite-code",
		Method:      http.MethodPost,
		Path:        "/invite-code/refresh",
		Summary:     "Refresh invite code",
		Description: "Replaces the caller's invite code with a new one. The old code stops resolving to the caller.",
		Tags:        []string{"Invite code"},
		Security: []map[string][]string{
			{"bearerAuth": {}},
		},
	}, func(ctx context.Context, _ *InviteCodeRefreshInput) (*InviteCodeOutput, error) {
		user := auth.UserFromContext(ctx)

		code, err := svc.Refresh(ctx, user.UID)
		if err != nil {
			return nil, mapServiceError(ctx, err)
		}
		return &InviteCodeOutput{Body: InviteCode{InviteCode: code}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-invite-code-qr",
		Method:      http.MethodGet,
		Path:        "/invite-code/qr",
		Summary:     "Get invite code as QR image",
		Description: "Renders the caller's invite code as a PNG QR code for a partner to scan.",
		Tags:        []string{"Invite code"},
		Security: []map[string][]string{
			{"bearerAuth": {}},
		},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "PNG image",
				Content: map[string]*huma.MediaType{
					"image/png": {Schema: &huma.Schema{Type: "string", Format: "binary"}},
				},
			},
		},
	}, func(ctx context.Context, input *InviteCodeQRInput) (*InviteCodeQROutput, error) {
		user := auth.UserFromContext(ctx)

		code, err := svc.Ensure(ctx, user.UID)
		if err != nil {
			return nil, mapServiceError(ctx, err)
		}
		png, err := qrcode.Encode(code, qrcode.Medium, input.Size)
		if err != nil {
			applog.LogError(ctx, "qr encode failed", err)
			return nil, huma.Error500InternalServerError("internal error")
		}
		return &InviteCodeQROutput{
			ContentType:  "image/png",
			CacheControl: "private, no-store",
			Body:         png,
		}, nil
	})
}

func mapServiceError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, profilesvc.ErrNotFound):
		return huma.Error404NotFound("profile not found")
	case errors.Is(err, invitesvc.ErrExhausted):
		return huma.Error503ServiceUnavailable("could not generate a unique invite code, try again")
	case errors.Is(err, invitesvc.ErrMissingUserID):
		return huma.Error422UnprocessableEntity("user id is required")
	default:
		applog.LogError(ctx, "invite code operation failed", err)
		return huma.Error500InternalServerError("internal error")
	}
}
