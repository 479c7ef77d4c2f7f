package ring

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/ringlink/internal/http/v1/delivery"
	"github.com/janisto/ringlink/internal/platform/auth"
	applog "github.com/janisto/ringlink/internal/platform/logging"
	"github.com/janisto/ringlink/internal/service/notify"
	profilesvc "github.com/janisto/ringlink/internal/service/profile"
)

// Profiles reads the caller's profile.
type Profiles interface {
	Get(ctx context.Context, userID string) (*profilesvc.Profile, error)
}

// Ringer sends ring notifications.
type Ringer interface {
	SendRing(ctx context.Context, p notify.RingParams) (*notify.Result, error)
}

// Register registers the ring endpoint.
func Register(api huma.API, profiles Profiles, ringer Ringer) {
	huma.Register(api, huma.Operation{
		OperationID: "ring-partner",
		Method:      http.MethodPost,
		Path:        "/ring",
		Summary:     "Ring partner",
		Description: "Sends a ring to every device of the caller's linked partner.",
		Tags:        []string{"Ring"},
		Security: []map[string][]string{
			{"bearerAuth": {}},
		},
	}, func(ctx context.Context, _ *RingInput) (*RingOutput, error) {
		user := auth.UserFromContext(ctx)

		p, err := profiles.Get(ctx, user.UID)
		if err != nil {
			return nil, mapServiceError(ctx, err)
		}
		if !p.IsLinked() {
			return nil, huma.Error409Conflict("link with a partner before ringing")
		}

		res, err := ringer.SendRing(ctx, notify.RingParams{
			PartnerID:   p.PartnerID,
			PartnerName: p.PartnerName,
			SenderName:  p.DisplayName(),
		})
		if err != nil {
			return nil, mapServiceError(ctx, err)
		}
		return &RingOutput{Body: delivery.FromResult(res)}, nil
	})
}

func mapServiceError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, profilesvc.ErrNotFound):
		return huma.Error404NotFound("profile not found")
	case errors.Is(err, notify.ErrTargetNotFound):
		return huma.Error404NotFound(notify.ErrTargetNotFound.Error())
	default:
		applog.LogError(ctx, "ring failed", err)
		return huma.Error500InternalServerError("internal error")
	}
}
