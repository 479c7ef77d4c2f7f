package link

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/janisto/ringlink/internal/http/v1/delivery"
	"github.com/janisto/ringlink/internal/http/v1/profile"
	"github.com/janisto/ringlink/internal/platform/auth"
	applog "github.com/janisto/ringlink/internal/platform/logging"
	linksvc "github.com/janisto/ringlink/internal/service/link"
	"github.com/janisto/ringlink/internal/service/notify"
)

// Linker pairs the caller with the holder of an invite code.
type Linker interface {
	LinkByInviteCode(ctx context.Context, userID, code string) (*linksvc.Result, error)
}

// Notifier sends the pairing confirmation.
type Notifier interface {
	SendPartnerLinked(ctx context.Context, p notify.LinkedParams) (*notify.Result, error)
}

// Register registers the link endpoint.
func Register(api huma.API, linker Linker, notifier Notifier) {
	huma.Register(api, huma.Operation{
		OperationID: "link-partner",
		Method:      http.MethodPost,
		Path:        "/link",
		Summary:     "Link with a partner",
		Description: "Links the caller with the profile holding the invite code and notifies the partner. " +
			"Repeating a link that already exists is a no-op.",
		Tags: []string{"Link"},
		Security: []map[string][]string{
			{"bearerAuth": {}},
		},
	}, func(ctx context.Context, input *LinkInput) (*LinkOutput, error) {
		user := auth.UserFromContext(ctx)

		res, err := linker.LinkByInviteCode(ctx, user.UID, input.Body.InviteCode)
		if err != nil {
			return nil, mapServiceError(ctx, err)
		}

		out := &LinkOutput{Body: LinkResult{
			User:    profile.FromService(res.User),
			Partner: Partner{ID: res.Partner.ID, Name: res.Partner.DisplayName()},
			Created: res.Created,
		}}
		if !res.Created {
			return out, nil
		}

		sent, err := notifier.SendPartnerLinked(ctx, notify.LinkedParams{
			PartnerID:   res.Partner.ID,
			PartnerName: res.Partner.DisplayName(),
			SenderName:  res.User.DisplayName(),
		})
		if err != nil {
			// The link is committed; a failed confirmation does not undo it.
			applog.LogWarn(ctx, "partner linked notification failed",
				zap.String("partnerId", res.Partner.ID),
				zap.Error(err),
			)
			return out, nil
		}
		d := delivery.FromResult(sent)
		out.Body.Delivery = &d
		return out, nil
	})
}

func mapServiceError(ctx context.Context, err error) error {
	var linkedErr *linksvc.PartnerLinkedError
	switch {
	case errors.As(err, &linkedErr):
		return huma.Error409Conflict(linkedErr.Error())
	case errors.Is(err, linksvc.ErrAlreadyLinkedElsewhere):
		return huma.Error409Conflict(linksvc.ErrAlreadyLinkedElsewhere.Error())
	case errors.Is(err, linksvc.ErrInvalidRequest):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, linksvc.ErrProfileNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, linksvc.ErrConflict):
		return huma.Error503ServiceUnavailable("link is busy, try again")
	default:
		applog.LogError(ctx, "link failed", err)
		return huma.Error500InternalServerError("internal error")
	}
}
