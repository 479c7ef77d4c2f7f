package profile

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/ringlink/internal/platform/auth"
	"github.com/janisto/ringlink/internal/platform/logging"
	profilesvc "github.com/janisto/ringlink/internal/service/profile"
)

// Register registers profile endpoints.
func Register(api huma.API, store profilesvc.Store) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-profile",
		Method:        http.MethodPost,
		Path:          "/profile",
		Summary:       "Create user profile",
		Description:   "Creates the signup profile for the authenticated user. Email and phone default to the identity's.",
		Tags:          []string{"Profile"},
		DefaultStatus: http.StatusCreated,
		Security: []map[string][]string{
			{"bearerAuth": {}},
		},
	}, func(ctx context.Context, input *ProfileCreateInput) (*ProfileCreateOutput, error) {
		user := auth.UserFromContext(ctx)

		params := profilesvc.CreateParams{
			Name:            input.Body.Name,
			PartnerNameHint: input.Body.PartnerNameHint,
			Email:           input.Body.Email,
			PhoneNumber:     input.Body.PhoneNumber,
			Gender:          input.Body.Gender,
			AnniversaryDate: input.Body.AnniversaryDate,
		}
		if params.Email == "" {
			params.Email = user.Email
		}
		if params.PhoneNumber == "" {
			params.PhoneNumber = user.PhoneNumber
		}

		p, err := create(ctx, store, user.UID, params)
		if err != nil {
			reason := "internal"
			switch {
			case errors.Is(err, profilesvc.ErrAlreadyExists):
				reason = "already_exists"
			case errors.Is(err, errPhoneInUse):
				reason = "phone_in_use"
			}
			logging.LogAuditEvent(ctx, "profile.create", user.UID, "profile", user.UID, logging.AuditFailure,
				map[string]any{"error": reason})
			return nil, mapServiceError(err)
		}
		logging.LogAuditEvent(ctx, "profile.create", user.UID, "profile", user.UID, logging.AuditSuccess, nil)
		return &ProfileCreateOutput{
			Location: "/v1/profile",
			Body:     FromService(p),
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-profile",
		Method:      http.MethodGet,
		Path:        "/profile",
		Summary:     "Get current user's profile",
		Description: "Retrieves the profile for the authenticated user.",
		Tags:        []string{"Profile"},
		Security: []map[string][]string{
			{"bearerAuth": {}},
		},
	}, func(ctx context.Context, _ *ProfileGetInput) (*ProfileGetOutput, error) {
		user := auth.UserFromContext(ctx)

		p, err := store.Get(ctx, user.UID)
		if err != nil {
			return nil, mapServiceError(err)
		}
		return &ProfileGetOutput{
			Body: FromService(p),
		}, nil
	})
}

var errPhoneInUse = errors.New("phone number is registered to another account")

// create writes the signup document. Phone sign-in finds accounts by number, so a
// number already held by another user is refused.
func create(ctx context.Context, store profilesvc.Store, uid string, params profilesvc.CreateParams) (*profilesvc.Profile, error) {
	if params.PhoneNumber != "" {
		holder, err := store.FindByPhoneNumber(ctx, params.PhoneNumber)
		switch {
		case err == nil && holder.ID != uid:
			return nil, errPhoneInUse
		case err != nil && !errors.Is(err, profilesvc.ErrNotFound):
			return nil, err
		}
	}
	return store.Create(ctx, uid, params)
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, errPhoneInUse):
		return huma.Error409Conflict(errPhoneInUse.Error())
	case errors.Is(err, profilesvc.ErrNotFound):
		return huma.Error404NotFound("profile not found")
	case errors.Is(err, profilesvc.ErrAlreadyExists):
		return huma.Error409Conflict("profile already exists")
	default:
		return huma.Error500InternalServerError("internal error")
	}
}
