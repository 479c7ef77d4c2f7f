package profile

import (
	"github.com/janisto/ringlink/internal/platform/timeutil"
	profilesvc "github.com/janisto/ringlink/internal/service/profile"
)

// Profile represents a user profile response. Push tokens are reported as a count.
type Profile struct {
	ID                   string         `json:"id"                          doc:"Unique identifier"                  example:"user-123"`
	Name                 string         `json:"name"                        doc:"Display name"                       example:"Sun"`
	PartnerNameHint      string         `json:"partnerNameHint,omitempty"   doc:"Partner name entered at signup"     example:"Moon"`
	Email                string         `json:"email,omitempty"             doc:"Email address"                      example:"sun@example.com"`
	PhoneNumber          string         `json:"phoneNumber,omitempty"       doc:"Phone number (E.164)"               example:"+358401234567"`
	Gender               string         `json:"gender,omitempty"            doc:"Gender as picked at signup"         example:"Female"`
	AnniversaryDate      string         `json:"anniversaryDate,omitempty"   doc:"Relationship anniversary"           example:"2021-06-12"`
	Linked               bool           `json:"linked"                      doc:"Whether a partner is linked"        example:"true"`
	PartnerID            string         `json:"partnerId,omitempty"         doc:"Linked partner's user ID"           example:"user-456"`
	PartnerName          string         `json:"partnerName,omitempty"       doc:"Linked partner's display name"      example:"Moon"`
	PartnerInviteCode    string         `json:"partnerInviteCode,omitempty" doc:"Invite code used to link"           example:"4F2A9C"`
	InviteCode           string         `json:"inviteCode,omitempty"        doc:"This user's invite code"            example:"B71E03"`
	LinkedAt             *timeutil.Time `json:"linkedAt,omitempty"          doc:"When the pair was first linked"     example:"2024-01-15T10:30:00.000Z"`
	NotificationsEnabled bool           `json:"notificationsEnabled"        doc:"Push notifications enabled"         example:"true"`
	PushTokenCount       int            `json:"pushTokenCount"              doc:"Number of registered devices"       example:"1"`
	CreatedAt            timeutil.Time  `json:"createdAt"                   doc:"Creation timestamp"                 example:"2024-01-15T10:30:00.000Z"`
	UpdatedAt            timeutil.Time  `json:"updatedAt"                   doc:"Last update timestamp"              example:"2024-01-15T10:30:00.000Z"`
}

// FromService converts a stored profile. Linked follows the canonical pairing
// rule, so a document flagged linked without a partner reports false.
func FromService(p *profilesvc.Profile) Profile {
	return Profile{
		ID:                   p.ID,
		Name:                 p.Name,
		PartnerNameHint:      p.PartnerNameHint,
		Email:                p.Email,
		PhoneNumber:          p.PhoneNumber,
		Gender:               p.Gender,
		AnniversaryDate:      p.AnniversaryDate,
		Linked:               p.IsLinked(),
		PartnerID:            p.PartnerID,
		PartnerName:          p.PartnerName,
		PartnerInviteCode:    p.PartnerInviteCode,
		InviteCode:           p.InviteCode,
		LinkedAt:             timeutil.Ptr(p.LinkedAt),
		NotificationsEnabled: p.NotificationsEnabled,
		PushTokenCount:       len(p.PushTokens),
		CreatedAt:            timeutil.NewTime(p.CreatedAt),
		UpdatedAt:            timeutil.NewTime(p.UpdatedAt),
	}
}
