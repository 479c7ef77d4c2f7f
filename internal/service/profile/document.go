package profile

import (
	"slices"
	"time"
)

const (
	usersCollection = "users"

	fieldInviteCode           = "inviteCode"
	fieldPhoneNumber          = "phoneNumber"
	fieldLinked               = "linked"
	fieldPartnerID            = "partnerId"
	fieldPartnerName          = "partnerName"
	fieldPartnerInviteCode    = "partnerInviteCode"
	fieldLinkedAt             = "linkedAt"
	fieldExpoPushTokens       = "expoPushTokens"
	fieldExpoPushToken        = "expoPushToken"
	fieldPushTokens           = "pushTokens"
	fieldPushToken            = "pushToken"
	fieldNotificationsEnabled = "notificationsEnabled"
	fieldUpdatedAt            = "updatedAt"
)

// document is the stored shape of a user, legacy token fields included.
type document struct {
	Name                 string     `firestore:"name"`
	PartnerNameHint      string     `firestore:"partnerNameHint"`
	Email                string     `firestore:"email"`
	PhoneNumber          string     `firestore:"phoneNumber"`
	Gender               string     `firestore:"gender,omitempty"`
	AnniversaryDate      string     `firestore:"anniversaryDate,omitempty"`
	Linked               bool       `firestore:"linked"`
	PartnerID            string     `firestore:"partnerId,omitempty"`
	PartnerName          string     `firestore:"partnerName,omitempty"`
	PartnerInviteCode    string     `firestore:"partnerInviteCode,omitempty"`
	InviteCode           string     `firestore:"inviteCode,omitempty"`
	LinkedAt             *time.Time `firestore:"linkedAt,omitempty"`
	ExpoPushTokens       []string   `firestore:"expoPushTokens,omitempty"`
	ExpoPushToken        string     `firestore:"expoPushToken,omitempty"`
	PushTokens           []string   `firestore:"pushTokens,omitempty"`
	PushToken            string     `firestore:"pushToken,omitempty"`
	NotificationsEnabled bool       `firestore:"notificationsEnabled"`
	CreatedAt            time.Time  `firestore:"createdAt"`
	UpdatedAt            time.Time  `firestore:"updatedAt"`
}

func newDocument(params CreateParams, now time.Time) document {
	return document{
		Name:            params.Name,
		PartnerNameHint: params.PartnerNameHint,
		Email:           params.Email,
		PhoneNumber:     params.PhoneNumber,
		Gender:          params.Gender,
		AnniversaryDate: params.AnniversaryDate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (d *document) legacyTokens() LegacyTokens {
	return LegacyTokens{
		ExpoPushTokens: d.ExpoPushTokens,
		ExpoPushToken:  d.ExpoPushToken,
		PushTokens:     d.PushTokens,
		PushToken:      d.PushToken,
	}
}

func (d *document) toProfile(id string) *Profile {
	p := &Profile{
		ID:                   id,
		Name:                 d.Name,
		PartnerNameHint:      d.PartnerNameHint,
		Email:                d.Email,
		PhoneNumber:          d.PhoneNumber,
		Gender:               d.Gender,
		AnniversaryDate:      d.AnniversaryDate,
		Linked:               d.Linked,
		PartnerID:            d.PartnerID,
		PartnerName:          d.PartnerName,
		PartnerInviteCode:    d.PartnerInviteCode,
		InviteCode:           d.InviteCode,
		PushTokens:           NormalizeTokens(d.legacyTokens()),
		NotificationsEnabled: d.NotificationsEnabled,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
	if d.LinkedAt != nil {
		t := *d.LinkedAt
		p.LinkedAt = &t
	}
	return p
}

func (d *document) clone() document {
	c := *d
	c.ExpoPushTokens = slices.Clone(d.ExpoPushTokens)
	c.PushTokens = slices.Clone(d.PushTokens)
	if d.LinkedAt != nil {
		t := *d.LinkedAt
		c.LinkedAt = &t
	}
	return c
}

func (d *document) applyLink(link Link, now time.Time) {
	linkedAt := link.LinkedAt
	d.Linked = true
	d.PartnerID = link.PartnerID
	d.PartnerName = link.PartnerName
	d.PartnerInviteCode = link.PartnerInviteCode
	d.LinkedAt = &linkedAt
	d.UpdatedAt = now
}

func (d *document) hasLegacyTokens() bool {
	return d.ExpoPushToken != "" || d.PushToken != "" || len(d.PushTokens) > 0
}

// addToken folds the legacy fields, appends token and enables notifications.
// It returns false when the document already holds token in canonical form.
func (d *document) addToken(token string, now time.Time) bool {
	tokens := NormalizeTokens(d.legacyTokens())
	present := slices.Contains(tokens, token)
	if present && d.NotificationsEnabled && !d.hasLegacyTokens() {
		return false
	}
	if !present {
		tokens = append(tokens, token)
	}
	d.applyTokens(tokens, true, now)
	return true
}

// removeTokens drops every token in drop and returns how many were present.
func (d *document) removeTokens(drop []string, now time.Time) int {
	tokens := NormalizeTokens(d.legacyTokens())
	kept := slices.DeleteFunc(slices.Clone(tokens), func(t string) bool {
		return slices.Contains(drop, t)
	})
	removed := len(tokens) - len(kept)
	if removed > 0 {
		d.applyTokens(kept, false, now)
	}
	return removed
}

func (d *document) applyTokens(tokens []string, enable bool, now time.Time) {
	d.ExpoPushTokens = Dedupe(tokens)
	d.ExpoPushToken = ""
	d.PushTokens = nil
	d.PushToken = ""
	if enable {
		d.NotificationsEnabled = true
	}
	d.UpdatedAt = now
}
