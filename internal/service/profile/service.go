package profile

import (
	"context"
	"errors"
	"slices"
	"time"
)

// Service errors
var (
	ErrNotFound      = errors.New("profile not found")
	ErrAlreadyExists = errors.New("profile already exists")
	// ErrConflict is returned when a transaction kept losing to concurrent writers
	// until its retry budget ran out.
	ErrConflict = errors.New("transaction conflict")
)

// Profile is a user document as the core sees it. PushTokens is always the
// normalized set, whatever shape the stored document has.
type Profile struct {
	ID                   string
	Name                 string
	PartnerNameHint      string
	Email                string
	PhoneNumber          string
	Gender               string
	AnniversaryDate      string
	Linked               bool
	PartnerID            string
	PartnerName          string
	PartnerInviteCode    string
	InviteCode           string
	LinkedAt             *time.Time
	PushTokens           []string
	NotificationsEnabled bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsLinked reports whether the profile is bound to a partner. A document with
// linked=true but no partnerId counts as unlinked.
func (p *Profile) IsLinked() bool {
	return p.Linked && p.PartnerID != ""
}

// IsLinkedWith reports whether the profile names partnerID as its partner.
func (p *Profile) IsLinkedWith(partnerID string) bool {
	return p.IsLinked() && p.PartnerID == partnerID
}

// DisplayName is the name shown to the partner: the profile's own name, else the
// partner name hint entered at signup.
func (p *Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.PartnerNameHint
}

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	c := *p
	c.PushTokens = slices.Clone(p.PushTokens)
	if p.LinkedAt != nil {
		t := *p.LinkedAt
		c.LinkedAt = &t
	}
	return &c
}

// CreateParams holds the signup fields. AnniversaryDate is a calendar date
// (YYYY-MM-DD) as entered in the app.
type CreateParams struct {
	Name            string
	PartnerNameHint string
	Email           string
	PhoneNumber     string
	Gender          string
	AnniversaryDate string
}

// Link is the partner state written to one side of a pairing.
type Link struct {
	PartnerID         string
	PartnerName       string
	PartnerInviteCode string
	LinkedAt          time.Time
}

// Tx is the handle a transaction function reads and writes through. All reads
// must happen before the first write.
type Tx interface {
	Get(userID string) (*Profile, error)
	SetLink(userID string, link Link) error
}

// TxFunc is the body of a transaction. It may run more than once and must not
// have side effects outside tx.
type TxFunc func(ctx context.Context, tx Tx) error

// Store is the profile persistence contract.
//
// Single-document writes are merge writes: fields a call does not name are left
// untouched. RunTransaction retries fn on conflicting concurrent commits and
// returns ErrConflict once its attempt budget is spent.
type Store interface {
	Create(ctx context.Context, userID string, params CreateParams) (*Profile, error)
	Get(ctx context.Context, userID string) (*Profile, error)
	FindByInviteCode(ctx context.Context, code string, limit int) ([]*Profile, error)
	FindByPhoneNumber(ctx context.Context, phoneNumber string) (*Profile, error)
	SetInviteCode(ctx context.Context, userID, code string) error
	// AddPushToken appends token to the user's set and turns notifications on as one
	// atomic read-modify-write. Legacy token fields are folded into the canonical
	// array in the same write. It reports whether the document changed.
	AddPushToken(ctx context.Context, userID, token string) (bool, error)
	// RemovePushTokens atomically drops the named tokens and returns how many were
	// present. Other tokens, including ones added concurrently, are kept.
	RemovePushTokens(ctx context.Context, userID string, tokens []string) (int, error)
	RunTransaction(ctx context.Context, fn TxFunc) error
}
