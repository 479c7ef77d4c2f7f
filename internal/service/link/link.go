// Package link pairs two profiles in a single store transaction.
package link

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/janisto/ringlink/internal/platform/logging"
	"github.com/janisto/ringlink/internal/service/profile"
)

// Service errors
var (
	ErrInvalidRequest                = errors.New("invalid link request")
	ErrProfileNotFound               = errors.New("profile not found")
	ErrAlreadyLinkedElsewhere        = errors.New("your account is already linked with another partner")
	ErrPartnerAlreadyLinkedElsewhere = errors.New("partner is already linked with someone else")
	ErrConflict                      = errors.New("link conflicted with a concurrent update")
)

// PartnerLinkedError reports that the requested partner is paired with someone
// else. Name is the partner's display name, if known.
type PartnerLinkedError struct {
	Name string
}

func (e *PartnerLinkedError) Error() string {
	if e == nil || e.Name == "" {
		return "This partner is already linked with someone else."
	}
	return e.Name + " is already linked with someone else."
}

// Unwrap enables errors.Is against ErrPartnerAlreadyLinkedElsewhere.
func (e *PartnerLinkedError) Unwrap() error {
	return ErrPartnerAlreadyLinkedElsewhere
}

// Result holds both profiles as they are after the link.
type Result struct {
	User    *profile.Profile
	Partner *profile.Profile
	// Created is false when the two were already linked to each other.
	Created bool
}

// CodeResolver finds the profile that holds an invite code.
type CodeResolver interface {
	Resolve(ctx context.Context, code string) (*profile.Profile, error)
}

// Linker establishes mutual partner links.
type Linker struct {
	store    profile.Store
	resolver CodeResolver
	now      func() time.Time
}

// NewLinker creates a Linker. resolver may be nil if LinkByInviteCode is unused.
func NewLinker(store profile.Store, resolver CodeResolver) *Linker {
	return &Linker{
		store:    store,
		resolver: resolver,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Link pairs userID with partnerID. Both sides are read and written in one
// transaction, so concurrent attempts on overlapping profiles cannot leave a
// one-sided link. Linking two profiles that already point at each other is a
// no-op that returns them unchanged.
func (l *Linker) Link(ctx context.Context, userID, partnerID string) (*Result, error) {
	userID = strings.TrimSpace(userID)
	partnerID = strings.TrimSpace(partnerID)
	switch {
	case userID == "":
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidRequest)
	case partnerID == "":
		return nil, fmt.Errorf("%w: missing partner id", ErrInvalidRequest)
	case userID == partnerID:
		return nil, fmt.Errorf("%w: you cannot link with your own invite code", ErrInvalidRequest)
	}

	var result *Result
	err := l.store.RunTransaction(ctx, func(ctx context.Context, tx profile.Tx) error {
		result = nil
		user, err := readSide(tx, userID)
		if err != nil {
			return err
		}
		partner, err := readSide(tx, partnerID)
		if err != nil {
			return err
		}

		if user.IsLinked() && user.PartnerID != partnerID {
			return ErrAlreadyLinkedElsewhere
		}
		if partner.IsLinked() && partner.PartnerID != userID {
			return &PartnerLinkedError{Name: partner.Name}
		}
		if user.IsLinkedWith(partnerID) && partner.IsLinkedWith(userID) {
			result = &Result{User: user, Partner: partner}
			return nil
		}

		linkedAt := firstLinkedAt(user.LinkedAt, partner.LinkedAt, l.now())
		userLink := profile.Link{
			PartnerID:         partnerID,
			PartnerName:       partner.DisplayName(),
			PartnerInviteCode: partner.InviteCode,
			LinkedAt:          linkedAt,
		}
		partnerLink := profile.Link{
			PartnerID:         userID,
			PartnerName:       user.DisplayName(),
			PartnerInviteCode: user.InviteCode,
			LinkedAt:          linkedAt,
		}
		if err := tx.SetLink(userID, userLink); err != nil {
			return err
		}
		if err := tx.SetLink(partnerID, partnerLink); err != nil {
			return err
		}

		result = &Result{
			User:    applied(user, userLink),
			Partner: applied(partner, partnerLink),
			Created: true,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, profile.ErrConflict) {
			err = fmt.Errorf("%w: %v", ErrConflict, err)
		}
		logging.LogAuditEvent(ctx, "link", userID, "profile", partnerID, logging.AuditFailure,
			map[string]any{"error": categorizeError(err)})
		return nil, err
	}

	if result.Created {
		logging.LogAuditEvent(ctx, "link", userID, "profile", partnerID, logging.AuditSuccess, nil)
	} else {
		logging.LogInfo(ctx, "profiles already linked",
			zap.String("userId", userID),
			zap.String("partnerId", partnerID),
		)
	}
	return result, nil
}

// LinkByInviteCode resolves code to its holder and links userID with it.
func (l *Linker) LinkByInviteCode(ctx context.Context, userID, code string) (*Result, error) {
	if l.resolver == nil {
		return nil, errors.New("link: no invite code resolver configured")
	}
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: invite code is required", ErrInvalidRequest)
	}
	partner, err := l.resolver.Resolve(ctx, code)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil, fmt.Errorf("%w: no profile holds that invite code", ErrProfileNotFound)
		}
		return nil, fmt.Errorf("resolving invite code: %w", err)
	}
	return l.Link(ctx, userID, partner.ID)
}

func readSide(tx profile.Tx, id string) (*profile.Profile, error) {
	p, err := tx.Get(id)
	if errors.Is(err, profile.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	return p, err
}

// firstLinkedAt keeps the earliest existing link time, else now.
func firstLinkedAt(a, b *time.Time, now time.Time) time.Time {
	switch {
	case a != nil && b != nil:
		if b.Before(*a) {
			return *b
		}
		return *a
	case a != nil:
		return *a
	case b != nil:
		return *b
	default:
		return now
	}
}

func applied(p *profile.Profile, link profile.Link) *profile.Profile {
	out := p.Clone()
	out.Linked = true
	out.PartnerID = link.PartnerID
	out.PartnerName = link.PartnerName
	out.PartnerInviteCode = link.PartnerInviteCode
	linkedAt := link.LinkedAt
	out.LinkedAt = &linkedAt
	return out
}

// categorizeError returns an audit-safe error category.
func categorizeError(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrProfileNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyLinkedElsewhere):
		return "already_linked"
	case errors.Is(err, ErrPartnerAlreadyLinkedElsewhere):
		return "partner_already_linked"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal_error"
	}
}
