package profile

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultMaxAttempts bounds transaction retries when no budget is configured.
const DefaultMaxAttempts = 5

// FirestoreStore implements Store on Cloud Firestore.
type FirestoreStore struct {
	client      *firestore.Client
	maxAttempts int
	now         func() time.Time
}

// FirestoreOption configures a FirestoreStore.
type FirestoreOption func(*FirestoreStore)

// WithMaxAttempts sets the transaction attempt budget.
func WithMaxAttempts(n int) FirestoreOption {
	return func(s *FirestoreStore) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// NewFirestoreStore creates a Firestore-backed store.
func NewFirestoreStore(client *firestore.Client, opts ...FirestoreOption) *FirestoreStore {
	s := &FirestoreStore{
		client:      client,
		maxAttempts: DefaultMaxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FirestoreStore) doc(userID string) *firestore.DocumentRef {
	return s.client.Collection(usersCollection).Doc(userID)
}

// Create writes the signup document; it fails if the document already exists.
func (s *FirestoreStore) Create(ctx context.Context, userID string, params CreateParams) (*Profile, error) {
	d := newDocument(params, s.now())
	if _, err := s.doc(userID).Create(ctx, d); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return d.toProfile(userID), nil
}

// Get retrieves a profile by user ID.
func (s *FirestoreStore) Get(ctx context.Context, userID string) (*Profile, error) {
	snap, err := s.doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decode(snap)
}

// FindByInviteCode returns up to limit profiles whose inviteCode equals code.
func (s *FirestoreStore) FindByInviteCode(ctx context.Context, code string, limit int) ([]*Profile, error) {
	return s.findBy(ctx, fieldInviteCode, code, limit)
}

// FindByPhoneNumber returns the first profile registered with phoneNumber.
func (s *FirestoreStore) FindByPhoneNumber(ctx context.Context, phoneNumber string) (*Profile, error) {
	found, err := s.findBy(ctx, fieldPhoneNumber, phoneNumber, 1)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return found[0], nil
}

func (s *FirestoreStore) findBy(ctx context.Context, field, value string, limit int) ([]*Profile, error) {
	q := s.client.Collection(usersCollection).Where(field, "==", value)
	if limit > 0 {
		q = q.Limit(limit)
	}
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", field, err)
	}
	out := make([]*Profile, 0, len(snaps))
	for _, snap := range snaps {
		p, err := decode(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// SetInviteCode merge-writes the invite code.
func (s *FirestoreStore) SetInviteCode(ctx context.Context, userID, code string) error {
	_, err := s.doc(userID).Set(ctx, map[string]any{
		fieldInviteCode: code,
		fieldUpdatedAt:  s.now(),
	}, firestore.MergeAll)
	return err
}

// AddPushToken appends token inside a transaction so concurrent removals of
// other tokens are not overwritten.
func (s *FirestoreStore) AddPushToken(ctx context.Context, userID, token string) (bool, error) {
	var added bool
	err := s.updateTokens(ctx, userID, func(d *document) bool {
		added = d.addToken(token, s.now())
		return added
	})
	return added, err
}

// RemovePushTokens drops the named tokens inside a transaction.
func (s *FirestoreStore) RemovePushTokens(ctx context.Context, userID string, tokens []string) (int, error) {
	var removed int
	err := s.updateTokens(ctx, userID, func(d *document) bool {
		removed = d.removeTokens(tokens, s.now())
		return removed > 0
	})
	return removed, err
}

// updateTokens reads the user document, applies change and merge-writes the
// canonical token array with the legacy fields deleted. Firestore reruns the
// body when another writer commits first.
func (s *FirestoreStore) updateTokens(ctx context.Context, userID string, change func(*document) bool) error {
	ref := s.doc(userID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return err
		}
		var d document
		if err := snap.DataTo(&d); err != nil {
			return fmt.Errorf("decoding user %s: %w", userID, err)
		}
		if !change(&d) {
			return nil
		}
		return tx.Set(ref, map[string]any{
			fieldExpoPushTokens:       d.ExpoPushTokens,
			fieldExpoPushToken:        firestore.Delete,
			fieldPushTokens:           firestore.Delete,
			fieldPushToken:            firestore.Delete,
			fieldNotificationsEnabled: d.NotificationsEnabled,
			fieldUpdatedAt:            d.UpdatedAt,
		}, firestore.MergeAll)
	}, firestore.MaxAttempts(s.maxAttempts))
	if err != nil && status.Code(err) == codes.Aborted {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

// RunTransaction runs fn in a Firestore transaction. The client retries on
// Aborted up to the configured budget; exhausting it yields ErrConflict.
func (s *FirestoreStore) RunTransaction(ctx context.Context, fn TxFunc) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{store: s, tx: tx})
	}, firestore.MaxAttempts(s.maxAttempts))
	if err != nil && status.Code(err) == codes.Aborted {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

type firestoreTx struct {
	store *FirestoreStore
	tx    *firestore.Transaction
}

func (t *firestoreTx) Get(userID string) (*Profile, error) {
	snap, err := t.tx.Get(t.store.doc(userID))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decode(snap)
}

func (t *firestoreTx) SetLink(userID string, link Link) error {
	return t.tx.Set(t.store.doc(userID), map[string]any{
		fieldLinked:            true,
		fieldPartnerID:         link.PartnerID,
		fieldPartnerName:       link.PartnerName,
		fieldPartnerInviteCode: link.PartnerInviteCode,
		fieldLinkedAt:          link.LinkedAt,
		fieldUpdatedAt:         t.store.now(),
	}, firestore.MergeAll)
}

func decode(snap *firestore.DocumentSnapshot) (*Profile, error) {
	if !snap.Exists() {
		return nil, ErrNotFound
	}
	var d document
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decoding user %s: %w", snap.Ref.ID, err)
	}
	return d.toProfile(snap.Ref.ID), nil
}

var _ Store = (*FirestoreStore)(nil)
