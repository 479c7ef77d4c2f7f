package profile

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

var errWriteBeforeRead = errors.New("transaction reads must happen before writes")

type memoryRecord struct {
	doc     document
	version uint64
}

// MemoryStore implements Store in process memory with optimistic transactions:
// a transaction records the version of every document it reads and commits only
// if none of them changed in the meantime. It backs unit tests and the
// STORE_BACKEND=memory development mode.
type MemoryStore struct {
	mu           sync.RWMutex
	records      map[string]*memoryRecord
	maxAttempts  int
	now          func() time.Time
	beforeCommit func()
}

// NewMemoryStore creates an empty store with the given transaction attempt budget.
func NewMemoryStore(maxAttempts int) *MemoryStore {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &MemoryStore{
		records:     make(map[string]*memoryRecord),
		maxAttempts: maxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetBeforeCommit installs a hook run after a transaction body and before its
// commit check. Tests use it to inject concurrent writers.
func (m *MemoryStore) SetBeforeCommit(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.beforeCommit = fn
}

// Put stores p as-is, replacing any existing document. PushTokens land in the
// canonical field.
func (m *MemoryStore) Put(p *Profile) {
	d := document{
		Name:                 p.Name,
		PartnerNameHint:      p.PartnerNameHint,
		Email:                p.Email,
		PhoneNumber:          p.PhoneNumber,
		Gender:               p.Gender,
		AnniversaryDate:      p.AnniversaryDate,
		Linked:               p.Linked,
		PartnerID:            p.PartnerID,
		PartnerName:          p.PartnerName,
		PartnerInviteCode:    p.PartnerInviteCode,
		InviteCode:           p.InviteCode,
		ExpoPushTokens:       slices.Clone(p.PushTokens),
		NotificationsEnabled: p.NotificationsEnabled,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
	if p.LinkedAt != nil {
		t := *p.LinkedAt
		d.LinkedAt = &t
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.write(p.ID, d)
}

// PutLegacyTokens overwrites the token fields of an existing document with the
// given historical shapes.
func (m *MemoryStore) PutLegacyTokens(userID string, legacy LegacyTokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[userID]
	if !ok {
		return ErrNotFound
	}
	d := rec.doc.clone()
	d.ExpoPushTokens = slices.Clone(legacy.ExpoPushTokens)
	d.ExpoPushToken = legacy.ExpoPushToken
	d.PushTokens = slices.Clone(legacy.PushTokens)
	d.PushToken = legacy.PushToken
	m.write(userID, d)
	return nil
}

// LegacyTokens returns the raw token fields of a document.
func (m *MemoryStore) LegacyTokens(userID string) (LegacyTokens, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[userID]
	if !ok {
		return LegacyTokens{}, ErrNotFound
	}
	l := rec.doc.legacyTokens()
	l.ExpoPushTokens = slices.Clone(l.ExpoPushTokens)
	l.PushTokens = slices.Clone(l.PushTokens)
	return l, nil
}

// Clear removes all documents.
func (m *MemoryStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]*memoryRecord)
}

// write must be called with mu held.
func (m *MemoryStore) write(userID string, d document) {
	var version uint64
	if rec, ok := m.records[userID]; ok {
		version = rec.version
	}
	m.records[userID] = &memoryRecord{doc: d, version: version + 1}
}

func (m *MemoryStore) Create(ctx context.Context, userID string, params CreateParams) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[userID]; exists {
		return nil, ErrAlreadyExists
	}
	d := newDocument(params, m.now())
	m.write(userID, d)
	return d.toProfile(userID), nil
}

func (m *MemoryStore) Get(ctx context.Context, userID string) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.doc.toProfile(userID), nil
}

func (m *MemoryStore) FindByInviteCode(ctx context.Context, code string, limit int) ([]*Profile, error) {
	return m.findBy(ctx, limit, func(d *document) bool { return d.InviteCode == code })
}

func (m *MemoryStore) FindByPhoneNumber(ctx context.Context, phoneNumber string) (*Profile, error) {
	found, err := m.findBy(ctx, 1, func(d *document) bool { return d.PhoneNumber == phoneNumber })
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return found[0], nil
}

func (m *MemoryStore) findBy(ctx context.Context, limit int, match func(*document) bool) ([]*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var out []*Profile
	for _, id := range ids {
		rec := m.records[id]
		if !match(&rec.doc) {
			continue
		}
		out = append(out, rec.doc.toProfile(id))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) SetInviteCode(ctx context.Context, userID, code string) error {
	return m.update(ctx, userID, func(d *document) {
		d.InviteCode = code
		d.UpdatedAt = m.now()
	})
}

func (m *MemoryStore) AddPushToken(ctx context.Context, userID, token string) (bool, error) {
	var added bool
	err := m.mutate(ctx, userID, func(d *document) bool {
		added = d.addToken(token, m.now())
		return added
	})
	return added, err
}

func (m *MemoryStore) RemovePushTokens(ctx context.Context, userID string, tokens []string) (int, error) {
	var removed int
	err := m.mutate(ctx, userID, func(d *document) bool {
		removed = d.removeTokens(tokens, m.now())
		return removed > 0
	})
	return removed, err
}

// mutate applies change to an existing document under the write lock and stores
// the result when change reports a modification.
func (m *MemoryStore) mutate(ctx context.Context, userID string, change func(*document) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[userID]
	if !ok {
		return ErrNotFound
	}
	d := rec.doc.clone()
	if change(&d) {
		m.write(userID, d)
	}
	return nil
}

// update applies a merge write. Like a Firestore merge set, it creates the
// document when it does not exist yet.
func (m *MemoryStore) update(ctx context.Context, userID string, mutate func(*document)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var d document
	if rec, ok := m.records[userID]; ok {
		d = rec.doc.clone()
	}
	mutate(&d)
	m.write(userID, d)
	return nil
}

func (m *MemoryStore) RunTransaction(ctx context.Context, fn TxFunc) error {
	for attempt := 0; attempt < m.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		tx := &memoryTx{store: m, reads: make(map[string]uint64), writes: make(map[string]Link)}
		if err := fn(ctx, tx); err != nil {
			return err
		}

		m.mu.RLock()
		hook := m.beforeCommit
		m.mu.RUnlock()
		if hook != nil {
			hook()
		}

		if m.commit(tx) {
			return nil
		}
	}
	return ErrConflict
}

func (m *MemoryStore) commit(tx *memoryTx) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, seen := range tx.reads {
		var current uint64
		if rec, ok := m.records[id]; ok {
			current = rec.version
		}
		if current != seen {
			return false
		}
	}
	now := m.now()
	for _, id := range tx.order {
		var d document
		if rec, ok := m.records[id]; ok {
			d = rec.doc.clone()
		}
		d.applyLink(tx.writes[id], now)
		m.write(id, d)
	}
	return true
}

type memoryTx struct {
	store  *MemoryStore
	reads  map[string]uint64
	writes map[string]Link
	order  []string
}

func (t *memoryTx) Get(userID string) (*Profile, error) {
	if len(t.writes) > 0 {
		return nil, errWriteBeforeRead
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	rec, ok := t.store.records[userID]
	if !ok {
		t.reads[userID] = 0
		return nil, ErrNotFound
	}
	t.reads[userID] = rec.version
	return rec.doc.toProfile(userID), nil
}

func (t *memoryTx) SetLink(userID string, link Link) error {
	if _, staged := t.writes[userID]; !staged {
		t.order = append(t.order, userID)
	}
	t.writes[userID] = link
	return nil
}

var _ Store = (*MemoryStore)(nil)
