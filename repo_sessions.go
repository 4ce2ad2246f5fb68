package board

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/uptrace/bun"
)

// SessionsRepository implements SessionStore on Bun. Rows outlive process
// restarts, matching the shared persistent store the rest of the core
// talks to.
type SessionsRepository struct {
	db *bun.DB
}

var _ SessionStore = (*SessionsRepository)(nil)

// NewSessionsRepository creates a new repository.
func NewSessionsRepository(db *bun.DB) *SessionsRepository {
	return &SessionsRepository{db: db}
}

func (r *SessionsRepository) Create(ctx context.Context, record *SessionRecord) error {
	_, err := r.db.NewInsert().
		Model(record).
		Exec(ctx)
	return err
}

func (r *SessionsRepository) Get(ctx context.Context, token string) (*SessionRecord, error) {
	record := &SessionRecord{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows || isNoRows(err) {
			return nil, ErrUnableToFindSession
		}
		return nil, err
	}

	return record, nil
}

// Delete removes the session row. Deleting an absent token succeeds, so
// logout stays idempotent.
func (r *SessionsRepository) Delete(ctx context.Context, token string) error {
	_, err := r.db.NewDelete().
		Model((*SessionRecord)(nil)).
		Where("?TableAlias.token = ?", token).
		Exec(ctx)
	return err
}

// PruneExpired clears sessions past their lifetime. Callers run it on a
// timer; restore treats expired rows as anonymous either way.
func (r *SessionsRepository) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*SessionRecord)(nil)).
		Where("?TableAlias.expires_at < ?", now).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return rows, nil
}

// MemorySessionStore keeps sessions in process memory. It backs tests and
// single-node setups that do not want a sessions table.
type MemorySessionStore struct {
	mu      sync.RWMutex
	records map[string]*SessionRecord
}

var _ SessionStore = (*MemorySessionStore)(nil)

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		records: map[string]*SessionRecord{},
	}
}

func (s *MemorySessionStore) Create(ctx context.Context, record *SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *record
	s.records[record.Token] = &cp
	return nil
}

func (s *MemorySessionStore) Get(ctx context.Context, token string) (*SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[token]
	if !ok {
		return nil, ErrUnableToFindSession
	}
	cp := *record
	return &cp, nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, token)
	return nil
}
