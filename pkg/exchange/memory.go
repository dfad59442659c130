package exchange

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a Store kept entirely in process memory. It backs tests
// and single-instance deployments that can afford to lose exchange
// history on restart.
type MemoryStore struct {
	mu   sync.Mutex
	recs map[string]*Record
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]*Record)}
}

var _ Store = (*MemoryStore)(nil)

// OpenNew implements Store.
func (m *MemoryStore) OpenNew(_ context.Context, user string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for _, rec := range m.recs {
		if rec.State == StateInit {
			rec.State = StateAbort
			rec.Report = AbortReportFor(rec.User, user)
			rec.ActionAt = now
		}
	}

	rec := &Record{
		ID:        uuid.NewString(),
		User:      user,
		State:     StateInit,
		StartedAt: now,
		ActionAt:  now,
	}
	m.recs[rec.ID] = rec
	return cloneRecord(rec), nil
}

// FindOpen implements Store.
func (m *MemoryStore) FindOpen(_ context.Context, user string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.recs {
		if rec.State == StateInit && rec.User == user {
			return cloneRecord(rec), nil
		}
	}
	return nil, ErrNotStarted
}

// SetOperation implements Store.
func (m *MemoryStore) SetOperation(_ context.Context, id, operation, fileName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.recs[id]
	if !ok {
		return ErrNotStarted
	}
	rec.Operation = operation
	rec.FileName = fileName
	rec.ActionAt = time.Now()
	return nil
}

// Finish implements Store.
func (m *MemoryStore) Finish(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.recs[rec.ID]; !ok {
		return ErrNotStarted
	}
	m.recs[rec.ID] = cloneRecord(rec)
	return nil
}

// Records returns a snapshot of every record, newest first not
// guaranteed; callers sort as needed.
func (m *MemoryStore) Records() []*Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Record, 0, len(m.recs))
	for _, rec := range m.recs {
		out = append(out, cloneRecord(rec))
	}
	return out
}

func cloneRecord(rec *Record) *Record {
	c := *rec
	return &c
}
