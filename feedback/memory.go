package feedback

import (
	"context"
	"sync"
)

// MemoryStore keeps feedback in a bounded ring. Suitable for development
// and single-instance deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*Record
	max     int
}

func NewMemoryStore(max int) *MemoryStore {
	if max <= 0 {
		max = 10000
	}
	return &MemoryStore{records: make([]*Record, 0, 64), max: max}
}

func (s *MemoryStore) Save(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	if len(s.records) > s.max {
		s.records = s.records[len(s.records)-s.max:]
	}
	return nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]*Record, limit)
	copy(out, s.records[len(s.records)-limit:])
	return out, nil
}
