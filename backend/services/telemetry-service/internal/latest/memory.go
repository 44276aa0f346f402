package latest

import (
	"context"
	"sync"
	"time"

	"greenhouse/backend/services/telemetry-service/internal/models"
)

// MemoryStore is the process-local Store used when no redis is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]entry
	now   func() time.Time
}

type entry struct {
	m       models.Measurement
	expires time.Time
}

// NewMemoryStore returns an empty store. Entries expire ttl after their
// measurement time; ttl <= 0 keeps them forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, items: make(map[string]entry), now: time.Now}
}

func (s *MemoryStore) Put(_ context.Context, m models.Measurement) error {
	e := entry{m: m}
	if s.ttl > 0 {
		base := m.Time
		if base.IsZero() {
			base = s.now()
		}
		e.expires = base.Add(s.ttl)
		if !s.now().Before(e.expires) {
			return nil
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.items[m.DeviceID]; ok && !s.expired(cur) && newer(cur.m, m) {
		return nil
	}
	s.items[m.DeviceID] = e
	return nil
}

func (s *MemoryStore) Get(_ context.Context, deviceID string) (*models.Measurement, error) {
	s.mu.RLock()
	e, ok := s.items[deviceID]
	s.mu.RUnlock()
	if !ok || s.expired(e) {
		return nil, nil
	}
	m := e.m
	return &m, nil
}

func (s *MemoryStore) All(_ context.Context) (map[string]models.Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]models.Measurement, len(s.items))
	for id, e := range s.items {
		if s.expired(e) {
			delete(s.items, id)
			continue
		}
		out[id] = e.m
	}
	return out, nil
}

func (s *MemoryStore) expired(e entry) bool {
	return !e.expires.IsZero() && !s.now().Before(e.expires)
}
