// Package storage keeps the controls of the loaded page.
package storage

import (
	"context"
	"sync"

	"github.com/hammamikhairi/readaloud/internal/domain"
	"github.com/hammamikhairi/readaloud/internal/logger"
)

// Compile-time interface check.
var _ domain.ControlStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory control registry keyed by identity. It
// remembers registration order. Safe for concurrent access.
type MemoryStore struct {
	mu       sync.RWMutex
	controls map[string]domain.Control
	order    []string
	log      *logger.Logger
}

// NewMemoryStore creates an empty in-memory control store.
func NewMemoryStore(log *logger.Logger) *MemoryStore {
	return &MemoryStore{
		controls: make(map[string]domain.Control),
		log:      log,
	}
}

// Save registers a control. Overwrites if the identity already exists,
// keeping its original position.
func (s *MemoryStore) Save(ctx context.Context, c domain.Control) error {
	id := c.Identity()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.controls[id]; !ok {
		s.order = append(s.order, id)
	}
	s.controls[id] = c
	s.log.Debug("saving control %s", id)
	return nil
}

// Load retrieves a control by identity.
func (s *MemoryStore) Load(ctx context.Context, id string) (domain.Control, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.controls[id]
	if !ok {
		s.log.Debug("control not found: %s", id)
		return nil, domain.ErrNotFound
	}
	return c, nil
}

// Delete removes a control by identity.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.controls[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.controls, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.log.Debug("deleted control %s", id)
	return nil
}

// List returns every control in registration order.
func (s *MemoryStore) List(ctx context.Context) ([]domain.Control, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Control, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.controls[id])
	}
	return out, nil
}

// ListPressed returns the controls that are currently narrating.
func (s *MemoryStore) ListPressed(ctx context.Context) ([]domain.Control, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var out []domain.Control
	for _, c := range all {
		if c.Pressed() {
			out = append(out, c)
		}
	}
	s.log.Debug("listing pressed controls, count=%d", len(out))
	return out, nil
}
