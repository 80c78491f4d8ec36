package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/finance-chat/internal/domain"
)

// MemoryStore is an in-memory ProfileStore, safe for concurrent use.
// Data is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{profiles: make(map[string][]byte)}
}

// Get implements ProfileStore. Profiles are stored encoded so callers
// never share slices with the store.
func (s *MemoryStore) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	s.mu.RLock()
	data, ok := s.profiles[userID]
	s.mu.RUnlock()

	if !ok {
		return domain.NewProfile(userID), nil
	}
	return decodeProfile(data)
}

// Save implements ProfileStore.
func (s *MemoryStore) Save(ctx context.Context, profile *domain.UserProfile) error {
	if profile.UserID == "" {
		return fmt.Errorf("MemoryStore.Save: user id is required")
	}
	profile.UpdatedAt = time.Now().UTC()

	data, err := encodeProfile(profile)
	if err != nil {
		return fmt.Errorf("MemoryStore.Save: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = data
	return nil
}

// Delete implements ProfileStore.
func (s *MemoryStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, userID)
	return nil
}

// Len returns the number of stored profiles.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

// Close implements ProfileStore.
func (s *MemoryStore) Close() error { return nil }

var _ ProfileStore = (*MemoryStore)(nil)
