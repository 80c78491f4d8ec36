// Package store persists user profiles.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dvloznov/finance-chat/internal/config"
	"github.com/dvloznov/finance-chat/internal/domain"
)

// ProfileStore loads and saves user profiles.
type ProfileStore interface {
	// Get returns the stored profile, or a new empty profile when the id is unknown.
	Get(ctx context.Context, userID string) (*domain.UserProfile, error)

	// Save writes the whole profile.
	Save(ctx context.Context, profile *domain.UserProfile) error

	// Delete removes the profile. Deleting an unknown id is not an error.
	Delete(ctx context.Context, userID string) error

	// Close releases backend resources.
	Close() error
}

// New builds the store selected by cfg.Kind.
func New(ctx context.Context, cfg config.StoreConfig) (ProfileStore, error) {
	switch cfg.Kind {
	case "sqlite":
		return NewSQLite(cfg.DBPath)
	case "gcs":
		return NewGCS(ctx, cfg.GCSBucket, cfg.GCSPrefix)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("store.New: unknown store kind %q", cfg.Kind)
	}
}

func encodeProfile(p *domain.UserProfile) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encodeProfile: %w", err)
	}
	return data, nil
}

func decodeProfile(data []byte) (*domain.UserProfile, error) {
	var p domain.UserProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decodeProfile: %w", err)
	}
	return &p, nil
}
