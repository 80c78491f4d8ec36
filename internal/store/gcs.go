package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"cloud.google.com/go/storage"

	"github.com/dvloznov/finance-chat/internal/domain"
)

// GCSStore keeps one JSON object per user under bucket/prefix.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS creates a GCS-backed store using Application Default Credentials.
func NewGCS(ctx context.Context, bucket, prefix string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCS: create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}, nil
}

// ObjectName returns the object path for userID.
func (s *GCSStore) ObjectName(userID string) string {
	return objectName(s.prefix, userID)
}

func objectName(prefix, userID string) string {
	return path.Join(prefix, userID+".json")
}

// Get implements ProfileStore.
func (s *GCSStore) Get(ctx context.Context, userID string) (*domain.UserProfile, error) {
	r, err := s.client.Bucket(s.bucket).Object(s.ObjectName(userID)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return domain.NewProfile(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("GCSStore.Get: open object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("GCSStore.Get: read object: %w", err)
	}

	p, err := decodeProfile(data)
	if err != nil {
		return nil, fmt.Errorf("GCSStore.Get: %w", err)
	}
	return p, nil
}

// Save implements ProfileStore.
func (s *GCSStore) Save(ctx context.Context, profile *domain.UserProfile) error {
	if profile.UserID == "" {
		return fmt.Errorf("GCSStore.Save: user id is required")
	}

	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	data, err := encodeProfile(profile)
	if err != nil {
		return fmt.Errorf("GCSStore.Save: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(s.ObjectName(profile.UserID)).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("GCSStore.Save: write object: %w", err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("GCSStore.Save: finalize upload: %w", err)
	}
	return nil
}

// Delete implements ProfileStore.
func (s *GCSStore) Delete(ctx context.Context, userID string) error {
	err := s.client.Bucket(s.bucket).Object(s.ObjectName(userID)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("GCSStore.Delete: %w", err)
	}
	return nil
}

// Close implements ProfileStore.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

var _ ProfileStore = (*GCSStore)(nil)
