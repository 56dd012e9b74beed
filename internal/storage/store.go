package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"songshelf/pkg/models"

	"github.com/sirupsen/logrus"
)

// Store reads and writes whole collections through a KV backend.
//
// Reads never fail hard: a missing key yields an empty collection, and content
// that cannot be decoded yields an empty collection together with a
// *ParseError so the caller can surface it. Writes replace the entire
// collection, so callers must read, mutate in memory and write back.
type Store struct {
	kv        KV
	namespace string
	logger    *logrus.Logger
}

// NewStore creates a collection adapter over kv. A nil logger discards output.
func NewStore(kv KV, namespace string, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Store{
		kv:        kv,
		namespace: namespace,
		logger:    logger,
	}
}

// KV returns the underlying backend
func (s *Store) KV() KV {
	return s.kv
}

// KeyFor returns the namespaced key of a collection
func (s *Store) KeyFor(name string) string {
	return Key(s.namespace, name)
}

// ReadUsers returns every stored credential record.
func (s *Store) ReadUsers(ctx context.Context) ([]models.Credential, error) {
	return readCollection[models.Credential](ctx, s, KeyUsers)
}

// WriteUsers replaces the users collection.
func (s *Store) WriteUsers(ctx context.Context, users []models.Credential) error {
	return writeCollection(ctx, s, KeyUsers, users)
}

// ReadSongs returns the system-wide songs collection.
func (s *Store) ReadSongs(ctx context.Context) ([]models.Song, error) {
	return readCollection[models.Song](ctx, s, KeySongs)
}

// WriteSongs replaces the system-wide songs collection.
func (s *Store) WriteSongs(ctx context.Context, songs []models.Song) error {
	return writeCollection(ctx, s, KeySongs, songs)
}

// ReadCurrentUser returns the persisted session user, or nil when there is none.
func (s *Store) ReadCurrentUser(ctx context.Context) (*models.User, error) {
	key := s.KeyFor(KeyCurrentUser)
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to read current user")
		return nil, fmt.Errorf("failed to read %s: %w", KeyCurrentUser, err)
	}
	if !ok || raw == "" || raw == "null" {
		return nil, nil
	}

	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Discarding unparsable current user")
		return nil, &ParseError{Key: KeyCurrentUser, Err: err}
	}
	return &user, nil
}

// WriteCurrentUser persists the session user.
func (s *Store) WriteCurrentUser(ctx context.Context, user models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", KeyCurrentUser, err)
	}
	if err := s.kv.Set(ctx, s.KeyFor(KeyCurrentUser), string(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", KeyCurrentUser, err)
	}
	return nil
}

// ClearCurrentUser removes the persisted session user.
func (s *Store) ClearCurrentUser(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.KeyFor(KeyCurrentUser)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", KeyCurrentUser, err)
	}
	return nil
}

// Close closes the backend
func (s *Store) Close() error {
	return s.kv.Close()
}

func readCollection[T any](ctx context.Context, s *Store, name string) ([]T, error) {
	key := s.KeyFor(name)
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to read collection")
		return []T{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if !ok || raw == "" {
		return []T{}, nil
	}

	var records []T
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Treating unparsable collection as empty")
		return []T{}, &ParseError{Key: name, Err: err}
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

func writeCollection[T any](ctx context.Context, s *Store, name string, records []T) error {
	if records == nil {
		records = []T{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	if err := s.kv.Set(ctx, s.KeyFor(name), string(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
