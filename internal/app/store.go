// Package app wires the storage adapter, the auth and catalog managers and
// the derived-view selectors into one explicit state container.
package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"songshelf/internal/auth"
	"songshelf/internal/catalog"
	"songshelf/internal/storage"
	"songshelf/internal/view"
	"songshelf/pkg/models"

	"github.com/sirupsen/logrus"
)

// ErrNotAuthenticated is returned by operations that need a signed-in user.
var ErrNotAuthenticated = errors.New("not authenticated")

// Options configures a Store
type Options struct {
	PasswordMode auth.PasswordMode
	BcryptCost   int
	Logger       *logrus.Logger
	Now          func() time.Time
}

// Store is the application state container. Pass it to every consumer;
// there is no package-level instance.
type Store struct {
	// ops serializes operations that span the auth and catalog managers.
	ops sync.Mutex

	storage   *storage.Store
	auth      *auth.Manager
	catalog   *catalog.Manager
	selectors *view.Selectors
	logger    *logrus.Logger
	now       func() time.Time
}

// New creates a container over the storage adapter. Call Hydrate before use.
func New(store *storage.Store, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Store{
		storage: store,
		auth: auth.NewManager(store, auth.Options{
			PasswordMode: opts.PasswordMode,
			BcryptCost:   opts.BcryptCost,
			Logger:       logger,
			Now:          now,
		}),
		catalog: catalog.NewManager(store, catalog.Options{
			Logger: logger,
			Now:    now,
		}),
		selectors: view.NewSelectors(),
		logger:    logger,
		now:       now,
	}
}

// Hydrate restores the persisted session and loads that user's catalog.
// It can be called again to pick up changes made outside this process.
func (s *Store) Hydrate(ctx context.Context) {
	s.ops.Lock()
	defer s.ops.Unlock()

	state := s.auth.Restore(ctx)
	if state.IsAuthenticated && state.User != nil {
		s.catalog.LoadForUser(ctx, state.User.ID)
		return
	}
	s.catalog.Reset()
}

// SignUp registers a user and opens their (empty) catalog.
func (s *Store) SignUp(ctx context.Context, email, username, password string) (models.User, error) {
	s.ops.Lock()
	defer s.ops.Unlock()

	user, err := s.auth.Register(ctx, email, username, password)
	if err != nil {
		return models.User{}, err
	}
	s.catalog.LoadForUser(ctx, user.ID)
	return user, nil
}

// LogIn signs a user in and loads their catalog.
func (s *Store) LogIn(ctx context.Context, email, password string) (models.User, error) {
	s.ops.Lock()
	defer s.ops.Unlock()

	user, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return models.User{}, err
	}
	s.catalog.LoadForUser(ctx, user.ID)
	return user, nil
}

// LogOut ends the session and drops the in-memory catalog.
func (s *Store) LogOut(ctx context.Context) {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.auth.Logout(ctx)
	s.catalog.Reset()
}

// AddSong adds a song owned by the signed-in user.
func (s *Store) AddSong(ctx context.Context, input models.SongInput) (models.Song, error) {
	s.ops.Lock()
	defer s.ops.Unlock()

	user, ok := s.auth.CurrentUser()
	if !ok {
		return models.Song{}, ErrNotAuthenticated
	}
	return s.catalog.AddSong(ctx, user.ID, input)
}

// Reload re-reads the signed-in user's catalog from the durable store.
func (s *Store) Reload(ctx context.Context) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	user, ok := s.auth.CurrentUser()
	if !ok {
		return ErrNotAuthenticated
	}
	s.catalog.LoadForUser(ctx, user.ID)
	return nil
}

// AuthState returns the authentication snapshot
func (s *Store) AuthState() auth.State {
	return s.auth.State()
}

// CatalogView returns the presentation read model of the catalog
func (s *Store) CatalogView() view.ReadModel {
	return s.selectors.ReadModel(s.catalog.Snapshot())
}

// ViewCacheStats returns selector memo hits and misses
func (s *Store) ViewCacheStats() (hits, misses int) {
	return s.selectors.Stats()
}

// Auth returns the authentication manager
func (s *Store) Auth() *auth.Manager {
	return s.auth
}

// Catalog returns the catalog manager
func (s *Store) Catalog() *catalog.Manager {
	return s.catalog
}

// Storage returns the durable store adapter
func (s *Store) Storage() *storage.Store {
	return s.storage
}

// Now returns the container clock
func (s *Store) Now() time.Time {
	return s.now()
}
