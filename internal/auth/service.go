// Package auth holds the authentication state machine: who is signed in,
// whether an attempt is in flight, and the last error message.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"songshelf/internal/notify"
	"songshelf/internal/storage"
	"songshelf/pkg/models"

	"github.com/sirupsen/logrus"
)

// Status is the state machine position
type Status string

const (
	StatusIdle          Status = "idle"
	StatusLoading       Status = "loading"
	StatusAuthenticated Status = "authenticated"
	StatusError         Status = "error"
)

// User-facing messages stored in State.Error
const (
	MessageDuplicateEmail     = "User with this email already exists"
	MessageInvalidCredentials = "Invalid email or password"
	MessageSignUpFailed       = "Sign up failed. Please try again."
	MessageLoginFailed        = "Login failed. Please try again."
)

var (
	ErrDuplicateEmail     = errors.New(MessageDuplicateEmail)
	ErrInvalidCredentials = errors.New(MessageInvalidCredentials)
	ErrStorage            = errors.New("auth storage failure")
)

// State is an immutable snapshot of the authentication state.
type State struct {
	User            *models.User `json:"user"`
	IsAuthenticated bool         `json:"isAuthenticated"`
	Loading         bool         `json:"loading"`
	Error           string       `json:"error,omitempty"`
	Status          Status       `json:"status"`
}

// Options configures a Manager
type Options struct {
	PasswordMode PasswordMode
	BcryptCost   int
	Logger       *logrus.Logger
	Now          func() time.Time
}

// Manager serializes every authentication operation behind one mutex and
// publishes a State snapshot after each transition.
type Manager struct {
	mutex     sync.Mutex
	store     *storage.Store
	state     State
	mode      PasswordMode
	cost      int
	logger    *logrus.Logger
	now       func() time.Time
	listeners *notify.Broadcaster[State]
}

// NewManager creates a manager in the idle state. Call Restore to pick up a
// persisted session.
func NewManager(store *storage.Store, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	mode := opts.PasswordMode
	if mode == "" {
		mode = PasswordNone
	}

	return &Manager{
		store:     store,
		state:     State{Status: StatusIdle},
		mode:      mode,
		cost:      opts.BcryptCost,
		logger:    logger,
		now:       now,
		listeners: notify.NewBroadcaster[State](16),
	}
}

// Restore reads the persisted session. A present record authenticates;
// an absent or unreadable one leaves the manager idle. Restoring the user
// who is already signed in keeps a pending error.
func (m *Manager) Restore(ctx context.Context) State {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	user, err := m.store.ReadCurrentUser(ctx)
	if err != nil {
		m.logger.WithError(err).Warn("Could not restore session")
	}

	switch {
	case user != nil && m.state.Status == StatusError && m.state.User != nil && m.state.User.ID == user.ID:
		// Same session; a pending error stays until ClearError or the next attempt.
		m.state.User = user
	case user != nil:
		m.state = State{User: user, IsAuthenticated: true, Status: StatusAuthenticated}
		m.logger.WithField("user_id", user.ID).Info("Session restored")
	default:
		m.state = State{Status: StatusIdle}
	}
	m.publish()
	return m.state
}

// Register creates a credential, persists it and signs the new user in.
func (m *Manager) Register(ctx context.Context, email, username, password string) (models.User, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.begin()

	users, err := m.store.ReadUsers(ctx)
	if err != nil && !errors.Is(err, storage.ErrStorageParse) {
		return models.User{}, m.fail(MessageSignUpFailed, fmt.Errorf("%w: failed to read users: %v", ErrStorage, err))
	}

	for _, existing := range users {
		if existing.Email == email {
			m.logger.WithField("email", email).Info("Registration rejected: duplicate email")
			return models.User{}, m.fail(MessageDuplicateEmail, ErrDuplicateEmail)
		}
	}

	stored, err := m.mode.storedPassword(password, m.cost)
	if err != nil {
		return models.User{}, m.fail(MessageSignUpFailed, fmt.Errorf("failed to hash password: %w", err))
	}

	credential := models.Credential{
		ID:        models.NewUserID(),
		Email:     email,
		Username:  username,
		CreatedAt: m.now().UTC(),
		Password:  stored,
	}

	if err := m.store.WriteUsers(ctx, append(users, credential)); err != nil {
		return models.User{}, m.fail(MessageSignUpFailed, fmt.Errorf("%w: failed to write users: %v", ErrStorage, err))
	}

	user := credential.User()
	if err := m.store.WriteCurrentUser(ctx, user); err != nil {
		return models.User{}, m.fail(MessageSignUpFailed, fmt.Errorf("%w: failed to write session: %v", ErrStorage, err))
	}

	m.authenticate(user)
	m.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User registered")
	return user, nil
}

// Login signs in the user registered under email. Whether password is
// checked depends on the configured PasswordMode.
func (m *Manager) Login(ctx context.Context, email, password string) (models.User, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.begin()

	users, err := m.store.ReadUsers(ctx)
	if err != nil && !errors.Is(err, storage.ErrStorageParse) {
		return models.User{}, m.fail(MessageLoginFailed, fmt.Errorf("%w: failed to read users: %v", ErrStorage, err))
	}

	var found *models.Credential
	for i := range users {
		if users[i].Email == email {
			found = &users[i]
			break
		}
	}

	if found == nil || !m.mode.verify(found.Password, password) {
		m.logger.WithField("email", email).Info("Login rejected")
		return models.User{}, m.fail(MessageInvalidCredentials, ErrInvalidCredentials)
	}

	user := found.User()
	if err := m.store.WriteCurrentUser(ctx, user); err != nil {
		return models.User{}, m.fail(MessageLoginFailed, fmt.Errorf("%w: failed to write session: %v", ErrStorage, err))
	}

	m.authenticate(user)
	m.logger.WithField("user_id", user.ID).Info("User logged in")
	return user, nil
}

// Logout clears the session from memory and the durable store. It always
// succeeds; a failed durable delete is only logged.
func (m *Manager) Logout(ctx context.Context) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.store.ClearCurrentUser(ctx); err != nil {
		m.logger.WithError(err).Warn("Failed to clear persisted session")
	}

	if m.state.User != nil {
		m.logger.WithField("user_id", m.state.User.ID).Info("User logged out")
	}
	m.state = State{Status: StatusIdle}
	m.publish()
}

// ClearError drops the error message without touching authentication.
func (m *Manager) ClearError() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.state.Error == "" && m.state.Status != StatusError {
		return
	}

	m.state.Error = ""
	if m.state.Status == StatusError {
		m.state.Status = m.settledStatus()
	}
	m.publish()
}

// State returns the current snapshot
func (m *Manager) State() State {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.snapshot()
}

// CurrentUser returns the signed-in user, if any.
func (m *Manager) CurrentUser() (models.User, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.state.IsAuthenticated || m.state.User == nil {
		return models.User{}, false
	}
	return *m.state.User, true
}

// Subscribe returns a channel receiving a snapshot after every transition.
func (m *Manager) Subscribe() <-chan State {
	return m.listeners.Subscribe()
}

// Unsubscribe closes a channel obtained from Subscribe.
func (m *Manager) Unsubscribe(ch <-chan State) {
	m.listeners.Unsubscribe(ch)
}

// begin enters loading and clears any previous error
func (m *Manager) begin() {
	m.state.Loading = true
	m.state.Error = ""
	m.state.Status = StatusLoading
	m.publish()
}

// fail records message, leaves the session as it was and returns err
func (m *Manager) fail(message string, err error) error {
	m.state.Loading = false
	m.state.Error = message
	m.state.Status = StatusError
	m.publish()

	if !errors.Is(err, ErrDuplicateEmail) && !errors.Is(err, ErrInvalidCredentials) {
		m.logger.WithError(err).Error(message)
	}
	return err
}

func (m *Manager) authenticate(user models.User) {
	m.state = State{User: &user, IsAuthenticated: true, Status: StatusAuthenticated}
	m.publish()
}

func (m *Manager) settledStatus() Status {
	if m.state.IsAuthenticated {
		return StatusAuthenticated
	}
	return StatusIdle
}

func (m *Manager) snapshot() State {
	state := m.state
	if state.User != nil {
		user := *state.User
		state.User = &user
	}
	return state
}

func (m *Manager) publish() {
	m.listeners.Publish(m.snapshot())
}
