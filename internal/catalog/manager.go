// Package catalog holds the signed-in user's songs, the active filters and
// the playback selection, and keeps the filtered view in step with them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"songshelf/internal/notify"
	"songshelf/internal/player"
	"songshelf/internal/storage"
	"songshelf/pkg/models"

	"github.com/sirupsen/logrus"
)

// MessageLoadFailed is stored in Snapshot.Error when the songs collection cannot be read.
const MessageLoadFailed = "Failed to load songs"

// ErrStorage wraps durable write failures. In-memory state is unchanged when it is returned.
var ErrStorage = errors.New("catalog storage failure")

// Snapshot is a read-only view of the catalog. Slices are never modified
// after a snapshot is taken, so callers may keep them.
type Snapshot struct {
	UserID        string           `json:"userId,omitempty"`
	Songs         []models.Song    `json:"songs"`
	FilteredSongs []models.Song    `json:"filteredSongs"`
	Filters       models.Filters   `json:"filters"`
	SearchQuery   string           `json:"searchQuery"`
	Loading       bool             `json:"loading"`
	Error         string           `json:"error,omitempty"`
	Selection     player.Selection `json:"selection"`
	CurrentSong   *models.Song     `json:"currentSong"`

	// ViewVersion changes whenever FilteredSongs is re-derived.
	ViewVersion uint64 `json:"-"`
	// FilterVersion changes whenever Filters or SearchQuery change.
	FilterVersion uint64 `json:"-"`
}

// HasActiveFilters reports whether a search query or any filter axis is set
func (s Snapshot) HasActiveFilters() bool {
	return s.SearchQuery != "" || !s.Filters.IsZero()
}

// Options configures a Manager
type Options struct {
	Logger *logrus.Logger
	Now    func() time.Time
}

// Manager owns catalog state. Every operation runs under one mutex and ends
// with a single recompute of the filtered view.
type Manager struct {
	mutex     sync.Mutex
	store     *storage.Store
	logger    *logrus.Logger
	now       func() time.Time
	listeners *notify.Broadcaster[Snapshot]

	userID        string
	songs         []models.Song
	filtered      []models.Song
	filters       models.Filters
	query         string
	loading       bool
	errMessage    string
	selection     player.Selection
	viewVersion   uint64
	filterVersion uint64
}

// NewManager creates an empty catalog
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

	return &Manager{
		store:     store,
		logger:    logger,
		now:       now,
		listeners: notify.NewBroadcaster[Snapshot](16),
		songs:     []models.Song{},
		filtered:  []models.Song{},
	}
}

// LoadForUser replaces the catalog with userID's songs from the durable
// store. Read failures are reported through Snapshot.Error, never returned.
func (m *Manager) LoadForUser(ctx context.Context, userID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.loading = true
	m.publish()

	all, err := m.store.ReadSongs(ctx)
	m.userID = userID
	m.loading = false
	if err != nil {
		m.logger.WithError(err).WithField("user_id", userID).Warn(MessageLoadFailed)
		m.errMessage = MessageLoadFailed
		m.songs = []models.Song{}
	} else {
		m.errMessage = ""
		m.songs = ownedBy(all, userID)
	}

	if m.selection.HasSong() && indexOf(m.songs, m.selection.SongID) < 0 {
		m.selection.Stop()
	}

	m.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"songs":   len(m.songs),
	}).Debug("Catalog loaded")
	m.recompute()
}

// AddSong creates a song owned by userID and appends it to the system-wide
// durable collection. It joins the in-memory catalog only when userID is the
// user the catalog is loaded for.
func (m *Manager) AddSong(ctx context.Context, userID string, input models.SongInput) (models.Song, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	song := models.NewSong(userID, input, m.now())

	err := m.persist(ctx, func(all []models.Song) []models.Song {
		return append(all, song)
	})
	if err != nil {
		return models.Song{}, err
	}

	if userID != m.userID {
		m.logger.WithFields(logrus.Fields{
			"song_id":     song.ID,
			"owner_id":    userID,
			"loaded_user": m.userID,
		}).Warn("Song stored for a user whose catalog is not loaded")
		return song, nil
	}

	m.songs = append(slices.Clone(m.songs), song)
	m.logger.WithFields(logrus.Fields{
		"song_id": song.ID,
		"title":   song.Title,
	}).Info("Song added")
	m.recompute()
	return song, nil
}

// UpdateSong merges patch into the song with songID and bumps its
// updatedAt. Unknown ids are a silent no-op. Ownership never changes.
func (m *Manager) UpdateSong(ctx context.Context, songID string, patch models.SongPatch) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	idx := indexOf(m.songs, songID)
	if idx < 0 {
		return nil
	}

	updated := patch.Apply(m.songs[idx])
	updated.UpdatedAt = m.now().UTC()

	err := m.persist(ctx, func(all []models.Song) []models.Song {
		if i := indexOf(all, songID); i >= 0 {
			all[i] = updated
		}
		return all
	})
	if err != nil {
		return err
	}

	songs := slices.Clone(m.songs)
	songs[idx] = updated
	m.songs = songs
	m.logger.WithField("song_id", songID).Info("Song updated")
	m.recompute()
	return nil
}

// DeleteSong removes the song with songID. Unknown ids are a silent no-op.
// If the song was selected the selection is cleared in the same step.
func (m *Manager) DeleteSong(ctx context.Context, songID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	idx := indexOf(m.songs, songID)
	if idx < 0 {
		return nil
	}

	err := m.persist(ctx, func(all []models.Song) []models.Song {
		return slices.DeleteFunc(all, func(s models.Song) bool { return s.ID == songID })
	})
	if err != nil {
		return err
	}

	m.songs = slices.Delete(slices.Clone(m.songs), idx, idx+1)
	if m.selection.Forget(songID) {
		m.logger.WithField("song_id", songID).Debug("Selected song deleted, playback stopped")
	}
	m.logger.WithField("song_id", songID).Info("Song deleted")
	m.recompute()
	return nil
}

// SetSearchQuery sets the free-text query
func (m *Manager) SetSearchQuery(query string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.query = query
	m.filterVersion++
	m.recompute()
}

// SetFilter sets one filter axis. An empty value clears that axis.
func (m *Manager) SetFilter(axis models.FilterAxis, value string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.filters = m.filters.With(axis, value)
	m.filterVersion++
	m.recompute()
}

// ClearFilters clears every filter axis and the search query
func (m *Manager) ClearFilters() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.filters = models.Filters{}
	m.query = ""
	m.filterVersion++
	m.recompute()
}

// Reset drops all catalog state, including filters and the selection.
func (m *Manager) Reset() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.userID = ""
	m.songs = []models.Song{}
	m.filters = models.Filters{}
	m.query = ""
	m.loading = false
	m.errMessage = ""
	m.selection.Stop()
	m.filterVersion++
	m.recompute()
}

// Select makes songID current and playing. It is not a toggle. Ids not in
// the catalog are ignored and false is returned.
func (m *Manager) Select(songID string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if indexOf(m.songs, songID) < 0 {
		return false
	}
	m.selection.Select(songID)
	m.publish()
	return true
}

// Pause keeps the current song but stops playing
func (m *Manager) Pause() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.selection.Pause()
	m.publish()
}

// Resume plays the current song again. No-op with nothing selected.
func (m *Manager) Resume() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.selection.Resume()
	m.publish()
}

// Stop clears the selection
func (m *Manager) Stop() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.selection.Stop()
	m.publish()
}

// Selection returns the playback selection
func (m *Manager) Selection() player.Selection {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.selection
}

// Snapshot returns the current read-only view
func (m *Manager) Snapshot() Snapshot {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.snapshot()
}

// Subscribe returns a channel receiving a snapshot after every change.
func (m *Manager) Subscribe() <-chan Snapshot {
	return m.listeners.Subscribe()
}

// Unsubscribe closes a channel obtained from Subscribe.
func (m *Manager) Unsubscribe(ch <-chan Snapshot) {
	m.listeners.Unsubscribe(ch)
}

// Listeners returns the number of active subscribers
func (m *Manager) Listeners() int {
	return m.listeners.Len()
}

// persist runs a read-modify-write over the system-wide songs collection.
func (m *Manager) persist(ctx context.Context, mutate func([]models.Song) []models.Song) error {
	all, err := m.store.ReadSongs(ctx)
	if err != nil && !errors.Is(err, storage.ErrStorageParse) {
		return fmt.Errorf("%w: failed to read songs: %v", ErrStorage, err)
	}
	if err != nil {
		m.logger.WithError(err).Warn("Songs collection unreadable, rewriting from scratch")
	}

	if err := m.store.WriteSongs(ctx, mutate(all)); err != nil {
		m.logger.WithError(err).Error("Failed to persist songs")
		return fmt.Errorf("%w: failed to write songs: %v", ErrStorage, err)
	}
	return nil
}

// recompute re-derives the filtered view and notifies subscribers. Every
// mutating operation ends here.
func (m *Manager) recompute() {
	m.filtered = ApplyFilters(m.songs, m.filters, m.query)
	m.viewVersion++
	m.publish()
}

func (m *Manager) snapshot() Snapshot {
	snap := Snapshot{
		UserID:        m.userID,
		Songs:         m.songs,
		FilteredSongs: m.filtered,
		Filters:       m.filters,
		SearchQuery:   m.query,
		Loading:       m.loading,
		Error:         m.errMessage,
		Selection:     m.selection,
		ViewVersion:   m.viewVersion,
		FilterVersion: m.filterVersion,
	}
	if i := indexOf(m.songs, m.selection.SongID); i >= 0 {
		current := m.songs[i]
		snap.CurrentSong = &current
	}
	return snap
}

func (m *Manager) publish() {
	m.listeners.Publish(m.snapshot())
}

func ownedBy(all []models.Song, userID string) []models.Song {
	owned := make([]models.Song, 0, len(all))
	for _, song := range all {
		if song.UserID == userID {
			owned = append(owned, song)
		}
	}
	return owned
}

func indexOf(songs []models.Song, songID string) int {
	if songID == "" {
		return -1
	}
	return slices.IndexFunc(songs, func(s models.Song) bool { return s.ID == songID })
}
