// Package player holds the playback selection: which song is current and
// whether it is playing. Nothing here touches audio.
package player

// Selection is the playback selection state. The zero value has nothing selected.
type Selection struct {
	SongID    string `json:"songId,omitempty"`
	IsPlaying bool   `json:"isPlaying"`
}

// HasSong reports whether a song is selected
func (s Selection) HasSong() bool {
	return s.SongID != ""
}

// Select makes songID current and playing. It always sets playing, even when
// songID is already current; it is not a toggle.
func (s *Selection) Select(songID string) {
	s.SongID = songID
	s.IsPlaying = true
}

// Pause stops playing but keeps the current song
func (s *Selection) Pause() {
	s.IsPlaying = false
}

// Resume sets playing again. Resuming with nothing selected is a no-op.
func (s *Selection) Resume() {
	if !s.HasSong() {
		return
	}
	s.IsPlaying = true
}

// Stop clears the selection
func (s *Selection) Stop() {
	s.SongID = ""
	s.IsPlaying = false
}

// Forget clears the selection if it points at songID and reports whether it did.
func (s *Selection) Forget(songID string) bool {
	if s.SongID == "" || s.SongID != songID {
		return false
	}
	s.Stop()
	return true
}

// Action is the primitive a caller should dispatch for a play/pause click.
type Action int

const (
	ActionSelect Action = iota
	ActionPause
	ActionResume
)

func (a Action) String() string {
	switch a {
	case ActionPause:
		return "pause"
	case ActionResume:
		return "resume"
	default:
		return "select"
	}
}

// Toggle decides the caller-side play/pause behavior for a click on songID:
// the current playing song pauses, the current paused song resumes, anything
// else is selected.
func Toggle(current Selection, songID string) Action {
	if current.SongID != songID {
		return ActionSelect
	}
	if current.IsPlaying {
		return ActionPause
	}
	return ActionResume
}
