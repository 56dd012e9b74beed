package player

import "testing"

func TestSelection(t *testing.T) {
	t.Run("SelectIsNotAToggle", func(t *testing.T) {
		var sel Selection
		sel.Select("song_a")
		sel.Select("song_a")

		if sel.SongID != "song_a" || !sel.IsPlaying {
			t.Errorf("Expected song_a playing after selecting twice, got %+v", sel)
		}
	})

	t.Run("SelectReplacesCurrent", func(t *testing.T) {
		var sel Selection
		sel.Select("song_a")
		sel.Pause()
		sel.Select("song_b")

		if sel.SongID != "song_b" || !sel.IsPlaying {
			t.Errorf("Expected song_b playing, got %+v", sel)
		}
	})

	t.Run("PauseKeepsSong", func(t *testing.T) {
		var sel Selection
		sel.Select("song_a")
		sel.Pause()

		if sel.SongID != "song_a" {
			t.Errorf("Expected song_a to stay selected, got %q", sel.SongID)
		}
		if sel.IsPlaying {
			t.Error("Expected playing to be false after pause")
		}
	})

	t.Run("ResumeWithoutSongIsNoop", func(t *testing.T) {
		var sel Selection
		sel.Resume()

		if sel.IsPlaying {
			t.Error("Expected resume with nothing selected to be a no-op")
		}
	})

	t.Run("ResumeAfterPause", func(t *testing.T) {
		var sel Selection
		sel.Select("song_a")
		sel.Pause()
		sel.Resume()

		if !sel.IsPlaying {
			t.Error("Expected playing after resume")
		}
	})

	t.Run("Stop", func(t *testing.T) {
		var sel Selection
		sel.Select("song_a")
		sel.Stop()

		if sel.HasSong() || sel.IsPlaying {
			t.Errorf("Expected empty selection after stop, got %+v", sel)
		}
	})

	t.Run("Forget", func(t *testing.T) {
		var sel Selection
		sel.Select("song_a")

		if sel.Forget("song_b") {
			t.Error("Expected Forget of another song to report false")
		}
		if !sel.IsPlaying || sel.SongID != "song_a" {
			t.Errorf("Expected selection untouched, got %+v", sel)
		}
		if !sel.Forget("song_a") {
			t.Error("Expected Forget of the current song to report true")
		}
		if sel.HasSong() || sel.IsPlaying {
			t.Errorf("Expected empty selection after forget, got %+v", sel)
		}
	})
}

func TestToggle(t *testing.T) {
	testCases := []struct {
		name     string
		current  Selection
		songID   string
		expected Action
	}{
		{"nothing selected", Selection{}, "song_a", ActionSelect},
		{"other song playing", Selection{SongID: "song_b", IsPlaying: true}, "song_a", ActionSelect},
		{"same song playing", Selection{SongID: "song_a", IsPlaying: true}, "song_a", ActionPause},
		{"same song paused", Selection{SongID: "song_a", IsPlaying: false}, "song_a", ActionResume},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Toggle(tc.current, tc.songID); got != tc.expected {
				t.Errorf("Toggle(%+v, %s): expected %v, got %v", tc.current, tc.songID, tc.expected, got)
			}
		})
	}
}
