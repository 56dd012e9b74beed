package server

import (
	"net/http"

	"songshelf/internal/player"
	"songshelf/pkg/models"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// PlayerState is the playback part of the read model
type PlayerState struct {
	CurrentSong *models.Song `json:"currentSong"`
	IsPlaying   bool         `json:"isPlaying"`
}

func (ms *MusicServer) playerState() PlayerState {
	snap := ms.store.Catalog().Snapshot()
	return PlayerState{CurrentSong: snap.CurrentSong, IsPlaying: snap.Selection.IsPlaying}
}

// handleGetPlayerState returns the current player state
func (ms *MusicServer) handleGetPlayerState(w http.ResponseWriter, r *http.Request) {
	ms.respondJSON(w, http.StatusOK, ms.playerState())
}

// handleTrackPlay applies the play/pause toggle for a click on a song
func (ms *MusicServer) handleTrackPlay(w http.ResponseWriter, r *http.Request) {
	songID := chi.URLParam(r, "id")
	catalog := ms.store.Catalog()

	action := player.Toggle(catalog.Selection(), songID)
	switch action {
	case player.ActionPause:
		catalog.Pause()
	case player.ActionResume:
		catalog.Resume()
	default:
		if !catalog.Select(songID) {
			ms.respondWithError(w, r, http.StatusNotFound, "Song not found", nil)
			return
		}
	}

	ms.logger.WithFields(logrus.Fields{
		"song_id": songID,
		"action":  action.String(),
	}).Debug("Playback toggled")
	ms.respondJSON(w, http.StatusOK, ms.playerState())
}

// handlePause pauses playback
func (ms *MusicServer) handlePause(w http.ResponseWriter, r *http.Request) {
	ms.store.Catalog().Pause()
	ms.respondJSON(w, http.StatusOK, ms.playerState())
}

// handleResume resumes playback of the current song
func (ms *MusicServer) handleResume(w http.ResponseWriter, r *http.Request) {
	ms.store.Catalog().Resume()
	ms.respondJSON(w, http.StatusOK, ms.playerState())
}

// handleStop clears the selection
func (ms *MusicServer) handleStop(w http.ResponseWriter, r *http.Request) {
	ms.store.Catalog().Stop()
	ms.respondJSON(w, http.StatusOK, ms.playerState())
}
