package server

import (
	"errors"
	"net/http"
	"path/filepath"

	"songshelf/internal/app"
	"songshelf/internal/validation"
	"songshelf/pkg/models"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// handleGetSongs returns the catalog read model
func (ms *MusicServer) handleGetSongs(w http.ResponseWriter, r *http.Request) {
	ms.respondJSON(w, http.StatusOK, ms.store.CatalogView())
}

// handleCreateSong validates the song form and adds it to the catalog
func (ms *MusicServer) handleCreateSong(w http.ResponseWriter, r *http.Request) {
	var input models.SongInput
	if err := decodeJSON(r, &input); err != nil {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	sanitizeSongInput(&input)

	if result := validation.ValidateSong(input, ms.store.Now()); !result.Valid {
		ms.respondWithValidationError(w, r, result.Errors)
		return
	}

	ms.addSong(w, r, input)
}

// handleImportSong reads a song from an audio file under the import directory
func (ms *MusicServer) handleImportSong(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	path := validation.Sanitize(req.Path)
	if path == "" {
		ms.respondWithValidationError(w, r, []validation.FieldError{{
			Field:   "path",
			Message: "File path is required",
			Code:    "MISSING_FILE_PATH",
		}})
		return
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(ms.config.Library.ImportPath, path)
	}

	if verr := validation.ValidateFilePath(ms.config.Library.ImportPath, path); verr != nil {
		ms.respondWithValidationError(w, r, []validation.FieldError{*verr})
		return
	}
	if !ms.extractor.IsAudioFile(path) {
		ms.respondWithValidationError(w, r, []validation.FieldError{{
			Field:   "path",
			Message: "Unsupported file type: " + filepath.Ext(path),
			Code:    "UNSUPPORTED_FILE_TYPE",
		}})
		return
	}

	input, err := ms.extractor.ExtractFromFile(path)
	if err != nil {
		ms.respondWithError(w, r, http.StatusUnprocessableEntity, "Could not read audio file", err)
		return
	}
	sanitizeSongInput(&input)

	if result := validation.ValidateSong(input, ms.store.Now()); !result.Valid {
		ms.respondWithValidationError(w, r, result.Errors)
		return
	}

	ms.logger.WithFields(logrus.Fields{
		"file_path": path,
		"title":     input.Title,
	}).Info("Importing song from file")
	ms.addSong(w, r, input)
}

func (ms *MusicServer) addSong(w http.ResponseWriter, r *http.Request, input models.SongInput) {
	song, err := ms.store.AddSong(r.Context(), input)
	switch {
	case errors.Is(err, app.ErrNotAuthenticated):
		ms.respondWithError(w, r, http.StatusUnauthorized, "Authentication required", err)
	case err != nil:
		ms.respondWithError(w, r, http.StatusInternalServerError, "Failed to add song", err)
	default:
		ms.respondJSON(w, http.StatusCreated, song)
	}
}

// handleUpdateSong merges the given fields into a song
func (ms *MusicServer) handleUpdateSong(w http.ResponseWriter, r *http.Request) {
	songID := chi.URLParam(r, "id")
	current, ok := ms.findSong(songID)
	if !ok {
		ms.respondWithError(w, r, http.StatusNotFound, "Song not found", nil)
		return
	}

	var patch models.SongPatch
	if err := decodeJSON(r, &patch); err != nil {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	if result := validation.ValidatePatch(patch, current, ms.store.Now()); !result.Valid {
		ms.respondWithValidationError(w, r, result.Errors)
		return
	}

	if err := ms.store.Catalog().UpdateSong(r.Context(), songID, patch); err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Failed to update song", err)
		return
	}

	updated, _ := ms.findSong(songID)
	ms.respondJSON(w, http.StatusOK, updated)
}

// handleDeleteSong removes a song
func (ms *MusicServer) handleDeleteSong(w http.ResponseWriter, r *http.Request) {
	songID := chi.URLParam(r, "id")
	if _, ok := ms.findSong(songID); !ok {
		ms.respondWithError(w, r, http.StatusNotFound, "Song not found", nil)
		return
	}

	if err := ms.store.Catalog().DeleteSong(r.Context(), songID); err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Failed to delete song", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleSetSearch sets the free-text query
func (ms *MusicServer) handleSetSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	if verr := validation.ValidateSearchQuery(req.Query); verr != nil {
		ms.respondWithValidationError(w, r, []validation.FieldError{*verr})
		return
	}

	ms.store.Catalog().SetSearchQuery(req.Query)
	ms.respondJSON(w, http.StatusOK, ms.store.CatalogView())
}

// handleSetFilter sets one filter axis
func (ms *MusicServer) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	axis, err := models.ParseFilterAxis(chi.URLParam(r, "axis"))
	if err != nil {
		ms.respondWithValidationError(w, r, []validation.FieldError{{
			Field:   "axis",
			Message: "Filter must be one of singer, alphabet or genre",
			Code:    "UNKNOWN_FILTER_AXIS",
		}})
		return
	}

	var req struct {
		Value string `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}

	ms.store.Catalog().SetFilter(axis, validation.Sanitize(req.Value))
	ms.respondJSON(w, http.StatusOK, ms.store.CatalogView())
}

// handleClearFilters clears every filter and the search query
func (ms *MusicServer) handleClearFilters(w http.ResponseWriter, r *http.Request) {
	ms.store.Catalog().ClearFilters()
	ms.respondJSON(w, http.StatusOK, ms.store.CatalogView())
}

func (ms *MusicServer) findSong(songID string) (models.Song, bool) {
	for _, song := range ms.store.Catalog().Snapshot().Songs {
		if song.ID == songID {
			return song, true
		}
	}
	return models.Song{}, false
}

func sanitizeSongInput(in *models.SongInput) {
	in.Title = validation.Sanitize(in.Title)
	in.Singer = validation.Sanitize(in.Singer)
	in.Album = validation.Sanitize(in.Album)
	in.Genre = validation.Sanitize(in.Genre)
	in.Duration = validation.Sanitize(in.Duration)
}
