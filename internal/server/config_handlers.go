package server

import (
	"net/http"

	"songshelf/internal/config"
	"songshelf/internal/validation"
)

// ConfigResponse represents the public configuration sent to the frontend
type ConfigResponse struct {
	Auth    AuthConfigResponse    `json:"auth"`
	Library LibraryConfigResponse `json:"library"`
	Forms   FormConfigResponse    `json:"forms"`
}

// AuthConfigResponse represents auth-related configuration for the frontend
type AuthConfigResponse struct {
	PasswordMode    string `json:"password_mode"`
	PasswordChecked bool   `json:"password_checked"`
}

// LibraryConfigResponse lists what the import endpoint accepts
type LibraryConfigResponse struct {
	SupportedFormats []string `json:"supported_formats"`
}

// FormConfigResponse carries the limits the forms are validated against
type FormConfigResponse struct {
	MinUsernameLength int `json:"min_username_length"`
	MaxUsernameLength int `json:"max_username_length"`
	MinPasswordLength int `json:"min_password_length"`
	MinYear           int `json:"min_year"`
	MaxYear           int `json:"max_year"`
}

// handleGetConfig returns public configuration settings for the frontend
func (ms *MusicServer) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	mode := ms.config.Auth.PasswordMode

	ms.respondJSON(w, http.StatusOK, ConfigResponse{
		Auth: AuthConfigResponse{
			PasswordMode:    mode,
			PasswordChecked: mode != "" && mode != config.PasswordModeNone,
		},
		Library: LibraryConfigResponse{
			SupportedFormats: ms.config.Library.SupportedFormats,
		},
		Forms: FormConfigResponse{
			MinUsernameLength: validation.MinUsernameLength,
			MaxUsernameLength: validation.MaxUsernameLength,
			MinPasswordLength: validation.MinPasswordLength,
			MinYear:           validation.MinYear,
			MaxYear:           ms.store.Now().Year() + 1,
		},
	})
}
