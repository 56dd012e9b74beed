package server

import (
	"errors"
	"net/http"

	"songshelf/internal/auth"
	"songshelf/internal/validation"
	"songshelf/pkg/models"
)

// sessionResponse is returned by register and login
type sessionResponse struct {
	User  models.User `json:"user"`
	State auth.State  `json:"state"`
}

// handleGetAuthState returns the authentication snapshot
func (ms *MusicServer) handleGetAuthState(w http.ResponseWriter, r *http.Request) {
	ms.respondJSON(w, http.StatusOK, ms.store.AuthState())
}

// handleRegister validates the sign-up form and creates the account
func (ms *MusicServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var form validation.SignUp
	if err := decodeJSON(r, &form); err != nil {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	form.Email = validation.Sanitize(form.Email)
	form.Username = validation.Sanitize(form.Username)

	if result := validation.ValidateSignUp(form); !result.Valid {
		ms.respondWithValidationError(w, r, result.Errors)
		return
	}

	user, err := ms.store.SignUp(r.Context(), form.Email, form.Username, form.Password)
	if err != nil {
		ms.respondWithAuthError(w, r, err)
		return
	}

	ms.respondJSON(w, http.StatusCreated, sessionResponse{User: user, State: ms.store.AuthState()})
}

// handleLogin validates the login form and opens a session
func (ms *MusicServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form validation.Login
	if err := decodeJSON(r, &form); err != nil {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	form.Email = validation.Sanitize(form.Email)

	if result := validation.ValidateLogin(form); !result.Valid {
		ms.respondWithValidationError(w, r, result.Errors)
		return
	}

	user, err := ms.store.LogIn(r.Context(), form.Email, form.Password)
	if err != nil {
		ms.respondWithAuthError(w, r, err)
		return
	}

	ms.respondJSON(w, http.StatusOK, sessionResponse{User: user, State: ms.store.AuthState()})
}

// handleLogout ends the session; it never fails
func (ms *MusicServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	ms.store.LogOut(r.Context())
	ms.respondJSON(w, http.StatusOK, ms.store.AuthState())
}

// handleClearError drops the last authentication error
func (ms *MusicServer) handleClearError(w http.ResponseWriter, r *http.Request) {
	ms.store.Auth().ClearError()
	ms.respondJSON(w, http.StatusOK, ms.store.AuthState())
}

// respondWithAuthError maps auth failures to status codes. The body carries
// the message stored in the auth state.
func (ms *MusicServer) respondWithAuthError(w http.ResponseWriter, r *http.Request, err error) {
	message := ms.store.AuthState().Error

	switch {
	case errors.Is(err, auth.ErrDuplicateEmail):
		ms.respondWithError(w, r, http.StatusConflict, message, err)
	case errors.Is(err, auth.ErrInvalidCredentials):
		ms.respondWithError(w, r, http.StatusUnauthorized, message, err)
	default:
		if message == "" {
			message = "Internal server error"
		}
		ms.respondWithError(w, r, http.StatusInternalServerError, message, err)
	}
}
