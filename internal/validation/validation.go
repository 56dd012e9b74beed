// Package validation checks form input before it reaches the state managers.
package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"songshelf/pkg/models"
)

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	durationPattern = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
)

const (
	MinYear           = 1900
	MinPasswordLength = 6
	MinUsernameLength = 3
	MaxUsernameLength = 20
	MaxQueryLength    = 1000
)

// FieldError describes one invalid field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Result contains validation results
type Result struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}

// Message returns the message for field, or "" if the field is valid.
func (r Result) Message(field string) string {
	for _, e := range r.Errors {
		if e.Field == field {
			return e.Message
		}
	}
	return ""
}

type collector struct {
	errors []FieldError
}

func (c *collector) add(field, code, message string) {
	c.errors = append(c.errors, FieldError{Field: field, Message: message, Code: code})
}

func (c *collector) result() Result {
	return Result{Valid: len(c.errors) == 0, Errors: c.errors}
}

// SignUp is the registration form
type SignUp struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Login is the login form
type Login struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// IsEmail reports whether email looks like an address
func IsEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidateSignUp checks the registration form
func ValidateSignUp(form SignUp) Result {
	var c collector

	switch n := utf8.RuneCountInString(form.Username); {
	case form.Username == "":
		c.add("username", "MISSING_USERNAME", "Username is required")
	case n < MinUsernameLength || n > MaxUsernameLength:
		c.add("username", "INVALID_USERNAME_LENGTH", "Username must be between 3 and 20 characters")
	}

	validateEmail(&c, form.Email)

	switch {
	case form.Password == "":
		c.add("password", "MISSING_PASSWORD", "Password is required")
	case utf8.RuneCountInString(form.Password) < MinPasswordLength:
		c.add("password", "PASSWORD_TOO_SHORT", "Password must be at least 6 characters")
	}

	switch {
	case form.ConfirmPassword == "":
		c.add("confirmPassword", "MISSING_CONFIRMATION", "Please confirm your password")
	case form.ConfirmPassword != form.Password:
		c.add("confirmPassword", "PASSWORD_MISMATCH", "Passwords do not match")
	}

	return c.result()
}

// ValidateLogin checks the login form
func ValidateLogin(form Login) Result {
	var c collector

	validateEmail(&c, form.Email)
	if form.Password == "" {
		c.add("password", "MISSING_PASSWORD", "Password is required")
	}

	return c.result()
}

func validateEmail(c *collector, email string) {
	switch {
	case email == "":
		c.add("email", "MISSING_EMAIL", "Email is required")
	case !IsEmail(email):
		c.add("email", "INVALID_EMAIL", "Please enter a valid email address")
	}
}

// ValidateSong checks the song form. now decides the latest allowed year.
func ValidateSong(in models.SongInput, now time.Time) Result {
	var c collector

	required := []struct {
		field, value, code, message string
	}{
		{"title", in.Title, "MISSING_TITLE", "Song title is required"},
		{"singer", in.Singer, "MISSING_SINGER", "Singer name is required"},
		{"album", in.Album, "MISSING_ALBUM", "Album name is required"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			c.add(r.field, r.code, r.message)
		}
	}

	maxYear := now.Year() + 1
	switch {
	case in.Year == 0:
		c.add("year", "MISSING_YEAR", "Release year is required")
	case in.Year < MinYear || in.Year > maxYear:
		c.add("year", "INVALID_YEAR", fmt.Sprintf("Year must be between %d and %d", MinYear, maxYear))
	}

	if strings.TrimSpace(in.Genre) == "" {
		c.add("genre", "MISSING_GENRE", "Genre is required")
	}

	switch {
	case strings.TrimSpace(in.Duration) == "":
		c.add("duration", "MISSING_DURATION", "Duration is required")
	case !durationPattern.MatchString(in.Duration):
		c.add("duration", "INVALID_DURATION", "Duration must be in format MM:SS (e.g., 3:45)")
	}

	return c.result()
}

// ValidatePatch validates the song that would result from applying p to current.
func ValidatePatch(p models.SongPatch, current models.Song, now time.Time) Result {
	return ValidateSong(p.Apply(current).Input(), now)
}

// ValidateSearchQuery validates search query text
func ValidateSearchQuery(query string) *FieldError {
	if len(query) > MaxQueryLength {
		return &FieldError{
			Field:   "search",
			Message: "Search query too long (max 1000 characters)",
			Code:    "SEARCH_QUERY_TOO_LONG",
		}
	}

	if strings.Contains(query, "\x00") {
		return &FieldError{
			Field:   "search",
			Message: "Search query contains invalid characters",
			Code:    "INVALID_SEARCH_CHARACTERS",
		}
	}

	return nil
}

// ValidateFilePath ensures filePath is inside root
func ValidateFilePath(root, filePath string) *FieldError {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return &FieldError{
			Field:   "path",
			Message: "Invalid file path",
			Code:    "INVALID_FILE_PATH",
		}
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return &FieldError{
			Field:   "path",
			Message: "Server configuration error",
			Code:    "CONFIG_ERROR",
		}
	}

	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return &FieldError{
			Field:   "path",
			Message: "File path outside allowed directory",
			Code:    "PATH_TRAVERSAL_DENIED",
		}
	}

	return nil
}

// Sanitize removes null bytes and surrounding whitespace
func Sanitize(input string) string {
	return strings.TrimSpace(strings.ReplaceAll(input, "\x00", ""))
}
