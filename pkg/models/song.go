package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownFilterAxis is returned when a filter axis name is not one of singer, alphabet or genre.
var ErrUnknownFilterAxis = errors.New("unknown filter axis")

// Song represents a song in a user's catalog
type Song struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Title      string    `json:"title"`
	Singer     string    `json:"singer"`
	Album      string    `json:"album"`
	Year       int       `json:"year"`
	Genre      string    `json:"genre"`
	Duration   string    `json:"duration"` // M:SS or MM:SS
	AudioURL   string    `json:"audioUrl,omitempty"`
	CoverImage string    `json:"coverImage,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// SongInput is the caller-supplied form data for a new song
type SongInput struct {
	Title      string `json:"title"`
	Singer     string `json:"singer"`
	Album      string `json:"album"`
	Year       int    `json:"year"`
	Genre      string `json:"genre"`
	Duration   string `json:"duration"`
	AudioURL   string `json:"audioUrl,omitempty"`
	CoverImage string `json:"coverImage,omitempty"`
}

// SongPatch carries the fields to merge into an existing song. Nil fields are left untouched.
// Ownership is fixed at creation, so there is no UserID field.
type SongPatch struct {
	Title      *string `json:"title,omitempty"`
	Singer     *string `json:"singer,omitempty"`
	Album      *string `json:"album,omitempty"`
	Year       *int    `json:"year,omitempty"`
	Genre      *string `json:"genre,omitempty"`
	Duration   *string `json:"duration,omitempty"`
	AudioURL   *string `json:"audioUrl,omitempty"`
	CoverImage *string `json:"coverImage,omitempty"`
}

// NewSong builds a song owned by userID with a fresh ID and equal timestamps.
func NewSong(userID string, in SongInput, now time.Time) Song {
	now = now.UTC()
	return Song{
		ID:         NewSongID(),
		UserID:     userID,
		Title:      in.Title,
		Singer:     in.Singer,
		Album:      in.Album,
		Year:       in.Year,
		Genre:      in.Genre,
		Duration:   in.Duration,
		AudioURL:   in.AudioURL,
		CoverImage: in.CoverImage,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Input returns the form data view of the song
func (s Song) Input() SongInput {
	return SongInput{
		Title:      s.Title,
		Singer:     s.Singer,
		Album:      s.Album,
		Year:       s.Year,
		Genre:      s.Genre,
		Duration:   s.Duration,
		AudioURL:   s.AudioURL,
		CoverImage: s.CoverImage,
	}
}

// Apply merges the patch into a copy of the song. ID, UserID and timestamps are not touched.
func (p SongPatch) Apply(s Song) Song {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Singer != nil {
		s.Singer = *p.Singer
	}
	if p.Album != nil {
		s.Album = *p.Album
	}
	if p.Year != nil {
		s.Year = *p.Year
	}
	if p.Genre != nil {
		s.Genre = *p.Genre
	}
	if p.Duration != nil {
		s.Duration = *p.Duration
	}
	if p.AudioURL != nil {
		s.AudioURL = *p.AudioURL
	}
	if p.CoverImage != nil {
		s.CoverImage = *p.CoverImage
	}
	return s
}

// PatchFromInput turns full form data into a patch that overwrites every field.
func PatchFromInput(in SongInput) SongPatch {
	return SongPatch{
		Title:      &in.Title,
		Singer:     &in.Singer,
		Album:      &in.Album,
		Year:       &in.Year,
		Genre:      &in.Genre,
		Duration:   &in.Duration,
		AudioURL:   &in.AudioURL,
		CoverImage: &in.CoverImage,
	}
}

// Filters is the set of per-axis constraints applied to the catalog.
// An empty string means no constraint on that axis.
type Filters struct {
	Singer   string `json:"singer"`
	Alphabet string `json:"alphabet"`
	Genre    string `json:"genre"`
}

// IsZero reports whether no axis is constrained
func (f Filters) IsZero() bool {
	return f.Singer == "" && f.Alphabet == "" && f.Genre == ""
}

// FilterAxis names one constraint in Filters
type FilterAxis string

const (
	AxisSinger   FilterAxis = "singer"
	AxisAlphabet FilterAxis = "alphabet"
	AxisGenre    FilterAxis = "genre"
)

// ParseFilterAxis validates an axis name
func ParseFilterAxis(name string) (FilterAxis, error) {
	switch axis := FilterAxis(strings.ToLower(strings.TrimSpace(name))); axis {
	case AxisSinger, AxisAlphabet, AxisGenre:
		return axis, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFilterAxis, name)
	}
}

// With returns a copy of the filters with one axis set to value.
func (f Filters) With(axis FilterAxis, value string) Filters {
	switch axis {
	case AxisSinger:
		f.Singer = value
	case AxisAlphabet:
		f.Alphabet = value
	case AxisGenre:
		f.Genre = value
	}
	return f
}

// NewSongID returns a unique song identifier
func NewSongID() string {
	return "song_" + uuid.NewString()
}

// NewUserID returns a unique user identifier
func NewUserID() string {
	return "user_" + uuid.NewString()
}
