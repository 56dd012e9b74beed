// Package view derives presentation data from catalog snapshots.
package view

import (
	"slices"

	"songshelf/internal/cache"
	"songshelf/internal/catalog"
	"songshelf/pkg/models"
)

// ReadModel is what the presentation layer renders for the catalog.
type ReadModel struct {
	FilteredSongs    []models.Song  `json:"filteredSongs"`
	UniqueSingers    []string       `json:"uniqueSingers"`
	UniqueGenres     []string       `json:"uniqueGenres"`
	CurrentSong      *models.Song   `json:"currentSong"`
	IsPlaying        bool           `json:"isPlaying"`
	Filters          models.Filters `json:"filters"`
	SearchQuery      string         `json:"searchQuery"`
	HasActiveFilters bool           `json:"hasActiveFilters"`
	SongCount        int            `json:"songCount"`
	Loading          bool           `json:"loading"`
	Error            string         `json:"error,omitempty"`
}

// Selectors computes derived values, memoized on the snapshot's view version.
// One Selectors should be used with snapshots from a single catalog.Manager.
type Selectors struct {
	singers cache.Memo[uint64, []string]
	genres  cache.Memo[uint64, []string]
}

// NewSelectors creates an empty selector set
func NewSelectors() *Selectors {
	return &Selectors{}
}

// UniqueSingers returns the distinct singers of the filtered songs, ascending.
func (s *Selectors) UniqueSingers(snap catalog.Snapshot) []string {
	return s.singers.Get(snap.ViewVersion, func() []string {
		return uniqueSorted(snap.FilteredSongs, func(song models.Song) string { return song.Singer })
	})
}

// UniqueGenres returns the distinct genres of the filtered songs, ascending.
func (s *Selectors) UniqueGenres(snap catalog.Snapshot) []string {
	return s.genres.Get(snap.ViewVersion, func() []string {
		return uniqueSorted(snap.FilteredSongs, func(song models.Song) string { return song.Genre })
	})
}

// HasActiveFilters reports whether a query or filter is set
func (s *Selectors) HasActiveFilters(snap catalog.Snapshot) bool {
	return snap.HasActiveFilters()
}

// SongCount returns the number of filtered songs
func (s *Selectors) SongCount(snap catalog.Snapshot) int {
	return len(snap.FilteredSongs)
}

// ReadModel assembles the catalog read model.
func (s *Selectors) ReadModel(snap catalog.Snapshot) ReadModel {
	return ReadModel{
		FilteredSongs:    snap.FilteredSongs,
		UniqueSingers:    s.UniqueSingers(snap),
		UniqueGenres:     s.UniqueGenres(snap),
		CurrentSong:      snap.CurrentSong,
		IsPlaying:        snap.Selection.IsPlaying,
		Filters:          snap.Filters,
		SearchQuery:      snap.SearchQuery,
		HasActiveFilters: s.HasActiveFilters(snap),
		SongCount:        s.SongCount(snap),
		Loading:          snap.Loading,
		Error:            snap.Error,
	}
}

// Stats returns memo hit and miss totals across selectors
func (s *Selectors) Stats() (hits, misses int) {
	sh, sm := s.singers.Stats()
	gh, gm := s.genres.Stats()
	return sh + gh, sm + gm
}

func uniqueSorted(songs []models.Song, field func(models.Song) string) []string {
	values := make([]string, 0, len(songs))
	for _, song := range songs {
		values = append(values, field(song))
	}
	slices.Sort(values)
	return slices.Compact(values)
}
