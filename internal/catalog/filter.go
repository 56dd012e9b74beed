package catalog

import (
	"strings"

	"songshelf/pkg/models"
)

// ApplyFilters returns the songs matching every active constraint, in their
// original order. The result is always a new slice.
//
// The search query matches case-insensitively against title, singer or album.
// Singer and genre are exact matches. Alphabet keeps titles starting with the
// given letter, ignoring case.
func ApplyFilters(songs []models.Song, filters models.Filters, query string) []models.Song {
	query = strings.ToLower(query)
	letter := strings.ToLower(filters.Alphabet)

	result := make([]models.Song, 0, len(songs))
	for _, song := range songs {
		if query != "" && !matchesQuery(song, query) {
			continue
		}
		if filters.Singer != "" && song.Singer != filters.Singer {
			continue
		}
		if letter != "" && !strings.HasPrefix(strings.ToLower(song.Title), letter) {
			continue
		}
		if filters.Genre != "" && song.Genre != filters.Genre {
			continue
		}
		result = append(result, song)
	}
	return result
}

func matchesQuery(song models.Song, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(song.Title), lowerQuery) ||
		strings.Contains(strings.ToLower(song.Singer), lowerQuery) ||
		strings.Contains(strings.ToLower(song.Album), lowerQuery)
}
