package catalog

import (
	"slices"
	"testing"

	"songshelf/pkg/models"
)

func sampleSongs() []models.Song {
	return []models.Song{
		{ID: "1", Title: "Alpha", Singer: "Bob", Album: "First", Genre: "Pop"},
		{ID: "2", Title: "Beta", Singer: "Bob", Album: "Second", Genre: "Rock"},
		{ID: "3", Title: "bravo", Singer: "Cleo", Album: "Night Drive", Genre: "Pop"},
		{ID: "4", Title: "Gamma", Singer: "Dana", Album: "Alphabet", Genre: "Jazz"},
	}
}

func ids(songs []models.Song) []string {
	out := make([]string, len(songs))
	for i, s := range songs {
		out[i] = s.ID
	}
	return out
}

func TestApplyFilters(t *testing.T) {
	tests := []struct {
		name    string
		filters models.Filters
		query   string
		want    []string
	}{
		{"NoConstraints", models.Filters{}, "", []string{"1", "2", "3", "4"}},
		{"QueryMatchesTitle", models.Filters{}, "BET", []string{"2"}},
		{"QueryMatchesSinger", models.Filters{}, "cleo", []string{"3"}},
		{"QueryMatchesAlbum", models.Filters{}, "alpha", []string{"1", "4"}},
		{"QueryNoMatch", models.Filters{}, "zz", []string{}},
		{"SingerExact", models.Filters{Singer: "Bob"}, "", []string{"1", "2"}},
		{"SingerIsCaseSensitive", models.Filters{Singer: "bob"}, "", []string{}},
		{"AlphabetIgnoresCase", models.Filters{Alphabet: "B"}, "", []string{"2", "3"}},
		{"GenreExact", models.Filters{Genre: "Pop"}, "", []string{"1", "3"}},
		{"Conjunction", models.Filters{Singer: "Bob", Alphabet: "b"}, "", []string{"2"}},
		{"AllAxes", models.Filters{Singer: "Cleo", Alphabet: "b", Genre: "Pop"}, "night", []string{"3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			songs := sampleSongs()
			got := ApplyFilters(songs, tt.filters, tt.query)

			gotIDs := ids(got)
			if len(gotIDs) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, gotIDs)
			}
			for i := range gotIDs {
				if gotIDs[i] != tt.want[i] {
					t.Fatalf("Expected %v, got %v", tt.want, gotIDs)
				}
			}

			againIDs := ids(ApplyFilters(got, tt.filters, tt.query))
			if !slices.Equal(againIDs, gotIDs) {
				t.Errorf("Expected reapplying filters to be idempotent, got %v then %v", gotIDs, againIDs)
			}
		})
	}
}

func TestApplyFiltersPreservesInput(t *testing.T) {
	songs := sampleSongs()
	got := ApplyFilters(songs, models.Filters{}, "")
	got[0].Title = "changed"

	if songs[0].Title != "Alpha" {
		t.Error("Expected ApplyFilters to return a new slice")
	}
}

func TestApplyFiltersEmpty(t *testing.T) {
	got := ApplyFilters(nil, models.Filters{Genre: "Pop"}, "x")
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil result, got %#v", got)
	}
}
