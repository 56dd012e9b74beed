package metadata

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"songshelf/internal/validation"
	"songshelf/pkg/models"

	"github.com/dhowden/tag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWAV writes a silent 16-bit mono PCM file of the given length.
func writeWAV(t *testing.T, path string, sampleRate uint32, seconds int) {
	t.Helper()
	dataSize := uint32(int(sampleRate) * 2 * seconds)

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	header := []any{
		[]byte("RIFF"), uint32(36 + dataSize), []byte("WAVE"),
		[]byte("fmt "), uint32(16), uint16(1), uint16(1),
		sampleRate, sampleRate * 2, uint16(2), uint16(16),
		[]byte("data"), dataSize,
	}
	for _, v := range header {
		require.NoError(t, binary.Write(f, binary.LittleEndian, v))
	}
	_, err = f.Write(make([]byte, dataSize))
	require.NoError(t, err)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0:00"},
		{5, "0:05"},
		{65, "1:05"},
		{225, "3:45"},
		{600, "10:00"},
		{6000, "100:00"},
		{-3, "0:00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.seconds), "seconds=%d", tt.seconds)
	}
}

func TestIsAudioFile(t *testing.T) {
	e := NewExtractor(context.Background(), []string{".mp3", ".FLAC", ".wav"}, nil)

	assert.True(t, e.IsAudioFile("song.mp3"))
	assert.True(t, e.IsAudioFile("SONG.MP3"))
	assert.True(t, e.IsAudioFile("a/b/c.flac"))
	assert.False(t, e.IsAudioFile("notes.txt"))
	assert.False(t, e.IsAudioFile("noext"))
}

func TestExtractFromWAV(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	path := filepath.Join(dir, "Night Drive.wav")
	writeWAV(t, path, 8000, 2)

	e := NewExtractor(ctx, []string{".wav"}, nil)
	input, err := e.ExtractFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "Night Drive", input.Title)
	assert.Equal(t, UnknownArtist, input.Singer)
	assert.Equal(t, UnknownAlbum, input.Album)
	assert.Equal(t, UnknownGenre, input.Genre)
	assert.Equal(t, "0:02", input.Duration)
	assert.Positive(t, input.Year)
	assert.True(t, strings.HasPrefix(input.AudioURL, "file://"))
	assert.Empty(t, input.CoverImage)

	again, err := e.ExtractFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, input, again)
	assert.Equal(t, 1, e.results.Size())
}

func TestExtractRejectsUnsupported(t *testing.T) {
	e := NewExtractor(context.Background(), []string{".mp3"}, nil)

	_, err := e.ExtractFromFile("cover.png")
	assert.Error(t, err)

	_, err = e.ExtractFromFile(filepath.Join(t.TempDir(), "missing.mp3"))
	assert.Error(t, err)
}

func TestImageMimeType(t *testing.T) {
	assert.Equal(t, "image/jpeg", ImageMimeType([]byte{0xFF, 0xD8, 0xFF, 0xE0}))
	assert.Equal(t, "image/png", ImageMimeType([]byte{0x89, 0x50, 0x4E, 0x47}))
	assert.Equal(t, "image/gif", ImageMimeType([]byte("GIF89a")))
	assert.Equal(t, "application/octet-stream", ImageMimeType([]byte{1, 2}))
}

type fakeTags struct {
	tag.Metadata
	title, artist string
	year          int
}

func (f fakeTags) Title() string         { return f.title }
func (f fakeTags) Artist() string        { return f.artist }
func (f fakeTags) Album() string         { return "" }
func (f fakeTags) Genre() string         { return "" }
func (f fakeTags) Year() int             { return f.year }
func (f fakeTags) Picture() *tag.Picture { return nil }

func TestApplyTagsYear(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		tagYear int
		want    int
	}{
		{"valid tag year", 1999, 1999},
		{"next year allowed", 2025, 2025},
		{"before minimum keeps fallback", 1850, 2020},
		{"far future keeps fallback", 3000, 2020},
		{"missing keeps fallback", 0, 2020},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := models.SongInput{Title: "file", Singer: UnknownArtist, Year: 2020}
			applyTags(&input, fakeTags{title: " Song ", artist: "Bob", year: tt.tagYear}, now)

			assert.Equal(t, tt.want, input.Year)
			assert.Equal(t, "Song", input.Title)
			assert.Equal(t, "Bob", input.Singer)
		})
	}
}

func TestClampYear(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, validation.MinYear, clampYear(1850, now))
	assert.Equal(t, 2010, clampYear(2010, now))
	assert.Equal(t, 2025, clampYear(2999, now))
}

func TestExtractClampsFutureModTime(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(t.TempDir(), "Later.wav")
	writeWAV(t, path, 8000, 1)
	future := time.Date(2999, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, future, future))

	e := NewExtractor(ctx, []string{".wav"}, nil)
	e.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	input, err := e.ExtractFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2025, input.Year)
	assert.True(t, validation.ValidateSong(input, e.now()).Valid)
}
