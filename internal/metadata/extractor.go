// Package metadata turns audio files into song form data using their tags.
package metadata

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"songshelf/internal/cache"
	"songshelf/internal/validation"
	"songshelf/pkg/models"

	"github.com/dhowden/tag"
	"github.com/sirupsen/logrus"
)

const (
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
	UnknownGenre  = "Unknown"
)

// Extractor reads song metadata from audio files. Results are cached per
// path, size and modification time.
type Extractor struct {
	supportedFormats []string
	logger           *logrus.Logger
	results          *cache.TTLCache[models.SongInput]
	now              func() time.Time
}

// NewExtractor creates a new metadata extractor
func NewExtractor(ctx context.Context, supportedFormats []string, logger *logrus.Logger) *Extractor {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	return &Extractor{
		supportedFormats: supportedFormats,
		logger:           logger,
		results:          cache.NewTTLCache[models.SongInput](ctx, 15*time.Minute, 5*time.Minute),
		now:              time.Now,
	}
}

// ExtractFromFile builds song form data from the file's tags. Missing tags
// fall back to the file name, "Unknown Artist", "Unknown Album", "Unknown"
// genre and the file's modification year. Years outside the range the song
// form accepts are clamped into it.
func (e *Extractor) ExtractFromFile(filePath string) (models.SongInput, error) {
	if !e.IsAudioFile(filePath) {
		return models.SongInput{}, fmt.Errorf("unsupported file type: %s", filepath.Ext(filePath))
	}

	file, err := os.Open(filePath)
	if err != nil {
		e.logger.WithError(err).WithField("file_path", filePath).Error("Failed to open audio file")
		return models.SongInput{}, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return models.SongInput{}, fmt.Errorf("failed to stat audio file: %w", err)
	}

	cacheKey := fmt.Sprintf("%s|%d|%d", filePath, stat.Size(), stat.ModTime().UnixNano())
	if cached, ok := e.results.Get(cacheKey); ok {
		return cached, nil
	}

	startTime := time.Now()

	seconds, err := audioDuration(filePath)
	if err != nil {
		e.logger.WithError(err).WithField("file_path", filePath).Warn("Failed to calculate duration, setting to 0")
		seconds = 0
	}

	input := models.SongInput{
		Title:    strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath)),
		Singer:   UnknownArtist,
		Album:    UnknownAlbum,
		Year:     clampYear(stat.ModTime().Year(), e.now()),
		Genre:    UnknownGenre,
		Duration: FormatDuration(seconds),
		AudioURL: fileURL(filePath),
	}

	tags, err := tag.ReadFrom(file)
	if err != nil {
		e.logger.WithError(err).WithField("file_path", filePath).Warn("Failed to extract metadata, using filename")
	} else {
		applyTags(&input, tags, e.now())
	}

	e.logger.WithFields(logrus.Fields{
		"file_path":       filePath,
		"title":           input.Title,
		"singer":          input.Singer,
		"album":           input.Album,
		"duration":        input.Duration,
		"has_cover":       input.CoverImage != "",
		"processing_time": time.Since(startTime),
	}).Debug("Successfully extracted metadata")

	e.results.Set(cacheKey, input)
	return input, nil
}

func applyTags(input *models.SongInput, tags tag.Metadata, now time.Time) {
	if title := strings.TrimSpace(tags.Title()); title != "" {
		input.Title = title
	}
	if artist := strings.TrimSpace(tags.Artist()); artist != "" {
		input.Singer = artist
	}
	if album := strings.TrimSpace(tags.Album()); album != "" {
		input.Album = album
	}
	if genre := strings.TrimSpace(tags.Genre()); genre != "" {
		input.Genre = genre
	}
	if year := tags.Year(); year >= validation.MinYear && year <= now.Year()+1 {
		input.Year = year
	}
	if picture := tags.Picture(); picture != nil && len(picture.Data) > 0 {
		input.CoverImage = coverDataURL(picture)
	}
}

// CachedResults returns how many extraction results are cached
func (e *Extractor) CachedResults() int {
	return e.results.Size()
}

// clampYear keeps year inside [MinYear, next year]
func clampYear(year int, now time.Time) int {
	return min(max(year, validation.MinYear), now.Year()+1)
}

// coverDataURL embeds cover art as a data: URL
func coverDataURL(picture *tag.Picture) string {
	mime := picture.MIMEType
	if mime == "" {
		mime = ImageMimeType(picture.Data)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(picture.Data)
}

// ImageMimeType guesses the MIME type of image data
func ImageMimeType(data []byte) string {
	if len(data) < 4 {
		return "application/octet-stream"
	}

	switch {
	case data[0] == 0xFF && data[1] == 0xD8:
		return "image/jpeg"
	case data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47:
		return "image/png"
	case data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46:
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// IsAudioFile checks if a file is a supported audio format
func (e *Extractor) IsAudioFile(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, format := range e.supportedFormats {
		if ext == strings.ToLower(format) {
			return true
		}
	}
	return false
}

