package library

import (
	"crypto/md5"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/jscyril/moz/api"
	"github.com/jscyril/moz/internal/filesystem"
)

// UnknownArtist is shown when a file carries no artist tag
const UnknownArtist = "Unknown Artist"

// MetadataReader extracts metadata from audio files
type MetadataReader struct{}

// NewMetadataReader creates a new metadata reader
func NewMetadataReader() *MetadataReader {
	return &MetadataReader{}
}

// Read extracts metadata from an audio file and returns a Track.
// Files without readable tags are still returned, titled after the file name.
func (r *MetadataReader) Read(filePath string) (*api.Track, error) {
	file, err := filesystem.API().Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	id := generateTrackID(filePath)
	name := baseName(filePath)

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		return &api.Track{
			ID:        id,
			Title:     name,
			Artist:    UnknownArtist,
			FilePath:  filePath,
			CreatedAt: time.Now(),
		}, nil
	}

	track := &api.Track{
		ID:        id,
		Title:     getOrDefault(strings.TrimSpace(metadata.Title()), name),
		Artist:    getOrDefault(strings.TrimSpace(metadata.Artist()), UnknownArtist),
		Album:     strings.TrimSpace(metadata.Album()),
		Genre:     metadata.Genre(),
		Year:      metadata.Year(),
		FilePath:  filePath,
		HasArt:    metadata.Picture() != nil,
		CreatedAt: time.Now(),
	}

	trackNum, _ := metadata.Track()
	track.TrackNum = trackNum

	return track, nil
}

// ReadCoverArt returns the embedded picture of an audio file, or nil when there is none
func (r *MetadataReader) ReadCoverArt(filePath string) ([]byte, error) {
	file, err := filesystem.API().Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	if picture := metadata.Picture(); picture != nil {
		return picture.Data, nil
	}

	return nil, nil
}

// generateTrackID creates a unique ID for a track based on its file path
func generateTrackID(filePath string) string {
	hash := md5.Sum([]byte(filePath))
	return fmt.Sprintf("track-%x", hash[:8])
}

func baseName(filePath string) string {
	name := filepath.Base(filePath)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// getOrDefault returns the value if non-empty, otherwise returns the default
func getOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
