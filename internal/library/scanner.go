package library

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jscyril/moz/api"
	"github.com/jscyril/moz/internal/audio"
	"github.com/jscyril/moz/internal/filesystem"
	playerrors "github.com/jscyril/moz/pkg/errors"
)

// Scanner lists one directory and reads tags concurrently using a worker pool
type Scanner struct {
	workers    int
	metaReader *MetadataReader
}

// NewScanner creates a new file scanner
func NewScanner(workers int) *Scanner {
	if workers <= 0 {
		workers = 4 // Default worker count
	}
	return &Scanner{
		workers:    workers,
		metaReader: NewMetadataReader(),
	}
}

// List returns the playable files directly inside dir, sorted by name.
// Subdirectories and hidden files are skipped.
func (s *Scanner) List(dir string) ([]string, error) {
	entries, err := filesystem.API().ReadDir(dir)
	if err != nil {
		return nil, &playerrors.ScanError{Path: dir, Err: err}
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if audio.IsSupported(entry.Name()) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return strings.ToLower(files[i]) < strings.ToLower(files[j])
	})
	return files, nil
}

// Scan reads the tags of files concurrently. Both channels are closed once
// every file has been handled or ctx is done.
func (s *Scanner) Scan(ctx context.Context, files []string) (<-chan *api.Track, <-chan error) {
	tracks := make(chan *api.Track, len(files))
	errors := make(chan error, len(files))
	paths := make(chan string)

	var wg sync.WaitGroup

	go func() {
		defer close(paths)
		for _, p := range files {
			select {
			case paths <- p:
			case <-ctx.Done():
				return
			}
		}
	}()

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for filePath := range paths {
				track, err := s.metaReader.Read(filePath)
				if err != nil {
					errors <- &playerrors.ScanError{Path: filePath, Err: err}
					continue
				}
				tracks <- track
			}
		}()
	}

	go func() {
		wg.Wait()
		close(tracks)
		close(errors)
	}()

	return tracks, errors
}

// ScanFile reads a single file and returns a Track
func (s *Scanner) ScanFile(filePath string) (*api.Track, error) {
	if !audio.IsSupported(filePath) {
		return nil, playerrors.ErrInvalidFormat
	}
	return s.metaReader.Read(filePath)
}
