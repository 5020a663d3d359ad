// Package library catalogs the audio files of one directory for offline play.
package library

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jscyril/moz/api"
	playerrors "github.com/jscyril/moz/pkg/errors"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
)

// Library holds the tracks found in the selected directory
type Library struct {
	Dir         string    `json:"dir"`
	LastScanned time.Time `json:"last_scanned"`

	tracks []*api.Track
	byID   map[string]*api.Track
	errs   []error

	mu      sync.RWMutex
	scanner *Scanner
}

// NewLibrary creates a new empty library reading tags with the given number of workers
func NewLibrary(workers int) *Library {
	return &Library{
		byID:    make(map[string]*api.Track),
		scanner: NewScanner(workers),
	}
}

// Load replaces the catalog with the playable files of dir. Files whose
// tags cannot be read are skipped and reported by Errors.
func (l *Library) Load(ctx context.Context, dir string) error {
	files, err := l.scanner.List(dir)
	if err != nil {
		return err
	}

	tracks, errs := l.scanner.Scan(ctx, files)

	var (
		found     []*api.Track
		failures  []error
		collected = make(chan struct{})
	)
	go func() {
		defer close(collected)
		for err := range errs {
			failures = append(failures, err)
		}
	}()
	for track := range tracks {
		found = append(found, track)
	}
	<-collected

	if err := ctx.Err(); err != nil {
		return err
	}

	order := make(map[string]int, len(files))
	for i, f := range files {
		order[f] = i
	}
	sort.Slice(found, func(i, j int) bool {
		return order[found[i].FilePath] < order[found[j].FilePath]
	})

	l.mu.Lock()
	defer l.mu.Unlock()

	l.Dir = dir
	l.tracks = found
	l.byID = lo.KeyBy(found, func(t *api.Track) string { return t.ID })
	l.errs = failures
	l.LastScanned = time.Now()
	return nil
}

// GetTrack returns a track by ID
func (l *Library) GetTrack(id string) (*api.Track, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	track, exists := l.byID[id]
	if !exists {
		return nil, playerrors.ErrTrackNotFound
	}
	return track, nil
}

// GetAllTracks returns the tracks in directory order
func (l *Library) GetAllTracks() []*api.Track {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return append([]*api.Track(nil), l.tracks...)
}

// Len returns the number of tracks
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tracks)
}

// Errors returns the files that were skipped during the last Load
func (l *Library) Errors() []error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]error(nil), l.errs...)
}

// GetArtists returns all unique artists
func (l *Library) GetArtists() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	artists := lo.Uniq(lo.Map(l.tracks, func(t *api.Track, _ int) string { return t.Artist }))
	sort.Strings(artists)
	return artists
}

// Search ranks tracks by a fuzzy match of query against title, artist and
// album. An empty query returns every track.
func (l *Library) Search(query string) []*api.Track {
	l.mu.RLock()
	defer l.mu.RUnlock()

	query = strings.TrimSpace(query)
	if query == "" {
		return append([]*api.Track(nil), l.tracks...)
	}

	targets := lo.Map(l.tracks, func(t *api.Track, _ int) string {
		return strings.Join([]string{t.Title, t.Artist, t.Album}, " ")
	})

	ranks := fuzzy.RankFindNormalizedFold(query, targets)
	sort.Stable(ranks)

	return lo.Map(ranks, func(r fuzzy.Rank, _ int) *api.Track {
		return l.tracks[r.OriginalIndex]
	})
}

// Next returns the track after id, or nil at the end of the directory
func (l *Library) Next(id string) *api.Track {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, i, ok := lo.FindIndexOf(l.tracks, func(t *api.Track) bool { return t.ID == id })
	if !ok || i+1 >= len(l.tracks) {
		return nil
	}
	return l.tracks[i+1]
}

// ReadCoverArt returns the embedded picture of a track, or nil when it has none
func (l *Library) ReadCoverArt(track *api.Track) ([]byte, error) {
	if track == nil || !track.HasArt {
		return nil, nil
	}
	return l.scanner.metaReader.ReadCoverArt(track.FilePath)
}

// Clear removes all tracks from the library
func (l *Library) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.tracks = nil
	l.byID = make(map[string]*api.Track)
	l.errs = nil
	l.Dir = ""
}
