// Package cache names stream artifacts on disk and tracks which of them are complete.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/afero"
)

// State of a cache entry
type State int

const (
	Absent State = iota
	Partial
	Complete
)

func (s State) String() string {
	switch s {
	case Partial:
		return "partial"
	case Complete:
		return "complete"
	default:
		return "absent"
	}
}

// markerSuffix is appended to the artifact path to record a clean producer exit
const markerSuffix = ".complete"

// Entry describes one cached artifact
type Entry struct {
	ID      string
	Path    string
	State   State
	Size    int64
	ModTime time.Time
}

// Index maps remote ids to artifacts under a single directory
type Index struct {
	fs        afero.Afero
	dir       string
	container string

	mu     sync.Mutex
	active map[string]bool
}

// NewIndex creates dir with mode 0700 if needed
func NewIndex(fsys afero.Fs, dir, container string) (*Index, error) {
	if dir == "" {
		return nil, errors.New("cache directory is not set")
	}
	container = strings.TrimPrefix(container, ".")
	if container == "" {
		container = "mp3"
	}

	a := afero.Afero{Fs: fsys}
	if err := a.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	if err := a.Chmod(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	return &Index{
		fs:        a,
		dir:       dir,
		container: container,
		active:    make(map[string]bool),
	}, nil
}

// Dir returns the cache directory
func (i *Index) Dir() string {
	return i.dir
}

// Container returns the artifact extension without the dot
func (i *Index) Container() string {
	return i.container
}

// Path returns <dir>/<id>.<container>
func (i *Index) Path(id string) string {
	return filepath.Join(i.dir, id+"."+i.container)
}

// MarkerPath returns the completion marker for id
func (i *Index) MarkerPath(id string) string {
	return i.Path(id) + markerSuffix
}

// Lookup reports the state of id. An artifact is Complete when its marker
// exists, records the artifact's size and no producer is writing it.
func (i *Index) Lookup(id string) Entry {
	entry := Entry{ID: id, Path: i.Path(id), State: Absent}

	info, err := i.fs.Stat(entry.Path)
	if err != nil {
		return entry
	}
	entry.Size = info.Size()
	entry.ModTime = info.ModTime()
	entry.State = Partial

	i.mu.Lock()
	busy := i.active[id]
	i.mu.Unlock()
	if busy {
		return entry
	}

	data, err := i.fs.ReadFile(i.MarkerPath(id))
	if err != nil {
		return entry
	}
	size, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err == nil && size == entry.Size {
		entry.State = Complete
	}
	return entry
}

// Begin claims id for a producer. Any stale artifact and marker are removed
// and the artifact path is returned.
func (i *Index) Begin(id string) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.active[id] {
		return "", fmt.Errorf("cache entry %s is already being written", id)
	}
	for _, p := range []string{i.MarkerPath(id), i.Path(id)} {
		if err := i.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("remove stale cache entry: %w", err)
		}
	}
	i.active[id] = true
	return i.Path(id), nil
}

// MarkComplete releases id and records the artifact as complete
func (i *Index) MarkComplete(id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.active, id)

	info, err := i.fs.Stat(i.Path(id))
	if err != nil {
		return fmt.Errorf("mark %s complete: %w", id, err)
	}
	return i.fs.WriteFile(i.MarkerPath(id), []byte(strconv.FormatInt(info.Size(), 10)), 0o600)
}

// Abandon releases id without marking it. The artifact stays on disk as Partial.
func (i *Index) Abandon(id string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.active, id)
}

// Remove deletes the artifact and marker of id
func (i *Index) Remove(id string) error {
	i.mu.Lock()
	busy := i.active[id]
	i.mu.Unlock()
	if busy {
		return fmt.Errorf("cache entry %s is being written", id)
	}

	var errs []error
	for _, p := range []string{i.MarkerPath(id), i.Path(id)} {
		if err := i.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Entries lists every artifact in the directory, newest first
func (i *Index) Entries() ([]Entry, error) {
	infos, err := i.fs.ReadDir(i.dir)
	if err != nil {
		return nil, err
	}

	ext := "." + i.container
	ids := lo.FilterMap(infos, func(info fs.FileInfo, _ int) (string, bool) {
		name := info.Name()
		if info.IsDir() || !strings.HasSuffix(name, ext) {
			return "", false
		}
		return strings.TrimSuffix(name, ext), true
	})

	entries := lo.Map(ids, func(id string, _ int) Entry {
		return i.Lookup(id)
	})
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].ModTime.After(entries[b].ModTime)
	})
	return entries, nil
}

// Clean removes partial entries, or every entry when all is set. It returns the number removed.
func (i *Index) Clean(all bool) (int, error) {
	entries, err := i.Entries()
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []error
	for _, e := range entries {
		if !all && e.State != Partial {
			continue
		}
		if err := i.Remove(e.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	// Markers whose artifact is gone
	markers, _ := afero.Glob(i.fs, filepath.Join(i.dir, "*."+i.container+markerSuffix))
	for _, m := range markers {
		if ok, _ := i.fs.Exists(strings.TrimSuffix(m, markerSuffix)); !ok {
			_ = i.fs.Remove(m)
		}
	}
	return removed, errors.Join(errs...)
}

// Size returns the total bytes held by entries
func Size(entries []Entry) int64 {
	return lo.SumBy(entries, func(e Entry) int64 { return e.Size })
}
