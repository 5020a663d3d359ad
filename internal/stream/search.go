package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/buger/jsonparser"
	"github.com/jscyril/moz/api"
	"github.com/jscyril/moz/internal/filesystem"
	"github.com/jscyril/moz/internal/log"
	playerrors "github.com/jscyril/moz/pkg/errors"
	"github.com/metafates/gache"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Result is one search hit
type Result struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Channel  string        `json:"channel,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Source returns the playable descriptor for the hit
func (r Result) Source() api.Source {
	return api.Remote(r.ID, r.Title)
}

// RunFunc runs a program and returns its stdout
type RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// Searcher asks the fetcher for the first results matching a query
type Searcher struct {
	bin   string
	limit int
	run   RunFunc
	cache *gache.Cache[map[string][]Result]
	mu    sync.Mutex
}

// NewSearcher returns a searcher using bin. Results are kept in cachePath for
// lifetime; an empty cachePath disables the cache.
func NewSearcher(bin string, limit int, cachePath string, lifetime time.Duration) *Searcher {
	if limit <= 0 {
		limit = 5
	}
	s := &Searcher{bin: bin, limit: limit, run: execRun}
	if cachePath != "" {
		s.cache = gache.New[map[string][]Result](&gache.Options{
			Path:       cachePath,
			Lifetime:   lifetime,
			FileSystem: &filesystem.GacheFs{},
		})
	}
	return s
}

// WithRunner replaces how the fetcher is invoked
func (s *Searcher) WithRunner(run RunFunc) *Searcher {
	s.run = run
	return s
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

// Search returns up to limit results for query
func (s *Searcher) Search(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, playerrors.ErrEmptyQuery
	}

	key := normalizeQuery(query)
	if hit, ok := s.cached(key).Get(); ok {
		log.Debugf("search cache hit for %q", key)
		return hit, nil
	}

	out, err := s.run(ctx, s.bin,
		fmt.Sprintf("ytsearch%d:%s", s.limit, query),
		"--flat-playlist", "-j", "--no-warnings",
	)
	if err != nil {
		return nil, playerrors.NewPlayerError("search", query, err)
	}

	results := ParseResults(out, s.limit)
	if len(results) == 0 {
		return nil, playerrors.ErrNoResults
	}
	s.remember(key, results)
	return results, nil
}

func (s *Searcher) cached(key string) mo.Option[[]Result] {
	if s.cache == nil {
		return mo.None[[]Result]()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, expired, err := s.cache.Get()
	if err != nil || expired || data == nil {
		return mo.None[[]Result]()
	}
	if hit, ok := data[key]; ok && len(hit) > 0 {
		return mo.Some(hit)
	}
	return mo.None[[]Result]()
}

func (s *Searcher) remember(key string, results []Result) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, expired, err := s.cache.Get()
	if err != nil || expired || data == nil {
		data = make(map[string][]Result)
	}
	data[key] = results
	if err := s.cache.Set(data); err != nil {
		log.Warnf("save search cache: %v", err)
	}
}

// ParseResults reads one JSON object per line and keeps the entries that have an id
func ParseResults(out []byte, limit int) []Result {
	var results []Result
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}

		id, err := jsonparser.GetString(line, "id")
		if err != nil || id == "" {
			continue
		}
		r := Result{ID: id}
		r.Title, _ = jsonparser.GetString(line, "title")
		if r.Title == "" {
			r.Title = id
		}
		r.Channel, _ = jsonparser.GetString(line, "channel")
		if r.Channel == "" {
			r.Channel, _ = jsonparser.GetString(line, "uploader")
		}
		if secs, err := jsonparser.GetFloat(line, "duration"); err == nil && secs > 0 {
			r.Duration = time.Duration(secs * float64(time.Second))
		}
		results = append(results, r)
	}

	results = lo.UniqBy(results, func(r Result) string { return r.ID })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
