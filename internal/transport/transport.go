// Package transport is the single surface the UI drives. It hides whether a
// source plays from disk, from the cache or from a live stream.
package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jscyril/moz/api"
	"github.com/jscyril/moz/internal/audio"
	"github.com/jscyril/moz/internal/cache"
	"github.com/jscyril/moz/internal/log"
	"github.com/jscyril/moz/internal/stream"
	playerrors "github.com/jscyril/moz/pkg/errors"
)

// Ensure Transport implements Player interface at compile time
var _ api.Player = (*Transport)(nil)

// Pipeline is the part of a stream pipeline the transport needs
type Pipeline interface {
	Start(ctx context.Context) (string, error)
	Terminate()
	Finish()
	Cleanup()
	Done() <-chan struct{}
	Err() error
	CachedBytes() int64
}

// PipelineFactory builds a pipeline for id writing to cachePath
type PipelineFactory func(id, cachePath string, onExit func(clean bool)) Pipeline

// StreamFactory returns a PipelineFactory backed by stream.Pipeline
func StreamFactory(opts stream.Options) PipelineFactory {
	return func(id, cachePath string, onExit func(clean bool)) Pipeline {
		return stream.New(id, cachePath, opts, onExit)
	}
}

type activeStream struct {
	pipeline Pipeline
	session  string
}

// Transport owns one engine and at most one pipeline
type Transport struct {
	mu          sync.Mutex
	engine      *audio.Engine
	index       *cache.Index
	newPipeline PipelineFactory
	settle      time.Duration

	active atomic.Pointer[activeStream]
	ended  <-chan api.AudioEvent
	done   chan struct{}
}

// Option configures a Transport
type Option func(*Transport)

// WithSettle waits d after tearing down a stream before starting the next one
func WithSettle(d time.Duration) Option {
	return func(t *Transport) {
		t.settle = d
	}
}

// New creates a transport and starts watching the engine for finished streams
func New(engine *audio.Engine, index *cache.Index, factory PipelineFactory, opts ...Option) *Transport {
	t := &Transport{
		engine:      engine,
		index:       index,
		newPipeline: factory,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.ended = engine.Events().Subscribe(api.EventTrackEnded)
	go t.watch()
	return t
}

// watch releases the pipeline of a stream whose playback reached the end
func (t *Transport) watch() {
	defer close(t.done)
	for ev := range t.ended {
		t.mu.Lock()
		if a := t.active.Load(); a != nil && a.session == ev.Session {
			a.pipeline.Finish()
			a.pipeline.Cleanup()
			t.active.Store(nil)
			log.Session(ev.Session).Infof("stream released")
		}
		t.mu.Unlock()
	}
}

// Play stops whatever is playing and starts src. It returns once audio is
// running or with the reason it could not start.
func (t *Transport) Play(ctx context.Context, src api.Source) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	// A newer request may have superseded this one while it waited for the lock
	if err := ctx.Err(); err != nil {
		return err
	}

	hadStream := t.stopLocked()

	if !src.IsRemote() {
		_, err := t.engine.Play(src, audio.Input{Path: src.Path})
		return err
	}

	logger := log.With(map[string]any{"remote": src.ID})
	if entry := t.index.Lookup(src.ID); entry.State == cache.Complete {
		logger.Infof("cache hit, %d bytes", entry.Size)
		_, err := t.engine.Play(src, audio.Input{Path: entry.Path})
		return err
	}

	if hadStream && t.settle > 0 {
		time.Sleep(t.settle)
	}

	cachePath, err := t.index.Begin(src.ID)
	if err != nil {
		return playerrors.NewPlayerError("play", src.Name(), err)
	}
	id := src.ID
	p := t.newPipeline(id, cachePath, func(clean bool) {
		if !clean {
			t.index.Abandon(id)
			return
		}
		if err := t.index.MarkComplete(id); err != nil {
			logger.Errorf("mark complete: %v", err)
		}
	})

	fifo, err := p.Start(ctx)
	if err != nil {
		return playerrors.NewPlayerError("play", src.Name(), err)
	}

	// A short source may already be fully cached, in which case its FIFO has no writer left
	select {
	case <-p.Done():
		if p.Err() == nil {
			if entry := t.index.Lookup(id); entry.State == cache.Complete {
				p.Cleanup()
				logger.Infof("stream finished during pre-roll, playing cache")
				_, err := t.engine.Play(src, audio.Input{Path: entry.Path})
				return err
			}
		}
	default:
	}

	session, err := t.engine.Play(src, audio.Input{Path: fifo, Format: t.index.Container()})
	if err != nil {
		p.Terminate()
		p.Cleanup()
		return err
	}
	t.active.Store(&activeStream{pipeline: p, session: session})
	logger.Infof("streaming into %s", fifo)
	return nil
}

// stopLocked terminates the producers, stops playback and unlinks the FIFO.
// It reports whether a stream was torn down.
func (t *Transport) stopLocked() bool {
	a := t.active.Load()
	if a != nil {
		a.pipeline.Terminate()
	}
	t.engine.Stop()
	if a != nil {
		a.pipeline.Cleanup()
		t.active.Store(nil)
	}
	return a != nil
}

// PauseToggle switches between playing and paused; otherwise it does nothing
func (t *Transport) PauseToggle() error {
	t.engine.PauseToggle()
	return nil
}

// Stop returns once playback is idle and any stream is torn down
func (t *Transport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	return nil
}

// Progress returns a snapshot of the engine without blocking
func (t *Transport) Progress() api.Progress {
	return t.engine.Progress()
}

// CachedBytes returns how much of the current stream has been written to the cache
func (t *Transport) CachedBytes() int64 {
	if a := t.active.Load(); a != nil {
		return a.pipeline.CachedBytes()
	}
	return 0
}

// Streaming reports whether a pipeline is attached to the current session
func (t *Transport) Streaming() bool {
	return t.active.Load() != nil
}

// Index returns the cache index
func (t *Transport) Index() *cache.Index {
	return t.index
}

// Subscribe returns a channel receiving every engine event
func (t *Transport) Subscribe() <-chan api.AudioEvent {
	return t.engine.Events().Subscribe()
}

// Unsubscribe releases a channel returned by Subscribe
func (t *Transport) Unsubscribe(ch <-chan api.AudioEvent) {
	t.engine.Events().Unsubscribe(ch)
}

// Close stops playback and releases the engine
func (t *Transport) Close() {
	t.Stop()
	t.engine.Close()
	<-t.done
}
