package audio

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jscyril/moz/api"
	"github.com/jscyril/moz/internal/log"
	playerrors "github.com/jscyril/moz/pkg/errors"
	"github.com/jscyril/moz/pkg/events"
)

// session is the state one decoder and one sink share for a single play.
// The audio callback only touches its atomics and the decoder.
type session struct {
	id        string
	src       api.Source
	dec       Decoder
	sink      Sink
	channels  int
	rate      int
	total     uint64
	streaming bool

	status   atomic.Int32
	paused   atomic.Bool
	draining atomic.Bool
	current  atomic.Uint64
	failure  atomic.Pointer[error]

	stop chan struct{}
}

// callback runs on the audio thread
func (s *session) callback(out []float32) int {
	frames := len(out) / s.channels

	if s.draining.Load() {
		clear(out)
		return 0
	}
	if s.paused.Load() {
		clear(out)
		return frames
	}

	n, err := s.dec.Read(out)
	if n < frames {
		clear(out[n*s.channels:])
	}
	if n == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			s.failure.Store(&err)
		}
		s.draining.Store(true)
		return 0
	}

	cur := s.current.Load() + uint64(n)
	if s.total > 0 && cur > s.total {
		cur = s.total
	}
	s.current.Store(cur)
	return n
}

func (s *session) err() error {
	if p := s.failure.Load(); p != nil {
		return *p
	}
	return nil
}

// Engine plays one source at a time. Transport calls are serialized by a
// mutex; progress is read lock-free from the active session.
type Engine struct {
	mu      sync.Mutex
	open    DecoderOpener
	sinks   SinkFactory
	bus     *events.EventBus
	tick    time.Duration
	session *session
	view    atomic.Pointer[session]
	live    atomic.Int32
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithTick sets how often the engine checks a session for end of stream
func WithTick(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.tick = d
		}
	}
}

// WithEventBus publishes session events on bus
func WithEventBus(bus *events.EventBus) EngineOption {
	return func(e *Engine) {
		e.bus = bus
	}
}

// NewEngine creates an idle engine
func NewEngine(open DecoderOpener, sinks SinkFactory, opts ...EngineOption) *Engine {
	e := &Engine{
		open:  open,
		sinks: sinks,
		bus:   events.NewEventBus(),
		tick:  50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Events returns the bus the engine publishes on
func (e *Engine) Events() *events.EventBus {
	return e.bus
}

// Play stops any active session, then opens in and starts the sink. It returns
// once audio is running, with the id of the new session.
func (e *Engine) Play(src api.Source, in Input) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked(true)
	if n := e.live.Load(); n != 0 {
		panic("audio: starting a session while another is live")
	}

	dec, err := e.open(in)
	if err != nil {
		e.publish(api.AudioEvent{Type: api.EventError, Source: src, Err: err})
		return "", playerrors.NewPlayerError("play", src.Name(), err)
	}

	props := dec.Props()
	s := &session{
		id:        uuid.New().String(),
		src:       src,
		dec:       dec,
		channels:  props.Channels,
		rate:      props.SampleRate,
		streaming: props.Live,
		stop:      make(chan struct{}),
	}
	if props.Known() {
		s.total = uint64(props.TotalFrames)
	}

	sink, err := e.sinks(props.SampleRate, props.Channels, s.callback)
	if err != nil {
		dec.Close()
		e.publish(api.AudioEvent{Type: api.EventError, Source: src, Err: err})
		return "", playerrors.NewPlayerError("play", src.Name(), err)
	}
	s.sink = sink
	e.live.Add(1)

	if err := sink.Start(); err != nil {
		sink.Destroy()
		dec.Close()
		e.live.Add(-1)
		e.publish(api.AudioEvent{Type: api.EventError, Source: src, Err: err})
		return "", playerrors.NewPlayerError("play", src.Name(), err)
	}

	s.status.Store(int32(api.StatusPlaying))
	e.session = s
	e.view.Store(s)
	go e.monitor(s)

	log.Session(s.id).Infof("playing %s at %d Hz, %d ch", src.Name(), s.rate, s.channels)
	e.publish(api.AudioEvent{Type: api.EventTrackStarted, Session: s.id, Source: src, Status: api.StatusPlaying})
	return s.id, nil
}

// PauseToggle flips between Playing and Paused. It does nothing in any other state.
func (e *Engine) PauseToggle() api.Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil {
		return api.StatusIdle
	}

	var next api.Status
	switch api.Status(s.status.Load()) {
	case api.StatusPlaying:
		s.paused.Store(true)
		next = api.StatusPaused
	case api.StatusPaused:
		s.paused.Store(false)
		next = api.StatusPlaying
	default:
		return api.Status(s.status.Load())
	}
	s.status.Store(int32(next))
	e.publish(api.AudioEvent{Type: api.EventStateChange, Session: s.id, Source: s.src, Status: next})
	return next
}

// Stop tears down the active session and returns once the sink has quiesced
// and the decoder is closed. Progress is reset.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked(true)
}

// Close stops playback and closes the event bus
func (e *Engine) Close() {
	e.Stop()
	e.bus.Close()
}

func (e *Engine) stopLocked(reset bool) {
	s := e.session
	if s == nil {
		if reset {
			e.view.Store(nil)
		}
		return
	}

	s.status.Store(int32(api.StatusStopping))
	s.draining.Store(true)
	close(s.stop)

	if err := s.sink.Destroy(); err != nil {
		log.Session(s.id).Warnf("destroy sink: %v", err)
	}
	if err := s.dec.Close(); err != nil {
		log.Session(s.id).Debugf("close decoder: %v", err)
	}
	e.live.Add(-1)

	s.status.Store(int32(api.StatusIdle))
	e.session = nil
	if reset {
		e.view.Store(nil)
	}
	e.publish(api.AudioEvent{Type: api.EventStateChange, Session: s.id, Source: s.src, Status: api.StatusIdle})
}

// monitor watches for the callback to report the end of the source
func (e *Engine) monitor(s *session) {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if s.draining.Load() {
				e.finish(s)
				return
			}
		}
	}
}

// finish ends s after its source ran out, keeping its final progress visible
func (e *Engine) finish(s *session) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != s {
		return
	}
	e.stopLocked(false)

	err := s.err()
	if err != nil {
		log.Session(s.id).Errorf("stream ended with error: %v", err)
	} else {
		log.Session(s.id).Infof("finished %s after %d frames", s.src.Name(), s.current.Load())
	}
	e.publish(api.AudioEvent{Type: api.EventTrackEnded, Session: s.id, Source: s.src, Status: api.StatusIdle, Err: err})
}

// Progress returns a snapshot of the active or last finished session
func (e *Engine) Progress() api.Progress {
	s := e.view.Load()
	if s == nil {
		return api.Progress{Status: api.StatusIdle}
	}
	return api.Progress{
		Current:    s.current.Load(),
		Total:      s.total,
		SampleRate: s.rate,
		Status:     api.Status(s.status.Load()),
		Source:     s.src,
		Streaming:  s.streaming,
	}
}

// Session returns the id of the active session, or "" when idle
func (e *Engine) Session() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return ""
	}
	return e.session.id
}

// Live returns the number of sessions holding a decoder and a sink
func (e *Engine) Live() int {
	return int(e.live.Load())
}

func (e *Engine) publish(ev api.AudioEvent) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}
