package audio

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jscyril/moz/api"
	playerrors "github.com/jscyril/moz/pkg/errors"
)

const testRate = 8000

func newTestEngine(t *testing.T, frames uint64) (*Engine, *recordingOpener, *countingSinks) {
	t.Helper()
	opener := &recordingOpener{next: func() *toneDecoder {
		return newToneDecoder(testRate, 2, frames)
	}}
	sinks := &countingSinks{factory: NullSinkFactory(10 * time.Millisecond)}
	e := NewEngine(opener.open, sinks.Factory(), WithTick(10*time.Millisecond))
	t.Cleanup(e.Close)
	return e, opener, sinks
}

func waitEnded(t *testing.T, ch <-chan api.AudioEvent, timeout time.Duration) api.AudioEvent {
	t.Helper()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case ev := <-ch:
			if ev.Type == api.EventTrackEnded {
				return ev
			}
		case <-timer.C:
			t.Fatal("timed out waiting for the session to end")
		}
	}
}

func TestNewEngine(t *testing.T) {
	e, _, _ := newTestEngine(t, testRate)

	p := e.Progress()
	if p.Status != api.StatusIdle {
		t.Errorf("Expected status idle, got %v", p.Status)
	}
	if p.Current != 0 || p.Total != 0 {
		t.Errorf("Expected zero progress, got %d/%d", p.Current, p.Total)
	}
	if e.Session() != "" {
		t.Errorf("Expected no session, got %q", e.Session())
	}
	if e.Events() == nil {
		t.Error("Events bus is nil")
	}
}

func TestPlayToEnd(t *testing.T) {
	total := uint64(testRate / 2)
	e, opener, sinks := newTestEngine(t, total)
	ended := e.Events().Subscribe(api.EventTrackEnded)

	id, err := e.Play(api.Local("/music/a.mp3"), Input{Path: "/music/a.mp3"})
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if id == "" {
		t.Fatal("Play() returned an empty session id")
	}
	if got := e.Progress().Status; got != api.StatusPlaying {
		t.Errorf("status after Play = %v, want playing", got)
	}

	ev := waitEnded(t, ended, 3*time.Second)
	if ev.Session != id {
		t.Errorf("ended session = %q, want %q", ev.Session, id)
	}
	if ev.Err != nil {
		t.Errorf("ended with error %v", ev.Err)
	}

	p := e.Progress()
	if p.Status != api.StatusIdle {
		t.Errorf("status after end = %v, want idle", p.Status)
	}
	if p.Current != total || p.Total != total {
		t.Errorf("progress after end = %d/%d, want %d/%d", p.Current, p.Total, total, total)
	}
	if got := opener.get(0).closes.Load(); got != 1 {
		t.Errorf("decoder closed %d times, want 1", got)
	}
	if e.Live() != 0 || sinks.open.Load() != 0 {
		t.Errorf("resources still held: live=%d sinks=%d", e.Live(), sinks.open.Load())
	}
}

func TestPausePreservesPosition(t *testing.T) {
	total := uint64(testRate)
	e, _, _ := newTestEngine(t, total)
	ended := e.Events().Subscribe(api.EventTrackEnded)

	start := time.Now()
	if _, err := e.Play(api.Local("a.mp3"), Input{Path: "a.mp3"}); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	if got := e.PauseToggle(); got != api.StatusPaused {
		t.Fatalf("PauseToggle() = %v, want paused", got)
	}
	// Let any callback already past the pause check finish
	time.Sleep(30 * time.Millisecond)
	held := e.Progress().Current
	time.Sleep(300 * time.Millisecond)
	if got := e.Progress().Current; got != held {
		t.Errorf("position moved while paused: %d -> %d", held, got)
	}
	if got := e.Progress().Status; got != api.StatusPaused {
		t.Errorf("status = %v, want paused", got)
	}

	if got := e.PauseToggle(); got != api.StatusPlaying {
		t.Fatalf("PauseToggle() = %v, want playing", got)
	}
	if !waitFor(t, time.Second, func() bool { return e.Progress().Current > held }) {
		t.Error("position did not advance after resume")
	}

	waitEnded(t, ended, 3*time.Second)
	if elapsed := time.Since(start); elapsed < time.Second+300*time.Millisecond {
		t.Errorf("session took %v, expected the pause to extend it past %v", elapsed, time.Second+300*time.Millisecond)
	}
	if got := e.Progress().Current; got != total {
		t.Errorf("final position = %d, want %d", got, total)
	}
}

func TestStopMidPlay(t *testing.T) {
	e, opener, sinks := newTestEngine(t, testRate*10)

	if _, err := e.Play(api.Local("a.mp3"), Input{Path: "a.mp3"}); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	e.Stop()
	if d := time.Since(start); d > 200*time.Millisecond {
		t.Errorf("Stop() took %v, want under 200ms", d)
	}

	p := e.Progress()
	if p.Status != api.StatusIdle || p.Current != 0 {
		t.Errorf("progress after Stop = %+v, want idle and reset", p)
	}
	if got := opener.get(0).closes.Load(); got != 1 {
		t.Errorf("decoder closed %d times, want 1", got)
	}
	if sinks.open.Load() != 0 || e.Live() != 0 {
		t.Errorf("sink still open after Stop")
	}

	calls := sinks.calls.Load()
	reads := opener.get(0).reads.Load()
	time.Sleep(100 * time.Millisecond)
	if got := sinks.calls.Load(); got != calls {
		t.Errorf("callback invoked %d times after Stop returned", got-calls)
	}
	if got := opener.get(0).reads.Load(); got != reads {
		t.Errorf("decoder read %d times after Stop returned", got-reads)
	}
}

func TestSwitchSource(t *testing.T) {
	e, opener, sinks := newTestEngine(t, testRate*10)

	first, err := e.Play(api.Local("a.mp3"), Input{Path: "a.mp3"})
	if err != nil {
		t.Fatalf("Play(a) error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	second, err := e.Play(api.Local("b.mp3"), Input{Path: "b.mp3"})
	if err != nil {
		t.Fatalf("Play(b) error = %v", err)
	}
	if first == second {
		t.Error("each Play should start a new session")
	}
	if got := opener.get(0).closes.Load(); got != 1 {
		t.Errorf("first decoder closed %d times, want 1", got)
	}
	if got := sinks.max.Load(); got != 1 {
		t.Errorf("max concurrent sinks = %d, want 1", got)
	}
	if got := e.Progress().Source.Path; got != "b.mp3" {
		t.Errorf("active source = %q, want b.mp3", got)
	}
	if e.Live() != 1 {
		t.Errorf("live sessions = %d, want 1", e.Live())
	}
}

func TestProgressIsMonotoneAndBounded(t *testing.T) {
	total := uint64(testRate / 4)
	e, _, _ := newTestEngine(t, total)
	ended := e.Events().Subscribe(api.EventTrackEnded)

	for round := 0; round < 2; round++ {
		if _, err := e.Play(api.Local("a.mp3"), Input{Path: "a.mp3"}); err != nil {
			t.Fatalf("Play() error = %v", err)
		}
		if got := e.Progress().Current; got > uint64(testRate/50) {
			t.Errorf("round %d: progress did not reset on play, current = %d", round, got)
		}

		var last uint64
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			p := e.Progress()
			if p.Current < last {
				t.Fatalf("round %d: progress went backwards %d -> %d", round, last, p.Current)
			}
			if p.Current > p.Total {
				t.Fatalf("round %d: progress %d exceeds total %d", round, p.Current, p.Total)
			}
			last = p.Current
			if p.Status == api.StatusIdle {
				break
			}
			time.Sleep(2 * time.Millisecond)
		}
		waitEnded(t, ended, 2*time.Second)
	}
}

func TestProgressStreamingFlag(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		live  bool
		want  bool
	}{
		{"file with known length", testRate, false, false},
		{"file without a length", UnknownFrames, false, false},
		{"pipe", UnknownFrames, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opener := &recordingOpener{next: func() *toneDecoder {
				d := newToneDecoder(testRate, 2, testRate)
				d.props.TotalFrames = tt.total
				d.props.Live = tt.live
				return d
			}}
			e := NewEngine(opener.open, NullSinkFactory(10*time.Millisecond), WithTick(10*time.Millisecond))
			t.Cleanup(e.Close)

			if _, err := e.Play(api.Local("tone.wav"), Input{Path: "tone.wav"}); err != nil {
				t.Fatalf("Play() error = %v", err)
			}
			if got := e.Progress().Streaming; got != tt.want {
				t.Errorf("Streaming = %v, want %v", got, tt.want)
			}
			e.Stop()
		})
	}
}

func TestPauseToggleWhenIdle(t *testing.T) {
	e, _, _ := newTestEngine(t, testRate)

	if got := e.PauseToggle(); got != api.StatusIdle {
		t.Errorf("PauseToggle() on idle engine = %v, want idle", got)
	}
	// Stop on an idle engine is a no-op
	e.Stop()
}

func TestPlayErrors(t *testing.T) {
	tests := []struct {
		name   string
		open   DecoderOpener
		wantAs func(error) bool
	}{
		{
			name: "missing file",
			open: NewDecoderOpener(DefaultDecoderOptions()),
			wantAs: func(err error) bool {
				var target *playerrors.DecoderOpenError
				return errors.As(err, &target) && errors.Is(err, os.ErrNotExist)
			},
		},
		{
			name: "unsupported channels",
			open: func(Input) (Decoder, error) { return newToneDecoder(testRate, 6, 100), nil },
			wantAs: func(err error) bool {
				var target *playerrors.SinkOpenError
				return errors.As(err, &target) && errors.Is(err, playerrors.ErrUnsupportedChannels)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(tt.open, NullSinkFactory(10*time.Millisecond))
			defer e.Close()
			failures := e.Events().Subscribe(api.EventError)

			_, err := e.Play(api.Local("/nope/missing.mp3"), Input{Path: "/nope/missing.mp3"})
			if err == nil {
				t.Fatal("Play() should fail")
			}
			if !tt.wantAs(err) {
				t.Errorf("unexpected error kind: %v", err)
			}
			if got := e.Progress().Status; got != api.StatusIdle {
				t.Errorf("status after failed Play = %v, want idle", got)
			}
			if e.Live() != 0 {
				t.Errorf("live sessions = %d after failed Play", e.Live())
			}
			if len(failures) != 1 {
				t.Errorf("published %d error events, want 1", len(failures))
			}
		})
	}
}

func TestCallbackContract(t *testing.T) {
	dec := newToneDecoder(testRate, 2, 3)
	s := &session{dec: dec, channels: 2, total: 3}
	out := make([]float32, 8)
	for i := range out {
		out[i] = 9
	}

	if n := s.callback(out); n != 3 {
		t.Fatalf("first callback = %d frames, want 3", n)
	}
	for i := 6; i < 8; i++ {
		if out[i] != 0 {
			t.Errorf("tail sample %d = %v, want 0", i, out[i])
		}
	}
	if got := s.current.Load(); got != 3 {
		t.Errorf("current = %d, want 3", got)
	}

	if n := s.callback(out); n != 0 {
		t.Errorf("callback at end = %d frames, want 0", n)
	}
	if !s.draining.Load() {
		t.Error("draining should be set once the decoder returns nothing")
	}

	s.draining.Store(false)
	s.paused.Store(true)
	for i := range out {
		out[i] = 9
	}
	if n := s.callback(out); n != 4 {
		t.Errorf("paused callback = %d frames, want a full buffer of 4", n)
	}
	for i, v := range out {
		if v != 0 {
			t.Errorf("paused sample %d = %v, want silence", i, v)
		}
	}
}
