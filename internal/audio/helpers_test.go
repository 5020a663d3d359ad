package audio

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
)

// toneDecoder produces a fixed number of frames of a sine wave
type toneDecoder struct {
	props  StreamProps
	limit  uint64
	pos    atomic.Uint64
	reads  atomic.Int64
	closes atomic.Int32
}

func newToneDecoder(rate, channels int, frames uint64) *toneDecoder {
	return &toneDecoder{
		props: StreamProps{SampleRate: rate, Channels: channels, TotalFrames: int64(frames)},
		limit: frames,
	}
}

func (d *toneDecoder) Props() StreamProps { return d.props }

func (d *toneDecoder) Read(dst []float32) (int, error) {
	d.reads.Add(1)
	pos := d.pos.Load()
	n := uint64(len(dst) / d.props.Channels)
	if left := d.limit - pos; n > left {
		n = left
	}
	if n == 0 {
		return 0, io.EOF
	}
	for i := uint64(0); i < n; i++ {
		v := float32(math.Sin(2 * math.Pi * 440 * float64(pos+i) / float64(d.props.SampleRate)))
		for c := 0; c < d.props.Channels; c++ {
			dst[int(i)*d.props.Channels+c] = v
		}
	}
	d.pos.Store(pos + n)
	return int(n), nil
}

func (d *toneDecoder) Position() uint64 { return d.pos.Load() }

func (d *toneDecoder) Close() error {
	d.closes.Add(1)
	return nil
}

// recordingOpener hands out decoders in order and keeps them for inspection
type recordingOpener struct {
	mu       sync.Mutex
	decoders []*toneDecoder
	next     func() *toneDecoder
}

func (r *recordingOpener) open(Input) (Decoder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.next()
	r.decoders = append(r.decoders, d)
	return d, nil
}

func (r *recordingOpener) get(i int) *toneDecoder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.decoders[i]
}

// countingSinks wraps a factory and tracks how many sinks are open at once
type countingSinks struct {
	factory SinkFactory
	open    atomic.Int32
	max     atomic.Int32
	calls   atomic.Int64
}

type countedSink struct {
	Sink
	owner *countingSinks
	once  sync.Once
}

func (c *countedSink) Destroy() error {
	err := c.Sink.Destroy()
	c.once.Do(func() { c.owner.open.Add(-1) })
	return err
}

func (c *countingSinks) Factory() SinkFactory {
	return func(rate, channels int, cb Callback) (Sink, error) {
		counted := func(out []float32) int {
			c.calls.Add(1)
			return cb(out)
		}
		s, err := c.factory(rate, channels, counted)
		if err != nil {
			return nil, err
		}
		n := c.open.Add(1)
		for {
			m := c.max.Load()
			if n <= m || c.max.CompareAndSwap(m, n) {
				break
			}
		}
		return &countedSink{Sink: s, owner: c}, nil
	}
}

// writeWAV encodes frames of a sine wave to a WAV file and returns its path
func writeWAV(t *testing.T, rate, channels, frames int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	written := 0
	tone := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if written >= frames {
			return 0, false
		}
		n := len(samples)
		if left := frames - written; n > left {
			n = left
		}
		for i := 0; i < n; i++ {
			v := 0.5 * math.Sin(2*math.Pi*440*float64(written+i)/float64(rate))
			samples[i] = [2]float64{v, -v}
		}
		written += n
		return n, true
	})

	format := beep.Format{SampleRate: beep.SampleRate(rate), NumChannels: channels, Precision: 2}
	if err := wav.Encode(f, tone, format); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	return path
}

// waitFor polls cond until it holds or timeout passes
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
