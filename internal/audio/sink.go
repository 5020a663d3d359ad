package audio

import (
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	playerrors "github.com/jscyril/moz/pkg/errors"
)

// Callback fills out with interleaved float32 frames and returns how many frames it produced.
// It runs on the audio thread and must zero any tail it did not fill.
type Callback func(out []float32) int

// Sink is an output stream driving a Callback
type Sink interface {
	Start() error
	Stop() error
	// Destroy stops the stream and returns only after the last callback invocation has completed
	Destroy() error
}

// SinkFactory opens a sink for the given format
type SinkFactory func(sampleRate, channels int, cb Callback) (Sink, error)

// Backend names accepted by NewSinkFactory
const (
	BackendSpeaker = "speaker"
	BackendOto     = "oto"
	BackendNull    = "null"
)

// NewSinkFactory returns a factory for the named backend. buffer is the
// output latency requested from the device.
func NewSinkFactory(backend string, buffer time.Duration) (SinkFactory, error) {
	if buffer <= 0 {
		buffer = 100 * time.Millisecond
	}

	var open func(rate, channels int, q *quiescer, buffer time.Duration) (Sink, error)
	switch strings.ToLower(backend) {
	case BackendSpeaker, "":
		open = openSpeakerSink
	case BackendOto:
		open = openOtoSink
	case BackendNull:
		open = openNullSink
	default:
		return nil, fmt.Errorf("unknown audio backend %q", backend)
	}

	name := strings.ToLower(backend)
	if name == "" {
		name = BackendSpeaker
	}

	return func(sampleRate, channels int, cb Callback) (Sink, error) {
		if channels != 1 && channels != 2 {
			return nil, &playerrors.SinkOpenError{
				Backend: name,
				Err:     fmt.Errorf("%w: %d", playerrors.ErrUnsupportedChannels, channels),
			}
		}
		if sampleRate <= 0 {
			return nil, &playerrors.SinkOpenError{
				Backend: name,
				Err:     fmt.Errorf("invalid sample rate %d", sampleRate),
			}
		}
		sink, err := open(sampleRate, channels, &quiescer{cb: cb}, buffer)
		if err != nil {
			return nil, &playerrors.SinkOpenError{Backend: name, Err: err}
		}
		return sink, nil
	}, nil
}

// quiescer guards a Callback so that, once quiesce returns, the callback is
// neither running nor will it run again.
type quiescer struct {
	cb       Callback
	inflight atomic.Int32
	closed   atomic.Bool
}

func (q *quiescer) call(out []float32) int {
	q.inflight.Add(1)
	defer q.inflight.Add(-1)

	if q.closed.Load() {
		clear(out)
		return 0
	}
	return q.cb(out)
}

func (q *quiescer) quiesce() {
	q.closed.Store(true)
	for q.inflight.Load() != 0 {
		runtime.Gosched()
	}
}

// framesFor returns how many frames fit in d at rate
func framesFor(d time.Duration, rate int) int {
	n := int(d * time.Duration(rate) / time.Second)
	if n < 1 {
		n = 1
	}
	return n
}
