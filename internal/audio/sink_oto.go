package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	playerrors "github.com/jscyril/moz/pkg/errors"
)

// oto allows a single context per process, so the first sink fixes the device format
var (
	otoMu       sync.Mutex
	otoCtx      *oto.Context
	otoRate     int
	otoChannels int
)

func otoContext(rate, channels int, buffer time.Duration) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if rate != otoRate || channels != otoChannels {
			return nil, fmt.Errorf("%w: device is %d Hz/%d ch, stream is %d Hz/%d ch",
				playerrors.ErrFormatMismatch, otoRate, otoChannels, rate, channels)
		}
		return otoCtx, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   buffer,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	otoCtx, otoRate, otoChannels = ctx, rate, channels
	return ctx, nil
}

// otoSink pulls from the callback through oto's io.Reader player
type otoSink struct {
	q       *quiescer
	player  *oto.Player
	scratch []float32
	mu      sync.Mutex
}

func openOtoSink(rate, channels int, q *quiescer, buffer time.Duration) (Sink, error) {
	ctx, err := otoContext(rate, channels, buffer)
	if err != nil {
		return nil, err
	}
	s := &otoSink{q: q}
	s.player = ctx.NewPlayer(s)
	return s, nil
}

// Read is called from oto's mixing goroutine
func (s *otoSink) Read(p []byte) (int, error) {
	samples := len(p) / 4
	if cap(s.scratch) < samples {
		s.scratch = make([]float32, samples)
	}
	out := s.scratch[:samples]
	s.q.call(out)

	for i, v := range out {
		binary.LittleEndian.PutUint32(p[4*i:], math.Float32bits(v))
	}
	return samples * 4, nil
}

func (s *otoSink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.Play()
	return s.player.Err()
}

func (s *otoSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.Pause()
	return nil
}

func (s *otoSink) Destroy() error {
	s.q.quiesce()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.Close()
}
