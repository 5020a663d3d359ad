package audio

import (
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// speakerSink plays through beep's speaker, which mixes on its own goroutine
type speakerSink struct {
	q        *quiescer
	channels int
	scratch  []float32
	mu       sync.Mutex
	playing  bool
	streamer beep.Streamer
}

func openSpeakerSink(rate, channels int, q *quiescer, buffer time.Duration) (Sink, error) {
	sr := beep.SampleRate(rate)
	if err := speaker.Init(sr, sr.N(buffer)); err != nil {
		return nil, err
	}
	s := &speakerSink{q: q, channels: channels}
	s.streamer = beep.StreamerFunc(s.stream)
	return s, nil
}

// stream runs under the speaker lock. Frames reach beep as float64 unchanged;
// oto v0.7 quantizes them to 16-bit at the device.
func (s *speakerSink) stream(samples [][2]float64) (int, bool) {
	need := len(samples) * s.channels
	if cap(s.scratch) < need {
		s.scratch = make([]float32, need)
	}
	out := s.scratch[:need]
	s.q.call(out)

	if s.channels == 1 {
		for i := range samples {
			v := float64(out[i])
			samples[i] = [2]float64{v, v}
		}
	} else {
		for i := range samples {
			samples[i] = [2]float64{float64(out[2*i]), float64(out[2*i+1])}
		}
	}
	return len(samples), true
}

func (s *speakerSink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		speaker.Play(s.streamer)
		s.playing = true
	}
	return nil
}

func (s *speakerSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playing {
		// Clear takes the speaker lock, so no stream call is running once it returns
		speaker.Clear()
		s.playing = false
	}
	return nil
}

func (s *speakerSink) Destroy() error {
	s.q.quiesce()
	s.Stop()
	speaker.Close()
	return nil
}
