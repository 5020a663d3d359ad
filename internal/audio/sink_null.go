package audio

import (
	"sync"
	"time"
)

// nullSink drives the callback from a ticker at the real-time rate and
// discards the output. It is used for headless runs and tests.
type nullSink struct {
	q      *quiescer
	out    []float32
	period time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func openNullSink(rate, channels int, q *quiescer, buffer time.Duration) (Sink, error) {
	frames := framesFor(buffer, rate)
	return &nullSink{
		q:      q,
		out:    make([]float32, frames*channels),
		period: time.Duration(frames) * time.Second / time.Duration(rate),
	}, nil
}

// NullSinkFactory returns a factory for the null backend with the given buffer period
func NullSinkFactory(buffer time.Duration) SinkFactory {
	f, _ := NewSinkFactory(BackendNull, buffer)
	return f
}

func (s *nullSink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return nil
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)
	return nil
}

func (s *nullSink) run(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.q.call(s.out)
		}
	}
}

// Stop returns after the ticking goroutine has exited
func (s *nullSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return nil
	}
	close(s.stop)
	<-s.done
	s.stop, s.done = nil, nil
	return nil
}

func (s *nullSink) Destroy() error {
	s.q.quiesce()
	return s.Stop()
}
