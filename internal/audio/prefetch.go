package audio

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"
)

const prefetchChunk = 4096

// prefetcher decodes a pipe on its own goroutine into a single-producer,
// single-consumer ring so the audio callback never waits on a pipe read.
// Stream returns what is buffered and waits at most underrun for more.
type prefetcher struct {
	src      beep.StreamCloser
	buf      [][2]float64
	r, w     atomic.Uint64
	eof      atomic.Bool
	closed   atomic.Bool
	err      atomic.Value
	underrun time.Duration

	dataReady  chan struct{}
	spaceReady chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
}

func newPrefetcher(src beep.StreamCloser, capacity int, underrun time.Duration) *prefetcher {
	if capacity <= 0 {
		capacity = DefaultDecoderOptions().PrefetchFrames
	}
	p := &prefetcher{
		src:        src,
		buf:        make([][2]float64, capacity),
		underrun:   underrun,
		dataReady:  make(chan struct{}, 1),
		spaceReady: make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	go p.fill()
	return p
}

func (p *prefetcher) fill() {
	defer close(p.done)
	defer p.notify(p.dataReady)

	chunk := make([][2]float64, prefetchChunk)
	size := uint64(len(p.buf))
	for !p.closed.Load() {
		n, ok := p.src.Stream(chunk)
		for off := 0; off < n; {
			if p.closed.Load() {
				return
			}
			w := p.w.Load()
			free := size - (w - p.r.Load())
			if free == 0 {
				<-p.spaceReady
				continue
			}
			m := uint64(n - off)
			if m > free {
				m = free
			}
			for i := uint64(0); i < m; i++ {
				p.buf[(w+i)%size] = chunk[off+int(i)]
			}
			p.w.Store(w + m)
			off += int(m)
			p.notify(p.dataReady)
		}
		if !ok {
			if err := p.src.Err(); err != nil {
				p.err.Store(err)
			}
			p.eof.Store(true)
			return
		}
	}
}

func (p *prefetcher) notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Stream implements beep.Streamer
func (p *prefetcher) Stream(samples [][2]float64) (int, bool) {
	if len(samples) == 0 {
		return 0, true
	}

	avail := p.w.Load() - p.r.Load()
	if avail == 0 && !p.eof.Load() {
		avail = p.wait()
	}
	if avail == 0 {
		return 0, false
	}

	size := uint64(len(p.buf))
	r := p.r.Load()
	n := uint64(len(samples))
	if n > avail {
		n = avail
	}
	for i := uint64(0); i < n; i++ {
		samples[i] = p.buf[(r+i)%size]
	}
	p.r.Store(r + n)
	p.notify(p.spaceReady)
	return int(n), true
}

// wait blocks until frames arrive, the producer finishes or the underrun budget runs out
func (p *prefetcher) wait() uint64 {
	timer := time.NewTimer(p.underrun)
	defer timer.Stop()
	for {
		select {
		case <-p.dataReady:
		case <-timer.C:
			return p.w.Load() - p.r.Load()
		}
		if avail := p.w.Load() - p.r.Load(); avail > 0 || p.eof.Load() {
			return avail
		}
	}
}

func (p *prefetcher) Err() error {
	if err, ok := p.err.Load().(error); ok {
		return err
	}
	return nil
}

// Close stops the producer and closes the pipe
func (p *prefetcher) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		err = p.src.Close()
		p.notify(p.spaceReady)
		select {
		case <-p.done:
		case <-time.After(time.Second):
		}
	})
	return err
}
