package stream

import (
	"strings"
	"sync"
)

// tail keeps the last bytes written to it. Producers can be chatty on
// stderr; only the end is useful when one of them fails.
type tail struct {
	buf []byte
	w   int // oldest byte
	n   int // bytes stored
	mu  sync.Mutex
}

func newTail(size int) *tail {
	return &tail{buf: make([]byte, size)}
}

func (t *tail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	written := len(p)
	if len(p) >= len(t.buf) {
		p = p[len(p)-len(t.buf):]
		copy(t.buf, p)
		t.w, t.n = 0, len(t.buf)
		return written, nil
	}

	for _, b := range p {
		end := (t.w + t.n) % len(t.buf)
		t.buf[end] = b
		if t.n < len(t.buf) {
			t.n++
		} else {
			t.w = (t.w + 1) % len(t.buf)
		}
	}
	return written, nil
}

// String returns the stored bytes with surrounding whitespace trimmed
func (t *tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]byte, t.n)
	if t.n == 0 {
		return ""
	}
	head := t.w
	first := copy(out, t.buf[head:min(head+t.n, len(t.buf))])
	copy(out[first:], t.buf[:t.n-first])
	return strings.TrimSpace(string(out))
}
