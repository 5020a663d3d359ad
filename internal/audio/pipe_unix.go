//go:build unix

package audio

import (
	"os"
	"time"

	playerrors "github.com/jscyril/moz/pkg/errors"
	"golang.org/x/sys/unix"
)

type openResult struct {
	f   *os.File
	err error
}

// openPipe opens a FIFO for reading. Opening blocks until a writer attaches,
// so the open runs in a goroutine and is abandoned after timeout.
func openPipe(path string, timeout time.Duration) (*os.File, error) {
	done := make(chan openResult, 1)
	go func() {
		f, err := os.OpenFile(path, os.O_RDONLY, 0)
		done <- openResult{f, err}
	}()

	if timeout <= 0 {
		r := <-done
		return r.f, r.err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.f, r.err
	case <-timer.C:
	}

	// Attach a writer ourselves so the pending open returns, then discard it.
	if fd, err := unix.Open(path, unix.O_WRONLY|unix.O_NONBLOCK, 0); err == nil {
		unix.Close(fd)
	}
	select {
	case r := <-done:
		if r.f != nil {
			r.f.Close()
		}
	case <-time.After(time.Second):
	}
	return nil, playerrors.ErrPipeTimeout
}
