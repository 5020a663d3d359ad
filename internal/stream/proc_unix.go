//go:build unix

package stream

import (
	"errors"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// groupAttr puts the first producer in a new process group and the rest in its group
func groupAttr(pgid int) *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    pgid,
	}
}

// signalGroup delivers sig to every process in the group
func signalGroup(pgid int, sig unix.Signal) error {
	if pgid <= 0 {
		return nil
	}
	err := unix.Kill(-pgid, sig)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}

// makeFIFO replaces any file at path with a fresh FIFO of mode 0666
func makeFIFO(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := unix.Mkfifo(path, 0o666); err != nil {
		return err
	}
	// Mkfifo is subject to the umask
	return os.Chmod(path, 0o666)
}

// openFIFOWriter opens the FIFO read-write so the open does not wait for a reader
func openFIFOWriter(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR, 0)
}
