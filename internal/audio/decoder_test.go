package audio

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	playerrors "github.com/jscyril/moz/pkg/errors"
	"golang.org/x/sys/unix"
)

func TestIsSupported(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/music/song.mp3", true},
		{"/music/song.MP3", true},
		{"/music/song.wav", true},
		{"/music/song.flac", true},
		{"/music/song.ogg", false},
		{"/music/song.aac", false},
		{"/music/song.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			result := IsSupported(tt.path)
			if result != tt.expected {
				t.Errorf("IsSupported(%s) = %v, want %v", tt.path, result, tt.expected)
			}
		})
	}
}

func TestSupportedFormats(t *testing.T) {
	formats := SupportedFormats()

	if len(formats) == 0 {
		t.Error("SupportedFormats should return at least one format")
	}

	expected := map[string]bool{".mp3": true, ".wav": true, ".flac": true}
	for _, f := range formats {
		if !expected[f] {
			t.Errorf("Unexpected format: %s", f)
		}
	}
}

func readAll(t *testing.T, dec Decoder) (frames int, err error) {
	t.Helper()
	buf := make([]float32, 512*dec.Props().Channels)
	for i := 0; i < 100000; i++ {
		n, err := dec.Read(buf)
		frames += n
		if err != nil {
			return frames, err
		}
	}
	t.Fatal("decoder never reported end of stream")
	return frames, nil
}

func TestOpenDecoderFile(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		frames   int
	}{
		{"stereo", 2, 4410},
		{"mono", 1, 3000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeWAV(t, 44100, tt.channels, tt.frames)

			dec, err := OpenDecoder(Input{Path: path}, DefaultDecoderOptions())
			if err != nil {
				t.Fatalf("OpenDecoder() error = %v", err)
			}

			props := dec.Props()
			if props.SampleRate != 44100 || props.Channels != tt.channels {
				t.Errorf("props = %+v, want 44100 Hz %d ch", props, tt.channels)
			}
			if props.TotalFrames != int64(tt.frames) {
				t.Errorf("TotalFrames = %d, want %d", props.TotalFrames, tt.frames)
			}
			if props.Live {
				t.Error("Live = true for a regular file")
			}

			n, err := readAll(t, dec)
			if !errors.Is(err, io.EOF) {
				t.Errorf("end of stream error = %v, want io.EOF", err)
			}
			if n != tt.frames {
				t.Errorf("read %d frames, want %d", n, tt.frames)
			}
			if got := dec.Position(); got != uint64(tt.frames) {
				t.Errorf("Position() = %d, want %d", got, tt.frames)
			}

			if err := dec.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
			if err := dec.Close(); err != nil {
				t.Errorf("second Close() error = %v", err)
			}
		})
	}
}

func TestOpenDecoderErrors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.wav")
	if err := os.WriteFile(garbage, []byte("not audio at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	text := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(text, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		in   Input
		is   error
	}{
		{"missing", Input{Path: filepath.Join(dir, "missing.mp3")}, os.ErrNotExist},
		{"unsupported", Input{Path: text}, playerrors.ErrInvalidFormat},
		{"malformed", Input{Path: garbage}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenDecoder(tt.in, DefaultDecoderOptions())
			var openErr *playerrors.DecoderOpenError
			if !errors.As(err, &openErr) {
				t.Fatalf("error = %v, want *DecoderOpenError", err)
			}
			if openErr.Path != tt.in.Path {
				t.Errorf("Path = %q, want %q", openErr.Path, tt.in.Path)
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("error = %v, want %v", err, tt.is)
			}
		})
	}
}

func TestOpenDecoderPipe(t *testing.T) {
	const frames = 2205
	wavPath := writeWAV(t, 22050, 2, frames)
	data, err := os.ReadFile(wavPath)
	if err != nil {
		t.Fatal(err)
	}

	fifo := filepath.Join(t.TempDir(), "stream.fifo")
	if err := unix.Mkfifo(fifo, 0o666); err != nil {
		t.Fatalf("mkfifo: %v", err)
	}

	go func() {
		w, err := os.OpenFile(fifo, os.O_WRONLY, 0)
		if err != nil {
			return
		}
		defer w.Close()
		// Trickle the bytes so the reader sees short reads
		for len(data) > 0 {
			n := min(len(data), 1024)
			if _, err := w.Write(data[:n]); err != nil {
				return
			}
			data = data[n:]
			time.Sleep(time.Millisecond)
		}
	}()

	opts := DefaultDecoderOptions()
	opts.PipeOpenTimeout = 2 * time.Second
	dec, err := OpenDecoder(Input{Path: fifo, Format: "wav"}, opts)
	if err != nil {
		t.Fatalf("OpenDecoder() error = %v", err)
	}
	defer dec.Close()

	props := dec.Props()
	if props.Known() || props.TotalFrames != UnknownFrames {
		t.Errorf("TotalFrames = %d, want unknown for a pipe", props.TotalFrames)
	}
	if props.SampleRate != 22050 || props.Channels != 2 {
		t.Errorf("props = %+v, want 22050 Hz stereo", props)
	}
	if !props.Live {
		t.Error("Live = false for a pipe")
	}

	var last uint64
	buf := make([]float32, 256*2)
	total := 0
	for {
		n, err := dec.Read(buf)
		total += n
		if pos := dec.Position(); pos < last {
			t.Fatalf("position went backwards %d -> %d", last, pos)
		} else {
			last = pos
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				t.Errorf("end of pipe error = %v, want io.EOF", err)
			}
			break
		}
	}
	if total != frames {
		t.Errorf("read %d frames from pipe, want %d", total, frames)
	}
}

func TestOpenPipeTimesOutWithoutWriter(t *testing.T) {
	fifo := filepath.Join(t.TempDir(), "idle.fifo")
	if err := unix.Mkfifo(fifo, 0o666); err != nil {
		t.Fatalf("mkfifo: %v", err)
	}

	opts := DefaultDecoderOptions()
	opts.PipeOpenTimeout = 100 * time.Millisecond

	start := time.Now()
	_, err := OpenDecoder(Input{Path: fifo, Format: "mp3"}, opts)
	if !errors.Is(err, playerrors.ErrPipeTimeout) {
		t.Fatalf("error = %v, want ErrPipeTimeout", err)
	}
	if d := time.Since(start); d > 2*time.Second {
		t.Errorf("open took %v after a 100ms timeout", d)
	}
}
