package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
	playerrors "github.com/jscyril/moz/pkg/errors"
)

// UnknownFrames is reported as TotalFrames for inputs that cannot be measured, such as pipes
const UnknownFrames int64 = -1

// StreamProps are fixed for the lifetime of a decoder
type StreamProps struct {
	SampleRate  int
	Channels    int
	TotalFrames int64
	// Live is set when frames arrive through a pipe from another process
	Live bool
}

// Known reports whether TotalFrames is an exact count
func (p StreamProps) Known() bool {
	return p.TotalFrames >= 0
}

// Decoder presents an audio file, or a pipe fed by another process, as a pull of
// interleaved float32 frames.
type Decoder interface {
	Props() StreamProps

	// Read fills dst with up to len(dst)/Channels frames and returns the number of frames read.
	// Fewer frames than requested means the producer is slow or the stream is ending;
	// 0 frames with io.EOF means the stream is exhausted.
	Read(dst []float32) (int, error)

	// Position returns the number of frames returned by Read since open
	Position() uint64

	// Close releases the underlying file. It is safe to call more than once.
	Close() error
}

// Input names what the engine should open. Format overrides the file extension,
// which pipes do not carry.
type Input struct {
	Path   string
	Format string
}

// DecoderOptions tune how pipes are handled
type DecoderOptions struct {
	// PipeOpenTimeout bounds how long opening a pipe waits for its writer
	PipeOpenTimeout time.Duration
	// UnderrunWait bounds how long a pipe read waits when no frames are buffered
	UnderrunWait time.Duration
	// PrefetchFrames is the capacity of the pipe read-ahead buffer
	PrefetchFrames int
}

// DefaultDecoderOptions returns the options used when none are configured
func DefaultDecoderOptions() DecoderOptions {
	return DecoderOptions{
		PipeOpenTimeout: 10 * time.Second,
		UnderrunWait:    time.Second,
		PrefetchFrames:  1 << 16,
	}
}

// DecoderOpener opens a Decoder for an input
type DecoderOpener func(in Input) (Decoder, error)

// NewDecoderOpener returns an opener bound to opts
func NewDecoderOpener(opts DecoderOptions) DecoderOpener {
	return func(in Input) (Decoder, error) {
		return OpenDecoder(in, opts)
	}
}

// SupportedFormats returns list of supported audio formats
func SupportedFormats() []string {
	return []string{".mp3", ".wav", ".flac"}
}

// IsSupported checks if a file format is supported
func IsSupported(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

// DecodeAudio decodes an audio stream. format is an extension with or without the dot.
func DecodeAudio(r io.ReadCloser, format string) (beep.StreamSeekCloser, beep.Format, error) {
	ext := "." + strings.TrimPrefix(strings.ToLower(format), ".")

	switch ext {
	case ".mp3":
		return mp3.Decode(r)
	case ".wav":
		return wav.Decode(r)
	case ".flac":
		return flac.Decode(r)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %s", playerrors.ErrInvalidFormat, ext)
	}
}

// OpenDecoder opens a file or named pipe for decoding. Failures are *DecoderOpenError.
func OpenDecoder(in Input, opts DecoderOptions) (Decoder, error) {
	fail := func(err error) (Decoder, error) {
		return nil, &playerrors.DecoderOpenError{Path: in.Path, Err: err}
	}

	format := in.Format
	if format == "" {
		format = filepath.Ext(in.Path)
	}

	info, err := os.Stat(in.Path)
	if err != nil {
		return fail(err)
	}

	if info.Mode()&os.ModeNamedPipe != 0 {
		f, err := openPipe(in.Path, opts.PipeOpenTimeout)
		if err != nil {
			return fail(err)
		}
		// The decoder must not see a Seeker, otherwise it tries to measure the stream.
		streamer, fmtInfo, err := DecodeAudio(pipeReader{f}, format)
		if err != nil {
			f.Close()
			return fail(err)
		}
		props, err := propsFor(fmtInfo, UnknownFrames)
		if err != nil {
			streamer.Close()
			return fail(err)
		}
		props.Live = true
		pf := newPrefetcher(streamer, opts.PrefetchFrames, opts.UnderrunWait)
		return newBeepDecoder(pf, props), nil
	}

	f, err := os.Open(in.Path)
	if err != nil {
		return fail(err)
	}
	streamer, fmtInfo, err := DecodeAudio(f, format)
	if err != nil {
		f.Close()
		return fail(err)
	}

	total := UnknownFrames
	if n := streamer.Len(); n > 0 {
		total = int64(n)
	}
	props, err := propsFor(fmtInfo, total)
	if err != nil {
		streamer.Close()
		return fail(err)
	}
	return newBeepDecoder(streamer, props), nil
}

func propsFor(f beep.Format, total int64) (StreamProps, error) {
	if f.NumChannels != 1 && f.NumChannels != 2 {
		return StreamProps{}, fmt.Errorf("%w: %d", playerrors.ErrUnsupportedChannels, f.NumChannels)
	}
	return StreamProps{
		SampleRate:  int(f.SampleRate),
		Channels:    f.NumChannels,
		TotalFrames: total,
	}, nil
}

// pipeReader hides the Seek method of an *os.File opened on a FIFO
type pipeReader struct {
	f *os.File
}

func (p pipeReader) Read(b []byte) (int, error) { return p.f.Read(b) }
func (p pipeReader) Close() error               { return p.f.Close() }

// beepDecoder adapts a beep streamer to the Decoder interface
type beepDecoder struct {
	src       beep.StreamCloser
	props     StreamProps
	scratch   [][2]float64
	pos       uint64
	closeOnce sync.Once
	closeErr  error
}

func newBeepDecoder(src beep.StreamCloser, props StreamProps) *beepDecoder {
	return &beepDecoder{src: src, props: props}
}

func (d *beepDecoder) Props() StreamProps {
	return d.props
}

func (d *beepDecoder) Read(dst []float32) (int, error) {
	ch := d.props.Channels
	want := len(dst) / ch
	if want == 0 {
		return 0, nil
	}
	if cap(d.scratch) < want {
		d.scratch = make([][2]float64, want)
	}
	buf := d.scratch[:want]

	n, ok := d.src.Stream(buf)
	interleave(dst, buf[:n], ch)
	d.pos += uint64(n)

	if n == 0 {
		if err := d.src.Err(); err != nil {
			return 0, err
		}
		if !ok {
			return 0, io.EOF
		}
	}
	return n, nil
}

func (d *beepDecoder) Position() uint64 {
	return d.pos
}

func (d *beepDecoder) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.src.Close()
	})
	return d.closeErr
}

// interleave writes beep's stereo pairs into dst using ch channels per frame
func interleave(dst []float32, frames [][2]float64, ch int) {
	if ch == 1 {
		for i, f := range frames {
			dst[i] = float32(f[0])
		}
		return
	}
	for i, f := range frames {
		dst[2*i] = float32(f[0])
		dst[2*i+1] = float32(f[1])
	}
}
