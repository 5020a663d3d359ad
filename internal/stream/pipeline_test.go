package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	playerrors "github.com/jscyril/moz/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

type exitRecorder struct {
	calls atomic.Int32
	clean atomic.Bool
}

func (r *exitRecorder) onExit(clean bool) {
	r.calls.Add(1)
	r.clean.Store(clean)
}

// catOptions builds a chain where the fetcher prints src then lingers for
// linger, and the transcoder is cat
func catOptions(dir, src string, linger string) Options {
	return Options{
		Fetcher:        "sh",
		FetcherArgs:    []string{"-c", `cat "$0"; sleep "$1"`, src, linger},
		Transcoder:     "cat",
		TranscoderArgs: []string{},
		Site:           "example.com",
		Container:      "mp3",
		TempDir:        dir,
		PreRoll:        50 * time.Millisecond,
		Grace:          200 * time.Millisecond,
	}
}

func waitDone(p *Pipeline, d time.Duration) bool {
	select {
	case <-p.Done():
		return true
	case <-time.After(d):
		return false
	}
}

func TestPipelineStreamsAndCaches(t *testing.T) {
	Convey("Given a producer chain that succeeds", t, func() {
		dir := t.TempDir()
		payload := bytes.Repeat([]byte("moz-audio-frame "), 512)
		src := filepath.Join(dir, "source.bin")
		So(os.WriteFile(src, payload, 0o600), ShouldBeNil)

		cachePath := filepath.Join(dir, "abc123.mp3")
		rec := &exitRecorder{}
		p := New("abc123", cachePath, catOptions(dir, src, "0.3"), rec.onExit)

		fifo, err := p.Start(context.Background())
		So(err, ShouldBeNil)
		So(fifo, ShouldEqual, filepath.Join(dir, "moz_stream_abc123.fifo"))

		info, err := os.Stat(fifo)
		So(err, ShouldBeNil)
		So(info.Mode()&os.ModeNamedPipe, ShouldNotEqual, os.FileMode(0))
		So(info.Mode().Perm(), ShouldEqual, os.FileMode(0o666))

		r, err := os.Open(fifo)
		So(err, ShouldBeNil)
		got, err := io.ReadAll(r)
		r.Close()
		So(err, ShouldBeNil)

		Convey("The FIFO carries the transcoder output", func() {
			So(got, ShouldResemble, payload)
		})

		Convey("The cache file is byte-identical and reported clean", func() {
			So(waitDone(p, 2*time.Second), ShouldBeTrue)
			cached, err := os.ReadFile(cachePath)
			So(err, ShouldBeNil)
			So(cached, ShouldResemble, payload)
			So(p.CachedBytes(), ShouldEqual, int64(len(payload)))
			So(p.Err(), ShouldBeNil)
			So(rec.calls.Load(), ShouldEqual, int32(1))
			So(rec.clean.Load(), ShouldBeTrue)
		})

		Convey("Cleanup removes the FIFO", func() {
			p.Cleanup()
			_, err := os.Stat(fifo)
			So(os.IsNotExist(err), ShouldBeTrue)
		})
	})
}

func TestPipelineFailures(t *testing.T) {
	Convey("Given a fetcher that exits with an error", t, func() {
		dir := t.TempDir()
		rec := &exitRecorder{}
		p := New("bad", filepath.Join(dir, "bad.mp3"), Options{
			Fetcher:        "sh",
			FetcherArgs:    []string{"-c", "echo 'video unavailable' >&2; exit 1"},
			Transcoder:     "cat",
			TranscoderArgs: []string{},
			TempDir:        dir,
			PreRoll:        2 * time.Second,
		}, rec.onExit)

		start := time.Now()
		_, err := p.Start(context.Background())

		Convey("Start reports a producer PipelineError before the pre-roll ends", func() {
			var perr *playerrors.PipelineError
			So(errors.As(err, &perr), ShouldBeTrue)
			So(perr.Stage, ShouldEqual, playerrors.StageProducer)
			So(perr.ID, ShouldEqual, "bad")
			So(err.Error(), ShouldContainSubstring, "video unavailable")
			So(time.Since(start), ShouldBeLessThan, 2*time.Second)
		})

		Convey("The FIFO is removed and the cache is not marked", func() {
			_, statErr := os.Stat(p.FIFO())
			So(os.IsNotExist(statErr), ShouldBeTrue)
			So(rec.clean.Load(), ShouldBeFalse)
		})
	})

	Convey("Given a fetcher that does not exist", t, func() {
		dir := t.TempDir()
		p := New("nobin", filepath.Join(dir, "nobin.mp3"), Options{
			Fetcher:    filepath.Join(dir, "no-such-fetcher"),
			Transcoder: "cat",
			TempDir:    dir,
		}, nil)

		_, err := p.Start(context.Background())
		var perr *playerrors.PipelineError
		So(errors.As(err, &perr), ShouldBeTrue)
		So(perr.Stage, ShouldEqual, playerrors.StageSpawn)

		_, statErr := os.Stat(p.FIFO())
		So(os.IsNotExist(statErr), ShouldBeTrue)
	})

	Convey("Given a temp directory that does not exist", t, func() {
		dir := t.TempDir()
		p := New("nofifo", filepath.Join(dir, "x.mp3"), Options{
			Fetcher:    "true",
			Transcoder: "cat",
			TempDir:    filepath.Join(dir, "missing", "deeper"),
		}, nil)

		_, err := p.Start(context.Background())
		var perr *playerrors.PipelineError
		So(errors.As(err, &perr), ShouldBeTrue)
		So(perr.Stage, ShouldEqual, playerrors.StageFIFO)
	})
}

func TestPipelineTerminate(t *testing.T) {
	Convey("Given a producer that never finishes", t, func() {
		dir := t.TempDir()
		rec := &exitRecorder{}
		p := New("slow", filepath.Join(dir, "slow.mp3"), Options{
			Fetcher:        "sleep",
			FetcherArgs:    []string{"30"},
			Transcoder:     "cat",
			TranscoderArgs: []string{},
			TempDir:        dir,
			PreRoll:        20 * time.Millisecond,
			Grace:          300 * time.Millisecond,
		}, rec.onExit)

		_, err := p.Start(context.Background())
		So(err, ShouldBeNil)

		Convey("Terminate stops the whole group within the grace period", func() {
			start := time.Now()
			p.Terminate()
			So(time.Since(start), ShouldBeLessThan, time.Second)
			So(waitDone(p, time.Second), ShouldBeTrue)
			So(rec.calls.Load(), ShouldEqual, int32(1))
			So(rec.clean.Load(), ShouldBeFalse)

			// A second call is a no-op
			p.Terminate()
			p.Cleanup()
		})
	})

	Convey("Given a cancelled context during pre-roll", t, func() {
		dir := t.TempDir()
		p := New("cancel", filepath.Join(dir, "cancel.mp3"), Options{
			Fetcher:        "sleep",
			FetcherArgs:    []string{"30"},
			Transcoder:     "cat",
			TranscoderArgs: []string{},
			TempDir:        dir,
			PreRoll:        5 * time.Second,
			Grace:          200 * time.Millisecond,
		}, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := p.Start(ctx)
		So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		So(waitDone(p, time.Second), ShouldBeTrue)

		_, statErr := os.Stat(p.FIFO())
		So(os.IsNotExist(statErr), ShouldBeTrue)
	})
}

func TestExpandArgs(t *testing.T) {
	Convey("Placeholders are replaced from the options", t, func() {
		p := New("xyz", "/c/xyz.mp3", Options{
			Site:       "youtube.com",
			Format:     "bestaudio",
			Codec:      "libmp3lame",
			Bitrate:    "192k",
			Container:  "mp3",
			SampleRate: 48000,
		}, nil)

		So(p.expand(DefaultFetcherArgs()), ShouldResemble, []string{
			"-f", "bestaudio", "-o", "-", "--no-warnings", "--quiet", "--no-progress",
			"https://youtube.com/watch?v=xyz",
		})
		So(p.expand(DefaultTranscoderArgs(48000)), ShouldResemble, []string{
			"-hide_banner", "-loglevel", "error", "-i", "pipe:0", "-vn",
			"-acodec", "libmp3lame", "-ab", "192k", "-ar", "48000", "-f", "mp3", "-",
		})
		So(DefaultTranscoderArgs(0), ShouldNotContain, "-ar")
	})
}

func TestTail(t *testing.T) {
	Convey("tail keeps only the last bytes", t, func() {
		tl := newTail(8)
		tl.Write([]byte("abc"))
		So(tl.String(), ShouldEqual, "abc")

		tl.Write([]byte("defghij"))
		So(tl.String(), ShouldEqual, "cdefghij")

		tl.Write([]byte("0123456789"))
		So(tl.String(), ShouldEqual, "23456789")
	})
}
