// Package stream turns a remote id into a playable pipe while writing the cache artifact.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jscyril/moz/internal/log"
	playerrors "github.com/jscyril/moz/pkg/errors"
	"golang.org/x/sys/unix"
)

// Options configure the producer chain. Arguments may contain the
// placeholders {url}, {format}, {codec}, {bitrate}, {container} and {rate}.
type Options struct {
	Fetcher        string
	FetcherArgs    []string
	Transcoder     string
	TranscoderArgs []string
	Tee            string

	Site       string
	Format     string
	Codec      string
	Bitrate    string
	Container  string
	SampleRate int

	TempDir string
	PreRoll time.Duration
	Grace   time.Duration
}

// DefaultFetcherArgs writes the best audio of {url} to stdout
func DefaultFetcherArgs() []string {
	return []string{"-f", "{format}", "-o", "-", "--no-warnings", "--quiet", "--no-progress", "{url}"}
}

// DefaultTranscoderArgs reads stdin and writes {container} to stdout
func DefaultTranscoderArgs(sampleRate int) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-i", "pipe:0", "-vn", "-acodec", "{codec}", "-ab", "{bitrate}"}
	if sampleRate > 0 {
		args = append(args, "-ar", "{rate}")
	}
	return append(args, "-f", "{container}", "-")
}

// WatchURL builds the page URL the fetcher resolves
func WatchURL(site, id string) string {
	return fmt.Sprintf("https://%s/watch?v=%s", site, id)
}

// FIFOPath returns <dir>/moz_stream_<id>.fifo
func FIFOPath(dir, id string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "moz_stream_"+id+".fifo")
}

// Pipeline runs fetcher | transcoder | tee <cache> into a FIFO for one id.
// All producers share one process group, which is how they are torn down.
type Pipeline struct {
	id        string
	cachePath string
	fifoPath  string
	opts      Options
	onExit    func(clean bool)

	mu      sync.Mutex
	cmds    []*exec.Cmd
	stderr  []*tail
	pgid    int
	started bool

	killed  atomic.Bool
	exited  chan struct{}
	exitErr error
}

// New prepares a pipeline. onExit is called once, after every producer has
// exited, with clean set when all of them succeeded and none was killed.
func New(id, cachePath string, opts Options, onExit func(clean bool)) *Pipeline {
	if opts.Tee == "" {
		opts.Tee = "tee"
	}
	if opts.FetcherArgs == nil {
		opts.FetcherArgs = DefaultFetcherArgs()
	}
	if opts.TranscoderArgs == nil {
		opts.TranscoderArgs = DefaultTranscoderArgs(opts.SampleRate)
	}
	if opts.Grace <= 0 {
		opts.Grace = 500 * time.Millisecond
	}
	return &Pipeline{
		id:        id,
		cachePath: cachePath,
		fifoPath:  FIFOPath(opts.TempDir, id),
		opts:      opts,
		onExit:    onExit,
		exited:    make(chan struct{}),
	}
}

// ID returns the remote id being produced
func (p *Pipeline) ID() string { return p.id }

// FIFO returns the pipe path the decoder should open
func (p *Pipeline) FIFO() string { return p.fifoPath }

// CachePath returns the artifact being written
func (p *Pipeline) CachePath() string { return p.cachePath }

// Done is closed once every producer has exited
func (p *Pipeline) Done() <-chan struct{} { return p.exited }

// Err returns the first producer failure. It is only meaningful after Done.
func (p *Pipeline) Err() error {
	select {
	case <-p.exited:
		return p.exitErr
	default:
		return nil
	}
}

// CachedBytes returns how much of the artifact has been written so far
func (p *Pipeline) CachedBytes() int64 {
	info, err := os.Stat(p.cachePath)
	if err != nil {
		return 0
	}
	return info.Size()
}

func (p *Pipeline) expand(args []string) []string {
	r := strings.NewReplacer(
		"{url}", WatchURL(p.opts.Site, p.id),
		"{format}", p.opts.Format,
		"{codec}", p.opts.Codec,
		"{bitrate}", p.opts.Bitrate,
		"{container}", p.opts.Container,
		"{rate}", strconv.Itoa(p.opts.SampleRate),
	)
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}

// Start creates the FIFO, spawns the producers and waits out the pre-roll.
// It returns the FIFO path. A producer that fails during pre-roll is reported
// as a PipelineError and the pipeline is torn down.
func (p *Pipeline) Start(ctx context.Context) (string, error) {
	logger := log.With(map[string]any{"stream": p.id})

	if err := p.spawn(); err != nil {
		return "", err
	}
	logger.Infof("producers started, pre-rolling %v", p.opts.PreRoll)

	timer := time.NewTimer(p.opts.PreRoll)
	defer timer.Stop()

	select {
	case <-timer.C:
		return p.fifoPath, nil
	case <-p.exited:
		if p.exitErr != nil {
			p.Cleanup()
			return "", playerrors.NewPipelineError(playerrors.StageProducer, p.id, p.exitErr)
		}
		// A short source can finish inside the pre-roll
		return p.fifoPath, nil
	case <-ctx.Done():
		p.Terminate()
		p.Cleanup()
		return "", ctx.Err()
	}
}

func (p *Pipeline) spawn() (err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return playerrors.NewPipelineError(playerrors.StageSpawn, p.id, errors.New("pipeline already started"))
	}
	p.started = true

	// No reaper runs when spawning fails, so the exit callback fires here
	defer func() {
		if err != nil && p.onExit != nil {
			p.onExit(false)
		}
	}()

	if err := makeFIFO(p.fifoPath); err != nil {
		close(p.exited)
		return playerrors.NewPipelineError(playerrors.StageFIFO, p.id, err)
	}

	fifo, err := openFIFOWriter(p.fifoPath)
	if err != nil {
		close(p.exited)
		p.Cleanup()
		return playerrors.NewPipelineError(playerrors.StageFIFO, p.id, err)
	}

	fetchOut, transIn, err := pipePair()
	if err != nil {
		fifo.Close()
		close(p.exited)
		p.Cleanup()
		return playerrors.NewPipelineError(playerrors.StageSpawn, p.id, err)
	}
	transOut, teeIn, err := pipePair()
	if err != nil {
		fifo.Close()
		fetchOut.Close()
		transIn.Close()
		close(p.exited)
		p.Cleanup()
		return playerrors.NewPipelineError(playerrors.StageSpawn, p.id, err)
	}

	fetch := exec.Command(p.opts.Fetcher, p.expand(p.opts.FetcherArgs)...)
	trans := exec.Command(p.opts.Transcoder, p.expand(p.opts.TranscoderArgs)...)
	tee := exec.Command(p.opts.Tee, p.cachePath)

	fetch.Stdout = fetchOut
	trans.Stdin, trans.Stdout = transIn, transOut
	tee.Stdin, tee.Stdout = teeIn, fifo

	p.cmds = []*exec.Cmd{fetch, trans, tee}
	for _, cmd := range p.cmds {
		t := newTail(2048)
		cmd.Stderr = t
		p.stderr = append(p.stderr, t)
	}

	// Children hold their own copies once started
	parentEnds := []io.Closer{fetchOut, transIn, transOut, teeIn, fifo}
	closeParentEnds := func() {
		for _, c := range parentEnds {
			c.Close()
		}
	}

	for i, cmd := range p.cmds {
		cmd.SysProcAttr = groupAttr(p.pgid)
		if err := cmd.Start(); err != nil {
			closeParentEnds()
			p.killed.Store(true)
			signalGroup(p.pgid, unix.SIGKILL)
			for _, started := range p.cmds[:i] {
				started.Wait()
			}
			close(p.exited)
			p.Cleanup()
			return playerrors.NewPipelineError(playerrors.StageSpawn, p.id, err)
		}
		if i == 0 {
			p.pgid = cmd.Process.Pid
		}
	}
	closeParentEnds()

	go p.reap()
	return nil
}

func pipePair() (w *os.File, r *os.File, err error) {
	r, w, err = os.Pipe()
	return w, r, err
}

// reap waits for every producer, records the outcome and closes exited
func (p *Pipeline) reap() {
	var errs []error
	for i, cmd := range p.cmds {
		if err := cmd.Wait(); err != nil {
			name := filepath.Base(cmd.Path)
			if msg := p.stderr[i].String(); msg != "" {
				err = fmt.Errorf("%s: %w: %s", name, err, msg)
			} else {
				err = fmt.Errorf("%s: %w", name, err)
			}
			errs = append(errs, err)
		}
	}

	clean := len(errs) == 0 && !p.killed.Load()
	logger := log.With(map[string]any{"stream": p.id})
	if clean {
		logger.Infof("producers finished, cached %d bytes", p.CachedBytes())
	} else if len(errs) > 0 && !p.killed.Load() {
		logger.Errorf("producers failed: %v", errors.Join(errs...))
	}

	if len(errs) > 0 {
		p.exitErr = errors.Join(errs...)
	}
	if p.onExit != nil {
		p.onExit(clean)
	}
	close(p.exited)
}

// Terminate sends SIGTERM to the producers, then SIGKILL if they are still
// running after the grace period. It does not wait longer than that.
func (p *Pipeline) Terminate() {
	p.mu.Lock()
	pgid := p.pgid
	p.mu.Unlock()

	select {
	case <-p.exited:
		return
	default:
	}
	if pgid == 0 {
		return
	}

	p.killed.Store(true)
	if err := signalGroup(pgid, unix.SIGTERM); err != nil {
		log.Warnf("signal stream %s: %v", p.id, err)
	}

	select {
	case <-p.exited:
		return
	case <-time.After(p.opts.Grace):
	}

	signalGroup(pgid, unix.SIGKILL)
	select {
	case <-p.exited:
	case <-time.After(p.opts.Grace):
		log.Warnf("stream %s producers did not exit after SIGKILL", p.id)
	}
}

// Finish gives producers the grace period to exit on their own after the
// consumer drained the FIFO, then terminates whatever is left.
func (p *Pipeline) Finish() {
	select {
	case <-p.exited:
		return
	case <-time.After(p.opts.Grace):
	}
	p.Terminate()
}

// Cleanup unlinks the FIFO
func (p *Pipeline) Cleanup() {
	if err := os.Remove(p.fifoPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("remove fifo %s: %v", p.fifoPath, err)
	}
}
