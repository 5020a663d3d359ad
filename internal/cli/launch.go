package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jscyril/moz/internal/audio"
	"github.com/jscyril/moz/internal/cache"
	"github.com/jscyril/moz/internal/config"
	"github.com/jscyril/moz/internal/filesystem"
	"github.com/jscyril/moz/internal/library"
	"github.com/jscyril/moz/internal/log"
	"github.com/jscyril/moz/internal/stream"
	"github.com/jscyril/moz/internal/transport"
	"github.com/jscyril/moz/internal/ui"
	"github.com/jscyril/moz/internal/where"
	"golang.org/x/term"
)

// openIndex opens the stream cache configured in cfg
func openIndex(cfg *config.Config) (*cache.Index, error) {
	index, err := cache.NewIndex(filesystem.API().Fs, cfg.Cache.Dir, cfg.Cache.Container)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return index, nil
}

// streamOptions maps the stream settings onto the producer chain
func streamOptions(cfg *config.Config) stream.Options {
	return stream.Options{
		Fetcher:        cfg.Stream.Fetcher,
		FetcherArgs:    stream.DefaultFetcherArgs(),
		Transcoder:     cfg.Stream.Transcoder,
		TranscoderArgs: stream.DefaultTranscoderArgs(cfg.Stream.SampleRate),
		Tee:            "tee",
		Site:           cfg.Stream.Site,
		Format:         cfg.Stream.Format,
		Codec:          cfg.Stream.Codec,
		Bitrate:        cfg.Stream.Bitrate,
		Container:      cfg.Cache.Container,
		SampleRate:     cfg.Stream.SampleRate,
		TempDir:        where.Temp(),
		PreRoll:        cfg.Stream.PreRoll,
		Grace:          cfg.Stream.Grace,
	}
}

// checkOutput opens and releases one sink so an unreachable audio server
// fails the launch instead of the first track
func checkOutput(sinks audio.SinkFactory, rate int) error {
	if rate <= 0 {
		rate = 44100
	}
	sink, err := sinks(rate, 2, func(out []float32) int {
		clear(out)
		return len(out) / 2
	})
	if err != nil {
		return fmt.Errorf("audio output unavailable: %w", err)
	}
	if err := sink.Destroy(); err != nil {
		return fmt.Errorf("audio output unavailable: %w", err)
	}
	return nil
}

// newTransport builds the engine and the cache, then joins them in a transport
func newTransport(cfg *config.Config) (*transport.Transport, error) {
	sinks, err := audio.NewSinkFactory(cfg.Audio.Backend, cfg.Audio.Buffer)
	if err != nil {
		return nil, err
	}

	// The oto device keeps the rate of its first sink, so it is only opened early when that rate is fixed
	if !strings.EqualFold(cfg.Audio.Backend, audio.BackendOto) || cfg.Stream.SampleRate > 0 {
		if err := checkOutput(sinks, cfg.Stream.SampleRate); err != nil {
			return nil, err
		}
	}

	opts := audio.DefaultDecoderOptions()
	if cfg.Audio.PipeOpen > 0 {
		opts.PipeOpenTimeout = cfg.Audio.PipeOpen
	}
	if cfg.Audio.UnderrunWait > 0 {
		opts.UnderrunWait = cfg.Audio.UnderrunWait
	}

	index, err := openIndex(cfg)
	if err != nil {
		return nil, err
	}

	engine := audio.NewEngine(audio.NewDecoderOpener(opts), sinks, audio.WithTick(cfg.TickInterval))
	return transport.New(engine, index, transport.StreamFactory(streamOptions(cfg)), transport.WithSettle(cfg.Stream.Settle)), nil
}

// launch wires the player and runs the TUI until it quits or a signal arrives
func launch(cfg *config.Config, opts ui.Options) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("moz needs an interactive terminal")
	}

	tp, err := newTransport(cfg)
	if err != nil {
		return err
	}
	defer tp.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts.Player = tp
	opts.Library = library.NewLibrary(cfg.Library.Workers)
	opts.Searcher = stream.NewSearcher(cfg.Stream.Fetcher, cfg.Search.Limit, where.SearchCache(cfg.Cache.Dir), cfg.Search.Lifetime)
	opts.Tick = cfg.TickInterval

	log.Infof("starting with backend %s, cache %s", cfg.Audio.Backend, cfg.Cache.Dir)
	if err := ui.Run(ctx, opts); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
