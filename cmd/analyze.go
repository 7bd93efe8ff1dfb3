// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"pav/internal/analysis"
	"pav/internal/config"
	applog "pav/internal/log"
	"pav/internal/source"
	"pav/internal/transport"
	"pav/internal/tui"

	"github.com/spf13/cobra"
)

var logger = applog.For("cli")

func newAnalyzeCommand(opts *options) *cobra.Command {
	var live bool

	analyzeCmd := &cobra.Command{
		Use:   "analyze <file|->",
		Short: "Analyze an audio file or raw stream and emit one report per frame",
		Long: `Analyze cuts the input into frames and writes a report per frame.

Files are decoded by extension (.wav, .mp3, .flac, .ogg, .raw, .pcm).
Use - to read a raw PCM stream from stdin, laid out by the source settings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !cmd.Flags().Changed("live") {
				live = path == "-"
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sink, err := openSink(opts.cfg.Output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if opts.cfg.Output.Format == config.OutputLog && applog.GetLevel() > applog.LevelDebug {
				logger.Warnf("log output is written at DEBUG, run with --log-level debug to see reports")
			}

			p := &pipeline{cfg: opts.cfg, sink: sink, live: live, stdin: cmd.InOrStdin()}
			sum, err := p.run(ctx, path)
			if cerr := sink.Close(); err == nil {
				err = cerr
			}
			if errors.Is(err, context.Canceled) {
				err = nil
			}
			if err != nil {
				return err
			}

			sum.print(cmd.ErrOrStderr())
			return nil
		},
	}
	analyzeCmd.Flags().BoolVar(&live, "live", false,
		"Skip stale frames when analysis falls behind. Default is on for stdin")
	return analyzeCmd
}

func newBrowseCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "browse <file>",
		Short: "Analyze a file and step through its frames in a terminal UI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			collector := &reportCollector{}

			p := &pipeline{cfg: opts.cfg, sink: collector, stdin: cmd.InOrStdin()}
			if _, err := p.run(cmd.Context(), path); err != nil {
				return err
			}
			return tui.StartFrameBrowser(filepath.Base(path), collector.reports)
		},
	}
}

// writerOnly hides Close so a transport cannot close stdout.
type writerOnly struct{ io.Writer }

// openSink builds the transport selected by the output settings.
func openSink(out config.OutputConfig, stdout io.Writer) (transport.Transport, error) {
	var w io.Writer = writerOnly{stdout}
	if out.Path != "" && out.Path != "-" && (out.Format == config.OutputJSON || out.Format == config.OutputPacket) {
		f, err := os.Create(out.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
		w = f
	}

	switch out.Format {
	case config.OutputJSON:
		return transport.NewJSONTransport(w), nil
	case config.OutputPacket:
		return transport.NewPacketTransport(w), nil
	case config.OutputLog:
		return transport.NewLoggingTransport(), nil
	default:
		return transport.NewMultiTransport(), nil
	}
}

// reportCollector keeps every report in memory.
type reportCollector struct {
	reports []analysis.FrameReport
}

func (c *reportCollector) Send(data any) error {
	report, ok := data.(analysis.FrameReport)
	if !ok {
		return fmt.Errorf("collector: unexpected value %T", data)
	}
	c.reports = append(c.reports, report)
	return nil
}

func (c *reportCollector) Close() error { return nil }

// pipeline reads frames from a source, analyzes them and sends the reports.
type pipeline struct {
	cfg   *config.Config
	sink  transport.Transport
	live  bool
	stdin io.Reader
}

type summary struct {
	path       string
	sampleRate float64
	channels   int
	frames     int
	live       bool
	feed       analysis.FeedStats
	elapsed    time.Duration
}

func (s summary) print(w io.Writer) {
	fmt.Fprintf(w, "analyzed %d frames of %s (%.0f Hz, %d channels) in %s\n",
		s.frames, s.path, s.sampleRate, s.channels, s.elapsed.Round(time.Millisecond))
	if s.live {
		fmt.Fprintf(w, "feed: %d received, %d analyzed, %d dropped (%.1f%%)\n",
			s.feed.Received, s.feed.Analyzed, s.feed.Dropped, 100*s.feed.DropRatio())
	}
}

func (p *pipeline) run(ctx context.Context, path string) (summary, error) {
	a := p.cfg.Analysis
	src, err := source.Open(path, source.Options{
		FrameSize:    a.FrameSize,
		Hop:          a.Hop(),
		SampleRate:   a.SampleRate,
		Channels:     p.cfg.Source.Channels,
		SampleFormat: p.cfg.Source.SampleFormat,
		ByteOrder:    p.cfg.Source.ByteOrder,
		Stdin:        p.stdin,
	})
	if err != nil {
		return summary{}, err
	}
	defer src.Close()

	engine, err := analysis.NewEngine(src.SampleRate())
	if err != nil {
		return summary{}, err
	}

	sum := summary{
		path:       path,
		sampleRate: src.SampleRate(),
		channels:   src.Channels(),
		live:       p.live,
	}
	logger.Infof("analyzing %s: %.0f Hz, %d channels, frame %d, hop %d",
		path, sum.sampleRate, sum.channels, a.FrameSize, a.Hop())

	analyze := func(frame []float64) error {
		if err := engine.Update(frame); err != nil {
			return err
		}
		report, err := engine.Report(a.MelBands)
		if err != nil {
			return err
		}
		sum.frames++
		return p.sink.Send(report)
	}

	start := time.Now()
	if p.live {
		sum.feed, err = runLive(ctx, src, a.FeedCapacity, analyze)
	} else {
		err = runAll(ctx, src, analyze)
	}
	sum.elapsed = time.Since(start)
	return sum, err
}

// runAll analyzes every frame in order.
func runAll(ctx context.Context, src source.Source, analyze func([]float64) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := analyze(frame); err != nil {
			return err
		}
	}
}

// runLive reads frames on a separate goroutine and hands them to analyze
// through a Feed, so a slow consumer skips to the newest frame.
func runLive(ctx context.Context, src source.Source, capacity int, analyze func([]float64) error) (analysis.FeedStats, error) {
	feed, err := analysis.NewFeed(capacity)
	if err != nil {
		return analysis.FeedStats{}, err
	}

	readErr := make(chan error, 1)
	go func() {
		defer feed.Close()
		for {
			frame, err := src.Next()
			if errors.Is(err, io.EOF) {
				readErr <- nil
				return
			}
			if err != nil {
				readErr <- err
				return
			}
			if err := feed.Push(frame); err != nil {
				// Consumer stopped.
				readErr <- nil
				return
			}
		}
	}()

	for {
		frame, err := feed.Next(ctx)
		if errors.Is(err, analysis.ErrFeedClosed) {
			break
		}
		if err == nil {
			err = analyze(frame)
		}
		if err != nil {
			// The reader may be blocked on input; it exits on its next push.
			feed.Close()
			return feed.Stats(), err
		}
	}

	stats := feed.Stats()
	if stats.Dropped > 0 {
		logger.Warnf("dropped %d of %d frames (%.1f%%)", stats.Dropped, stats.Received, 100*stats.DropRatio())
	}
	return stats, <-readErr
}
