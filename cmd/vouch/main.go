package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vouchtool/vouch/internal/config"
	"github.com/vouchtool/vouch/internal/control"
	"github.com/vouchtool/vouch/internal/digest"
	"github.com/vouchtool/vouch/internal/engine"
	"github.com/vouchtool/vouch/internal/event"
	"github.com/vouchtool/vouch/internal/stats"
	"github.com/vouchtool/vouch/internal/ui"
)

var version = "dev"

var errCancelled = errors.New("cancelled")

func main() {
	os.Exit(run())
}

// sizeValue is a pflag.Value that parses byte counts like "16M".
type sizeValue int64

func (s *sizeValue) String() string { return strconv.FormatInt(int64(*s), 10) }
func (*sizeValue) Type() string     { return "size" }

func (s *sizeValue) Set(v string) error {
	n, err := config.ParseSize(v)
	if err != nil {
		return err
	}
	*s = sizeValue(n)
	return nil
}

var _ pflag.Value = (*sizeValue)(nil)

func run() int {
	var (
		workers     int
		bufSize     sizeValue
		bwLimit     sizeValue
		noVerify    bool
		algoName    string
		flatten     bool
		excludes    []string
		includes    []string
		quiet       bool
		verbose     bool
		showVersion bool
	)

	rootCmd := &cobra.Command{
		Use:   "vouch [flags] <source>... <destination>",
		Short: "Copy files and prove each copy by re-reading the destination from storage",
		Args: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				return nil
			}
			return cobra.MinimumNArgs(2)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintf(os.Stdout, "vouch %s\n", version)
				return nil
			}

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			if quiet {
				level = slog.LevelError
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))

			// Config file supplies defaults for flags the user did not set.
			fileCfg, err := config.Load()
			if err != nil {
				slog.Warn("ignoring unreadable config file", "path", config.Path(), "error", err)
			}
			d := fileCfg.Defaults
			if !cmd.Flags().Changed("workers") && d.Workers != nil {
				workers = *d.Workers
			}
			if !cmd.Flags().Changed("no-verify") && d.Verify != nil {
				noVerify = !*d.Verify
			}
			if !cmd.Flags().Changed("algorithm") && d.Algorithm != nil {
				algoName = *d.Algorithm
			}
			if !cmd.Flags().Changed("buffer-size") && d.BufferSize != nil {
				if err := bufSize.Set(*d.BufferSize); err != nil {
					return fmt.Errorf("config buffer_size: %w", err)
				}
			}
			if !cmd.Flags().Changed("bwlimit") && d.BWLimit != nil {
				if err := bwLimit.Set(*d.BWLimit); err != nil {
					return fmt.Errorf("config bwlimit: %w", err)
				}
			}

			algo, err := digest.ParseAlgorithm(algoName)
			if err != nil {
				return err
			}

			sources := args[:len(args)-1]
			dst := args[len(args)-1]

			return runCopy(cmd.Context(), engine.BatchConfig{
				Sources:     sources,
				Destination: dst,
				Workers:     workers,
				BufferSize:  int(bufSize),
				ComputeHash: !noVerify,
				Algorithm:   algo,
				BytesPerSec: int64(bwLimit),
				Flatten:     flatten,
				Excludes:    excludes,
				Includes:    includes,
			}, quiet, verbose)
		},
	}

	flags := rootCmd.Flags()
	flags.IntVarP(&workers, "workers", "w", 4, "number of concurrent copy operations")
	flags.Var(&bufSize, "buffer-size", "chunk buffer size, e.g. 1M (clamped to 8K-10M; 0 = 16M default)")
	flags.Var(&bwLimit, "bwlimit", "aggregate bandwidth cap, e.g. 50M (0 = unlimited)")
	flags.BoolVar(&noVerify, "no-verify", false, "skip hashing and destination verification")
	flags.StringVar(&algoName, "algorithm", "sha256", "digest algorithm (sha256 or blake3)")
	flags.BoolVar(&flatten, "flatten", false, "drop source directory structure at the destination")
	flags.StringArrayVar(&excludes, "exclude", nil, "glob pattern to exclude (repeatable)")
	flags.StringArrayVar(&includes, "include", nil, "glob pattern overriding excludes (repeatable)")
	flags.BoolVarP(&quiet, "quiet", "q", false, "errors only")
	flags.BoolVarP(&verbose, "verbose", "v", false, "per-chunk progress output")
	flags.BoolVar(&showVersion, "version", false, "print version and exit")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errCancelled) {
			fmt.Fprintln(os.Stderr, "cancelled")
			return 130
		}
		fmt.Fprintf(os.Stderr, "vouch: %v\n", err)
		return 1
	}
	return 0
}

func runCopy(ctx context.Context, cfg engine.BatchConfig, quiet, verbose bool) error {
	events := make(chan event.Event, 256)
	collector := stats.NewCollector()
	cfg.Events = events
	cfg.Stats = collector

	ctl := &control.Control{Sink: event.NewChannelSink(events)}

	// Signal-driven cooperative cancellation: running loops stop at
	// their next chunk boundary.
	go func() {
		<-ctx.Done()
		ctl.Cancel()
	}()

	out := os.Stdout
	if quiet {
		devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
		if err == nil {
			defer devNull.Close()
			out = devNull
		}
	}
	presenter := &ui.Presenter{W: out, ErrW: os.Stderr, Stats: collector, Verbose: verbose}
	presenterDone := make(chan struct{})
	go func() {
		defer close(presenterDone)
		presenter.Run(events)
	}()

	result, err := engine.RunBatch(ctx, cfg, ctl)
	close(events)
	<-presenterDone

	if err != nil {
		return err
	}
	if !quiet {
		fmt.Fprintln(os.Stderr, presenter.Summary())
	}
	if result.Cancelled {
		return errCancelled
	}
	return result.Err()
}
