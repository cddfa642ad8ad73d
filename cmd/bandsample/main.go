package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/siiimooon/bluetooth"
	"github.com/siiimooon/go-band/internal/config"
	"github.com/siiimooon/go-band/internal/telemetry"
	"github.com/siiimooon/go-band/internal/tui"
	"github.com/siiimooon/go-band/pkg/band"
	"github.com/siiimooon/go-band/pkg/sampler"
	"github.com/sirupsen/logrus"
)

type flags struct {
	configPath string
	envFile    string
	headless   bool
	removeTile bool
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "path to a YAML configuration file")
	flag.StringVar(&f.envFile, "env-file", ".env", "dotenv file with BANDSAMPLE_* overrides")
	flag.BoolVar(&f.headless, "headless", false, "run one action without the terminal UI and print status lines")
	flag.BoolVar(&f.removeTile, "remove-tile", false, "with -headless, remove the sample tile instead of sampling")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bandsample [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Connects to a paired band, adds a tile and shows skin temperature readings.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	return f
}

func run(f flags) error {
	cfg, err := config.Load(f.configPath, f.envFile)
	if err != nil {
		return err
	}

	// the terminal UI owns stdout, so logs only go to a file there
	var fallback io.Writer = io.Discard
	if f.headless {
		fallback = os.Stderr
	}
	logger, closer, err := cfg.Log.Logger(fallback)
	if err != nil {
		return err
	}
	defer closer.Close()
	log := logrus.NewEntry(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracing, err := telemetry.Setup(ctx)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("flushing traces failed")
		}
	}()

	manager := band.NewManager(bluetooth.DefaultAdapter,
		band.WithNamePrefix(cfg.Device.NamePrefix),
		band.WithScanTimeout(cfg.Device.ScanTimeout),
		band.WithLogger(log),
	)

	if f.headless {
		display := sampler.DisplayFunc(func(text string) {
			fmt.Println(text)
		})
		s := sampler.New(sampler.FromManager(manager), display, cfg.SamplerOptions(),
			sampler.WithLogger(log), sampler.WithTracer(tracing.Tracer))
		if f.removeTile {
			return s.RemoveTile(ctx)
		}
		return s.Run(ctx)
	}

	display := tui.NewDisplay(16)
	s := sampler.New(sampler.FromManager(manager), display, cfg.SamplerOptions(),
		sampler.WithLogger(log), sampler.WithTracer(tracing.Tracer))
	_, err = tea.NewProgram(tui.NewModel(ctx, s, display), tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func main() {
	f := parseFlags()
	if err := run(f); err != nil {
		fmt.Fprintf(os.Stderr, "bandsample: %v\n", err)
		os.Exit(1)
	}
}
