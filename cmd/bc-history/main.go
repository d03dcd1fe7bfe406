package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"bc-history/internal/app"
	"bc-history/internal/saver"
	"bc-history/internal/slogx"
)

func init() {
	slog.SetDefault(slogx.NewDefault("info"))
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := app.LoadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	slog.SetDefault(slogx.New(os.Stderr, cfg.LogLevel, cfg.LogFormat))
	slog.Info("config loaded", "config", cfg)

	a, err := InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}

	list, err := app.ResolveTickers(cfg)
	if err != nil {
		return fmt.Errorf("resolve tickers: %w", err)
	}
	slog.Info("got tickers", "count", len(list), "workers", a.Downloader.Workers())

	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}

	return app.RunFlow(ctx, cfg, func(ctx context.Context) error {
		_, err := app.RunOnce(ctx, cfg, a.Downloader, list)
		return err
	})
}

// applyFlags overlays explicitly set flags on cfg.
func applyFlags(cmd *cli.Command, cfg *app.Config) {
	if cmd.IsSet("interval") {
		cfg.Interval = cmd.String("interval")
	}
	if cmd.IsSet("mode") {
		cfg.Mode = cmd.String("mode")
	}
	if cmd.IsSet("ticker") {
		cfg.Tickers = cmd.StringSlice("ticker")
	}
	if cmd.IsSet("tickers-file") {
		cfg.TickersFile = cmd.String("tickers-file")
	}
	if cmd.IsSet("out") {
		cfg.DataDir = cmd.String("out")
	}
	if cmd.IsSet("format") {
		cfg.SaveFormat = cmd.String("format")
	}
	if cmd.IsSet("schedule") {
		cfg.Schedule = cmd.String("schedule")
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "bc-history",
		Usage: "Download historical daily or 5-minute bars from Barchart",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a YAML config file",
			},
			&cli.StringFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Bar interval (daily or 5min)",
				Value:   "5min",
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Download mode (concurrent or sequential)",
				Value: "concurrent",
			},
			&cli.StringSliceFlag{
				Name:    "ticker",
				Aliases: []string{"t"},
				Usage:   "Ticker to download (repeatable). Defaults to the sample list",
			},
			&cli.StringFlag{
				Name:  "tickers-file",
				Usage: "Ticker list file (.txt or .json)",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output directory for exported tables and run reports",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   fmt.Sprintf("Export format (%s)", strings.Join(saver.Formats, ", ")),
			},
			&cli.StringFlag{
				Name:  "schedule",
				Usage: "Cron spec with seconds for recurring runs, e.g. \"0 30 16 * * MON-FRI\". " +
					"In this mode a non-JSON response (quota exhausted) aborts only the current run; " +
					"the process keeps running and retries on the next tick",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("bc-history failed", "error", err)
		stop()
		os.Exit(1)
	}
}
