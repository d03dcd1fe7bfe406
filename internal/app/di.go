package app

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"bc-history/internal/barchart"
	"bc-history/internal/bulk"
	"bc-history/internal/saver"
	"bc-history/internal/slogx"
)

// ProvideCredentials extracts the vendor tokens (for Wire).
func ProvideCredentials(cfg *Config) barchart.Credentials {
	return cfg.Credentials()
}

// ProvideHTTPClient builds the HTTP client with timeout, proxy and optional rate limit (for Wire).
func ProvideHTTPClient(cfg *Config) barchart.Doer {
	return barchart.NewLimitedClient(barchart.NewHTTPClient(cfg.Timeout, cfg.Proxy), cfg.RateLimit)
}

// ProvideBarchartClient creates the history client (for Wire).
func ProvideBarchartClient(cfg *Config, creds barchart.Credentials, doer barchart.Doer) (*barchart.Client, error) {
	return barchart.NewClient(creds,
		barchart.WithBaseURL(cfg.BaseURL),
		barchart.WithHTTPClient(doer),
	)
}

// ProvidePacketSaver creates the export saver from config (for Wire).
// An empty SaveFormat disables export and returns nil.
func ProvidePacketSaver(cfg *Config) (saver.PacketSaver, error) {
	if strings.TrimSpace(cfg.SaveFormat) == "" {
		return nil, nil
	}
	ps := saver.NewPacketSaver(cfg.SaveFormat)
	if ps == nil {
		return nil, fmt.Errorf("unsupported SAVE_FORMAT %q (use: %s)", cfg.SaveFormat, strings.Join(saver.Formats, ", "))
	}
	return ps, nil
}

// ProvideDownloader wires the fetcher and saver into a bulk downloader (for Wire).
func ProvideDownloader(cfg *Config, f bulk.Fetcher, ps saver.PacketSaver) *bulk.Downloader {
	return bulk.NewDownloader(f, bulk.Options{
		Workers:   cfg.Workers,
		SaveDir:   cfg.DataDir,
		Saver:     ps,
		Heartbeat: cfg.Heartbeat,
		Logger:    slog.Default(),
		LogOutput: os.Stderr,
		LogLevel:  slogx.ParseLevel(cfg.LogLevel),
	})
}
