//go:build wireinject
// +build wireinject

package main

import (
	"bc-history/internal/app"
	"bc-history/internal/barchart"
	"bc-history/internal/bulk"

	"github.com/google/wire"
)

// App holds application dependencies built by Wire.
type App struct {
	Config     *app.Config
	Downloader *bulk.Downloader
}

// InitializeApp builds App (Config + Downloader) via Wire.
func InitializeApp(cfg *app.Config) (*App, error) {
	wire.Build(
		app.ProvideCredentials,
		app.ProvideHTTPClient,
		app.ProvideBarchartClient,
		app.ProvidePacketSaver,
		app.ProvideDownloader,
		wire.Bind(new(bulk.Fetcher), new(*barchart.Client)),
		wire.Struct(new(App), "Config", "Downloader"),
	)
	return nil, nil
}
