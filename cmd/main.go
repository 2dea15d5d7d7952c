package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"testing"

	"github.com/biodiversity-atlas/publishing-ui/cmd/cli"
	"github.com/biodiversity-atlas/publishing-ui/internal/appconfig"
	"github.com/biodiversity-atlas/publishing-ui/pkg/sloger"
	"github.com/joho/godotenv"
) // .import

const appMainExitCode = 1

var (
	appConfig appconfig.AppConfig
	logger    *slog.Logger
)

func init() {
	ctx := context.Background()

	// ------------------------------------------------------------------
	// parse and load cli flags
	// ------------------------------------------------------------------
	if !testing.Testing() {
		if err := cli.ParseFlags(); err != nil {
			slog.Error("error starting app, error parsing cli flags", "error", err)
			os.Exit(appMainExitCode)
		} // .if
	}

	if cli.Flags.AppConfigPath != "" {
		slog.Info("Loading environment from", "file", cli.Flags.AppConfigPath)
		if err := godotenv.Load(cli.Flags.AppConfigPath); err != nil {
			slog.Error("error loading local configuration", "error", err)
			os.Exit(appMainExitCode)
		} // .if
	}

	// ------------------------------------------------------------------
	// parse and load config from os exported
	// ------------------------------------------------------------------
	var err error
	appConfig, err = appconfig.ParseConfig(ctx)
	if err != nil {
		slog.Error("error starting app, error parsing app config", "error", err)
		os.Exit(appMainExitCode)
	} // .if

	// ------------------------------------------------------------------
	// configure app custom logging
	// ------------------------------------------------------------------
	logger = cli.AppLogger(appConfig).With("pkg", "main")
	sloger.SetDefaultLogger(logger)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("starting app")

	httpServer, err := cli.Serve(ctx, appConfig)
	if err != nil {
		logger.Error("error starting app, error wiring http server", "error", err)
		os.Exit(appMainExitCode)
	}

	logger.Info("http server ready")

	go func() {
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("error starting app, error starting http server", "error", err, "port", appConfig.UIPort)
			os.Exit(appMainExitCode)
		} // .if
	}() // .go

	logger.Info("started http server", "port", appConfig.UIPort)

	// ------------------------------------------------------------------
	// 	Block for Exit, server above is on goroutine
	// ------------------------------------------------------------------
	<-ctx.Done()

	httpServer.Shutdown(context.Background())

	logger.Info("closing server by os signal", "port", appConfig.UIPort)
} // .main
