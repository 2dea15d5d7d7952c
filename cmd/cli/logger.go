package cli

import (
	"log/slog"
	"os"

	"github.com/biodiversity-atlas/publishing-ui/internal/appconfig"
	"github.com/biodiversity-atlas/publishing-ui/pkg/sloger"
)

var logger = sloger.With("pkg", "cli")

// AppLogger, this is the custom application logger for uniformity
func AppLogger(appConfig appconfig.AppConfig) *slog.Logger {

	// Configure debug on if needed, otherwise should be off
	opts := &slog.HandlerOptions{
		AddSource: true,
	} // .opts

	if appConfig.LoggerDebugOn {
		opts.Level = slog.LevelDebug

	} // .if

	logger := slog.New(slog.NewJSONHandler(os.Stdout, opts))

	appLogger := logger.With(
		slog.Group("app_info",
			slog.String("System", "ATLAS"),
			slog.String("Product", "DATA PUBLISHING"),
			slog.String("App", "publishing ui"),
			slog.String("Env", appConfig.Environment),
		)) // .appLogger

	return appLogger
} // .AppLogger
