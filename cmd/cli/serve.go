package cli

import (
	"context"
	"net/http"

	"github.com/biodiversity-atlas/publishing-ui/internal/appconfig"
	"github.com/biodiversity-atlas/publishing-ui/internal/collectory"
	"github.com/biodiversity-atlas/publishing-ui/internal/events"
	"github.com/biodiversity-atlas/publishing-ui/internal/health"
	"github.com/biodiversity-atlas/publishing-ui/internal/licence"
	"github.com/biodiversity-atlas/publishing-ui/internal/middleware"
	"github.com/biodiversity-atlas/publishing-ui/internal/publishapi"
	"github.com/biodiversity-atlas/publishing-ui/internal/session"
	"github.com/biodiversity-atlas/publishing-ui/internal/ui"
	"github.com/biodiversity-atlas/publishing-ui/internal/version"
	"github.com/biodiversity-atlas/publishing-ui/internal/workflow"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Serve wires the application together and returns the configured http
// server, ready for ListenAndServe.
func Serve(ctx context.Context, appConfig appconfig.AppConfig) (*http.Server, error) {

	session.Init(appConfig.SessionKey, appConfig.Environment != "DEV")

	if appConfig.OauthConfig == nil {
		appConfig.OauthConfig = &appconfig.OauthConfig{}
	}

	if shutdown, err := InitTracerProvider(ctx); err != nil {
		logger.Warn("tracing disabled", "error", err)
	} else {
		go func() {
			<-ctx.Done()
			shutdown(context.Background())
		}()
	}

	licences := licence.Default()
	if appConfig.LicenceConfigFile != "" {
		t, err := licence.LoadFile(appConfig.LicenceConfigFile)
		if err != nil {
			logger.Error("error loading licence config, using builtin table", "file", appConfig.LicenceConfigFile, "error", err)
		} else {
			licences = t
		}
	}

	api := publishapi.New(appConfig.PublishAPIBaseURL)
	health.Register(api)

	collections := collectory.New(appConfig.CollectoryBaseURL)
	health.Register(collections)

	publishers, bus := NewEventPublishers(appConfig)

	registry := session.NewRegistry(func() *workflow.Controller {
		return workflow.NewController(workflow.Config{
			MaxUploadBytes: appConfig.MaxUploadBytes,
			AcceptedTypes:  appConfig.AcceptedMimeTypes(),
			AdminRole:      appConfig.OauthConfig.AdminRole,
			PublisherRole:  appConfig.OauthConfig.PublisherRole,
			Licences:       licences,
		}, api, publishers)
	})

	var cache events.Cache
	if appConfig.RedisConnectionString != "" {
		rc, err := events.NewRedisCache(appConfig.RedisConnectionString)
		if err != nil {
			logger.Error("error connecting to redis, falling back to in-memory cache", "error", err)
		} else {
			health.Register(rc)
			cache = rc
		}
	}
	feed := events.NewFeed(api, collections, cache)
	if appConfig.EventsPollInterval > 0 {
		feed.Interval = appConfig.EventsPollInterval
	}
	go feed.Run(ctx)

	authMiddleware, err := middleware.NewAuthMiddleware(ctx, *appConfig.OauthConfig)
	if err != nil {
		logger.Error("error initializing auth middleware", "error", err)
		return nil, err
	}

	uiServer := ui.New(&appConfig, registry, api, collections, feed, authMiddleware, licences)

	setupMetrics(ctx, bus, registry)

	protect := csrf.Protect(
		[]byte(appConfig.CsrfToken),
		csrf.Secure(appConfig.Environment != "DEV"),
		csrf.Path("/"),
	)

	mux := http.NewServeMux()
	mux.Handle("/info", appconfig.Handler())
	mux.Handle("/health", health.Handler())
	mux.Handle("/version", version.Handler())
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", protect(uiServer.Router()))

	return &http.Server{
		Addr:    appConfig.UIPort,
		Handler: mux,
	}, nil
}
