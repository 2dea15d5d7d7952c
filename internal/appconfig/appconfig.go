package appconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/biodiversity-atlas/publishing-ui/pkg/sloger"
	"github.com/sethvargo/go-envconfig"
) // .import

var logger *slog.Logger

func init() {
	type Empty struct{}
	pkgParts := strings.Split(reflect.TypeOf(Empty{}).PkgPath(), "/")
	// add package name to app logger
	logger = sloger.With("pkg", pkgParts[len(pkgParts)-1])
}

type RootResp struct {
	System     string `json:"system"`
	Product    string `json:"product"`
	App        string `json:"app"`
	ServerTime string `json:"server_time"`
} // .rootResp

type AppConfig struct {

	// App and for Logger
	LoggerDebugOn bool `env:"LOGGER_DEBUG_ON"`

	Environment string `env:"ENVIRONMENT, default=DEV"`

	// Server
	UIPort    string `env:"UI_PORT, default=:8080"`
	CsrfToken string `env:"CSRF_TOKEN, default=1qQBJumxRABFBLvaz5PSXBcXLE84viE42x4Aev359DvLSvzjbXSme3whhFkESatW"`
	// WARNING: the default CsrfToken value is for local development use only, it needs to be replaced by a secret 32 byte string before being used in production
	SessionKey string `env:"SESSION_KEY, default=local-dev-session-key"`

	// External publishing service
	PublishAPIBaseURL  string        `env:"PUBLISH_API_BASE_URL, default=http://localhost:8000"`
	StatusPollInterval time.Duration `env:"STATUS_POLL_INTERVAL, default=5s"`
	EventsPollInterval time.Duration `env:"EVENTS_POLL_INTERVAL, default=30s"`

	// Atlas collaborators
	CollectoryBaseURL string `env:"COLLECTORY_BASE_URL, default=https://collections.example.org"`
	BiocacheBaseURL   string `env:"BIOCACHE_BASE_URL, default=https://records.example.org"`

	// Upload gating
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES, default=1073741824"`
	AcceptedTypes  string `env:"ACCEPTED_MIME_TYPES, default=application/zip,application/x-zip,application/x-zip-compressed"`

	// Recognised licence overrides, optional YAML file extending the builtin table
	LicenceConfigFile string `env:"LICENCE_CONFIG_FILE"`

	// Local audit trail of workflow transitions
	LocalEventsFolder string `env:"LOCAL_EVENTS_FOLDER, default=./events"`

	// oauth
	OauthConfig *OauthConfig `env:", prefix=OAUTH_"`

	// Optional redis cache for events/collectory lookups
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING"`

	// Derived
	ValidateEndpointUrl string
	PublishEndpointUrl  string
	StatusEndpointUrl   string
	EventsEndpointUrl   string
} // .AppConfig

type OauthConfig struct {
	AuthEnabled    bool   `env:"AUTH_ENABLED, default=false"`
	IssuerUrl      string `env:"ISSUER_URL"`
	ClientId       string `env:"CLIENT_ID"`
	RequiredScopes string `env:"REQUIRED_SCOPES"`
	AdminRole      string `env:"ADMIN_ROLE, default=ROLE_ADMIN"`
	PublisherRole  string `env:"PUBLISHER_ROLE, default=ROLE_DATA_PUBLISHER"`
}

func (conf *AppConfig) AcceptedMimeTypes() []string {
	var types []string
	for _, t := range strings.Split(conf.AcceptedTypes, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}
	return types
}

func (conf *AppConfig) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	jsonResp, err := json.Marshal(RootResp{
		System:     "ATLAS",
		Product:    "DATA PUBLISHING",
		App:        "publishing ui",
		ServerTime: time.Now().Format(time.RFC3339Nano),
	}) // .jsonResp
	if err != nil {
		errMsg := "error marshal json for root response"
		logger.Error(errMsg, "error", err.Error())
		http.Error(w, errMsg, http.StatusInternalServerError)
		return
	} // .if

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(jsonResp)
}

var LoadedConfig = &AppConfig{}

func Handler() http.Handler {
	return LoadedConfig
}

// ParseConfig loads app configuration based on environment variables and returns AppConfig struct
func ParseConfig(ctx context.Context) (AppConfig, error) {

	var ac AppConfig
	if err := envconfig.Process(ctx, &ac); err != nil {
		return AppConfig{}, err
	} // .if

	if ac.MaxUploadBytes <= 0 {
		return AppConfig{}, fmt.Errorf("max upload size must be positive, got %d", ac.MaxUploadBytes)
	}

	if ac.OauthConfig != nil && ac.OauthConfig.AuthEnabled && ac.OauthConfig.IssuerUrl == "" {
		return AppConfig{}, &MissingConfigError{ConfigName: "OauthIssuerUrl"}
	}

	base := strings.TrimSuffix(ac.PublishAPIBaseURL, "/")
	ac.ValidateEndpointUrl = base + "/validate"
	ac.PublishEndpointUrl = base + "/validate/publish"
	ac.StatusEndpointUrl = base + "/status"
	ac.EventsEndpointUrl = base + "/events"

	LoadedConfig = &ac
	return ac, nil
} // .ParseConfig
