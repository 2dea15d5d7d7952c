// Package ui serves the server-rendered publishing frontend: upload form,
// validation preview, metadata entry and live publishing status.
package ui

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/biodiversity-atlas/publishing-ui/internal/appconfig"
	"github.com/biodiversity-atlas/publishing-ui/internal/collectory"
	"github.com/biodiversity-atlas/publishing-ui/internal/dwca"
	"github.com/biodiversity-atlas/publishing-ui/internal/events"
	"github.com/biodiversity-atlas/publishing-ui/internal/licence"
	"github.com/biodiversity-atlas/publishing-ui/internal/middleware"
	"github.com/biodiversity-atlas/publishing-ui/internal/oauth"
	"github.com/biodiversity-atlas/publishing-ui/internal/publishapi"
	"github.com/biodiversity-atlas/publishing-ui/internal/session"
	"github.com/biodiversity-atlas/publishing-ui/internal/workflow"
	"github.com/biodiversity-atlas/publishing-ui/pkg/sloger"
	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
)

var logger *slog.Logger

func init() {
	type Empty struct{}
	pkgParts := strings.Split(reflect.TypeOf(Empty{}).PkgPath(), "/")
	// add package name to app logger
	logger = sloger.With("pkg", pkgParts[len(pkgParts)-1])
}

// content holds our static web server content.
//
//go:embed assets/* components/* *.tmpl
var content embed.FS

func FormatDateTime(dateTimeString string) string {
	if dateTimeString == "" {
		return ""
	}
	date, err := time.Parse(time.RFC3339, dateTimeString)
	if err != nil {
		return dateTimeString
	}
	return date.Format(time.RFC850)
}

func HumanSize(bytes int64) string {
	return humanize.Bytes(uint64(bytes))
}

var usefulFuncs = template.FuncMap{
	"Comma":          humanize.Comma,
	"FormatDateTime": FormatDateTime,
	"HumanSize":      HumanSize,
}

func page(name string) *template.Template {
	return template.Must(template.New(name).Funcs(usefulFuncs).ParseFS(content, name, "components/navbar.html", "components/stepper.html"))
}

var (
	uploadTemplate     = page("upload.tmpl")
	previewTemplate    = page("preview.tmpl")
	metadataTemplate   = page("metadata.tmpl")
	publishingTemplate = page("publishing.tmpl")
	failedTemplate     = page("failed.tmpl")
	eventsTemplate     = page("events.tmpl")
	datasetsTemplate   = page("datasets.tmpl")
	loginTemplate      = page("login.tmpl")
)

var StaticHandler = http.FileServer(http.FS(content))

// baseData is shared by every workflow page: the signed-in user for the
// navbar and the current step for the stepper.
type baseData struct {
	User      *oauth.Identity
	Step      string
	StepIndex int
	CSRFField template.HTML
}

type uploadData struct {
	baseData
	MaxSize string
	Error   string
}

type previewData struct {
	baseData
	Session workflow.Session
	Checks  []dwca.FieldCheck
}

type metadataData struct {
	baseData
	Session  workflow.Session
	Licences []licence.Licence
	Error    string
}

type publishingData struct {
	baseData
	RequestID     string
	Status        *publishapi.JobStatus
	CollectoryURL string
	BiocacheURL   string
	Done          bool
}

type failedData struct {
	baseData
	Session workflow.Session
}

type eventsData struct {
	User      *oauth.Identity
	Runs      []publishapi.JobRun
	Refreshed string
}

type datasetsData struct {
	User          *oauth.Identity
	Resources     []collectory.DataResource
	CollectoryURL string
	BiocacheURL   string
}

type loginData struct {
	User      *oauth.Identity
	CSRFField template.HTML
	Error     string
}

type Server struct {
	cfg         *appconfig.AppConfig
	registry    *session.Registry
	api         *publishapi.Client
	collections *collectory.Client
	feed        *events.Feed
	auth        *middleware.AuthMiddleware
	licences    *licence.Table
	hubs        *statusHubs
}

func New(cfg *appconfig.AppConfig, registry *session.Registry, api *publishapi.Client, collections *collectory.Client, feed *events.Feed, auth *middleware.AuthMiddleware, licences *licence.Table) *Server {
	if licences == nil {
		licences = licence.Default()
	}
	return &Server{
		cfg:         cfg,
		registry:    registry,
		api:         api,
		collections: collections,
		feed:        feed,
		auth:        auth,
		licences:    licences,
		hubs:        newStatusHubs(),
	}
}

func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(withRequestId)

	r.PathPrefix("/assets/").Handler(StaticHandler)
	r.HandleFunc("/login", s.loginPage).Methods(http.MethodGet)
	r.HandleFunc("/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.logout).Methods(http.MethodPost)

	app := r.NewRoute().Subrouter()
	app.Use(s.auth.VerifyUserSession)
	app.HandleFunc("/", s.home).Methods(http.MethodGet)
	app.HandleFunc("/upload", s.upload).Methods(http.MethodPost)
	app.HandleFunc("/advance", s.advance).Methods(http.MethodPost)
	app.HandleFunc("/publish", s.publish).Methods(http.MethodPost)
	app.HandleFunc("/reset", s.reset).Methods(http.MethodPost)
	app.HandleFunc("/step", s.goToStep).Methods(http.MethodPost)
	app.HandleFunc("/events", s.events).Methods(http.MethodGet)
	app.HandleFunc("/datasets", s.datasets).Methods(http.MethodGet)
	app.HandleFunc("/api/session", s.apiSession).Methods(http.MethodGet)
	app.HandleFunc("/api/status/{request_id}", s.apiStatus).Methods(http.MethodGet)
	app.HandleFunc("/ws/status/{request_id}", s.statusSocket).Methods(http.MethodGet)

	return r
}

// entry resolves the workflow controller bound to the browser session,
// creating one on first use.
func (s *Server) entry(w http.ResponseWriter, r *http.Request) *session.Entry {
	sess, _ := session.Store().Get(r, middleware.UserSessionCookieName)
	id, _ := sess.Values["workflow"].(string)
	if id == "" {
		id = newWorkflowID()
		sess.Values["workflow"] = id
		if err := sess.Save(r, w); err != nil {
			sloger.FromContext(r.Context()).Error("failed to save session cookie", "error", err.Error())
		}
	}
	return s.registry.Get(id)
}

func render(w http.ResponseWriter, t *template.Template, data any) {
	if err := t.Execute(w, data); err != nil {
		logger.Error("template render failed", "template", t.Name(), "error", err.Error())
	}
}

func stepIndex(step workflow.Step) int {
	switch step {
	case workflow.StepIdle, workflow.StepUploading, workflow.StepFailed:
		return 0
	case workflow.StepPreview:
		return 1
	case workflow.StepMetadataEntry:
		return 2
	case workflow.StepPublishing:
		return 3
	default:
		return 4
	}
}
