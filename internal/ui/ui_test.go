package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/biodiversity-atlas/publishing-ui/internal/appconfig"
	"github.com/biodiversity-atlas/publishing-ui/internal/collectory"
	"github.com/biodiversity-atlas/publishing-ui/internal/dwca"
	"github.com/biodiversity-atlas/publishing-ui/internal/events"
	"github.com/biodiversity-atlas/publishing-ui/internal/middleware"
	"github.com/biodiversity-atlas/publishing-ui/internal/publishapi"
	"github.com/biodiversity-atlas/publishing-ui/internal/session"
	"github.com/biodiversity-atlas/publishing-ui/internal/workflow"
)

// fakeService emulates the publishing service endpoints the UI talks to.
func fakeService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /validate", func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		json.NewEncoder(w).Encode(dwca.ValidationResult{
			Valid:       true,
			DatasetType: "occurrence",
			FileName:    "archive.zip",
			RequestID:   "req-1",
			TempPath:    "/tmp/req-1.zip",
			HasEml:      true,
			Metadata: &dwca.Metadata{
				Name:           "Frog Survey",
				PubDescription: "Annual frog survey",
				LicenceUrl:     "https://creativecommons.org/licenses/by/4.0/legalcode",
			},
			CoreValidation: dwca.ValidationReport{
				Valid:        true,
				RecordCount:  1234,
				ColumnCounts: map[string]int64{"scientificName": 1234},
			},
		})
	})
	mux.HandleFunc("POST /validate/publish", func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		json.NewEncoder(w).Encode(publishapi.JobDescriptor{RequestID: "req-1", DatasetName: "Frog Survey"})
	})
	mux.HandleFunc("GET /status/req-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(publishapi.JobStatus{
			ID: "req-1", State: publishapi.JobSuccess, DatasetName: "Frog Survey", Datasets: []string{"dr1"},
		})
	})
	mux.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]publishapi.JobRun{})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, backendURL string) *httptest.Server {
	t.Helper()
	session.Init("test-session-key", false)

	cfg := &appconfig.AppConfig{
		MaxUploadBytes:     1 << 20,
		AcceptedTypes:      "application/zip",
		CollectoryBaseURL:  "https://collections.example.org",
		BiocacheBaseURL:    "https://records.example.org",
		StatusPollInterval: 5 * time.Millisecond,
		OauthConfig:        &appconfig.OauthConfig{AdminRole: "ROLE_ADMIN", PublisherRole: "ROLE_DATA_PUBLISHER"},
	}

	api := publishapi.New(backendURL)
	registry := session.NewRegistry(func() *workflow.Controller {
		return workflow.NewController(workflow.Config{
			MaxUploadBytes: cfg.MaxUploadBytes,
			AcceptedTypes:  cfg.AcceptedMimeTypes(),
			AdminRole:      cfg.OauthConfig.AdminRole,
			PublisherRole:  cfg.OauthConfig.PublisherRole,
		}, api, nil)
	})
	feed := events.NewFeed(api, nil, nil)

	am, err := middleware.NewAuthMiddleware(context.Background(), *cfg.OauthConfig)
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(New(cfg, registry, api, collectory.New(backendURL), feed, am, nil).Router())
	t.Cleanup(srv.Close)
	return srv
}

func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar}
}

func fetch(t *testing.T, client *http.Client, method, target string, body io.Reader, contentType string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, target, body)
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(b)
}

func zipUpload(t *testing.T, content string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="archive.zip"`)
	h.Set("Content-Type", "application/zip")
	fw, err := mw.CreatePart(h)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestHomeRendersUploadPage(t *testing.T) {
	app := newTestApp(t, fakeService(t).URL)
	client := newBrowser(t)

	code, body := fetch(t, client, http.MethodGet, app.URL+"/", nil, "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !strings.Contains(body, "Upload and validate") {
		t.Error("upload form not rendered")
	}
}

func TestSessionPersistsAcrossRequests(t *testing.T) {
	app := newTestApp(t, fakeService(t).URL)
	client := newBrowser(t)

	var ids [2]string
	for i := range ids {
		_, raw := fetch(t, client, http.MethodGet, app.URL+"/api/session", nil, "")
		var sess struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal([]byte(raw), &sess); err != nil {
			t.Fatalf("decoding %q: %v", raw, err)
		}
		ids[i] = sess.ID
	}

	if ids[0] == "" {
		t.Fatal("no session id issued")
	}
	// the cookie must survive plain http, or every request mints a new workflow
	if ids[0] != ids[1] {
		t.Errorf("session ids differ across requests: %q then %q", ids[0], ids[1])
	}
}

func TestUploadThroughPublishFlow(t *testing.T) {
	app := newTestApp(t, fakeService(t).URL)
	client := newBrowser(t)

	// establish the session cookie
	fetch(t, client, http.MethodGet, app.URL+"/", nil, "")

	// upload: the redirect lands on the validation preview
	body, contentType := zipUpload(t, "zip-bytes")
	code, page := fetch(t, client, http.MethodPost, app.URL+"/upload", body, contentType)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !strings.Contains(page, "File uploaded and validated") {
		t.Fatalf("preview not rendered: %.200s", page)
	}
	if !strings.Contains(page, "1,234") {
		t.Error("record count not rendered with separators")
	}

	// advance to metadata entry, prefilled from the EML document
	_, page = fetch(t, client, http.MethodPost, app.URL+"/advance", nil, "")
	if !strings.Contains(page, "EML document found") {
		t.Fatalf("metadata page not rendered: %.200s", page)
	}
	if !strings.Contains(page, `value="Frog Survey" readonly`) {
		t.Error("EML-backed name field not locked")
	}

	// publish and wait for the poller to drive the workflow to published
	form := url.Values{
		"name":           {"Frog Survey"},
		"pubDescription": {"Annual frog survey"},
		"licenceUrl":     {"https://creativecommons.org/licenses/by/4.0/legalcode"},
		"citation":       {"Cite me"},
		"rights":         {"CC-BY"},
	}
	code, page = fetch(t, client, http.MethodPost, app.URL+"/publish", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if code != http.StatusOK {
		t.Fatalf("status = %d: %.200s", code, page)
	}

	deadline := time.After(2 * time.Second)
	for {
		_, raw := fetch(t, client, http.MethodGet, app.URL+"/api/session", nil, "")
		var sess struct {
			Step      string `json:"step"`
			RequestID string `json:"requestID"`
		}
		if err := json.Unmarshal([]byte(raw), &sess); err != nil {
			t.Fatalf("decoding %q: %v", raw, err)
		}
		if sess.Step == "published" {
			if sess.RequestID != "req-1" {
				t.Errorf("requestID = %q", sess.RequestID)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("never reached published, stuck on %q", sess.Step)
		case <-time.After(10 * time.Millisecond):
		}
	}

	_, page = fetch(t, client, http.MethodGet, app.URL+"/", nil, "")
	if !strings.Contains(page, "successfully published") {
		t.Errorf("published page not rendered: %.200s", page)
	}
}

func TestUploadRejectsMissingFile(t *testing.T) {
	app := newTestApp(t, fakeService(t).URL)
	client := newBrowser(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("other", "x")
	mw.Close()

	code, page := fetch(t, client, http.MethodPost, app.URL+"/upload", &buf, mw.FormDataContentType())
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !strings.Contains(page, "Select a darwin core archive") {
		t.Errorf("missing-file error not rendered: %.200s", page)
	}
}

func TestUploadRejectsWrongContentType(t *testing.T) {
	app := newTestApp(t, fakeService(t).URL)
	client := newBrowser(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "data.csv") // defaults to octet-stream
	fw.Write([]byte("a,b,c"))
	mw.Close()

	_, page := fetch(t, client, http.MethodPost, app.URL+"/upload", &buf, mw.FormDataContentType())
	if !strings.Contains(page, "zipped darwin core archives") {
		t.Errorf("type error not rendered: %.200s", page)
	}
}

func TestStepNavigationGuard(t *testing.T) {
	app := newTestApp(t, fakeService(t).URL)
	client := newBrowser(t)

	fetch(t, client, http.MethodGet, app.URL+"/", nil, "")

	// jumping forward from idle is silently ignored
	form := url.Values{"step": {"preview"}}
	_, page := fetch(t, client, http.MethodPost, app.URL+"/step", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if !strings.Contains(page, "Upload and validate") {
		t.Errorf("expected to stay on the upload page: %.200s", page)
	}
}

func TestApiStatusProxiesUnknownJobs(t *testing.T) {
	app := newTestApp(t, fakeService(t).URL)
	client := newBrowser(t)

	code, raw := fetch(t, client, http.MethodGet, app.URL+"/api/status/req-1", nil, "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	var status publishapi.JobStatus
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		t.Fatalf("decoding %q: %v", raw, err)
	}
	if status.State != publishapi.JobSuccess {
		t.Errorf("state = %q", status.State)
	}
}

func TestEventsPage(t *testing.T) {
	app := newTestApp(t, fakeService(t).URL)
	client := newBrowser(t)

	code, page := fetch(t, client, http.MethodGet, app.URL+"/events", nil, "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !strings.Contains(page, "No recent publishing activity") {
		t.Errorf("empty feed not rendered: %.200s", page)
	}
}

func TestLoginPage(t *testing.T) {
	app := newTestApp(t, fakeService(t).URL)
	client := newBrowser(t)

	code, page := fetch(t, client, http.MethodGet, app.URL+"/login", nil, "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !strings.Contains(page, "Access token") {
		t.Errorf("login form not rendered: %.200s", page)
	}
}
