// Package publishapi is the HTTP client for the external publishing service
// that validates, stores and ingests Darwin Core Archives.
package publishapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/biodiversity-atlas/publishing-ui/internal/dwca"
	"github.com/biodiversity-atlas/publishing-ui/internal/licence"
	"github.com/biodiversity-atlas/publishing-ui/internal/models"
	"github.com/biodiversity-atlas/publishing-ui/pkg/sloger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var logger *slog.Logger

func init() {
	type Empty struct{}
	pkgParts := strings.Split(reflect.TypeOf(Empty{}).PkgPath(), "/")
	// add package name to app logger
	logger = sloger.With("pkg", pkgParts[len(pkgParts)-1])
}

// JobState values reported by GET /status/{requestID}. Transitions are
// monotonic along queued -> running -> success|failed.
const (
	JobQueued  = "queued"
	JobRunning = "running"
	JobSuccess = "success"
	JobFailed  = "failed"
)

func TerminalState(state string) bool {
	return state == JobSuccess || state == JobFailed
}

// JobStatus is the polled snapshot of a publishing job.
type JobStatus struct {
	ID          string   `json:"id"`
	State       string   `json:"state"`
	DatasetName string   `json:"dataset_name"`
	Datasets    []string `json:"datasets"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
}

// JobDescriptor is returned when a publish request is accepted.
type JobDescriptor struct {
	RequestID   string `json:"requestID"`
	DatasetName string `json:"dataset_name"`
	Message     string `json:"message"`
}

// RunDataset names one dataset touched by a publishing run.
type RunDataset struct {
	DatasetId   string `json:"datasetId"`
	DatasetName string `json:"datasetName"`
}

// JobRun is one entry of the recent publishing runs feed.
type JobRun struct {
	ID        string       `json:"id"`
	User      string       `json:"user"`
	State     string       `json:"state"`
	StartDate string       `json:"start_date"`
	EndDate   string       `json:"end_date"`
	Datasets  []RunDataset `json:"datasets"`
}

// PublishRequest carries the metadata draft plus the temp-upload references
// from the validation step. The server treats a resubmission with the same
// RequestID/TempPath as reattaching to the same stored upload, so retrying a
// failed publish is safe.
type PublishRequest struct {
	RequestID                 string
	TempPath                  string
	Name                      string
	PubDescription            string
	Citation                  string
	Rights                    string
	Purpose                   string
	MethodStepDescription     string
	QualityControlDescription string
	LicenceUrl                string
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Validate uploads the archive as multipart form data and returns the
// validation snapshot. Progress callbacks report the transfer percentage in
// [0,100], non-decreasing. A 4xx with a structured body is returned as
// *APIError; a request that never completed is wrapped in ErrTransport.
func (c *Client) Validate(ctx context.Context, token string, file *Upload, progress func(int)) (*dwca.ValidationResult, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeValidateBody(mw, file, progress)
		mw.Close()
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/validate", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apiErrorFromBody(resp.StatusCode, body)
	}

	var result dwca.ValidationResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding validation response: %w", err)
	}
	return &result, nil
}

func writeValidateBody(mw *multipart.Writer, file *Upload, progress func(int)) error {
	if err := mw.WriteField("storeTemp", "true"); err != nil {
		return err
	}
	fw, err := mw.CreateFormFile("file", file.Name)
	if err != nil {
		return err
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	_, err = io.Copy(fw, newProgressReader(src, file.Size, progress))
	return err
}

// Publish posts the metadata draft plus the validation receipt. Fields left
// empty are omitted from the form, matching what the service expects.
func (c *Client) Publish(ctx context.Context, token string, req PublishRequest) (*JobDescriptor, error) {
	var buf strings.Builder
	mw := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"requestID", req.RequestID},
		{"tempPath", req.TempPath},
		{"name", req.Name},
		{"pubDescription", req.PubDescription},
		{"citation", req.Citation},
		{"rights", req.Rights},
		{"purpose", req.Purpose},
		{"methodStepDescription", req.MethodStepDescription},
		{"qualityControlDescription", req.QualityControlDescription},
		{"licenceUrl", req.LicenceUrl},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/validate/publish", strings.NewReader(buf.String()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	// The publish endpoint reports rejections as an error payload, sometimes
	// with a 200 status, so check the body before the status code.
	var probe struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &probe); err == nil && probe.Error != "" {
		return nil, &APIError{StatusCode: resp.StatusCode, Code: probe.Error, Message: probe.Message}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiErrorFromBody(resp.StatusCode, body)
	}

	var desc JobDescriptor
	if err := json.Unmarshal(body, &desc); err != nil {
		return nil, fmt.Errorf("decoding publish response: %w", err)
	}
	return &desc, nil
}

// Status fetches the current job snapshot. The status endpoint takes no
// authorization header.
func (c *Client) Status(ctx context.Context, requestID string) (*JobStatus, error) {
	var status JobStatus
	if err := c.getJSON(ctx, c.BaseURL+"/status/"+url.PathEscape(requestID), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Events lists recent publishing runs.
func (c *Client) Events(ctx context.Context) ([]JobRun, error) {
	var runs []JobRun
	if err := c.getJSON(ctx, c.BaseURL+"/events", &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// Licences fetches the service's recognised licence map.
func (c *Client) Licences(ctx context.Context) (map[string]licence.Licence, error) {
	var licences map[string]licence.Licence
	if err := c.getJSON(ctx, c.BaseURL+"/licences", &licences); err != nil {
		return nil, err
	}
	return licences, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		return apiErrorFromBody(resp.StatusCode, body)
	}
	return json.Unmarshal(body, out)
}

func (c *Client) Health(ctx context.Context) models.ServiceHealthResp {
	rsp := models.ServiceHealthResp{
		Service:     models.PUBLISHING_SERVICE,
		Status:      models.STATUS_UP,
		HealthIssue: models.HEALTH_ISSUE_NONE,
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/licences", nil)
	if err != nil {
		return rsp.BuildErrorResponse(err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return rsp.BuildErrorResponse(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return rsp.BuildErrorResponse(fmt.Errorf("publishing service returned %d", resp.StatusCode))
	}
	return rsp
}
