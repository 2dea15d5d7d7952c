package ui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/biodiversity-atlas/publishing-ui/internal/metrics"
	"github.com/biodiversity-atlas/publishing-ui/internal/middleware"
	"github.com/biodiversity-atlas/publishing-ui/internal/poller"
	"github.com/biodiversity-atlas/publishing-ui/internal/publishapi"
	"github.com/biodiversity-atlas/publishing-ui/internal/session"
	"github.com/biodiversity-atlas/publishing-ui/internal/workflow"
	"github.com/biodiversity-atlas/publishing-ui/pkg/sloger"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
)

func newWorkflowID() string {
	return uuid.NewString()
}

// withRequestId scopes every log line of one request to a server assigned id.
func withRequestId(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(sloger.SetRequestId(r.Context(), uuid.NewString())))
	})
}

func (s *Server) base(r *http.Request, snap workflow.Snapshot) baseData {
	return baseData{
		User:      middleware.IdentityFromContext(r.Context()),
		Step:      snap.Step.String(),
		StepIndex: stepIndex(snap.Step),
		CSRFField: csrf.TemplateField(r),
	}
}

// home renders the page for whichever step the workflow is on.
func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	entry := s.entry(w, r)
	snap := entry.Controller.Snapshot()

	switch snap.Step {
	case workflow.StepPreview:
		render(w, previewTemplate, &previewData{
			baseData: s.base(r, snap),
			Session:  snap.Session,
			Checks:   snap.Session.Validation.PreliminaryChecks(),
		})
	case workflow.StepMetadataEntry:
		s.renderMetadata(w, r, snap, "")
	case workflow.StepPublishing, workflow.StepPublished:
		data := &publishingData{
			baseData:      s.base(r, snap),
			CollectoryURL: s.cfg.CollectoryBaseURL,
			BiocacheURL:   s.cfg.BiocacheBaseURL,
			Done:          snap.Step == workflow.StepPublished,
		}
		if snap.Session.Job != nil {
			data.RequestID = snap.Session.Job.RequestID
		}
		if p := entry.Poller(); p != nil {
			data.Status = p.LastStatus()
		}
		render(w, publishingTemplate, data)
	case workflow.StepFailed:
		render(w, failedTemplate, &failedData{baseData: s.base(r, snap), Session: snap.Session})
	default:
		s.renderUpload(w, r, snap, "")
	}
}

func (s *Server) renderUpload(w http.ResponseWriter, r *http.Request, snap workflow.Snapshot, errMsg string) {
	render(w, uploadTemplate, &uploadData{
		baseData: s.base(r, snap),
		MaxSize:  humanize.Bytes(uint64(s.cfg.MaxUploadBytes)),
		Error:    errMsg,
	})
}

func (s *Server) renderMetadata(w http.ResponseWriter, r *http.Request, snap workflow.Snapshot, errMsg string) {
	render(w, metadataTemplate, &metadataData{
		baseData: s.base(r, snap),
		Session:  snap.Session,
		Licences: s.licences.Entries(),
		Error:    errMsg,
	})
}

// upload streams the selected archive to the validation endpoint and blocks
// until validation settles, then redirects to the resulting step.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	entry := s.entry(w, r)
	user := middleware.IdentityFromContext(r.Context())

	// headroom for the multipart framing around the archive itself
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.renderUpload(w, r, entry.Controller.Snapshot(), "Select a darwin core archive to upload.")
		return
	}
	file.Close()

	up := &publishapi.Upload{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return header.Open()
		},
	}

	done, err := entry.Controller.SubmitFile(r.Context(), user, up)
	if err != nil {
		var transition *workflow.TransitionError
		if errors.As(err, &transition) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		s.renderUpload(w, r, entry.Controller.Snapshot(), s.uploadErrorMessage(err))
		return
	}

	step := <-done
	if step == workflow.StepPreview {
		metrics.ValidationsTotal.WithLabelValues("valid").Inc()
	} else {
		metrics.ValidationsTotal.WithLabelValues("failed").Inc()
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, workflow.ErrFileEmpty):
		return "The selected file is empty."
	case errors.Is(err, workflow.ErrFileTooLarge):
		return fmt.Sprintf("The file is larger than the %s limit.", humanize.Bytes(uint64(s.cfg.MaxUploadBytes)))
	case errors.Is(err, workflow.ErrUnsupportedType):
		return "Only zipped darwin core archives are accepted."
	case errors.Is(err, workflow.ErrUnauthenticated):
		return "Your session has expired. Please sign in again."
	default:
		return "The file could not be uploaded."
	}
}

func (s *Server) advance(w http.ResponseWriter, r *http.Request) {
	entry := s.entry(w, r)
	if err := entry.Controller.Advance(); err != nil {
		sloger.FromContext(r.Context()).Warn("advance rejected", "error", err.Error())
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// publish submits the metadata draft, then hands the accepted job to a
// status poller that drives the workflow to its terminal step.
func (s *Server) publish(w http.ResponseWriter, r *http.Request) {
	entry := s.entry(w, r)
	user := middleware.IdentityFromContext(r.Context())

	draft := workflow.MetadataDraft{
		Name:                      r.FormValue("name"),
		PubDescription:            r.FormValue("pubDescription"),
		LicenceUrl:                r.FormValue("licenceUrl"),
		Citation:                  r.FormValue("citation"),
		Rights:                    r.FormValue("rights"),
		Purpose:                   r.FormValue("purpose"),
		MethodStepDescription:     r.FormValue("methodStepDescription"),
		QualityControlDescription: r.FormValue("qualityControlDescription"),
	}

	desc, err := entry.Controller.Publish(r.Context(), user, draft)
	if err != nil {
		metrics.PublishRequestsTotal.WithLabelValues("rejected").Inc()
		snap := entry.Controller.Snapshot()
		var missing *workflow.MissingFieldError
		switch {
		case errors.As(err, &missing):
			s.renderMetadata(w, r, snap, fmt.Sprintf("Please provide a value for %s.", missing.Field))
		case errors.Is(err, workflow.ErrUnauthorized):
			s.renderMetadata(w, r, snap, "Your account does not have permission to publish datasets.")
		case errors.Is(err, workflow.ErrUnauthenticated):
			s.renderMetadata(w, r, snap, "Your session has expired. Please sign in again.")
		default:
			// server rejection recorded on the session as PublishError
			http.Redirect(w, r, "/", http.StatusSeeOther)
		}
		return
	}

	metrics.PublishRequestsTotal.WithLabelValues("accepted").Inc()
	s.watch(entry, desc.RequestID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// watch polls the accepted job until it settles and mirrors the outcome onto
// the workflow.
func (s *Server) watch(entry *session.Entry, requestID string) {
	p := poller.New(s.api, requestID)
	if s.cfg.StatusPollInterval > 0 {
		p.Interval = s.cfg.StatusPollInterval
	}
	ctrl := entry.Controller
	p.OnUpdate = func(status *publishapi.JobStatus) {
		metrics.StatusPollsTotal.Inc()
		s.hubs.Broadcast(requestID, status)
	}
	p.OnCompleted = func(*publishapi.JobStatus) {
		if err := ctrl.CompletePublishing(true); err != nil {
			logger.Warn("publish completion discarded", "requestId", requestID, "error", err.Error())
		}
	}
	p.OnFailed = func(*publishapi.JobStatus) {
		if err := ctrl.CompletePublishing(false); err != nil {
			logger.Warn("publish failure discarded", "requestId", requestID, "error", err.Error())
		}
	}
	entry.SetPoller(p)
	p.Start(context.Background())
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	entry := s.entry(w, r)
	if p := entry.Poller(); p != nil {
		p.Stop()
	}
	if err := entry.Controller.Reset(); err != nil {
		sloger.FromContext(r.Context()).Warn("reset rejected", "error", err.Error())
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) goToStep(w http.ResponseWriter, r *http.Request) {
	entry := s.entry(w, r)
	if target, ok := workflow.ParseStep(r.FormValue("step")); ok {
		entry.Controller.GoToStep(target)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	runs, refreshed := s.feed.Runs()
	render(w, eventsTemplate, &eventsData{
		User:      middleware.IdentityFromContext(r.Context()),
		Runs:      runs,
		Refreshed: refreshed.Format(time.RFC3339),
	})
}

func (s *Server) datasets(w http.ResponseWriter, r *http.Request) {
	user := middleware.IdentityFromContext(r.Context())
	data := &datasetsData{
		User:          user,
		CollectoryURL: s.cfg.CollectoryBaseURL,
		BiocacheURL:   s.cfg.BiocacheBaseURL,
	}
	if user != nil {
		resources, err := s.collections.ListByCreator(r.Context(), user.UserID)
		if err != nil {
			sloger.FromContext(r.Context()).Error("failed to list datasets", "userId", user.UserID, "error", err.Error())
		}
		data.Resources = resources
	}
	render(w, datasetsTemplate, data)
}

type sessionResp struct {
	ID        string `json:"id"`
	Step      string `json:"step"`
	Progress  int    `json:"progress"`
	FileName  string `json:"file_name,omitempty"`
	RequestID string `json:"requestID,omitempty"`
}

func (s *Server) apiSession(w http.ResponseWriter, r *http.Request) {
	snap := s.entry(w, r).Controller.Snapshot()
	resp := sessionResp{
		ID:       snap.Session.ID,
		Step:     snap.Step.String(),
		Progress: snap.Session.UploadProgress,
		FileName: snap.Session.File.Name,
	}
	if snap.Session.Job != nil {
		resp.RequestID = snap.Session.Job.RequestID
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// apiStatus serves the polling fallback for browsers without websockets. The
// poller's view is preferred; unknown jobs are fetched straight from the
// publishing service.
func (s *Server) apiStatus(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["request_id"]

	var status *publishapi.JobStatus
	if p := s.entry(w, r).Poller(); p != nil && p.RequestID == requestID {
		status = p.LastStatus()
	}
	if status == nil {
		var err error
		status, err = s.api.Status(r.Context(), requestID)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			json.NewEncoder(w).Encode(map[string]string{"error": "status-unavailable", "message": err.Error()})
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}
