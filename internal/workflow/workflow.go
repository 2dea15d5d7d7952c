// Package workflow drives the upload/validate/publish pipeline for one
// browser session: an explicit state machine from file drop through
// validation preview, metadata entry and publishing.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/biodiversity-atlas/publishing-ui/internal/dwca"
	"github.com/biodiversity-atlas/publishing-ui/internal/event"
	"github.com/biodiversity-atlas/publishing-ui/internal/licence"
	"github.com/biodiversity-atlas/publishing-ui/internal/oauth"
	"github.com/biodiversity-atlas/publishing-ui/internal/publishapi"
	"github.com/biodiversity-atlas/publishing-ui/pkg/sloger"
)

var logger *slog.Logger

func init() {
	type Empty struct{}
	pkgParts := strings.Split(reflect.TypeOf(Empty{}).PkgPath(), "/")
	// add package name to app logger
	logger = sloger.With("pkg", pkgParts[len(pkgParts)-1])
}

// API is the slice of the publishing service client the controller needs.
type API interface {
	Validate(ctx context.Context, token string, file *publishapi.Upload, progress func(int)) (*dwca.ValidationResult, error)
	Publish(ctx context.Context, token string, req publishapi.PublishRequest) (*publishapi.JobDescriptor, error)
}

type Config struct {
	MaxUploadBytes int64
	AcceptedTypes  []string
	AdminRole      string
	PublisherRole  string
	Licences       *licence.Table
}

// Controller owns one UploadSession and validates every operation against
// the current step. All methods are safe for concurrent use; asynchronous
// completions are tagged with the epoch they started under and discarded if
// the session was reset or cancelled in the meantime.
type Controller struct {
	cfg    Config
	client API
	bus    event.Publishers[*event.StepChanged]

	mu      sync.Mutex
	step    Step
	epoch   uint64
	session *Session
}

func NewController(cfg Config, client API, bus event.Publishers[*event.StepChanged]) *Controller {
	if cfg.Licences == nil {
		cfg.Licences = licence.Default()
	}
	return &Controller{
		cfg:     cfg,
		client:  client,
		bus:     bus,
		step:    StepIdle,
		session: newSession(),
	}
}

// Snapshot is a read-only copy of the controller state for rendering.
type Snapshot struct {
	Step    Step
	Epoch   uint64
	Session Session
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{Step: c.step, Epoch: c.epoch, Session: *c.session}
}

func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// SubmitFile gates the archive client-side, then starts the asynchronous
// transfer to the validation endpoint. Valid only from Idle. Gating failures
// (size, type, missing credential) leave the session untouched and no request
// is issued. The returned channel yields the step the transfer settled on,
// for callers that want to block until validation completes.
func (c *Controller) SubmitFile(ctx context.Context, user *oauth.Identity, file *publishapi.Upload) (<-chan Step, error) {
	c.mu.Lock()
	if c.step != StepIdle {
		c.mu.Unlock()
		return nil, &TransitionError{Op: "submitFile", From: c.step}
	}

	if err := c.gateFile(file); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if user == nil || user.AccessToken == "" || user.Expired() {
		c.mu.Unlock()
		return nil, ErrUnauthenticated
	}

	c.setStep(StepUploading, "")
	c.session.File = FileMeta{Name: file.Name, Size: file.Size}
	c.session.UploadProgress = 0
	// a retry after an earlier failure starts clean
	c.session.Failure = nil
	epoch := c.epoch
	token := user.AccessToken
	c.mu.Unlock()

	done := make(chan Step, 1)
	go func() {
		result, err := c.client.Validate(ctx, token, file, func(pct int) {
			c.applyProgress(epoch, pct)
		})
		done <- c.applyValidation(epoch, result, err)
	}()
	return done, nil
}

func (c *Controller) gateFile(file *publishapi.Upload) error {
	if file == nil || file.Size == 0 {
		return ErrFileEmpty
	}
	if file.Size > c.cfg.MaxUploadBytes {
		return ErrFileTooLarge
	}
	if len(c.cfg.AcceptedTypes) > 0 && !slices.Contains(c.cfg.AcceptedTypes, file.ContentType) {
		return ErrUnsupportedType
	}
	return nil
}

func (c *Controller) applyProgress(epoch uint64, pct int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch || c.step != StepUploading {
		return
	}
	if pct > c.session.UploadProgress {
		c.session.UploadProgress = pct
	}
}

func (c *Controller) applyValidation(epoch uint64, result *dwca.ValidationResult, err error) Step {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A response from a superseded transfer must not touch a fresh session.
	if c.epoch != epoch || c.step != StepUploading {
		logger.Warn("discarding stale validation response", "epoch", epoch)
		return c.step
	}

	if err != nil {
		var apiErr *publishapi.APIError
		if errors.As(err, &apiErr) {
			c.session.Failure = &Failure{Code: apiErr.Code, Message: apiErr.Message}
		} else {
			c.session.Failure = &Failure{Code: TransportFailureCode, Message: ""}
		}
		c.setStep(StepFailed, c.session.Failure.Code)
		return c.step
	}

	c.session.prefill(result, c.cfg.Licences)

	if !result.Valid {
		code := result.Error
		if code == "" {
			code = "archive-invalid"
		}
		c.session.Failure = &Failure{Code: code, Message: result.Message}
		c.setStep(StepFailed, code)
		return c.step
	}

	c.setStep(StepPreview, "")
	return c.step
}

// Advance moves from the validation preview to metadata entry. Valid only
// from Preview with a valid archive.
func (c *Controller) Advance() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepPreview || c.session.Validation == nil || !c.session.Validation.Valid {
		return &TransitionError{Op: "advanceToMetadata", From: c.step}
	}
	c.setStep(StepMetadataEntry, "")
	return nil
}

// Publish posts the draft plus the validation receipt to the publish
// endpoint. Valid only from MetadataEntry. Required fields and the publisher
// role are checked before any request is sent. A rejected or failed request
// leaves the session in MetadataEntry with the draft intact so the user can
// correct and resubmit; the server treats a retry with the same requestID as
// reattaching to the same stored upload.
func (c *Controller) Publish(ctx context.Context, user *oauth.Identity, draft MetadataDraft) (*publishapi.JobDescriptor, error) {
	c.mu.Lock()
	if c.step != StepMetadataEntry {
		c.mu.Unlock()
		return nil, &TransitionError{Op: "publish", From: c.step}
	}
	if err := draft.checkRequired(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if user == nil || user.AccessToken == "" || user.Expired() {
		c.mu.Unlock()
		return nil, ErrUnauthenticated
	}
	if !user.CanPublish(c.cfg.AdminRole, c.cfg.PublisherRole) {
		c.mu.Unlock()
		return nil, ErrUnauthorized
	}

	c.session.Draft = draft
	c.session.PublishError = ""
	req := publishapi.PublishRequest{
		RequestID:                 c.session.Validation.RequestID,
		TempPath:                  c.session.Validation.TempPath,
		Name:                      draft.Name,
		PubDescription:            draft.PubDescription,
		Citation:                  draft.Citation,
		Rights:                    draft.Rights,
		Purpose:                   draft.Purpose,
		MethodStepDescription:     draft.MethodStepDescription,
		QualityControlDescription: draft.QualityControlDescription,
		LicenceUrl:                draft.LicenceUrl,
	}
	epoch := c.epoch
	token := user.AccessToken
	c.mu.Unlock()

	desc, err := c.client.Publish(ctx, token, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch || c.step != StepMetadataEntry {
		logger.Warn("discarding stale publish response", "epoch", epoch)
		return nil, &TransitionError{Op: "publish", From: c.step}
	}

	if err != nil {
		var apiErr *publishapi.APIError
		switch {
		case errors.As(err, &apiErr):
			c.session.PublishError = apiErr.Error()
		default:
			c.session.PublishError = "There was a problem publishing this dataset. Please contact the data management team if this problem persists."
		}
		return nil, err
	}

	c.session.Job = desc
	c.setStep(StepPublishing, "")
	return desc, nil
}

// CompletePublishing records the terminal outcome reported by the status
// poller. Valid only from Publishing.
func (c *Controller) CompletePublishing(success bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepPublishing {
		return &TransitionError{Op: "completePublishing", From: c.step}
	}
	if success {
		c.setStep(StepPublished, "")
		return nil
	}
	c.session.Failure = &Failure{Code: "publish-failed"}
	c.setStep(StepFailed, "publish-failed")
	return nil
}

// Reset discards the session and returns to Idle. Valid from any state
// except Uploading; resetting an already idle session is a no-op, not an
// error.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step == StepUploading {
		return &TransitionError{Op: "reset", From: c.step}
	}
	c.epoch++
	c.session = newSession()
	if c.step != StepIdle {
		c.setStep(StepIdle, "")
	}
	return nil
}

// Cancel abandons an in-flight upload, e.g. when the owning page is
// navigated away from. The transfer's eventual response is discarded by the
// epoch guard.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.session = newSession()
	if c.step != StepIdle {
		c.setStep(StepIdle, "")
	}
}

// GoToStep is the stepper's back-navigation guard. Only Idle (when not
// uploading) and Preview/MetadataEntry (when the archive validated) are
// reachable; forward jumps past the current step, and any navigation while
// publishing or published, are rejected silently. From Failed the only way
// out is back to Idle.
func (c *Controller) GoToStep(target Step) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step >= StepPublishing && c.step != StepFailed {
		return false
	}
	if c.step == StepFailed && target != StepIdle {
		return false
	}
	if target > c.step {
		return false
	}

	switch target {
	case StepIdle:
		if c.step == StepUploading {
			return false
		}
	case StepPreview, StepMetadataEntry:
		if c.session.Validation == nil || !c.session.Validation.Valid {
			return false
		}
	default:
		return false
	}

	c.setStep(target, "")
	return true
}

// setStep transitions and emits the audit event. Callers hold c.mu.
func (c *Controller) setStep(to Step, failureCode string) {
	from := c.step
	c.step = to
	if c.bus != nil {
		evt := event.NewStepChangedEvent(c.session.ID, from.String(), to.String())
		evt.FailureCode = failureCode
		if c.session.Job != nil {
			evt.RequestID = c.session.Job.RequestID
		}
		c.bus.Publish(context.Background(), evt)
	}
	logger.Debug("workflow transition", "session", c.session.ID, "from", from.String(), "to", to.String())
}
