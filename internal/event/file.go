package event

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/biodiversity-atlas/publishing-ui/internal/models"
)

const TypeSeparator = "_"

// FilePublisher appends events as JSON lines under Dir, one file per session
// and event type. This is the local audit trail of workflow transitions.
type FilePublisher[T Identifiable] struct {
	Dir string
}

func (fp *FilePublisher[T]) Publish(_ context.Context, event T) error {
	err := os.MkdirAll(fp.Dir, 0750)
	if err != nil && !os.IsExist(err) {
		return err
	}

	filename := filepath.Join(fp.Dir, event.Identifier()+TypeSeparator+event.Type())
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(event)
}

func (fp *FilePublisher[T]) Close() error {
	return nil
}

func (fp *FilePublisher[T]) Health(_ context.Context) (rsp models.ServiceHealthResp) {
	rsp.Service = "File Events"
	rsp.Status = models.STATUS_UP
	rsp.HealthIssue = models.HEALTH_ISSUE_NONE
	if _, err := os.Stat(fp.Dir); err != nil && !os.IsNotExist(err) {
		return rsp.BuildErrorResponse(err)
	}
	return rsp
}
