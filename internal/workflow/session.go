package workflow

import (
	"github.com/biodiversity-atlas/publishing-ui/internal/dwca"
	"github.com/biodiversity-atlas/publishing-ui/internal/licence"
	"github.com/biodiversity-atlas/publishing-ui/internal/publishapi"
	"github.com/google/uuid"
)

// MetadataDraft is the editable dataset metadata submitted with a publish
// request.
type MetadataDraft struct {
	Name                      string
	PubDescription            string
	LicenceUrl                string
	Citation                  string
	Rights                    string
	Purpose                   string
	MethodStepDescription     string
	QualityControlDescription string
}

// requiredFields are enforced client-side before a publish request is sent.
var requiredFields = []struct {
	label string
	value func(*MetadataDraft) string
}{
	{"name", func(d *MetadataDraft) string { return d.Name }},
	{"description", func(d *MetadataDraft) string { return d.PubDescription }},
	{"licence", func(d *MetadataDraft) string { return d.LicenceUrl }},
	{"citation", func(d *MetadataDraft) string { return d.Citation }},
	{"rights", func(d *MetadataDraft) string { return d.Rights }},
}

func (d *MetadataDraft) checkRequired() error {
	for _, f := range requiredFields {
		if f.value(d) == "" {
			return &MissingFieldError{Field: f.label}
		}
	}
	return nil
}

// Failure carries the terminal failure shown to the user: a stable code for
// localized messaging and the server's message verbatim. Transport failures
// use the generic transport code and no server message.
type Failure struct {
	Code    string
	Message string
}

const TransportFailureCode = "transport-error"

// FileMeta describes the archive selected for upload.
type FileMeta struct {
	Name string
	Size int64
}

// Session is one attempt to publish a dataset. It is exclusively owned by its
// Controller; callers read it through Snapshot copies.
type Session struct {
	ID             string
	File           FileMeta
	UploadProgress int
	Validation     *dwca.ValidationResult
	Draft          MetadataDraft
	readOnly       map[string]bool
	Job            *publishapi.JobDescriptor
	Failure        *Failure
	// PublishError holds a rejected publish attempt's message while the
	// session stays in metadata entry for correction and resubmission.
	PublishError string
}

func newSession() *Session {
	return &Session{ID: uuid.NewString()}
}

// prefill populates the draft from extracted archive metadata, normalizing
// the licence URL against the recognised table, and derives which fields the
// form must treat as read-only. Fields backed by an EML document are locked;
// everything else stays editable.
func (s *Session) prefill(vr *dwca.ValidationResult, licences *licence.Table) {
	s.Validation = vr
	s.readOnly = map[string]bool{}

	md := vr.Metadata
	if md == nil {
		md = &dwca.Metadata{}
	}

	s.Draft = MetadataDraft{
		Name:                      md.Name,
		PubDescription:            md.PubDescription,
		LicenceUrl:                licences.Normalize(md.LicenceUrl),
		Citation:                  md.Citation,
		Rights:                    md.Rights,
		Purpose:                   md.Purpose,
		MethodStepDescription:     md.MethodStepDescription,
		QualityControlDescription: md.QualityControlDescription,
	}

	if vr.HasEml {
		s.readOnly["name"] = true
		s.readOnly["pubDescription"] = true
		s.readOnly["licenceUrl"] = licences.Recognised(md.LicenceUrl)
		s.readOnly["citation"] = md.Citation != ""
		s.readOnly["rights"] = md.Rights != ""
		s.readOnly["purpose"] = md.Purpose != ""
		s.readOnly["methodStepDescription"] = md.MethodStepDescription != ""
		s.readOnly["qualityControlDescription"] = md.QualityControlDescription != ""
	}
}

// FieldReadOnly reports whether the archive supplied an authoritative value
// for the named draft field.
func (s *Session) FieldReadOnly(field string) bool {
	return s.readOnly[field]
}
