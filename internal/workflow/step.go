package workflow

// Step is the explicit state of the publishing workflow. Forward order is
// Idle, Uploading, Preview, MetadataEntry, Publishing, Published; Failed is an
// absorbing branch reachable from Uploading and Publishing.
type Step int

const (
	StepIdle Step = iota
	StepUploading
	StepPreview
	StepMetadataEntry
	StepPublishing
	StepPublished
	StepFailed
)

func (s Step) String() string {
	switch s {
	case StepIdle:
		return "idle"
	case StepUploading:
		return "uploading"
	case StepPreview:
		return "preview"
	case StepMetadataEntry:
		return "metadata-entry"
	case StepPublishing:
		return "publishing"
	case StepPublished:
		return "published"
	case StepFailed:
		return "failed"
	}
	return "unknown"
}

// ParseStep maps a step name back to its Step. Unknown names report false.
func ParseStep(name string) (Step, bool) {
	for s := StepIdle; s <= StepFailed; s++ {
		if s.String() == name {
			return s, true
		}
	}
	return StepIdle, false
}

// Terminal reports whether no further forward transition is possible without
// a reset.
func (s Step) Terminal() bool {
	return s == StepPublished || s == StepFailed
}
