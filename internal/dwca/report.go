// Package dwca models the validation report the publishing service returns
// for an uploaded Darwin Core Archive.
package dwca

// Metadata carries the dataset metadata extracted from the archive's EML
// document, when one is present.
type Metadata struct {
	Name                      string `json:"name"`
	PubDescription            string `json:"pubDescription"`
	LicenceUrl                string `json:"licenceUrl"`
	Citation                  string `json:"citation"`
	Rights                    string `json:"rights"`
	Purpose                   string `json:"purpose"`
	MethodStepDescription     string `json:"methodStepDescription"`
	QualityControlDescription string `json:"qualityControlDescription"`
}

// ValidationReport describes one record file in the archive, either the core
// or an extension.
type ValidationReport struct {
	Valid        bool           `json:"valid"`
	RecordType   string         `json:"recordType"`
	RecordCount  int64          `json:"record_count"`
	Errors       []string       `json:"errors"`
	Warnings     []string       `json:"warnings"`
	ColumnCounts map[string]int64 `json:"column_counts"`
}

// ValidationResult is the immutable snapshot returned by POST /validate.
type ValidationResult struct {
	Valid                bool                        `json:"valid"`
	DatasetType          string                      `json:"datasetType"`
	Breakdowns           map[string]map[string]int64 `json:"breakdowns"`
	FileName             string                      `json:"fileName"`
	RequestID            string                      `json:"requestID"`
	TempPath             string                      `json:"tempPath"`
	Metadata             *Metadata                   `json:"metadata"`
	HasEml               bool                        `json:"hasEml"`
	CoreValidation       ValidationReport            `json:"coreValidation"`
	ExtensionValidations []ValidationReport          `json:"extensionValidations"`
	MapImage             string                      `json:"mapImage"`
	Message              string                      `json:"message"`
	Error                string                      `json:"error"`
}

const OccurrenceRecordType = "Occurrence"

// OccurrenceExtension returns the first extension report when it describes
// occurrence records, as that is the only extension the preliminary data
// checks consult.
func (vr *ValidationResult) OccurrenceExtension() *ValidationReport {
	if len(vr.ExtensionValidations) > 0 && vr.ExtensionValidations[0].RecordType == OccurrenceRecordType {
		return &vr.ExtensionValidations[0]
	}
	return nil
}

// FieldCount returns the non-empty value count for a field, consulting the
// core report first and then the occurrence extension. A nil column count map
// reads as zero coverage for every field.
func (vr *ValidationResult) FieldCount(field string) int64 {
	if n, ok := vr.CoreValidation.ColumnCounts[field]; ok && n > 0 {
		return n
	}
	if ext := vr.OccurrenceExtension(); ext != nil {
		if n, ok := ext.ColumnCounts[field]; ok && n > 0 {
			return n
		}
	}
	return 0
}

// TotalRecords is the core record count, the denominator for coverage
// percentages.
func (vr *ValidationResult) TotalRecords() int64 {
	return vr.CoreValidation.RecordCount
}
