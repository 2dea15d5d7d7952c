package publishapi

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrTransport marks requests that never produced a response. Callers render
// these with a generic "contact support" message rather than server text.
var ErrTransport = errors.New("publishing service unreachable")

// APIError is a structured rejection from the publishing service. Code is a
// stable identifier usable for localized messaging; Message is the server's
// human-readable text, surfaced verbatim.
type APIError struct {
	StatusCode int
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

func apiErrorFromBody(statusCode int, body []byte) error {
	apiErr := &APIError{StatusCode: statusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = fmt.Sprintf("http-%d", statusCode)
		apiErr.Message = string(body)
	}
	return apiErr
}
