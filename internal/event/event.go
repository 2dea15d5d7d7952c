// Package event carries workflow lifecycle events to an audit trail and to
// in-process subscribers such as the metrics recorder.
package event

const StepChangedEventType = "StepChanged"

var MaxRetries = 5

type Retryable interface {
	RetryCount() int
	IncrementRetryCount()
}

type Identifiable interface {
	Retryable
	Identifier() string
	GetSessionID() string
	Type() string
	SetIdentifier(id string)
	SetType(t string)
}

type Event struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	RetryCount int    `json:"retry_count"`
}

// StepChanged records one workflow transition for a publishing session.
type StepChanged struct {
	Event
	SessionID string `json:"session_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	RequestID string `json:"request_id,omitempty"`
	// FailureCode is set when the transition landed in the failed branch.
	FailureCode string `json:"failure_code,omitempty"`
}

func (sc *StepChanged) RetryCount() int {
	return sc.Event.RetryCount
}

func (sc *StepChanged) IncrementRetryCount() {
	sc.Event.RetryCount++
}

func (sc *StepChanged) Type() string {
	return sc.Event.Type
}

func (sc *StepChanged) SetIdentifier(id string) {
	sc.ID = id
}

func (sc *StepChanged) SetType(t string) {
	sc.Event.Type = t
}

func (sc *StepChanged) Identifier() string {
	return sc.SessionID
}

func (sc *StepChanged) GetSessionID() string {
	return sc.SessionID
}

func NewStepChangedEvent(sessionID, from, to string) *StepChanged {
	return &StepChanged{
		Event: Event{
			Type: StepChangedEventType,
		},
		SessionID: sessionID,
		From:      from,
		To:        to,
	}
}
