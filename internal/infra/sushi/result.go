package sushi

import (
	"counter_harvester/internal/domain/catalog"
	"counter_harvester/internal/domain/harvest"
)

// Outcome is the coarse classification of one request.
type Outcome string

const (
	OutcomeSuccess Outcome = "Success"
	OutcomePending Outcome = "Pending"
	OutcomeFail    Outcome = "Fail"
)

// Result is everything learned from one request. It is built once by
// Classify or Fetch and never modified afterwards.
type Result struct {
	Outcome    Outcome
	Code       int // Catalog code, 0 when the response carried none
	Step       harvest.Step
	Severity   catalog.Severity
	Message    string
	Detail     string
	HelpURL    string
	HTTPStatus int
	Payload    map[string]any // Decoded body when it was a JSON object
	Raw        []byte
}

// Succeeded reports whether the response is a report candidate for validation.
func (r Result) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// HasException reports whether the response carried a protocol exception.
func (r Result) HasException() bool {
	return r.Step == harvest.StepAPI && r.Outcome != OutcomeSuccess
}

func failure(code int, step harvest.Step, message, detail string) Result {
	return Result{
		Outcome:  OutcomeFail,
		Code:     code,
		Step:     step,
		Severity: catalog.SeverityError,
		Message:  message,
		Detail:   detail,
	}
}
