// internal/domain/harvest/failure.go
package harvest

import "time"

// Step names the stage of a harvest attempt where a failure was recorded.
type Step string

const (
	StepInitiation Step = "Initiation"
	StepHTTP       Step = "HTTP"
	StepJSON       Step = "JSON"
	StepAPI        Step = "API"
	StepCOUNTER    Step = "COUNTER"
)

// FailedHarvest is one failure-detail row ('failedharvests').
type FailedHarvest struct {
	ID          int64
	HarvestID   int64
	ProcessStep Step
	ErrorID     int
	Detail      string
	HelpURL     string
	CreatedAt   time.Time
}
