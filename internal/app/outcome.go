package app

import (
	"fmt"

	"counter_harvester/internal/domain/catalog"
	"counter_harvester/internal/domain/harvest"
)

// fileAction says what happens to the staged raw file.
type fileAction int

const (
	fileKeep    fileAction = iota // Promote into the permanent folder
	fileDiscard                   // Drop the staged copy, leave the pointer
	fileClear                     // Drop staged and retained copies, null the pointer
)

// outcome is the decided next state of one attempted harvest.
type outcome struct {
	status   harvest.Status
	code     int
	step     harvest.Step
	detail   string
	helpURL  string
	attempt  bool // Counts as an executed attempt
	keepJob  bool // Leave the queue entry in place
	history  historyAction
	file     fileAction
	severity catalog.Severity
}

type historyAction int

const (
	historyAppend historyAction = iota // Add one failure detail, keep earlier ones
	historyClear                       // Success: drop all failure details
	historyReset                       // No data: exactly one failure detail remains
	historyNone
)

func successOutcome() outcome {
	return outcome{
		status:   harvest.StatusWaiting,
		step:     harvest.StepCOUNTER,
		attempt:  true,
		history:  historyClear,
		file:     fileKeep,
		severity: catalog.SeverityInfo,
	}
}

func noDataOutcome(step harvest.Step, detail, helpURL string) outcome {
	return outcome{
		status:   harvest.StatusWaiting,
		code:     catalog.CodeNoUsageAvailable,
		step:     step,
		detail:   detail,
		helpURL:  helpURL,
		attempt:  true,
		history:  historyReset,
		file:     fileKeep,
		severity: catalog.SeverityInfo,
	}
}

func pendingOutcome(code int, detail string) outcome {
	return outcome{
		status:   harvest.StatusPending,
		code:     code,
		step:     harvest.StepAPI,
		detail:   detail,
		keepJob:  true,
		history:  historyNone,
		file:     fileDiscard,
		severity: catalog.SeverityWarning,
	}
}

// failureOutcome applies the retry policy and then the catalog's forced
// status. A forced status only replaces a computed ReQueued.
func failureOutcome(entry *catalog.Entry, step harvest.Step, detail, helpURL string, attemptsAfter, maxRetries int) outcome {
	status := harvest.StatusReQueued
	if attemptsAfter > maxRetries {
		status = harvest.StatusNoRetries
	}
	if status == harvest.StatusReQueued {
		if forced, ok := forcedStatus(entry); ok {
			status = forced
		}
	}
	o := outcome{
		status:   status,
		code:     entry.Code,
		step:     step,
		detail:   detail,
		helpURL:  helpURL,
		attempt:  true,
		history:  historyAppend,
		file:     fileKeep,
		severity: entry.Severity,
	}
	if catalog.ClearsRawFile(entry.Code) {
		o.file = fileClear
	}
	return o
}

// informationalOutcome handles a notice-level exception that names its own
// next status. A forced Waiting is the no-data state.
func informationalOutcome(entry *catalog.Entry, status harvest.Status, step harvest.Step, detail, helpURL string) outcome {
	if status == harvest.StatusWaiting {
		o := noDataOutcome(step, detail, helpURL)
		o.code = entry.Code
		return o
	}
	return outcome{
		status:   status,
		code:     entry.Code,
		step:     step,
		detail:   detail,
		helpURL:  helpURL,
		attempt:  true,
		keepJob:  status == harvest.StatusPending,
		history:  historyAppend,
		file:     fileKeep,
		severity: entry.Severity,
	}
}

// fatalOutcome is used for local preconditions. Nothing was executed, so
// attempts stay as they are.
func fatalOutcome(entry *catalog.Entry, fallback harvest.Status, detail string) outcome {
	status := fallback
	if forced, ok := forcedStatus(entry); ok {
		status = forced
	}
	o := outcome{
		status:   status,
		code:     entry.Code,
		step:     harvest.StepInitiation,
		detail:   detail,
		history:  historyAppend,
		file:     fileDiscard,
		severity: entry.Severity,
	}
	if catalog.ClearsRawFile(entry.Code) {
		o.file = fileClear
	}
	return o
}

func forcedStatus(entry *catalog.Entry) (harvest.Status, bool) {
	if !entry.ForcesStatus() {
		return "", false
	}
	return harvest.ParseStatus(entry.NewStatus)
}

func describe(message, detail string) string {
	switch {
	case detail == "":
		return message
	case message == "":
		return detail
	}
	return fmt.Sprintf("%s: %s", message, detail)
}
