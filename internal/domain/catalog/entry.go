// internal/domain/catalog/entry.go
package catalog

// Severity is the catalog tier of an error code.
type Severity string

const (
	SeverityInfo    Severity = "Info"
	SeverityDebug   Severity = "Debug"
	SeverityWarning Severity = "Warning"
	SeverityError   Severity = "Error"
	SeverityFatal   Severity = "Fatal"
)

// ParseSeverity maps the free-text severity reported by providers onto a
// catalog tier. Unknown text falls back to SeverityError.
func ParseSeverity(s string) Severity {
	switch s {
	case "Info", "info", "Informational", "INFO":
		return SeverityInfo
	case "Debug", "debug", "DEBUG":
		return SeverityDebug
	case "Warning", "warning", "Warn", "WARNING":
		return SeverityWarning
	case "Fatal", "fatal", "FATAL":
		return SeverityFatal
	}
	return SeverityError
}

// Informational reports whether a code of this severity is a notice rather
// than a failure.
func (s Severity) Informational() bool {
	return s == SeverityInfo || s == SeverityDebug
}

// Entry is one row of the error catalog ('ccplus_errors').
type Entry struct {
	Code        int
	Message     string
	Explanation string
	Suggestion  string
	Severity    Severity
	NewStatus   string // Status this code forces, empty when none
	Color       string
}

// ForcesStatus reports whether the entry carries a forced next status.
func (e *Entry) ForcesStatus() bool {
	return e != nil && e.NewStatus != ""
}
