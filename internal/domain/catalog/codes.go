// internal/domain/catalog/codes.go
package catalog

// Protocol codes (COUNTER_SUSHI5 Appendix F) referenced by the pipeline.
const (
	CodeInfo                        = 0
	CodeServiceNotAvailable         = 1000
	CodeServiceBusy                 = 1010
	CodeReportQueued                = 1011
	CodeTooManyRequests             = 1020
	CodeInsufficientInfo            = 1030
	CodeRequestorNotAuthorized      = 2000
	CodeNotAuthorizedForInstitution = 2010
	CodeInvalidAPIKey               = 2020
	CodeReportNotSupported          = 3000
	CodeReleaseNotSupported         = 3010
	CodeInvalidDateArgs             = 3020
	CodeNoUsageAvailable            = 3030
	CodeUsageNotReady               = 3031
	CodeUsageNoLongerAvailable      = 3032
	CodePartialData                 = 3040
)

// Internal codes. Everything from InternalBand up belongs to the harvester.
const (
	InternalBand = 9000

	CodeNoConnection     = 9010
	CodeHTTPError        = 9011
	CodeNoJSON           = 9020
	CodeJSONArray        = 9021
	CodeMalformedJSON    = 9022
	CodeHTMLBody         = 9023
	CodeUnrecognizedBody = 9024
	CodeValidationFailed = 9030
	CodeBadRelease       = 9031
	CodeMissingHeader    = 9032
	CodeHarvestMissing   = 9100
	CodeReportMissing    = 9110
	CodeCredsDisabled    = 9120
	CodeInstInactive     = 9130
	CodeProvInactive     = 9140
	CodeRetriesExhausted = 9150
)

// IsInternal reports whether code is in the harvester's reserved band.
func IsInternal(code int) bool {
	return code >= InternalBand
}

// ClearsRawFile reports whether nothing useful was retrieved for this
// code, so the record's raw-file pointer is dropped entirely.
func ClearsRawFile(code int) bool {
	switch code {
	case CodeNoConnection, CodeNoJSON, CodeCredsDisabled:
		return true
	}
	return false
}

// UnknownEntry is the single default used when a provider reports a code
// the catalog has never seen.
func UnknownEntry(code int) *Entry {
	return &Entry{
		Code:        code,
		Message:     "Unknown error",
		Explanation: "The provider returned an error code that is not in the catalog.",
		Suggestion:  "Review the raw response and the provider's documentation.",
		Severity:    SeverityError,
		Color:       "#999999",
	}
}
