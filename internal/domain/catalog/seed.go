// internal/domain/catalog/seed.go
package catalog

// Seed is the reference data loaded by the migrate command. Rows already
// present are left alone.
var Seed = []Entry{
	{Code: CodeInfo, Message: "Info or Debug", Severity: SeverityInfo, Explanation: "Informational notice from the provider.", Color: "#2e7d32"},
	{Code: CodeServiceNotAvailable, Message: "Service Not Available", Severity: SeverityFatal, Explanation: "The service is executing but cannot accept requests.", Suggestion: "Retry later.", Color: "#c62828"},
	{Code: CodeServiceBusy, Message: "Service Busy", Severity: SeverityWarning, Explanation: "The service is too busy to process the request.", Suggestion: "Retry later.", Color: "#ef6c00"},
	{Code: CodeReportQueued, Message: "Report Queued for Processing", Severity: SeverityWarning, Explanation: "The report is being prepared by the provider.", Suggestion: "The harvest is re-polled automatically.", NewStatus: "Pending", Color: "#1565c0"},
	{Code: CodeTooManyRequests, Message: "Client has made too many requests", Severity: SeverityWarning, Explanation: "The provider is rate-limiting this client.", Suggestion: "Increase the minimum request interval.", Color: "#ef6c00"},
	{Code: CodeInsufficientInfo, Message: "Insufficient Information to Process Request", Severity: SeverityFatal, Explanation: "Required request parameters are missing.", Suggestion: "Check the credential's connection fields.", NewStatus: "Fail", Color: "#c62828"},
	{Code: CodeRequestorNotAuthorized, Message: "Requestor Not Authorized to Access Service", Severity: SeverityError, Explanation: "The requestor id is not authorized.", Suggestion: "Verify the credentials with the provider.", NewStatus: "BadCreds", Color: "#c62828"},
	{Code: CodeNotAuthorizedForInstitution, Message: "Requestor is Not Authorized to Access Usage for Institution", Severity: SeverityError, Explanation: "The requestor is not authorized for this customer.", Suggestion: "Verify the customer id.", NewStatus: "BadCreds", Color: "#c62828"},
	{Code: CodeInvalidAPIKey, Message: "APIKey Invalid", Severity: SeverityError, Explanation: "The api key was rejected.", Suggestion: "Update the api key.", NewStatus: "BadCreds", Color: "#c62828"},
	{Code: CodeReportNotSupported, Message: "Report Not Supported", Severity: SeverityError, Explanation: "The provider does not offer this report.", Suggestion: "Remove the report from the connection.", NewStatus: "Fail", Color: "#c62828"},
	{Code: CodeReleaseNotSupported, Message: "Report Version Not Supported", Severity: SeverityError, Explanation: "The requested release is not supported.", Suggestion: "Set a release override for the provider.", NewStatus: "Fail", Color: "#c62828"},
	{Code: CodeInvalidDateArgs, Message: "Invalid Date Arguments", Severity: SeverityError, Explanation: "The date range was rejected.", Color: "#c62828"},
	{Code: CodeNoUsageAvailable, Message: "No Usage Available for Requested Dates", Severity: SeverityInfo, Explanation: "The provider has no usage for the period.", Suggestion: "None; the month is recorded as empty.", NewStatus: "Waiting", Color: "#2e7d32"},
	{Code: CodeUsageNotReady, Message: "Usage Not Ready for Requested Dates", Severity: SeverityWarning, Explanation: "Usage for the period is not yet processed.", Suggestion: "Retry later.", Color: "#ef6c00"},
	{Code: CodeUsageNoLongerAvailable, Message: "Usage No Longer Available for Requested Dates", Severity: SeverityWarning, Explanation: "Usage for the period has been purged.", NewStatus: "Fail", Color: "#ef6c00"},
	{Code: CodePartialData, Message: "Partial Data Returned", Severity: SeverityWarning, Explanation: "Only part of the requested usage was returned.", Color: "#ef6c00"},
	{Code: 3050, Message: "Parameter Not Recognized in this Context", Severity: SeverityWarning, Color: "#ef6c00"},
	{Code: 3060, Message: "Invalid ReportFilter Value", Severity: SeverityWarning, Color: "#ef6c00"},
	{Code: 3061, Message: "Incongruous ReportFilter Value", Severity: SeverityWarning, Color: "#ef6c00"},
	{Code: 3062, Message: "Invalid ReportAttribute Value", Severity: SeverityWarning, Color: "#ef6c00"},
	{Code: 3063, Message: "Components Not Supported", Severity: SeverityWarning, Color: "#ef6c00"},
	{Code: 3070, Message: "Required ReportFilter Missing", Severity: SeverityError, Color: "#c62828"},
	{Code: 3071, Message: "Required ReportAttribute Missing", Severity: SeverityError, Color: "#c62828"},

	{Code: CodeNoConnection, Message: "No connection to the provider", Severity: SeverityError, Explanation: "The request failed before a response was received.", Suggestion: "Check the service URL and network reachability.", Color: "#c62828"},
	{Code: CodeHTTPError, Message: "HTTP error status", Severity: SeverityError, Explanation: "The provider answered with an HTTP error and no SUSHI exception.", Color: "#c62828"},
	{Code: CodeNoJSON, Message: "No JSON returned", Severity: SeverityError, Explanation: "The response body was empty.", Color: "#c62828"},
	{Code: CodeJSONArray, Message: "JSON array returned instead of a report", Severity: SeverityError, Color: "#c62828"},
	{Code: CodeMalformedJSON, Message: "Malformed JSON returned", Severity: SeverityError, Color: "#c62828"},
	{Code: CodeHTMLBody, Message: "HTML returned instead of JSON", Severity: SeverityError, Color: "#c62828"},
	{Code: CodeUnrecognizedBody, Message: "Unrecognized response body", Severity: SeverityError, Color: "#c62828"},
	{Code: CodeValidationFailed, Message: "COUNTER validation failed", Severity: SeverityError, NewStatus: "Fail", Color: "#c62828"},
	{Code: CodeBadRelease, Message: "Unsupported COUNTER release", Severity: SeverityError, NewStatus: "Fail", Color: "#c62828"},
	{Code: CodeMissingHeader, Message: "Report header missing", Severity: SeverityError, NewStatus: "Fail", Color: "#c62828"},
	{Code: CodeHarvestMissing, Message: "Harvest record missing", Severity: SeverityFatal, NewStatus: "Fail", Color: "#c62828"},
	{Code: CodeReportMissing, Message: "Report definition missing", Severity: SeverityFatal, NewStatus: "Fail", Color: "#c62828"},
	{Code: CodeCredsDisabled, Message: "Credentials disabled", Severity: SeverityFatal, NewStatus: "BadCreds", Color: "#c62828"},
	{Code: CodeInstInactive, Message: "Institution inactive", Severity: SeverityFatal, NewStatus: "Fail", Color: "#c62828"},
	{Code: CodeProvInactive, Message: "Provider inactive", Severity: SeverityFatal, NewStatus: "Fail", Color: "#c62828"},
	{Code: CodeRetriesExhausted, Message: "Retry limit reached", Severity: SeverityError, NewStatus: "NoRetries", Color: "#c62828"},
}
