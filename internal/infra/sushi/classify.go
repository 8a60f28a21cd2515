package sushi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"counter_harvester/internal/domain/catalog"
	"counter_harvester/internal/domain/harvest"
)

const maxDetailLen = 512

// Classify turns an HTTP status and body into a Result. Shape problems get a
// distinct internal code each; embedded protocol exceptions are taken in
// priority order: root Code+Message, root Exception/Exceptions, then the same
// inside Report_Header. Only the first exception of an array is used, the
// raw body is always kept.
func Classify(httpStatus int, body []byte) Result {
	res := classify(httpStatus, body)
	res.HTTPStatus = httpStatus
	res.Raw = body
	return res
}

func classify(httpStatus int, body []byte) Result {
	httpFailed := httpStatus >= http.StatusBadRequest
	trimmed := bytes.TrimSpace(body)

	if len(trimmed) == 0 {
		if httpFailed {
			return httpError(httpStatus)
		}
		return failure(catalog.CodeNoJSON, harvest.StepJSON, "No JSON returned", "empty response body")
	}

	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		if httpFailed {
			return httpError(httpStatus)
		}
		return classifyUnparsable(trimmed, err)
	}

	switch v := decoded.(type) {
	case map[string]any:
		if exc, ok := findException(v); ok {
			res := exceptionResult(exc)
			res.Payload = v
			return res
		}
		if httpFailed {
			return httpError(httpStatus)
		}
		return Result{Outcome: OutcomeSuccess, Step: harvest.StepCOUNTER, Severity: catalog.SeverityInfo, Payload: v}
	case []any:
		if len(v) > 0 {
			if first, ok := v[0].(map[string]any); ok && hasCode(first) {
				return exceptionResult(first)
			}
		}
		if httpFailed {
			return httpError(httpStatus)
		}
		return failure(catalog.CodeJSONArray, harvest.StepJSON, "JSON array returned", fmt.Sprintf("array of %d elements without exceptions", len(v)))
	case string:
		if httpFailed {
			return httpError(httpStatus)
		}
		if looksLikeJSON(strings.TrimSpace(v)) {
			return failure(catalog.CodeMalformedJSON, harvest.StepJSON, "Malformed JSON returned", truncate(v))
		}
		return failure(catalog.CodeUnrecognizedBody, harvest.StepJSON, "Unrecognized response", truncate(v))
	default:
		if httpFailed {
			return httpError(httpStatus)
		}
		return failure(catalog.CodeUnrecognizedBody, harvest.StepJSON, "Unrecognized response", truncate(string(trimmed)))
	}
}

func classifyUnparsable(body []byte, err error) Result {
	s := string(body)
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "<!doctype html") || strings.Contains(lower, "<html"):
		return failure(catalog.CodeHTMLBody, harvest.StepJSON, "HTML returned instead of JSON", truncate(s))
	case looksLikeJSON(s):
		return failure(catalog.CodeMalformedJSON, harvest.StepJSON, "Malformed JSON returned", err.Error())
	}
	return failure(catalog.CodeUnrecognizedBody, harvest.StepJSON, "Unrecognized response", truncate(s))
}

func httpError(status int) Result {
	return failure(catalog.CodeHTTPError, harvest.StepHTTP, "HTTP error",
		fmt.Sprintf("%d %s", status, http.StatusText(status)))
}

func looksLikeJSON(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

// findException applies the lookup order to a decoded object.
func findException(root map[string]any) (map[string]any, bool) {
	if hasCode(root) && hasField(root, "Message") {
		return root, true
	}
	if exc, ok := exceptionIn(root); ok {
		return exc, true
	}
	if header, ok := root["Report_Header"].(map[string]any); ok {
		return exceptionIn(header)
	}
	return nil, false
}

func exceptionIn(obj map[string]any) (map[string]any, bool) {
	for _, key := range []string{"Exception", "Exceptions"} {
		switch v := obj[key].(type) {
		case map[string]any:
			if hasCode(v) {
				return v, true
			}
		case []any:
			if len(v) > 0 {
				if first, ok := v[0].(map[string]any); ok && hasCode(first) {
					return first, true
				}
			}
		}
	}
	return nil, false
}

func hasField(obj map[string]any, key string) bool {
	_, ok := obj[key]
	return ok
}

func hasCode(obj map[string]any) bool {
	_, ok := exceptionCode(obj)
	return ok
}

// exceptionCode accepts numeric codes and numeric strings.
func exceptionCode(obj map[string]any) (int, bool) {
	switch v := obj["Code"].(type) {
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}

func exceptionResult(exc map[string]any) Result {
	code, _ := exceptionCode(exc)
	outcome := OutcomeFail
	if code == catalog.CodeReportQueued {
		outcome = OutcomePending
	}
	return Result{
		Outcome:  outcome,
		Code:     code,
		Step:     harvest.StepAPI,
		Severity: catalog.ParseSeverity(stringField(exc, "Severity")),
		Message:  stringField(exc, "Message"),
		Detail:   truncate(stringField(exc, "Data")),
		HelpURL:  stringField(exc, "Help_URL"),
	}
}

// stringField renders scalar JSON values as strings.
func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// truncate cuts s to at most maxDetailLen bytes without splitting a rune.
func truncate(s string) string {
	if len(s) <= maxDetailLen {
		return s
	}
	cut := maxDetailLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
