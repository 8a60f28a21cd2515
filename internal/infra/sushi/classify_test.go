package sushi

import (
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"counter_harvester/internal/domain/catalog"
	"counter_harvester/internal/domain/harvest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyShapes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   int
		step   harvest.Step
	}{
		{"empty body", http.StatusOK, "  ", catalog.CodeNoJSON, harvest.StepJSON},
		{"empty body with error status", http.StatusBadGateway, "", catalog.CodeHTTPError, harvest.StepHTTP},
		{"array without exceptions", http.StatusOK, `[{"foo":1}]`, catalog.CodeJSONArray, harvest.StepJSON},
		{"html page", http.StatusOK, "<!DOCTYPE html><html><body>Login</body></html>", catalog.CodeHTMLBody, harvest.StepJSON},
		{"truncated object", http.StatusOK, `{"Report_Header": {`, catalog.CodeMalformedJSON, harvest.StepJSON},
		{"json string holding json", http.StatusOK, `"{\"Code\": 3030"`, catalog.CodeMalformedJSON, harvest.StepJSON},
		{"plain text", http.StatusOK, "Service temporarily down", catalog.CodeUnrecognizedBody, harvest.StepJSON},
		{"number", http.StatusOK, "42", catalog.CodeUnrecognizedBody, harvest.StepJSON},
		{"server error without exception", http.StatusInternalServerError, `{"error":"boom"}`, catalog.CodeHTTPError, harvest.StepHTTP},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Classify(tt.status, []byte(tt.body))
			assert.Equal(t, OutcomeFail, res.Outcome)
			assert.Equal(t, tt.code, res.Code)
			assert.Equal(t, tt.step, res.Step)
			assert.Equal(t, tt.status, res.HTTPStatus)
			assert.Equal(t, []byte(tt.body), res.Raw)
		})
	}
}

func TestClassifySuccess(t *testing.T) {
	res := Classify(http.StatusOK, []byte(`{"Report_Header":{"Release":"5"},"Report_Items":[]}`))
	assert.True(t, res.Succeeded())
	assert.Zero(t, res.Code)
	require.NotNil(t, res.Payload)
	assert.Contains(t, res.Payload, "Report_Items")
}

func TestClassifyExceptionPriority(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"root code and message", `{"Code": 2020, "Severity": "Error", "Message": "APIKey Invalid"}`, 2020},
		{"root exception object", `{"Exception": {"Code": 3000, "Message": "Report Not Supported"}}`, 3000},
		{"root exceptions array takes first", `{"Exceptions": [{"Code": 3031, "Message": "Not ready"}, {"Code": 3030, "Message": "No usage"}]}`, 3031},
		{"header exceptions", `{"Report_Header": {"Exceptions": [{"Code": "3030", "Severity": "Info", "Message": "No Usage Available", "Data": "Jan 2024"}]}, "Report_Items": []}`, 3030},
		{"root wins over header", `{"Code": 1000, "Message": "Down", "Report_Header": {"Exceptions": [{"Code": 3030, "Message": "x"}]}}`, 1000},
		{"array of exceptions", `[{"Code": 2000, "Severity": "Error", "Message": "Requestor Not Authorized"}]`, 2000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Classify(http.StatusOK, []byte(tt.body))
			assert.Equal(t, OutcomeFail, res.Outcome)
			assert.Equal(t, tt.code, res.Code)
			assert.Equal(t, harvest.StepAPI, res.Step)
			assert.True(t, res.HasException())
		})
	}
}

func TestClassifyExceptionFields(t *testing.T) {
	body := `{"Report_Header": {"Exceptions": [{"Code": 3030, "Severity": "Info", "Message": "No Usage Available for Requested Dates", "Data": "2024-01", "Help_URL": "https://example.org/3030"}]}}`
	res := Classify(http.StatusOK, []byte(body))

	assert.Equal(t, catalog.SeverityInfo, res.Severity)
	assert.Equal(t, "No Usage Available for Requested Dates", res.Message)
	assert.Equal(t, "2024-01", res.Detail)
	assert.Equal(t, "https://example.org/3030", res.HelpURL)
	require.NotNil(t, res.Payload)
}

func TestClassifyQueuedIsPending(t *testing.T) {
	res := Classify(http.StatusAccepted, []byte(`{"Code": 1011, "Severity": "Warning", "Message": "Report Queued for Processing"}`))
	assert.Equal(t, OutcomePending, res.Outcome)
	assert.Equal(t, catalog.CodeReportQueued, res.Code)
}

func TestClassifyExceptionBeatsHTTPStatus(t *testing.T) {
	res := Classify(http.StatusUnauthorized, []byte(`{"Code": 2020, "Message": "APIKey Invalid"}`))
	assert.Equal(t, 2020, res.Code)
	assert.Equal(t, http.StatusUnauthorized, res.HTTPStatus)
}

func TestClassifyMissingSeverityDefaultsToError(t *testing.T) {
	res := Classify(http.StatusOK, []byte(`{"Code": 4242, "Message": "Something new"}`))
	assert.Equal(t, catalog.SeverityError, res.Severity)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	// 511 ASCII bytes put the two-byte rune across the cut.
	s := strings.Repeat("a", maxDetailLen-1) + strings.Repeat("é", 10)
	got := truncate(s)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", maxDetailLen-1)+"...", got)

	s = strings.Repeat("ü", maxDetailLen)
	got = truncate(s)
	assert.True(t, utf8.ValidString(got))
	assert.Len(t, got, maxDetailLen+3)

	assert.Equal(t, "short", truncate("short"))
}

func TestClassifyHTMLDetailIsValidUTF8(t *testing.T) {
	// The odd-length prefix lands the cut inside a Cyrillic letter.
	body := "<html><body>x" + strings.Repeat("Ошибка ", 200) + "</body></html>"
	res := Classify(http.StatusOK, []byte(body))
	assert.Equal(t, catalog.CodeHTMLBody, res.Code)
	assert.True(t, utf8.ValidString(res.Detail))
}
