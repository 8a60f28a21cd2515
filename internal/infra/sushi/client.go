package sushi

import (
	"context"
	"io"
	"net/http"
	"time"

	"counter_harvester/internal/domain/catalog"
	"counter_harvester/internal/domain/credential"
	"counter_harvester/internal/domain/harvest"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

// decodeFactor estimates how much larger a JSON report grows once decoded
// into maps and slices.
const decodeFactor = 8

// Client talks to SUSHI endpoints. HTTP error statuses are returned inside
// the Result, never as a Go error.
type Client struct {
	httpClient *http.Client
	log        *logrus.Entry
	available  func() (uint64, error)
}

func NewClient(timeout time.Duration, log *logrus.Entry) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
		available:  availableMemory,
	}
}

func availableMemory() (uint64, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return v.Available, nil
}

// Fetch issues a GET to uri and classifies whatever comes back.
func (c *Client) Fetch(ctx context.Context, uri string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return failure(catalog.CodeNoConnection, harvest.StepHTTP, "Invalid request", err.Error())
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return failure(catalog.CodeNoConnection, harvest.StepHTTP, "No connection", err.Error())
	}
	defer resp.Body.Close()

	c.checkMemory(resp.ContentLength, uri)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		res := failure(catalog.CodeNoConnection, harvest.StepHTTP, "Connection interrupted", err.Error())
		res.HTTPStatus = resp.StatusCode
		return res
	}
	return Classify(resp.StatusCode, body)
}

// checkMemory only warns; the request always continues.
func (c *Client) checkMemory(contentLength int64, uri string) {
	if contentLength <= 0 {
		return
	}
	avail, err := c.available()
	if err != nil {
		c.log.WithError(err).Debug("Could not read available memory")
		return
	}
	need := uint64(contentLength) * decodeFactor
	if need > avail {
		c.log.WithFields(logrus.Fields{
			"content_length": contentLength,
			"estimated":      need,
			"available":      avail,
			"uri":            Redact(uri),
		}).Warn("Decoded response may exceed available memory")
	}
}

// Report builds the URI for req and fetches it.
func (c *Client) Report(ctx context.Context, req Request) (string, Result) {
	uri, err := BuildURI(req)
	if err != nil {
		return "", failure(catalog.CodeCredsDisabled, harvest.StepInitiation, "Cannot build request", err.Error())
	}
	return uri, c.Fetch(ctx, uri)
}

// Status calls the status method of the provider's endpoint.
func (c *Client) Status(ctx context.Context, p *credential.Provider, cred *credential.Credential) Result {
	return c.method(ctx, p, cred, MethodStatus)
}

// Members calls the members method of the provider's endpoint. Unlike
// reports, a bare JSON array is the expected answer here.
func (c *Client) Members(ctx context.Context, p *credential.Provider, cred *credential.Credential) Result {
	res := c.method(ctx, p, cred, MethodMembers)
	if res.Code != catalog.CodeJSONArray {
		return res
	}
	return Result{
		Outcome:    OutcomeSuccess,
		Step:       harvest.StepCOUNTER,
		Severity:   catalog.SeverityInfo,
		HTTPStatus: res.HTTPStatus,
		Raw:        res.Raw,
	}
}

func (c *Client) method(ctx context.Context, p *credential.Provider, cred *credential.Credential, method string) Result {
	uri, err := methodURI(p, cred, method, nil)
	if err != nil {
		return failure(catalog.CodeCredsDisabled, harvest.StepInitiation, "Cannot build request", err.Error())
	}
	return c.Fetch(ctx, uri)
}
