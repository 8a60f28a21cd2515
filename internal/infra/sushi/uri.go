package sushi

import (
	"net/url"
	"strings"

	"counter_harvester/internal/domain/credential"

	"github.com/cockroachdb/errors"
)

const (
	MethodReports = "reports"
	MethodStatus  = "status"
	MethodMembers = "members"
)

var (
	ErrInvalidEndpoint      = errors.New("invalid provider service URL")
	ErrIncompleteCredential = errors.New("credential is missing a required connector value")
)

// Request identifies one report request.
type Request struct {
	Provider   *credential.Provider
	Credential *credential.Credential
	Report     string // Master report code, e.g. "TR"
	Release    string
	Begin      string // YYYY-MM-DD
	End        string
}

// trailing segments providers commonly register as part of their endpoint
var endpointSuffixes = []string{"/" + MethodReports, "/" + MethodStatus, "/" + MethodMembers}

// NormalizeEndpoint strips trailing slashes and a trailing method segment
// from a registered service URL.
func NormalizeEndpoint(raw string) (string, error) {
	s := strings.TrimRight(strings.TrimSpace(raw), "/")
	for _, suffix := range endpointSuffixes {
		if len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix) {
			s = strings.TrimRight(s[:len(s)-len(suffix)], "/")
			break
		}
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", errors.Wrapf(ErrInvalidEndpoint, "%q: %v", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", errors.Wrapf(ErrInvalidEndpoint, "%q", raw)
	}
	return s, nil
}

// authParams returns the subset of credential fields the provider requires.
func authParams(p *credential.Provider, c *credential.Credential) (url.Values, error) {
	params := url.Values{}
	for _, conn := range p.Connectors {
		var value string
		switch conn {
		case credential.ConnectorCustomerID:
			value = c.CustomerID
		case credential.ConnectorRequestorID:
			value = c.RequestorID
		case credential.ConnectorAPIKey:
			value = c.APIKey
		case credential.ConnectorPlatform:
			value = c.Platform
		case credential.ConnectorExtraArgs:
			// Free-form query string, merged as-is.
			extra, err := url.ParseQuery(strings.TrimLeft(strings.TrimSpace(c.ExtraArgs), "?&"))
			if err != nil {
				return nil, errors.Wrapf(ErrIncompleteCredential, "extra_args: %v", err)
			}
			for k, vs := range extra {
				for _, v := range vs {
					params.Add(k, v)
				}
			}
			continue
		default:
			continue
		}
		if strings.TrimSpace(value) == "" {
			return nil, errors.Wrapf(ErrIncompleteCredential, "%s", conn)
		}
		params.Set(string(conn), strings.TrimSpace(value))
	}
	return params, nil
}

func methodURI(p *credential.Provider, c *credential.Credential, method string, extra url.Values) (string, error) {
	base, err := NormalizeEndpoint(p.ServiceURL)
	if err != nil {
		return "", err
	}
	params, err := authParams(p, c)
	if err != nil {
		return "", err
	}
	for k, vs := range extra {
		params[k] = vs
	}
	uri := base + "/" + method
	if encoded := params.Encode(); encoded != "" {
		uri += "?" + encoded
	}
	return uri, nil
}

// BuildURI returns the full reports request URI for req.
func BuildURI(req Request) (string, error) {
	if req.Provider == nil || req.Credential == nil {
		return "", errors.New("request needs a provider and a credential")
	}
	if req.Report == "" || req.Begin == "" || req.End == "" {
		return "", errors.Newf("incomplete report request %q %s..%s", req.Report, req.Begin, req.End)
	}
	params := reportParams(req.Report, req.Release)
	params.Set("begin_date", req.Begin)
	params.Set("end_date", req.End)
	return methodURI(req.Provider, req.Credential, MethodReports+"/"+strings.ToLower(req.Report), params)
}
