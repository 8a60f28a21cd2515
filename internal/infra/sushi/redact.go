package sushi

import "net/url"

var secretParams = []string{"api_key", "requestor_id", "customer_id"}

// Redact masks authentication values so a request URI can be logged.
func Redact(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "<unparsable uri>"
	}
	q := u.Query()
	for _, key := range secretParams {
		if q.Has(key) {
			q.Set(key, "xxx")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
