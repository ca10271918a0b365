// Package observation models a single request/response exchange handed to
// the classification core by an intercepting proxy. Observations are
// ephemeral: they are consumed by the classifier and never persisted.
package observation

import (
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	sharedErrors "github.com/mckeimic/mitmscripts/internal/shared/errors"
)

// Observation is one completed HTTP exchange as seen on the wire.
type Observation struct {
	// Method is the request method (GET, POST, ...).
	Method string

	// URL is the full request URL.
	URL *url.URL

	// Host is the normalized authority the exchange was served by. It is
	// the identity key for all findings derived from this observation.
	Host string

	// Secure reports whether the exchange happened over TLS.
	Secure bool

	// StatusCode is the response status.
	StatusCode int

	// Header holds the response headers as received. http.Header keeps
	// lookups case-insensitive and preserves duplicate values in order.
	Header http.Header

	// Body is the buffered response body. The capture layer may truncate
	// it; matchers must treat it as a bounded window, not the full stream.
	Body []byte

	// BodyTruncated reports whether Body was cut off at the capture cap.
	BodyTruncated bool
}

// Validate reports whether the observation carries the fields the classifier
// requires. A malformed observation is skipped as a whole, never partially
// classified.
func (o *Observation) Validate() error {
	if o == nil {
		return sharedErrors.ErrMalformedObservation
	}
	if o.URL == nil {
		return fmt.Errorf("%w: %v", sharedErrors.ErrMalformedObservation, sharedErrors.ErrMissingURL)
	}
	if o.Host == "" {
		return fmt.Errorf("%w: %v", sharedErrors.ErrMalformedObservation, sharedErrors.ErrEmptyHost)
	}
	return nil
}

// HeaderValue returns the first value of a response header, or "" when the
// header is absent.
func (o *Observation) HeaderValue(name string) string {
	if o.Header == nil {
		return ""
	}
	return o.Header.Get(name)
}

// HasHeader reports whether the named response header was present at all,
// even with an empty value.
func (o *Observation) HasHeader(name string) bool {
	if o.Header == nil {
		return false
	}
	_, ok := o.Header[http.CanonicalHeaderKey(name)]
	return ok
}

// ContentType returns the media type of the response body without parameters
// (e.g. "text/html"), lowercased. Unparseable values fall back to the raw
// header value.
func (o *Observation) ContentType() string {
	raw := o.HeaderValue("Content-Type")
	if raw == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	return mediaType
}

// FromExchange builds an observation from a request/response pair with an
// already-buffered body. The response may outlive the returned observation;
// headers are referenced, not copied.
func FromExchange(req *http.Request, resp *http.Response, body []byte, truncated bool) *Observation {
	obs := &Observation{
		Body:          body,
		BodyTruncated: truncated,
	}
	if req != nil {
		obs.Method = req.Method
		obs.URL = req.URL
		obs.Secure = req.URL != nil && strings.EqualFold(req.URL.Scheme, "https")
		obs.Host = NormalizeHost(requestAuthority(req))
	}
	if resp != nil {
		obs.StatusCode = resp.StatusCode
		obs.Header = resp.Header
	}
	return obs
}

func requestAuthority(req *http.Request) string {
	if req.URL != nil && req.URL.Host != "" {
		return req.URL.Host
	}
	return req.Host
}

// NormalizeHost lowercases an authority string and strips default ports so
// that "Example.com:443" and "example.com" key the same catalogue entry.
// Non-default ports are kept.
func NormalizeHost(authority string) string {
	host := strings.ToLower(strings.TrimSpace(authority))
	host = strings.TrimSuffix(host, ".")
	if h, port, ok := splitHostPort(host); ok {
		if port == "80" || port == "443" {
			return h
		}
		return h + ":" + port
	}
	return host
}

// splitHostPort splits "host:port" without requiring a valid port, leaving
// IPv6 literals like "[::1]" intact when no port follows.
func splitHostPort(authority string) (host, port string, ok bool) {
	idx := strings.LastIndex(authority, ":")
	if idx < 0 {
		return authority, "", false
	}
	// IPv6 literal without a port, e.g. "[::1]" or a bare "::1".
	if strings.HasSuffix(authority, "]") || strings.Count(authority, ":") > 1 && !strings.Contains(authority, "]") {
		return authority, "", false
	}
	return authority[:idx], authority[idx+1:], true
}
