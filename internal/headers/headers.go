// Package headers filters the HTTP headers exchanged with both the client
// and the upstream, stripping ones that are only valid for a single
// transport hop (RFC 2616 §13.5.1).
package headers

import (
	"net/http"
	"strings"
)

// HopByHop lists headers that must never be forwarded across a proxy hop.
var HopByHop = map[string]bool{
	"connection":          true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"te":                  true,
	"trailers":            true,
	"transfer-encoding":   true,
	"upgrade":             true,
	"content-encoding":    true,
}

// FilterRequest copies src into a fresh header set with Host and
// Content-Length removed (both are set by the HTTP client from the request
// line and body, not forwarded verbatim) along with hop-by-hop headers.
func FilterRequest(src http.Header) http.Header {
	out := make(http.Header, len(src))
	for k, vv := range src {
		lk := strings.ToLower(k)
		if lk == "host" || lk == "content-length" || HopByHop[lk] {
			continue
		}
		out[k] = append([]string(nil), vv...)
	}
	return out
}

// FilterResponse copies src into a fresh header set with hop-by-hop headers
// removed before relaying an upstream response to the client.
func FilterResponse(src http.Header) http.Header {
	out := make(http.Header, len(src))
	for k, vv := range src {
		if HopByHop[strings.ToLower(k)] {
			continue
		}
		out[k] = append([]string(nil), vv...)
	}
	return out
}
