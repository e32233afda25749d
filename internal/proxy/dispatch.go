package proxy

import (
	"net/http"
	"net/url"
	"strings"
)

// dashboardPrefix is reserved for the dashboard component; per §4.4 it is
// never forwarded, even if nothing underneath it is registered.
const dashboardPrefix = "/__weaverun__"

// resolveTarget inspects the raw request target for the absolute-form and
// escaped forms an explicit HTTP-proxy client sends, per §4.4:
//   - "http://..." or "https://..." (HTTP/1.1 absolute-form)
//   - "//host/..." (prefixed with "http:")
//   - "/http://..." or "/https://..." (leading slash stripped)
//
// ok is false for ordinary origin-form requests, which the Upstream
// Resolver handles instead.
func resolveTarget(r *http.Request) (target string, ok bool) {
	raw := r.RequestURI
	switch {
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return raw, true
	case strings.HasPrefix(raw, "//"):
		return "http:" + raw, true
	case strings.HasPrefix(raw, "/http://"), strings.HasPrefix(raw, "/https://"):
		return raw[1:], true
	default:
		return "", false
	}
}

// isDashboardPath reports whether path falls under the reserved dashboard
// prefix.
func isDashboardPath(path string) bool {
	return path == dashboardPrefix || strings.HasPrefix(path, dashboardPrefix+"/")
}

// hostFromURL extracts the host (without port) used for provider host
// matching. An unparseable URL yields an empty host, which matches
// unrestricted patterns only.
func hostFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
