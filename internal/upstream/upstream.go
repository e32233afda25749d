// Package upstream resolves the real destination URL for an intercepted
// request and extracts a bare path from either a path or a full URL.
package upstream

import (
	"net/url"
	"os"
	"strings"
)

// DefaultUpstream is used when neither WEAVE_ORIGINAL_OPENAI_BASE_URL nor
// WEAVE_UPSTREAM_BASE is set. It includes /v1 because the launcher points
// OPENAI_BASE_URL at the bare proxy address, so SDK requests arrive as e.g.
// /chat/completions without it.
const DefaultUpstream = "https://api.openai.com/v1"

// Resolve returns the upstream URL a request at path should be forwarded
// to. If path is already an absolute URL (the HTTP_PROXY dispatch case),
// it's returned unchanged. Otherwise the base is chosen in priority order:
// the user's original OPENAI_BASE_URL (preserved by the launcher as
// WEAVE_ORIGINAL_OPENAI_BASE_URL before rewriting it to point at the
// proxy), an explicit WEAVE_UPSTREAM_BASE override, or DefaultUpstream.
func Resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}

	if original := os.Getenv("WEAVE_ORIGINAL_OPENAI_BASE_URL"); original != "" {
		return joinBase(original, path)
	}
	if fallback := os.Getenv("WEAVE_UPSTREAM_BASE"); fallback != "" {
		return joinBase(fallback, path)
	}
	return joinBase(DefaultUpstream, path)
}

func joinBase(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// ExtractPath returns just the path component of urlOrPath. If urlOrPath is
// already a path, it's normalized to start with a leading slash.
func ExtractPath(urlOrPath string) string {
	if strings.HasPrefix(urlOrPath, "http://") || strings.HasPrefix(urlOrPath, "https://") {
		if parsed, err := url.Parse(urlOrPath); err == nil {
			return parsed.Path
		}
		return urlOrPath
	}
	if strings.HasPrefix(urlOrPath, "/") {
		return urlOrPath
	}
	return "/" + urlOrPath
}
