// Package matcher classifies an outgoing request's path and host against a
// Config's provider patterns, deciding whether the request should be
// captured and which provider it belongs to.
package matcher

import (
	"regexp"
	"strings"

	"github.com/weaverun/weaverun/internal/config"
)

// compiled is a ProviderPattern with its regexes pre-built, so Classify
// never compiles a pattern on the hot path.
type compiled struct {
	name         string
	pathRegexes  []*regexp.Regexp
	pathSuffixes []string
	hostRegexes  []*regexp.Regexp
	isRegex      bool
}

// Matcher holds a compiled, ordered provider list plus the capture-all flag.
// A Matcher is safe for concurrent use; it holds no mutable state after
// construction.
type Matcher struct {
	providers  []compiled
	captureAll bool
}

// New compiles cfg's provider patterns. Patterns that fail to compile as
// regex are skipped (and will never match), matching the original's
// behavior of letting `re.search` raise only at match time — here we fail
// once at construction instead of on every request.
func New(cfg *config.Config) *Matcher {
	m := &Matcher{captureAll: cfg.CaptureAll}
	for _, p := range cfg.Providers {
		c := compiled{name: p.Name, isRegex: p.IsRegex}
		for _, pat := range p.PathPatterns {
			if p.IsRegex {
				re, err := regexp.Compile(pat)
				if err != nil {
					continue
				}
				c.pathRegexes = append(c.pathRegexes, re)
			} else {
				c.pathSuffixes = append(c.pathSuffixes, pat)
			}
		}
		for _, pat := range p.HostPatterns {
			re, err := regexp.Compile(`(?i)` + pat)
			if err != nil {
				continue
			}
			c.hostRegexes = append(c.hostRegexes, re)
		}
		m.providers = append(m.providers, c)
	}
	return m
}

// Classify reports whether path+host should be captured, and under which
// provider name. capture_all short-circuits to ("custom"); otherwise the
// first provider (in config order — custom providers first) whose path and
// host both match wins.
func (m *Matcher) Classify(path, host string) (capture bool, provider string) {
	if m.captureAll {
		return true, "custom"
	}
	for _, p := range m.providers {
		if p.matchesPath(path) && p.matchesHost(host) {
			return true, p.name
		}
	}
	return false, ""
}

func (c compiled) matchesPath(path string) bool {
	if path == "" {
		return false
	}
	normalized := path
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}

	if c.isRegex {
		for _, re := range c.pathRegexes {
			if re.MatchString(normalized) {
				return true
			}
		}
		return false
	}

	bare := normalized
	if i := strings.IndexByte(bare, '?'); i >= 0 {
		bare = bare[:i]
	}
	for _, suffix := range c.pathSuffixes {
		if strings.HasSuffix(normalized, suffix) || strings.HasSuffix(bare, suffix) {
			return true
		}
	}
	return false
}

func (c compiled) matchesHost(host string) bool {
	if len(c.hostRegexes) == 0 {
		return true
	}
	for _, re := range c.hostRegexes {
		if re.MatchString(host) {
			return true
		}
	}
	return false
}
