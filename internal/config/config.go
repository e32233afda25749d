// Package config loads and holds the proxy's process-wide configuration:
// the ordered provider pattern list, the capture-all and debug flags, and
// the path of the config file that was loaded (if any). A Config is
// immutable once Load returns.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ProviderPattern is a named matcher with an ordered list of path patterns
// (regex or plain suffix) and an optional ordered list of host regex
// patterns. An empty HostPatterns list means "unrestricted" — any host
// satisfies it.
type ProviderPattern struct {
	Name         string   `koanf:"name"`
	PathPatterns []string `koanf:"path_patterns"`
	HostPatterns []string `koanf:"host_patterns"`
	IsRegex      bool     `koanf:"is_regex"`
}

// Config is the top-level, process-wide configuration for a proxy run.
// Providers is ordered: user-defined patterns (if any) come first, so they
// take precedence over built-ins on overlapping patterns.
type Config struct {
	Providers    []ProviderPattern
	CaptureAll   bool
	Debug        bool
	ConfigPath   string // empty if no file was found
	DisableNames []string
}

// fileConfig is the shape of weaverun.config.yaml, decoded via koanf.
type fileConfig struct {
	Providers          []ProviderPattern `koanf:"providers"`
	CaptureAllRequests bool              `koanf:"capture_all_requests"`
	DisableProviders   []string          `koanf:"disable_providers"`
	Debug              bool              `koanf:"debug"`
}

// Load resolves the config file search path (WEAVERUN_CONFIG env var, then
// ./weaverun.config.yaml, then ~/.weaverun.config.yaml), layers any
// WEAVERUN_-prefixed environment variables on top, prepends custom
// providers ahead of the built-ins, strips disabled built-ins, and applies
// the WEAVERUN_DEBUG override. A missing config file is not an error — the
// proxy runs with just the built-in provider set and capture_all=false.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{Providers: append([]ProviderPattern(nil), BuiltinProviders...)}

	path := resolveConfigPath()
	if path != "" {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}

		// WEAVERUN_-prefixed env vars layer on top of the file, the same
		// convention the teacher used for its LLMROUTER_ overrides: the
		// env var name minus the prefix, lowercased, with each underscore
		// turned into a dot, becomes the koanf key path.
		if err := k.Load(env.Provider("WEAVERUN_", ".", func(s string) string {
			return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "WEAVERUN_")), "_", ".")
		}), nil); err != nil {
			return nil, err
		}

		var fc fileConfig
		if err := k.Unmarshal("", &fc); err != nil {
			return nil, err
		}

		for i := range fc.Providers {
			if fc.Providers[i].Name == "" {
				fc.Providers[i].Name = "custom"
			}
			if !k.Exists("providers." + strconv.Itoa(i) + ".is_regex") {
				fc.Providers[i].IsRegex = true
			}
		}

		// Custom providers are prepended so they override built-ins on
		// overlapping patterns.
		cfg.Providers = append(fc.Providers, cfg.Providers...)
		cfg.CaptureAll = fc.CaptureAllRequests
		cfg.Debug = fc.Debug
		cfg.DisableNames = fc.DisableProviders
		cfg.ConfigPath = path

		if len(cfg.DisableNames) > 0 {
			disabled := make(map[string]bool, len(cfg.DisableNames))
			for _, n := range cfg.DisableNames {
				disabled[n] = true
			}
			// Only the built-ins (everything after the custom entries) are
			// filtered; custom providers are kept whatever their name.
			filtered := cfg.Providers[:len(fc.Providers)]
			for _, p := range cfg.Providers[len(fc.Providers):] {
				if !disabled[p.Name] {
					filtered = append(filtered, p)
				}
			}
			cfg.Providers = filtered
		}
	}

	if isTruthy(os.Getenv("WEAVERUN_DEBUG")) {
		cfg.Debug = true
	}

	return cfg, nil
}

// resolveConfigPath implements the three-way search order from §6: an
// explicit WEAVERUN_CONFIG path, then the current directory, then the
// user's home directory. Returns "" if none exist.
func resolveConfigPath() string {
	if p := os.Getenv("WEAVERUN_CONFIG"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if _, err := os.Stat("weaverun.config.yaml"); err == nil {
		return "weaverun.config.yaml"
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".weaverun.config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func isTruthy(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes":
		return true
	}
	return false
}
