// Package dashboard serves the read-only HTTP surface a human watches
// while the proxy runs: the embedded log viewer page, its SSE event feed,
// a config snapshot, and the Prometheus scrape endpoint.
package dashboard

import (
	"embed"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/weaverun/weaverun/internal/config"
	"github.com/weaverun/weaverun/internal/logstore"
	"github.com/weaverun/weaverun/internal/metrics"
)

//go:embed static/index.html
var staticFS embed.FS

// prefix is the reserved mount point; the proxy's catch-all handler refuses
// to ever forward anything under it.
const prefix = "/__weaverun__"

// Mount registers the dashboard's routes on router. reg may be nil (e.g. in
// tests), in which case /metrics responds 404 instead of panicking.
func Mount(router chi.Router, store *logstore.Store, cfg *config.Config, reg *metrics.Registry) {
	d := &dashboard{store: store, cfg: cfg, metrics: reg}

	router.Get(prefix, d.handlePage)
	router.Get(prefix+"/events", d.handleEvents)
	router.Get(prefix+"/config", d.handleConfig)
	router.Get(prefix+"/metrics", d.handleMetrics)
}

type dashboard struct {
	store   *logstore.Store
	cfg     *config.Config
	metrics *metrics.Registry
}

func (d *dashboard) handlePage(w http.ResponseWriter, r *http.Request) {
	f, err := staticFS.Open("static/index.html")
	if err != nil {
		http.Error(w, "dashboard unavailable", http.StatusInternalServerError)
		return
	}
	defer f.Close()
	body, err := io.ReadAll(f)
	if err != nil {
		http.Error(w, "dashboard unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(body)
}

// configSnapshot is the safe subset of Config exposed to the dashboard:
// provider names, flags, and the loaded config file's path only, never raw
// patterns or file contents.
type configSnapshot struct {
	CaptureAll bool     `json:"capture_all"`
	Debug      bool     `json:"debug"`
	ConfigPath string   `json:"config_path,omitempty"`
	Providers  []string `json:"providers"`
}

func (d *dashboard) handleConfig(w http.ResponseWriter, r *http.Request) {
	snap := configSnapshot{
		CaptureAll: d.cfg.CaptureAll,
		Debug:      d.cfg.Debug,
		ConfigPath: d.cfg.ConfigPath,
	}
	for _, p := range d.cfg.Providers {
		snap.Providers = append(snap.Providers, p.Name)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snap)
}

func (d *dashboard) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if d.metrics == nil {
		http.NotFound(w, r)
		return
	}
	d.metrics.Handler().ServeHTTP(w, r)
}
