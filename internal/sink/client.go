// Package sink implements the external observability sink: a bounded,
// backgrounded worker pool that submits captured calls to an out-of-band
// collector and reports back a display URL for the dashboard to show.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"
)

// Task is a captured snapshot of a call, ready to hand to a Client. It
// carries no reference to the Log Store; OnTraceURL closes over a record id
// instead, so the worker never needs to know about records.
type Task struct {
	Provider     string
	Path         string
	Upstream     string
	RequestBody  any
	ResponseBody any
	StatusCode   int
	LatencyMs    float64
	Model        string
	TraceID      string
	SpanID       string
	ParentSpanID string
	OnTraceURL   func(traceURL string)
}

// Client submits one Task to the external sink and returns its display URL,
// if any. Implementations must be safe for concurrent use and must never
// panic — the worker treats any returned error as best-effort-failed and
// moves on.
type Client interface {
	Submit(ctx context.Context, t Task) (traceURL string, err error)
}

// resolveProject implements the project-identifier priority from §6:
// WEAVE_PROJECT, else WEAVE_PROJECT_ID (optionally qualified by
// WEAVE_ENTITY as "entity/project"), else the legacy WANDB_PROJECT_ID.
func resolveProject() string {
	if p := os.Getenv("WEAVE_PROJECT"); p != "" {
		return p
	}
	if p := os.Getenv("WEAVE_PROJECT_ID"); p != "" {
		if entity := os.Getenv("WEAVE_ENTITY"); entity != "" {
			return entity + "/" + p
		}
		return p
	}
	return os.Getenv("WANDB_PROJECT_ID")
}

// HTTPClient is the default Client: it lazily resolves the sink project on
// first use, remembers initialization failure for the rest of the process
// (the "failed" sticky bit from §4.8), and POSTs each task as a JSON
// envelope to a configured collector endpoint.
type HTTPClient struct {
	endpoint string
	http     *http.Client

	mu          sync.Mutex
	project     string
	initialized bool
	failed      bool
	warned      bool
}

// NewHTTPClient builds a Client that posts to endpoint (e.g. the value of
// WEAVE_SINK_URL). The http.Client is injected rather than constructed
// internally, matching the teacher's provider constructors.
func NewHTTPClient(endpoint string, httpClient *http.Client) *HTTPClient {
	return &HTTPClient{endpoint: endpoint, http: httpClient}
}

func (c *HTTPClient) ensureInit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized || c.failed {
		return c.initialized
	}

	project := resolveProject()
	if project == "" {
		c.warnOnceLocked("sink disabled (set WEAVE_PROJECT, WEAVE_PROJECT_ID, or WANDB_PROJECT_ID)")
		c.failed = true
		return false
	}
	if c.endpoint == "" {
		c.warnOnceLocked("sink disabled (no sink endpoint configured)")
		c.failed = true
		return false
	}

	c.project = project
	c.initialized = true
	return true
}

// warnOnceLocked emits at most one stderr warning per process for this
// client, matching the sticky-warning discipline in §4.8/§7. Must be called
// with mu held.
func (c *HTTPClient) warnOnceLocked(msg string) {
	if c.warned {
		return
	}
	log.Printf("weaverun: %s", msg)
	c.warned = true
}

type sinkEnvelope struct {
	Op           string `json:"op"`
	Project      string `json:"project"`
	Path         string `json:"path"`
	Model        string `json:"model,omitempty"`
	Request      any    `json:"request"`
	Response     any    `json:"response"`
	StatusCode   int    `json:"status_code"`
	LatencyMs    float64 `json:"latency_ms"`
	Upstream     string `json:"upstream"`
	TraceID      string `json:"trace_id"`
	SpanID       string `json:"span_id"`
	ParentSpanID string `json:"parent_span_id,omitempty"`
	RunID        string `json:"run_id,omitempty"`
	App          string `json:"app,omitempty"`
}

type sinkResponse struct {
	TraceURL string `json:"trace_url"`
}

// Submit lazily initializes the client, then posts t to the collector
// endpoint. A warning is printed at most once per process for any failure
// kind (init or invocation) — callers should treat a non-nil error as
// "no trace URL available", never as fatal.
func (c *HTTPClient) Submit(ctx context.Context, t Task) (string, error) {
	if !c.ensureInit() {
		return "", fmt.Errorf("sink not initialized")
	}

	env := sinkEnvelope{
		Op:           fmt.Sprintf("%s%s", t.Provider, t.Path),
		Project:      c.project,
		Path:         t.Path,
		Model:        t.Model,
		Request:      t.RequestBody,
		Response:     t.ResponseBody,
		StatusCode:   t.StatusCode,
		LatencyMs:    t.LatencyMs,
		Upstream:     t.Upstream,
		TraceID:      t.TraceID,
		SpanID:       t.SpanID,
		ParentSpanID: t.ParentSpanID,
		RunID:        os.Getenv("WEAVE_RUN_ID"),
		App:          os.Getenv("WEAVE_APP_NAME"),
	}

	body, err := json.Marshal(env)
	if err != nil {
		c.mu.Lock()
		c.warnOnceLocked(fmt.Sprintf("sink encoding failed: %v", err))
		c.mu.Unlock()
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.mu.Lock()
		c.warnOnceLocked(fmt.Sprintf("sink request failed: %v", err))
		c.mu.Unlock()
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		c.mu.Lock()
		c.warnOnceLocked(fmt.Sprintf("sink request returned status %d", resp.StatusCode))
		c.mu.Unlock()
		return "", fmt.Errorf("sink returned status %d", resp.StatusCode)
	}

	var out sinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", nil
	}
	return out.TraceURL, nil
}

// httpClientTimeout is a 10s client timeout, the same value cmd/weaverun
// gives the http.Client it passes to NewHTTPClient. Nothing references it;
// cmd/weaverun writes its own 10s literal.
const httpClientTimeout = 10 * time.Second
