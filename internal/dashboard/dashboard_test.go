package dashboard

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaverun/weaverun/internal/config"
	"github.com/weaverun/weaverun/internal/logstore"
)

func newTestRouter(store *logstore.Store, cfg *config.Config) chi.Router {
	r := chi.NewRouter()
	Mount(r, store, cfg, nil)
	return r
}

func TestPage_ServesEmbeddedHTML(t *testing.T) {
	store := logstore.New()
	r := newTestRouter(store, &config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/__weaverun__", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "weaverun")
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestConfig_ReturnsSafeSnapshot(t *testing.T) {
	store := logstore.New()
	cfg := &config.Config{
		CaptureAll: true,
		Providers: []config.ProviderPattern{
			{Name: "openai", PathPatterns: []string{"secret-pattern"}},
		},
	}
	r := newTestRouter(store, cfg)

	req := httptest.NewRequest(http.MethodGet, "/__weaverun__/config", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var snap configSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.True(t, snap.CaptureAll)
	assert.Equal(t, []string{"openai"}, snap.Providers)
	assert.NotContains(t, rec.Body.String(), "secret-pattern")
}

func TestMetrics_404sWithoutRegistry(t *testing.T) {
	store := logstore.New()
	r := newTestRouter(store, &config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/__weaverun__/metrics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEvents_ReplaysBacklogThenLiveEvents(t *testing.T) {
	store := logstore.New()
	store.Add(logstore.Record{Path: "/v1/chat/completions", Model: "gpt-4o-mini", StatusCode: 200})

	r := newTestRouter(store, &config.Config{})
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/__weaverun__/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line := readDataLine(t, reader)
	assert.Contains(t, line, `"type":"log"`)
	assert.Contains(t, line, "gpt-4o-mini")

	go func() {
		time.Sleep(20 * time.Millisecond)
		store.Add(logstore.Record{Path: "/v1/messages", Model: "claude", StatusCode: 200})
	}()

	line = readDataLine(t, reader)
	assert.Contains(t, line, "claude")
}

func readDataLine(t *testing.T, reader *bufio.Reader) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		line, err := reader.ReadString('\n')
		if err != nil {
			continue
		}
		if strings.HasPrefix(line, "data: ") {
			return line
		}
	}
	t.Fatal("timed out waiting for an SSE data line")
	return ""
}

func TestEvents_UnsubscribesOnClientDisconnect(t *testing.T) {
	store := logstore.New()
	r := newTestRouter(store, &config.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/__weaverun__/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(rec, req)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after client disconnect")
	}
}
