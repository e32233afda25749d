package proxy

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/weaverun/weaverun/internal/headers"
	"github.com/weaverun/weaverun/internal/logstore"
	"github.com/weaverun/weaverun/internal/sink"
	"github.com/weaverun/weaverun/internal/tracectx"
	"github.com/weaverun/weaverun/internal/upstream"
)

var (
	upstreamTimeoutOnce sync.Once
	upstreamConnErrOnce sync.Once
	upstreamErrOnce     sync.Once
)

// handleProxy is the HTTP Dispatcher entry point: it classifies the
// request target, then hands off to the Forward Engine or the Streaming
// Engine.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	if isDashboardPath(r.URL.Path) {
		http.NotFound(w, r)
		return
	}

	var upstreamURL, apiPath string
	if target, ok := resolveTarget(r); ok {
		upstreamURL = target
		apiPath = upstream.ExtractPath(target)
	} else {
		upstreamURL = upstream.Resolve(r.URL.Path)
		apiPath = upstream.ExtractPath(r.URL.Path)
	}

	body, err := io.ReadAll(r.Body)
	r.Body.Close()
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadGateway)
		return
	}

	reqJSON := parseJSON(body)
	host := hostFromURL(upstreamURL)
	capture, provider := s.matcher.Classify(apiPath, host)

	if isStreamingRequest(reqJSON) {
		s.handleStreaming(w, r, upstreamURL, apiPath, capture, provider, body, reqJSON)
		return
	}
	s.handleForward(w, r, upstreamURL, apiPath, capture, provider, body, reqJSON)
}

// handleForward implements the non-streaming Forward Engine (§4.5).
func (s *Server) handleForward(w http.ResponseWriter, r *http.Request, upstreamURL, apiPath string, capture bool, provider string, body []byte, reqJSON any) {
	filteredHeaders := headers.FilterRequest(r.Header)

	req, err := http.NewRequestWithContext(r.Context(), r.Method, withQuery(upstreamURL, r.URL.RawQuery), bytes.NewReader(body))
	if err != nil {
		s.respondUpstreamError(w, err)
		return
	}
	req.Header = filteredHeaders

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.respondUpstreamError(w, err)
		if s.metrics != nil {
			s.metrics.RequestsForwarded.WithLabelValues("error").Inc()
		}
		return
	}
	defer resp.Body.Close()
	latencyMs := float64(time.Since(start)) / float64(time.Millisecond)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		s.respondUpstreamError(w, err)
		return
	}

	for k, vv := range headers.FilterResponse(resp.Header) {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(respBody)

	if s.metrics != nil {
		s.metrics.RequestsForwarded.WithLabelValues("ok").Inc()
	}

	if capture {
		s.captureNonStreaming(r, apiPath, upstreamURL, provider, reqJSON, respBody, resp.StatusCode, latencyMs)
	}
}

// captureNonStreaming builds and stores the LogRecord for a completed
// non-streaming call, then enqueues a sink task unless debug mode is on.
func (s *Server) captureNonStreaming(r *http.Request, apiPath, upstreamURL, provider string, reqJSON any, respBody []byte, statusCode int, latencyMs float64) {
	respJSON := parseJSON(respBody)
	model := modelFromRequest(reqJSON)
	trace := tracectx.Extract(r.Header, reqJSON)

	if s.metrics != nil {
		s.metrics.RequestsCaptured.WithLabelValues(provider).Inc()
	}

	sinkEnabled := s.sink != nil
	tracePending := sinkEnabled && !s.cfg.Debug

	id := s.store.Add(logstore.Record{
		Path:         apiPath,
		Model:        model,
		StatusCode:   statusCode,
		LatencyMs:    latencyMs,
		Upstream:     upstreamURL,
		TracePending: tracePending,
		RequestBody:  reqJSON,
		ResponseBody: respJSON,
		Provider:     provider,
		TraceID:      trace.TraceID,
		SpanID:       trace.SpanID,
		ParentSpanID: trace.ParentSpanID,
		DebugMode:    s.cfg.Debug,
	})

	if tracePending {
		s.enqueueSink(id, provider, apiPath, upstreamURL, model, reqJSON, respJSON, statusCode, latencyMs, trace)
	}
}

func (s *Server) enqueueSink(id, provider, apiPath, upstreamURL, model string, reqJSON, respJSON any, statusCode int, latencyMs float64, trace tracectx.Context) {
	if s.metrics != nil {
		s.metrics.SinkEnqueued.Inc()
	}
	store := s.store
	reg := s.metrics
	s.sink.Enqueue(sink.Task{
		Provider:     provider,
		Path:         apiPath,
		Upstream:     upstreamURL,
		RequestBody:  reqJSON,
		ResponseBody: respJSON,
		StatusCode:   statusCode,
		LatencyMs:    latencyMs,
		Model:        model,
		TraceID:      trace.TraceID,
		SpanID:       trace.SpanID,
		ParentSpanID: trace.ParentSpanID,
		OnTraceURL: func(traceURL string) {
			if traceURL != "" && reg != nil {
				reg.SinkSucceeded.Inc()
			} else if reg != nil {
				reg.SinkFailed.Inc()
			}
			store.UpdateTraceURL(id, traceURL)
		},
	})
}

// respondUpstreamError maps an upstream failure to the client-facing
// status code from §4.5/§7, logging each failure kind once per process.
func (s *Server) respondUpstreamError(w http.ResponseWriter, err error) {
	var netErr interface{ Timeout() bool }
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		upstreamTimeoutOnce.Do(func() { log.Printf("weaverun: upstream timeout") })
		http.Error(w, "Upstream timeout", http.StatusGatewayTimeout)
	case isConnectionError(err):
		upstreamConnErrOnce.Do(func() { log.Printf("weaverun: connection failed: %v", err) })
		http.Error(w, "Connection failed", http.StatusBadGateway)
	default:
		upstreamErrOnce.Do(func() { log.Printf("weaverun: request failed: %v", err) })
		http.Error(w, "Request failed", http.StatusBadGateway)
	}
}

// upstreamErrorStatus mirrors respondUpstreamError's status-code mapping,
// for callers that need the code without writing an HTTP response (the
// Streaming Engine's pre-dispatch failure path logs this status into the
// LogRecord instead of the client response).
func upstreamErrorStatus(err error) int {
	var netErr interface{ Timeout() bool }
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		return http.StatusGatewayTimeout
	case isConnectionError(err):
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func withQuery(rawURL, rawQuery string) string {
	if rawQuery == "" {
		return rawURL
	}
	if parsed, err := url.Parse(rawURL); err == nil {
		if parsed.RawQuery == "" {
			parsed.RawQuery = rawQuery
			return parsed.String()
		}
		return rawURL
	}
	return rawURL
}

func parseJSON(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	return v
}

func isStreamingRequest(reqJSON any) bool {
	obj, ok := reqJSON.(map[string]any)
	if !ok {
		return false
	}
	stream, ok := obj["stream"].(bool)
	return ok && stream
}

func modelFromRequest(reqJSON any) string {
	obj, ok := reqJSON.(map[string]any)
	if !ok {
		return ""
	}
	model, _ := obj["model"].(string)
	return model
}
