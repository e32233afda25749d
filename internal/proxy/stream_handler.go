package proxy

import (
	"bytes"
	"net/http"
	"time"

	"github.com/weaverun/weaverun/internal/headers"
	"github.com/weaverun/weaverun/internal/logstore"
	"github.com/weaverun/weaverun/internal/streaming"
	"github.com/weaverun/weaverun/internal/tracectx"
)

// streamingStatusCode is recorded optimistically in the pre-logged LogRecord
// before the upstream's real status is known — see §9's open question on
// this. The client itself always receives the upstream's status code.
const streamingStatusCode = http.StatusOK

// streamConnectFailureBody is the ResponseBody shape recorded when a
// streaming call never receives upstream response headers at all (DNS,
// dial, or connect-timeout failure), so the placeholder LogRecord added at
// dispatch time is never left stuck at "in progress".
type streamConnectFailureBody struct {
	Error    string `json:"error"`
	Streamed bool   `json:"_streamed"`
}

func streamConnectFailure(err error) streamConnectFailureBody {
	return streamConnectFailureBody{Error: err.Error(), Streamed: true}
}

// handleStreaming implements the Streaming Engine (§4.6): a LogRecord is
// pre-logged the instant a streaming call is recognized, chunks are
// relayed to the client as they arrive, and the record is finalized once
// the stream ends.
func (s *Server) handleStreaming(w http.ResponseWriter, r *http.Request, upstreamURL, apiPath string, capture bool, provider string, body []byte, reqJSON any) {
	var recordID string
	var trace tracectx.Context
	model := modelFromRequest(reqJSON)

	if capture {
		trace = tracectx.Extract(r.Header, reqJSON)
		if s.metrics != nil {
			s.metrics.RequestsCaptured.WithLabelValues(provider).Inc()
		}
		recordID = s.store.Add(logstore.Record{
			Path:         apiPath,
			Model:        model,
			StatusCode:   streamingStatusCode,
			LatencyMs:    0,
			Upstream:     upstreamURL,
			ResponseBody: logstore.NewStreamingPlaceholder(),
			Provider:     provider,
			TraceID:      trace.TraceID,
			SpanID:       trace.SpanID,
			ParentSpanID: trace.ParentSpanID,
			DebugMode:    s.cfg.Debug,
		})
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, withQuery(upstreamURL, r.URL.RawQuery), bytes.NewReader(body))
	if err != nil {
		s.respondUpstreamError(w, err)
		if capture {
			s.store.UpdateLogEntry(recordID, streamConnectFailure(err), 0, upstreamErrorStatus(err))
		}
		return
	}
	req.Header = headers.FilterRequest(r.Header)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.respondUpstreamError(w, err)
		if s.metrics != nil {
			s.metrics.RequestsForwarded.WithLabelValues("error").Inc()
		}
		if capture {
			latencyMs := float64(time.Since(start)) / float64(time.Millisecond)
			s.store.UpdateLogEntry(recordID, streamConnectFailure(err), latencyMs, upstreamErrorStatus(err))
		}
		return
	}
	defer resp.Body.Close()

	for k, vv := range headers.FilterResponse(resp.Header) {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	result := streaming.Copy(w, resp.Body)

	if s.metrics != nil {
		if result.UpstreamErr != nil {
			s.metrics.RequestsForwarded.WithLabelValues("error").Inc()
		} else {
			s.metrics.RequestsForwarded.WithLabelValues("ok").Inc()
		}
	}

	if !capture {
		return
	}

	agg := streaming.Aggregate(result.Body, result.TTFB, result.Total)
	ttfbMs := float64(result.TTFB) / float64(time.Millisecond)
	s.store.UpdateLogEntry(recordID, agg, ttfbMs, resp.StatusCode)

	sinkEnabled := s.sink != nil
	if sinkEnabled && !s.cfg.Debug {
		s.enqueueSink(recordID, provider, apiPath, upstreamURL, model, reqJSON, agg, resp.StatusCode, ttfbMs, trace)
	}
}
