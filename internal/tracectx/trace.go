// Package tracectx extracts a correlation context (trace/span/parent-span
// IDs) from an intercepted request so related calls — e.g. all calls made
// while answering one user query — can be grouped in the dashboard and the
// external sink.
package tracectx

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Context is the extracted correlation context for one request.
type Context struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
}

// w3cTraceparent matches the W3C Trace Context traceparent format:
// 00-{32 hex trace id}-{16 hex parent id}-{2 hex flags}.
var w3cTraceparent = regexp.MustCompile(`^([0-9a-f]{2})-([0-9a-f]{32})-([0-9a-f]{16})-([0-9a-f]{2})$`)

// traceIDHeaders and parentIDHeaders are tried in order as fallbacks when no
// traceparent header is present.
var (
	traceIDHeaders  = []string{"x-trace-id", "x-request-id", "x-correlation-id", "x-b3-traceid"}
	parentIDHeaders = []string{"x-parent-id", "x-b3-parentspanid", "x-parent-span-id"}
)

// Extract derives a Context from the request's headers and, if the headers
// carry no trace ID, from its decoded JSON body. body may be nil if the
// request has no JSON body or failed to parse — in that case only headers
// are consulted. A trace ID is always generated as a last resort, so every
// request is groupable even in isolation.
func Extract(headers http.Header, body any) Context {
	ctx := extractFromHeaders(headers)

	if ctx.TraceID == "" && body != nil {
		if bodyTraceID, bodyParentID := extractFromBody(body); bodyTraceID != "" {
			ctx.TraceID = bodyTraceID
			if bodyParentID != "" && ctx.ParentSpanID == "" {
				ctx.ParentSpanID = bodyParentID
			}
		}
	}

	if ctx.TraceID == "" {
		ctx.TraceID = newHexID(32)
	}

	return ctx
}

func extractFromHeaders(headers http.Header) Context {
	var traceID, parentSpanID string

	if tp := headers.Get("traceparent"); tp != "" {
		traceID, parentSpanID = parseW3CTraceparent(tp)
	}

	if traceID == "" {
		for _, h := range traceIDHeaders {
			if v := headers.Get(h); v != "" {
				traceID = truncate(v, 32)
				break
			}
		}
	}

	if parentSpanID == "" {
		for _, h := range parentIDHeaders {
			if v := headers.Get(h); v != "" {
				parentSpanID = truncate(v, 16)
				break
			}
		}
	}

	return Context{
		TraceID:      traceID,
		SpanID:       newHexID(16),
		ParentSpanID: parentSpanID,
	}
}

func parseW3CTraceparent(value string) (traceID, parentSpanID string) {
	value = strings.ToLower(strings.TrimSpace(value))
	m := w3cTraceparent.FindStringSubmatch(value)
	if m == nil {
		return "", ""
	}
	return m[2], m[3]
}

// extractFromBody looks for trace context in the common metadata shapes
// produced by agent frameworks: an explicit metadata block, a LangChain-style
// run_id, or a session/conversation/thread identifier used as a grouping key.
func extractFromBody(body any) (traceID, parentSpanID string) {
	obj, ok := body.(map[string]any)
	if !ok {
		return "", ""
	}

	if metadata, ok := obj["metadata"].(map[string]any); ok {
		traceID = firstString(metadata, "trace_id", "traceId")
		parentSpanID = firstString(metadata, "parent_id", "parentId", "span_id")
	}

	if traceID == "" {
		if runID := firstString(obj, "run_id", "runId"); runID != "" {
			traceID = truncate(runID, 32)
		}
	}

	if traceID == "" {
		if sessionID := firstString(obj, "session_id", "sessionId", "conversation_id", "conversationId", "thread_id", "threadId"); sessionID != "" {
			traceID = truncate(sessionID, 32)
		}
	}

	return traceID, parentSpanID
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			switch s := v.(type) {
			case string:
				if s != "" {
					return s
				}
			case float64:
				return strconv.FormatFloat(s, 'f', -1, 64)
			}
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// newHexID generates a random lowercase hex identifier of length n (16 or
// 32), the same shape as a truncated uuid4 hex string.
func newHexID(n int) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	for len(hex) < n {
		hex += strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return hex[:n]
}
