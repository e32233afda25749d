package tracectx

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_W3CTraceparent(t *testing.T) {
	h := http.Header{}
	h.Set("traceparent", "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01")

	ctx := Extract(h, nil)

	assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", ctx.TraceID)
	assert.Equal(t, "b7ad6b7169203331", ctx.ParentSpanID)
	assert.Len(t, ctx.SpanID, 16)
}

func TestExtract_CustomHeaderFallback(t *testing.T) {
	h := http.Header{}
	h.Set("x-request-id", "req-12345")

	ctx := Extract(h, nil)

	assert.Equal(t, "req-12345", ctx.TraceID)
}

func TestExtract_HeaderPriorityOverBody(t *testing.T) {
	h := http.Header{}
	h.Set("x-trace-id", "from-header")
	body := map[string]any{"run_id": "from-body"}

	ctx := Extract(h, body)

	assert.Equal(t, "from-header", ctx.TraceID)
}

func TestExtract_BodyRunID(t *testing.T) {
	body := map[string]any{"run_id": "run-abc-123"}

	ctx := Extract(http.Header{}, body)

	assert.Equal(t, "run-abc-123", ctx.TraceID)
}

func TestExtract_BodySessionIDFallback(t *testing.T) {
	body := map[string]any{"session_id": "sess-789"}

	ctx := Extract(http.Header{}, body)

	assert.Equal(t, "sess-789", ctx.TraceID)
}

func TestExtract_BodyMetadataBlock(t *testing.T) {
	body := map[string]any{
		"metadata": map[string]any{
			"trace_id":  "meta-trace",
			"parent_id": "meta-parent",
		},
	}

	ctx := Extract(http.Header{}, body)

	assert.Equal(t, "meta-trace", ctx.TraceID)
	assert.Equal(t, "meta-parent", ctx.ParentSpanID)
}

func TestExtract_GeneratesWhenNothingFound(t *testing.T) {
	ctx := Extract(http.Header{}, nil)

	assert.Len(t, ctx.TraceID, 32)
	assert.Len(t, ctx.SpanID, 16)
	assert.Empty(t, ctx.ParentSpanID)
}

func TestExtract_TruncatesLongHeaderValues(t *testing.T) {
	h := http.Header{}
	h.Set("x-trace-id", "0123456789012345678901234567890123456789")

	ctx := Extract(h, nil)

	assert.Len(t, ctx.TraceID, 32)
}
