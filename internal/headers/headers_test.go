package headers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterRequest_StripsHostAndContentLength(t *testing.T) {
	h := http.Header{}
	h.Set("Host", "example.com")
	h.Set("Content-Length", "42")
	h.Set("Authorization", "Bearer xyz")

	out := FilterRequest(h)

	assert.Empty(t, out.Get("Host"))
	assert.Empty(t, out.Get("Content-Length"))
	assert.Equal(t, "Bearer xyz", out.Get("Authorization"))
}

func TestFilterRequest_StripsHopByHop(t *testing.T) {
	h := http.Header{}
	h.Set("Connection", "keep-alive")
	h.Set("Transfer-Encoding", "chunked")

	out := FilterRequest(h)

	assert.Empty(t, out.Get("Connection"))
	assert.Empty(t, out.Get("Transfer-Encoding"))
}

func TestFilterResponse_StripsHopByHop(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Content-Encoding", "gzip")
	h.Set("Upgrade", "websocket")

	out := FilterResponse(h)

	assert.Equal(t, "application/json", out.Get("Content-Type"))
	assert.Empty(t, out.Get("Content-Encoding"))
	assert.Empty(t, out.Get("Upgrade"))
}
