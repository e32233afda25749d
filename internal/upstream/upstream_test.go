package upstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_AbsoluteURLPassthrough(t *testing.T) {
	got := Resolve("http://localhost:11434/v1/chat/completions")
	assert.Equal(t, "http://localhost:11434/v1/chat/completions", got)
}

func TestResolve_OriginalBaseURL(t *testing.T) {
	t.Setenv("WEAVE_ORIGINAL_OPENAI_BASE_URL", "https://my-proxy.example.com/v1/")
	got := Resolve("chat/completions")
	assert.Equal(t, "https://my-proxy.example.com/v1/chat/completions", got)
}

func TestResolve_UpstreamBaseOverride(t *testing.T) {
	t.Setenv("WEAVE_UPSTREAM_BASE", "https://override.example.com")
	got := Resolve("/chat/completions")
	assert.Equal(t, "https://override.example.com/chat/completions", got)
}

func TestResolve_Default(t *testing.T) {
	got := Resolve("chat/completions")
	assert.Equal(t, DefaultUpstream+"/chat/completions", got)
}

func TestExtractPath_FromAbsoluteURL(t *testing.T) {
	got := ExtractPath("http://localhost:11434/v1/chat/completions?stream=true")
	assert.Equal(t, "/v1/chat/completions", got)
}

func TestExtractPath_AlreadyPath(t *testing.T) {
	assert.Equal(t, "/v1/chat/completions", ExtractPath("/v1/chat/completions"))
}

func TestExtractPath_BarePathAddsSlash(t *testing.T) {
	assert.Equal(t, "/chat/completions", ExtractPath("chat/completions"))
}
