package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/weaverun/weaverun/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Providers: append([]config.ProviderPattern(nil), config.BuiltinProviders...),
	}
}

func TestClassify_OpenAI(t *testing.T) {
	m := New(testConfig())
	capture, provider := m.Classify("/v1/chat/completions", "api.openai.com")
	assert.True(t, capture)
	assert.Equal(t, "openai", provider)
}

func TestClassify_Anthropic(t *testing.T) {
	m := New(testConfig())
	capture, provider := m.Classify("/v1/messages", "api.anthropic.com")
	assert.True(t, capture)
	assert.Equal(t, "anthropic", provider)
}

func TestClassify_AnthropicHostMismatch(t *testing.T) {
	m := New(testConfig())
	capture, _ := m.Classify("/v1/messages", "example.com")
	assert.False(t, capture)
}

func TestClassify_NoMatch(t *testing.T) {
	m := New(testConfig())
	capture, provider := m.Classify("/unrelated/path", "example.com")
	assert.False(t, capture)
	assert.Empty(t, provider)
}

func TestClassify_CaptureAll(t *testing.T) {
	cfg := testConfig()
	cfg.CaptureAll = true
	m := New(cfg)
	capture, provider := m.Classify("/anything", "anywhere.example")
	assert.True(t, capture)
	assert.Equal(t, "custom", provider)
}

func TestClassify_PathWithoutLeadingSlash(t *testing.T) {
	m := New(testConfig())
	capture, provider := m.Classify("v1/messages", "api.anthropic.com")
	assert.True(t, capture)
	assert.Equal(t, "anthropic", provider)
}

func TestClassify_CustomProviderTakesPrecedence(t *testing.T) {
	cfg := &config.Config{
		Providers: append([]config.ProviderPattern{
			{Name: "custom-openai", PathPatterns: []string{`/v1/chat/completions`}, IsRegex: true},
		}, config.BuiltinProviders...),
	}
	m := New(cfg)
	_, provider := m.Classify("/v1/chat/completions", "api.openai.com")
	assert.Equal(t, "custom-openai", provider)
}

func TestClassify_SuffixMatch(t *testing.T) {
	cfg := &config.Config{
		Providers: []config.ProviderPattern{
			{Name: "legacy", PathPatterns: []string{"/complete"}, IsRegex: false},
		},
	}
	m := New(cfg)
	capture, provider := m.Classify("/v2/api/complete?stream=true", "example.com")
	assert.True(t, capture)
	assert.Equal(t, "legacy", provider)
}

func TestClassify_Ollama(t *testing.T) {
	m := New(testConfig())
	capture, provider := m.Classify("/api/chat", "localhost:11434")
	assert.True(t, capture)
	assert.Equal(t, "ollama", provider)
}

func TestClassify_GoogleADK(t *testing.T) {
	m := New(testConfig())
	capture, provider := m.Classify("/api/run_sse", "127.0.0.1")
	assert.True(t, capture)
	assert.Equal(t, "google_adk", provider)
}
