// Package streaming forwards a chunked upstream response to the client
// byte-for-byte while separately accumulating it, then reconstructs a
// logical chat-completion record once the stream ends. Forwarding and
// aggregation are deliberately decoupled: chunks reach the client the
// instant they arrive, and aggregation only runs after the copy is done.
package streaming

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

// copyBufferSize is the read size used while relaying upstream chunks. It
// has no bearing on SSE framing — the upstream's own write boundaries are
// preserved because each Read is flushed immediately.
const copyBufferSize = 4096

// CopyResult describes what happened while relaying one streaming
// response.
type CopyResult struct {
	Body    []byte        // every byte relayed to the client, for aggregation
	TTFB    time.Duration // time to first upstream byte
	Total   time.Duration // time to end of stream
	UpstreamErr error     // non-nil if the upstream read failed mid-stream
}

// Copy relays upstream byte-for-byte to w, flushing after every read, and
// returns once upstream is exhausted or errors. If upstream fails
// mid-stream, a terminal SSE error frame is written to w so the client's
// parser observes a clean end rather than a truncated connection.
func Copy(w http.ResponseWriter, upstream io.Reader) CopyResult {
	flusher, _ := w.(http.Flusher)
	start := time.Now()

	var buf bytes.Buffer
	readBuf := make([]byte, copyBufferSize)
	var ttfb time.Duration
	gotFirstByte := false

	for {
		n, err := upstream.Read(readBuf)
		if n > 0 {
			if !gotFirstByte {
				ttfb = time.Since(start)
				gotFirstByte = true
			}
			buf.Write(readBuf[:n])
			_, _ = w.Write(readBuf[:n])
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			if err == io.EOF {
				return CopyResult{Body: buf.Bytes(), TTFB: ttfb, Total: time.Since(start)}
			}
			errFrame := []byte(`data: {"error": "` + jsonEscape(err.Error()) + `"}` + "\n\n")
			_, _ = w.Write(errFrame)
			if flusher != nil {
				flusher.Flush()
			}
			return CopyResult{Body: buf.Bytes(), TTFB: ttfb, Total: time.Since(start), UpstreamErr: err}
		}
	}
}

func jsonEscape(s string) string {
	b, _ := json.Marshal(s)
	// Marshal wraps in quotes; strip them since the caller supplies its own.
	if len(b) >= 2 {
		return string(b[1 : len(b)-1])
	}
	return s
}

// Message is the reconstructed assistant turn of an aggregated stream.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Choice mirrors the shape OpenAI-compatible clients expect in a
// non-streaming response, reconstructed from streamed deltas.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason *string `json:"finish_reason"`
}

// AggregatedResponse is the reconstructed logical response for a completed
// stream, in the shape described in §4.6.
type AggregatedResponse struct {
	ID       string   `json:"id,omitempty"`
	Model    string   `json:"model,omitempty"`
	Choices  []Choice `json:"choices"`
	Usage    any      `json:"usage,omitempty"`
	Streamed bool     `json:"_streamed"`
	TTFBMs   float64  `json:"_ttfb_ms"`
	TotalMs  float64  `json:"_total_ms"`
}

// Aggregate scans accumulated SSE bytes line by line, reconstructing a
// single logical response from the `data: ` events. Non-JSON lines, the
// `[DONE]` sentinel, and malformed events are ignored silently. If neither
// an id nor any content is recovered, Aggregate returns nil — there is
// nothing meaningful to log.
func Aggregate(accumulated []byte, ttfb, total time.Duration) *AggregatedResponse {
	var id, model string
	var content strings.Builder
	var finishReason *string
	var usage any
	sawContent := false

	scanner := bufio.NewScanner(bytes.NewReader(accumulated))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			continue
		}

		var event map[string]any
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			continue
		}

		if id == "" {
			if v, ok := event["id"].(string); ok {
				id = v
			}
		}
		if model == "" {
			if v, ok := event["model"].(string); ok {
				model = v
			}
		}
		if v, ok := event["usage"]; ok && v != nil {
			usage = v
		}

		choices, ok := event["choices"].([]any)
		if !ok {
			continue
		}
		for _, c := range choices {
			choice, ok := c.(map[string]any)
			if !ok {
				continue
			}
			if delta, ok := choice["delta"].(map[string]any); ok {
				if s, ok := delta["content"].(string); ok {
					content.WriteString(s)
					sawContent = true
				}
			}
			if fr, ok := choice["finish_reason"].(string); ok && fr != "" {
				v := fr
				finishReason = &v
			}
		}
	}

	if id == "" && !sawContent {
		return nil
	}

	return &AggregatedResponse{
		ID:    id,
		Model: model,
		Choices: []Choice{{
			Index:        0,
			Message:      Message{Role: "assistant", Content: content.String()},
			FinishReason: finishReason,
		}},
		Usage:    usage,
		Streamed: true,
		TTFBMs:   ttfb.Seconds() * 1000,
		TotalMs:  total.Seconds() * 1000,
	}
}
