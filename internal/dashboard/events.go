package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/weaverun/weaverun/internal/logstore"
)

// ssePayload mirrors the dashboard JS's handleEvent switch on "type": a
// backlog record is framed exactly like a live "log" event so the client
// can't tell the two apart.
type ssePayload struct {
	Type string `json:"type"`
	logstore.Record
}

// traceUpdatePayload is the minimal frame a trace_update carries — just
// enough for the dashboard JS to patch one entry's trace link in place.
type traceUpdatePayload struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	TraceURL string `json:"trace_url"`
}

// handleEvents implements GET /__weaverun__/events: it replays the current
// ring as a backlog of "log" frames, then relays live events from the
// Store for as long as the client stays connected. Subscribe's atomic
// snapshot+registration means no event can land in the gap between the two
// and be lost or duplicated.
func (d *dashboard) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	sub, backlog := d.store.Subscribe()
	defer d.store.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	for _, rec := range backlog {
		if !writeEvent(w, flusher, ssePayload{Type: "log", Record: rec}) {
			return
		}
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if !writeEvent(w, flusher, eventToPayload(ev)) {
				return
			}
		}
	}
}

func eventToPayload(ev logstore.Event) any {
	switch ev.Type {
	case logstore.EventTraceUpdate:
		return traceUpdatePayload{Type: "trace_update", ID: ev.TraceID, TraceURL: ev.TraceURL}
	case logstore.EventLogUpdate:
		return ssePayload{Type: "log_update", Record: ev.Record}
	default:
		return ssePayload{Type: "log", Record: ev.Record}
	}
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, payload any) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		return true // skip a single unmarshalable record rather than killing the stream
	}
	if _, err := w.Write([]byte("data: ")); err != nil {
		return false
	}
	if _, err := w.Write(data); err != nil {
		return false
	}
	if _, err := w.Write([]byte("\n\n")); err != nil {
		return false
	}
	flusher.Flush()
	return true
}
