// Package logstore holds the in-memory ring of captured call records and
// fans out change events to live dashboard subscribers over per-subscriber
// channels.
package logstore

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// maxRecords bounds both the ring and the id index.
	maxRecords = 100
	// subscriberQueueCapacity bounds each subscriber's event channel;
	// overflow drops the individual event rather than blocking the
	// producer or disconnecting the subscriber.
	subscriberQueueCapacity = 50
)

// Record is one captured call. ResponseBody holds the streaming placeholder
// shape while a streaming call is in flight; see NewStreamingPlaceholder.
type Record struct {
	ID           string  `json:"id"`
	Timestamp    string  `json:"timestamp"`
	Method       string  `json:"method"`
	Path         string  `json:"path"`
	Model        string  `json:"model,omitempty"`
	StatusCode   int     `json:"status_code"`
	LatencyMs    float64 `json:"latency_ms"`
	Upstream     string  `json:"upstream"`
	TraceURL     string  `json:"trace_url,omitempty"`
	TracePending bool    `json:"trace_pending"`
	RequestBody  any     `json:"request_body"`
	ResponseBody any     `json:"response_body"`
	Provider     string  `json:"provider,omitempty"`
	TraceID      string  `json:"trace_id,omitempty"`
	SpanID       string  `json:"span_id,omitempty"`
	ParentSpanID string  `json:"parent_span_id,omitempty"`
	DebugMode    bool    `json:"debug_mode"`
}

// NewStreamingPlaceholder is the response_body shape a Record carries
// between the moment a streaming call is first observed and the moment its
// stream completes.
func NewStreamingPlaceholder() map[string]any {
	return map[string]any{"_streaming": true, "_status": "in_progress"}
}

// EventType names the three kinds of change a subscriber can observe.
type EventType string

const (
	EventLog         EventType = "log"
	EventLogUpdate   EventType = "log_update"
	EventTraceUpdate EventType = "trace_update"
)

// Event is one change pushed to a subscriber. Record is populated for Log
// and LogUpdate; TraceID/TraceURL are populated for TraceUpdate.
type Event struct {
	Type     EventType
	Record   Record
	TraceID  string
	TraceURL string
}

// Subscriber receives Events for as long as it stays registered with the
// Store. Close it with Store.Unsubscribe, not by closing C directly.
type Subscriber struct {
	C chan Event
}

// Store is the process-wide log ring. All fields are guarded by mu; callers
// never see a torn read because every operation snapshots or mutates under
// the lock.
type Store struct {
	mu          sync.Mutex
	ring        []Record // oldest first
	byID        map[string]*Record
	subscribers map[*Subscriber]struct{}
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		byID:        make(map[string]*Record),
		subscribers: make(map[*Subscriber]struct{}),
	}
}

// Add inserts a new record, assigning it a fresh 8-hex id and HH:MM:SS
// timestamp, evicting the oldest record past maxRecords, and broadcasting a
// Log event. Returns the assigned id.
func (s *Store) Add(r Record) string {
	r.ID = newRecordID()
	r.Timestamp = time.Now().Format("15:04:05")
	if r.Method == "" {
		r.Method = "POST"
	}

	s.mu.Lock()
	s.ring = append(s.ring, r)
	if len(s.ring) > maxRecords {
		s.ring = s.ring[len(s.ring)-maxRecords:]
	}
	stored := r
	s.byID[r.ID] = &stored
	for len(s.byID) > maxRecords {
		// Evict whichever id is no longer present in the ring. The ring
		// was just trimmed above, so anything in byID but not in ring is
		// exactly the overflow.
		s.evictStaleLocked()
	}
	s.broadcastLocked(Event{Type: EventLog, Record: stored})
	s.mu.Unlock()

	return r.ID
}

// evictStaleLocked removes one id-index entry that no longer appears in the
// ring. Must be called with mu held.
func (s *Store) evictStaleLocked() {
	inRing := make(map[string]bool, len(s.ring))
	for _, r := range s.ring {
		inRing[r.ID] = true
	}
	for id := range s.byID {
		if !inRing[id] {
			delete(s.byID, id)
			return
		}
	}
}

// UpdateLogEntry mutates an existing record's response fields at
// end-of-stream and broadcasts a LogUpdate carrying the full record. A
// missing id is a silent no-op — the record may already have been evicted.
func (s *Store) UpdateLogEntry(id string, responseBody any, latencyMs float64, statusCode int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return
	}
	rec.ResponseBody = responseBody
	rec.LatencyMs = latencyMs
	rec.StatusCode = statusCode
	s.syncRingLocked(*rec)
	s.broadcastLocked(Event{Type: EventLogUpdate, Record: *rec})
}

// UpdateTraceURL sets a record's trace URL, clears trace_pending, and
// broadcasts a minimal TraceUpdate event.
func (s *Store) UpdateTraceURL(id, traceURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return
	}
	rec.TraceURL = traceURL
	rec.TracePending = false
	s.syncRingLocked(*rec)
	s.broadcastLocked(Event{Type: EventTraceUpdate, TraceID: id, TraceURL: traceURL})
}

// syncRingLocked writes rec back into the ring slot with the matching id,
// if present. Must be called with mu held.
func (s *Store) syncRingLocked(rec Record) {
	for i := range s.ring {
		if s.ring[i].ID == rec.ID {
			s.ring[i] = rec
			return
		}
	}
}

// Snapshot returns a copy of the current ring, oldest first.
func (s *Store) Snapshot() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.ring))
	copy(out, s.ring)
	return out
}

// Subscribe registers a new subscriber and returns it along with a snapshot
// of the ring taken atomically with registration, so the caller can replay
// it as a backlog of Log events before relaying live ones from C — without
// risking an event landing on C in the gap between snapshot and
// registration.
func (s *Store) Subscribe() (*Subscriber, []Record) {
	sub := &Subscriber{C: make(chan Event, subscriberQueueCapacity)}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[sub] = struct{}{}
	out := make([]Record, len(s.ring))
	copy(out, s.ring)
	return sub, out
}

// Unsubscribe removes sub from the broadcast list. Safe to call more than
// once.
func (s *Store) Unsubscribe(sub *Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscribers, sub)
}

// broadcastLocked fans ev out to every subscriber without blocking; a full
// channel drops the event for that subscriber only. Must be called with mu
// held.
func (s *Store) broadcastLocked(ev Event) {
	for sub := range s.subscribers {
		select {
		case sub.C <- ev:
		default:
		}
	}
}

func newRecordID() string {
	id := uuid.NewString()
	id = id[:8]
	return id
}
