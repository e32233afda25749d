package logstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd_BroadcastsLogEvent(t *testing.T) {
	s := New()
	sub, backlog := s.Subscribe()
	assert.Empty(t, backlog)

	id := s.Add(Record{Path: "/v1/chat/completions", Model: "gpt-4o-mini"})
	require.NotEmpty(t, id)

	ev := <-sub.C
	assert.Equal(t, EventLog, ev.Type)
	assert.Equal(t, id, ev.Record.ID)
	assert.Equal(t, "POST", ev.Record.Method)
	assert.NotEmpty(t, ev.Record.Timestamp)
}

func TestUpdateLogEntry_BroadcastsFullRecord(t *testing.T) {
	s := New()
	id := s.Add(Record{Path: "/v1/chat/completions", ResponseBody: NewStreamingPlaceholder()})
	sub, backlog := s.Subscribe()
	require.Len(t, backlog, 1)

	s.UpdateLogEntry(id, map[string]any{"ok": true}, 42.5, 200)

	ev := <-sub.C
	assert.Equal(t, EventLogUpdate, ev.Type)
	assert.Equal(t, map[string]any{"ok": true}, ev.Record.ResponseBody)
	assert.Equal(t, 42.5, ev.Record.LatencyMs)
	assert.Equal(t, 200, ev.Record.StatusCode)
}

func TestUpdateTraceURL_ClearsPendingAndBroadcasts(t *testing.T) {
	s := New()
	id := s.Add(Record{TracePending: true})
	sub, _ := s.Subscribe()

	s.UpdateTraceURL(id, "https://wandb.ai/trace/abc")

	ev := <-sub.C
	assert.Equal(t, EventTraceUpdate, ev.Type)
	assert.Equal(t, id, ev.TraceID)
	assert.Equal(t, "https://wandb.ai/trace/abc", ev.TraceURL)

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.False(t, snap[0].TracePending)
	assert.Equal(t, "https://wandb.ai/trace/abc", snap[0].TraceURL)
}

func TestUpdateLogEntry_UnknownIDIsNoOp(t *testing.T) {
	s := New()
	s.UpdateLogEntry("does-not-exist", nil, 0, 0)
	assert.Empty(t, s.Snapshot())
}

func TestAdd_EvictsOldestPast100(t *testing.T) {
	s := New()
	var firstID string
	for i := 0; i < 105; i++ {
		id := s.Add(Record{Path: "/v1/chat/completions"})
		if i == 0 {
			firstID = id
		}
	}

	snap := s.Snapshot()
	assert.Len(t, snap, 100)

	for _, r := range snap {
		assert.NotEqual(t, firstID, r.ID)
	}
}

func TestSubscribe_ReplaysRingBeforeLiveEvents(t *testing.T) {
	s := New()
	s.Add(Record{Path: "/one"})
	s.Add(Record{Path: "/two"})

	_, backlog := s.Subscribe()

	require.Len(t, backlog, 2)
	assert.Equal(t, "/one", backlog[0].Path)
	assert.Equal(t, "/two", backlog[1].Path)
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	s := New()
	sub, _ := s.Subscribe()
	s.Unsubscribe(sub)

	s.Add(Record{Path: "/after-unsubscribe"})

	select {
	case <-sub.C:
		t.Fatal("unsubscribed subscriber should not receive events")
	default:
	}
}

func TestBroadcast_DropsOnFullQueueWithoutBlocking(t *testing.T) {
	s := New()
	sub, _ := s.Subscribe()

	for i := 0; i < subscriberQueueCapacity+10; i++ {
		s.Add(Record{Path: "/spam"})
	}

	assert.LessOrEqual(t, len(sub.C), subscriberQueueCapacity)
}
