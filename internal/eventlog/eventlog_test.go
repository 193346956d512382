package eventlog_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobeets/instrumental-river-raid/internal/eventlog"
	"github.com/mobeets/instrumental-river-raid/internal/store"
)

func init() {
	color.NoColor = true
}

func TestEmitStampsAndForwards(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	old := eventlog.Now
	eventlog.Now = func() time.Time { return fixed }
	defer func() { eventlog.Now = old }()

	mem := eventlog.NewMemory()
	eventlog.Emit(mem, eventlog.StartBlock, map[string]int{"block_index": 0})

	recs := mem.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, eventlog.StartBlock, recs[0].MessageType)
	assert.Equal(t, fixed, recs[0].Timestamp)
	assert.Equal(t, map[string]int{"block_index": 0}, recs[0].Payload)
}

func TestEmitNilSinkIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		eventlog.Emit(nil, eventlog.StartTrial, nil)
		eventlog.Emit(eventlog.Discard, eventlog.StartTrial, nil)
	})
}

func TestMultiFansOutInOrder(t *testing.T) {
	a, b := eventlog.NewMemory(), eventlog.NewMemory()
	m := eventlog.Multi{a, nil, b}
	eventlog.Emit(m, eventlog.StartTrial, nil)
	eventlog.Emit(m, eventlog.TrialEvent, nil)

	want := []string{eventlog.StartTrial, eventlog.TrialEvent}
	assert.Equal(t, want, a.Types())
	assert.Equal(t, want, b.Types())
	assert.NoError(t, m.Close(context.Background()))
}

func TestMemoryResetAndLen(t *testing.T) {
	mem := eventlog.NewMemory()
	eventlog.Emit(mem, eventlog.Interaction, nil)
	assert.Equal(t, 1, mem.Len())
	mem.Reset()
	assert.Equal(t, 0, mem.Len())
}

func TestFileSinkWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "events.jsonl")
	sink, err := eventlog.NewFileSink(path)
	require.NoError(t, err)

	eventlog.Emit(sink, eventlog.StartExperiment, map[string]string{"subject_id": "s1"})
	eventlog.Emit(sink, eventlog.EndExperiment, nil)
	require.NoError(t, sink.Close(context.Background()))

	// Logging after close is silently dropped.
	eventlog.Emit(sink, eventlog.TrialEvent, nil)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var types []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		types = append(types, rec["message_type"].(string))
	}
	assert.Equal(t, []string{eventlog.StartExperiment, eventlog.EndExperiment}, types)
}

// wsCollector is a websocket endpoint that records every text frame.
type wsCollector struct {
	mu     sync.Mutex
	frames []string
	closed chan struct{}
}

func (c *wsCollector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()
	defer close(c.closed)
	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}
		c.mu.Lock()
		c.frames = append(c.frames, string(data))
		c.mu.Unlock()
	}
}

func (c *wsCollector) Frames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.frames...)
}

func TestWebSocketSinkDeliversInOrder(t *testing.T) {
	col := &wsCollector{closed: make(chan struct{})}
	srv := httptest.NewServer(col)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	sink, err := eventlog.NewWebSocketSink(context.Background(), url, eventlog.WebSocketOptions{})
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		eventlog.Emit(sink, eventlog.TrialEvent, map[string]int{"i": i})
	}
	require.NoError(t, sink.Close(context.Background()))

	select {
	case <-col.closed:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not observe close")
	}

	frames := col.Frames()
	require.Len(t, frames, 20)
	for i, f := range frames {
		var rec struct {
			MessageType string         `json:"message_type"`
			Payload     map[string]int `json:"payload"`
		}
		require.NoError(t, json.Unmarshal([]byte(f), &rec))
		assert.Equal(t, eventlog.TrialEvent, rec.MessageType)
		assert.Equal(t, i, rec.Payload["i"])
	}
	assert.Zero(t, sink.Dropped())
}

func TestWebSocketSinkDropsAfterClose(t *testing.T) {
	col := &wsCollector{closed: make(chan struct{})}
	srv := httptest.NewServer(col)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	sink, err := eventlog.NewWebSocketSink(context.Background(), url, eventlog.WebSocketOptions{QueueSize: 4})
	require.NoError(t, err)
	require.NoError(t, sink.Close(context.Background()))
	require.NoError(t, sink.Close(context.Background()))

	assert.NotPanics(t, func() {
		eventlog.Emit(sink, eventlog.TrialEvent, nil)
	})
	assert.Equal(t, int64(1), sink.Dropped())
}

func TestWebSocketSinkDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := eventlog.NewWebSocketSink(ctx, "ws://127.0.0.1:1/never", eventlog.WebSocketOptions{DialTimeout: time.Second})
	assert.Error(t, err)
}

func TestStoreSinkPersistsRecords(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "log.db"))
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	id := uuid.New()
	sink, err := eventlog.NewStoreSink(ctx, st, id, "subject-9", eventlog.StoreOptions{})
	require.NoError(t, err)

	eventlog.Emit(sink, eventlog.StartExperiment, map[string]string{"subject_id": "subject-9"})
	eventlog.Emit(sink, eventlog.StartBlock, map[string]int{"block_index": 0})
	require.NoError(t, sink.Close(ctx))

	recs, err := st.Records(ctx, id, 0, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, eventlog.StartExperiment, recs[0].MessageType)
	assert.JSONEq(t, `{"block_index":0}`, string(recs[1].Payload))
	assert.Zero(t, sink.Dropped())
}

func TestStoreSinkDropsInsteadOfBlocking(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "log.db"))
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	id := uuid.New()
	sink, err := eventlog.NewStoreSink(ctx, st, id, "", eventlog.StoreOptions{QueueSize: 2})
	require.NoError(t, err)

	const n = 2000
	for i := 0; i < n; i++ {
		eventlog.Emit(sink, eventlog.TrialEvent, map[string]int{"i": i})
	}
	require.NoError(t, sink.Close(ctx))

	recs, err := st.Records(ctx, id, 0, 0)
	require.NoError(t, err)
	assert.Positive(t, sink.Dropped())
	assert.Equal(t, int64(n), int64(len(recs))+sink.Dropped())
	for i := 1; i < len(recs); i++ {
		assert.Greater(t, recs[i].Seq, recs[i-1].Seq)
	}

	eventlog.Emit(sink, eventlog.TrialEvent, nil)
	assert.Equal(t, int64(n+1), int64(len(recs))+sink.Dropped())
}

func TestStoreSinkSwallowsFailures(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "log.db"))
	require.NoError(t, err)

	sink, err := eventlog.NewStoreSink(context.Background(), st, uuid.New(), "", eventlog.StoreOptions{})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	assert.NotPanics(t, func() {
		eventlog.Emit(sink, eventlog.TrialEvent, nil)
		eventlog.Emit(sink, eventlog.TrialEvent, make(chan int))
	})
	require.NoError(t, sink.Close(context.Background()))
	assert.Equal(t, int64(1), sink.Dropped())
}
