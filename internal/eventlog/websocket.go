package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/mobeets/instrumental-river-raid/internal/logging"
)

// WebSocketOptions tunes a WebSocketSink.
type WebSocketOptions struct {
	// QueueSize bounds the number of encoded records waiting to be written.
	QueueSize int
	// DialTimeout bounds the initial handshake.
	DialTimeout time.Duration
	// WriteTimeout bounds each frame write.
	WriteTimeout time.Duration
}

func (o WebSocketOptions) withDefaults() WebSocketOptions {
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 10 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 15 * time.Second
	}
	return o
}

// WebSocketSink ships records as JSON text frames to a log server. Log only
// encodes and enqueues; a background goroutine owns the connection. When the
// queue is full records are dropped and counted.
type WebSocketSink struct {
	conn    *websocket.Conn
	opts    WebSocketOptions
	mu      sync.RWMutex
	closed  bool
	queue   chan []byte
	done    chan struct{}
	dropped atomic.Int64
	failed  atomic.Bool
	warn    sync.Once
}

// NewWebSocketSink dials url and starts the writer goroutine.
func NewWebSocketSink(ctx context.Context, url string, opts WebSocketOptions) (*WebSocketSink, error) {
	opts = opts.withDefaults()

	dialCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial log server: %w", err)
	}

	s := &WebSocketSink{
		conn:  conn,
		opts:  opts,
		queue: make(chan []byte, opts.QueueSize),
		done:  make(chan struct{}),
	}
	go s.writeLoop()
	return s, nil
}

func (s *WebSocketSink) Log(rec Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		s.warnf("encode record %q: %v", rec.MessageType, err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed || s.failed.Load() {
		s.dropped.Add(1)
		return
	}
	select {
	case s.queue <- data:
	default:
		s.dropped.Add(1)
		s.warnf("log queue full, dropping records")
	}
}

func (s *WebSocketSink) writeLoop() {
	defer close(s.done)
	for data := range s.queue {
		if s.failed.Load() {
			s.dropped.Add(1)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.WriteTimeout)
		err := s.conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			s.failed.Store(true)
			s.dropped.Add(1)
			s.warnf("write to log server: %v", err)
		}
	}
}

// Dropped returns how many records were not delivered.
func (s *WebSocketSink) Dropped() int64 { return s.dropped.Load() }

// Close stops accepting records, waits for the queue to drain (or ctx to
// expire) and closes the connection.
func (s *WebSocketSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-ctx.Done():
		s.conn.CloseNow()
		return fmt.Errorf("flush log queue: %w", ctx.Err())
	}

	if err := s.conn.Close(websocket.StatusNormalClosure, "session ended"); err != nil && !s.failed.Load() {
		return fmt.Errorf("close log connection: %w", err)
	}
	return nil
}

func (s *WebSocketSink) warnf(format string, args ...any) {
	s.warn.Do(func() {
		logging.Warn("event log websocket: " + fmt.Sprintf(format, args...) + " (further errors suppressed)")
	})
}
