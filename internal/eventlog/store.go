package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mobeets/instrumental-river-raid/internal/logging"
	"github.com/mobeets/instrumental-river-raid/internal/store"
)

// StoreOptions tunes a StoreSink.
type StoreOptions struct {
	// QueueSize bounds the number of records waiting to be written.
	QueueSize int
	// WriteTimeout bounds each insert.
	WriteTimeout time.Duration
}

func (o StoreOptions) withDefaults() StoreOptions {
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	return o
}

// StoreSink writes records into a local SQLite store. Like WebSocketSink, Log
// only encodes and enqueues; a background goroutine does the inserts, and
// records that find the queue full are dropped and counted.
type StoreSink struct {
	st        *store.Store
	sessionID uuid.UUID
	opts      StoreOptions
	mu        sync.RWMutex
	closed    bool
	queue     chan store.Record
	done      chan struct{}
	dropped   atomic.Int64
	warn      sync.Once
}

// NewStoreSink registers the session in st and starts the writer goroutine.
func NewStoreSink(ctx context.Context, st *store.Store, sessionID uuid.UUID, subjectID string, opts StoreOptions) (*StoreSink, error) {
	if err := st.EnsureSession(ctx, sessionID, subjectID); err != nil {
		return nil, fmt.Errorf("register session: %w", err)
	}
	opts = opts.withDefaults()
	s := &StoreSink{
		st:        st,
		sessionID: sessionID,
		opts:      opts,
		queue:     make(chan store.Record, opts.QueueSize),
		done:      make(chan struct{}),
	}
	go s.writeLoop()
	return s, nil
}

func (s *StoreSink) Log(rec Record) {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		s.warnf("encode record %q: %v", rec.MessageType, err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		return
	}
	select {
	case s.queue <- store.Record{MessageType: rec.MessageType, Payload: payload, LoggedAt: rec.Timestamp}:
	default:
		s.dropped.Add(1)
		s.warnf("store queue full, dropping records")
	}
}

func (s *StoreSink) writeLoop() {
	defer close(s.done)
	for rec := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.WriteTimeout)
		_, err := s.st.AppendRecord(ctx, s.sessionID, rec)
		cancel()
		if err != nil {
			s.dropped.Add(1)
			s.warnf("append record: %v", err)
		}
	}
}

// Dropped returns how many records were not stored.
func (s *StoreSink) Dropped() int64 { return s.dropped.Load() }

// Close stops accepting records and waits for queued ones to be written or
// for ctx to expire. It does not close the underlying store.
func (s *StoreSink) Close(ctx context.Context) error {
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
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flush store queue: %w", ctx.Err())
	}
}

func (s *StoreSink) warnf(format string, args ...any) {
	s.warn.Do(func() {
		logging.Warn("event log store: " + fmt.Sprintf(format, args...) + " (further errors suppressed)")
	})
}
