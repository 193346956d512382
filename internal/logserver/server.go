// Package logserver receives shipped session records over websocket, stores
// them in SQLite and serves them back over a small JSON API.
package logserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/mobeets/instrumental-river-raid/internal/logging"
	"github.com/mobeets/instrumental-river-raid/internal/store"
)

const (
	defaultRecordLimit = 500
	maxRecordLimit     = 5000
	// A final "end of Experiment" record carries the whole session.
	readLimit = 32 << 20
)

// Server handles ingest and query requests.
type Server struct {
	store     *store.Store
	startTime time.Time
	ingested  atomic.Int64
	rejected  atomic.Int64
}

// NewServer returns a server backed by st.
func NewServer(st *store.Store) *Server {
	return &Server{store: st, startTime: time.Now()}
}

// Routes sets up the HTTP routes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleIngest)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Get("/sessions/{id}/records", s.handleRecords)
	})
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Warn(fmt.Sprintf("encode response: %v", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

type healthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Ingested int64  `json:"ingested"`
	Rejected int64  `json:"rejected"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Uptime:   logging.FormatDuration(int(time.Since(s.startTime).Seconds())),
		Ingested: s.ingested.Load(),
		Rejected: s.rejected.Load(),
	})
}

// handleIngest accepts a websocket carrying one JSON record per text frame.
// The session is named by the "session" query parameter; a new id is minted
// when it is absent.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	sessionID := uuid.New()
	if raw := r.URL.Query().Get("session"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid session id")
			return
		}
		sessionID = id
	}
	subject := r.URL.Query().Get("subject")

	if err := s.store.EnsureSession(r.Context(), sessionID, subject); err != nil {
		writeError(w, http.StatusInternalServerError, "register session")
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}
	defer ws.CloseNow()
	ws.SetReadLimit(readLimit)

	logging.Info(fmt.Sprintf("ingest connected: session %s subject %q", sessionID, subject))
	ctx := r.Context()
	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				logging.Warn(fmt.Sprintf("ingest %s: %v", sessionID, err))
			}
			return
		}
		if typ != websocket.MessageText {
			s.rejected.Add(1)
			continue
		}
		var rec store.Record
		if err := json.Unmarshal(data, &rec); err != nil || rec.MessageType == "" {
			s.rejected.Add(1)
			continue
		}
		if _, err := s.store.AppendRecord(ctx, sessionID, rec); err != nil {
			logging.Error(fmt.Sprintf("store record for %s: %v", sessionID, err))
			ws.Close(websocket.StatusInternalError, "storage failure")
			return
		}
		s.ingested.Add(1)
	}
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.ListSessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list sessions")
		return
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func parseSessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}
	sess, err := s.store.GetSession(r.Context(), id)
	if errors.Is(err, store.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type recordsResponse struct {
	SessionID uuid.UUID            `json:"session_id"`
	Records   []store.StoredRecord `json:"records"`
	NextAfter int64                `json:"next_after"`
}

// handleRecords pages through a session's records with ?after=<seq>&limit=<n>.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	id, ok := parseSessionID(w, r)
	if !ok {
		return
	}
	after, err := queryInt(r, "after", 0)
	if err != nil || after < 0 {
		writeError(w, http.StatusBadRequest, "invalid after")
		return
	}
	limit, err := queryInt(r, "limit", defaultRecordLimit)
	if err != nil || limit <= 0 {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	limit = min(limit, maxRecordLimit)

	if _, err := s.store.GetSession(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get session")
		return
	}
	recs, err := s.store.Records(r.Context(), id, int64(after), int(limit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list records")
		return
	}
	resp := recordsResponse{SessionID: id, Records: recs, NextAfter: int64(after)}
	if resp.Records == nil {
		resp.Records = []store.StoredRecord{}
	}
	if n := len(recs); n > 0 {
		resp.NextAfter = recs[n-1].Seq
	}
	writeJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, key string, def int64) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
