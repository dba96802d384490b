package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/CatiaMachado997/EthicompanionV2/internal/agent"
	"github.com/CatiaMachado997/EthicompanionV2/internal/audio"
	"github.com/CatiaMachado997/EthicompanionV2/internal/config"
	"github.com/CatiaMachado997/EthicompanionV2/internal/memory"
	"github.com/CatiaMachado997/EthicompanionV2/internal/observability"
	"github.com/CatiaMachado997/EthicompanionV2/internal/session"
	"github.com/CatiaMachado997/EthicompanionV2/internal/voice"
)

// ChatAgent runs one complete chat turn for a session.
type ChatAgent interface {
	HandleMessage(ctx context.Context, sessionID, message string, mode memory.ContextMode) (agent.Reply, error)
}

// MemoryService exposes the memory manager surface the API serves.
type MemoryService interface {
	Stats(ctx context.Context) memory.Stats
	SessionStats(ctx context.Context, sessionID string) (memory.SessionStats, error)
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

type Server struct {
	cfg         config.Config
	sessions    *session.Manager
	chat        ChatAgent
	mem         MemoryService
	transcriber voice.Transcriber
	metrics     *observability.Metrics
	upgrader    websocket.Upgrader
}

func New(cfg config.Config, sessions *session.Manager, chat ChatAgent, mem MemoryService, transcriber voice.Transcriber, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:         cfg,
		sessions:    sessions,
		chat:        chat,
		mem:         mem,
		transcriber: transcriber,
		metrics:     metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so other sites cannot drive a user's chat
				// session if the server is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/api/chat", s.handleChat)
	r.Post("/api/transcribe", s.handleTranscribe)
	r.Get("/api/memory/stats", s.handleMemoryStats)
	r.Get("/api/memory/sessions/{id}/stats", s.handleSessionStats)
	r.Post("/api/memory/cleanup", s.handleCleanup)
	r.Post("/api/sessions/{id}/end", s.handleEndSession)
	r.Get("/ws/chat", s.handleChatWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	stats := s.mem.Stats(r.Context())
	status := http.StatusOK
	if stats.Status == memory.StatusError {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, map[string]any{
		"status": stats.Status,
		"memory": stats,
	})
}

type chatRequest struct {
	Message     string `json:"message"`
	SessionID   string `json:"session_id"`
	ContextMode string `json:"context_mode"`
}

type chatResponse struct {
	Response    string    `json:"response"`
	SessionID   string    `json:"session_id"`
	Timestamp   time.Time `json:"timestamp"`
	ContextMode string    `json:"context_mode"`
	ContextUsed bool      `json:"context_used"`
	Saved       bool      `json:"saved"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "empty_message", "message is required")
		return
	}
	mode, err := memory.ParseContextMode(req.ContextMode)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_context_mode", err.Error())
		return
	}

	sess := s.sessions.Ensure(req.SessionID)
	s.setActiveSessions()

	reply, err := s.chat.HandleMessage(r.Context(), sess.ID, req.Message, mode)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "chat_failed", err.Error())
		return
	}
	_ = s.sessions.RecordTurn(sess.ID)

	respondJSON(w, http.StatusOK, chatResponse{
		Response:    reply.Response,
		SessionID:   sess.ID,
		Timestamp:   time.Now().UTC(),
		ContextMode: string(mode),
		ContextUsed: reply.ContextUsed,
		Saved:       reply.Saved,
	})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.transcriber == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "transcription not configured")
		return
	}
	if r.Body == nil {
		respondError(w, http.StatusBadRequest, "empty_body", "audio payload is required")
		return
	}
	defer r.Body.Close()

	transcript, err := s.transcriber.Transcribe(r.Context(), audio.FromStream(r.Body))
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, audio.ErrInputTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		respondError(w, status, "transcription_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, transcript)
}

func (s *Server) handleMemoryStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.mem.Stats(r.Context()))
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}
	stats, err := s.mem.SessionStats(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "stats_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

type cleanupRequest struct {
	RetentionDays int `json:"retention_days"`
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	retention := s.cfg.Retention
	if req.RetentionDays > 0 {
		retention = time.Duration(req.RetentionDays) * 24 * time.Hour
	}

	deleted, err := s.mem.Cleanup(r.Context(), retention)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "cleanup_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"deleted_messages": deleted,
		"retention":        retention.String(),
	})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}
	sess, err := s.sessions.End(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	s.setActiveSessions()
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Ensure(strings.TrimSpace(r.URL.Query().Get("session_id")))
	s.setActiveSessions()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))

		resp, wsErr := s.runWSTurn(r.Context(), sess.ID, req)
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if wsErr != nil {
			if err := conn.WriteJSON(wsErr); err != nil {
				return
			}
			continue
		}
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

func (s *Server) runWSTurn(ctx context.Context, sessionID string, req chatRequest) (*chatResponse, *errorResponse) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, &errorResponse{Error: "message is required", Code: "empty_message"}
	}
	mode, err := memory.ParseContextMode(req.ContextMode)
	if err != nil {
		return nil, &errorResponse{Error: err.Error(), Code: "invalid_context_mode"}
	}

	reply, err := s.chat.HandleMessage(ctx, sessionID, req.Message, mode)
	if err != nil {
		return nil, &errorResponse{Error: err.Error(), Code: "chat_failed"}
	}
	_ = s.sessions.RecordTurn(sessionID)

	return &chatResponse{
		Response:    reply.Response,
		SessionID:   sessionID,
		Timestamp:   time.Now().UTC(),
		ContextMode: string(mode),
		ContextUsed: reply.ContextUsed,
		Saved:       reply.Saved,
	}, nil
}

func (s *Server) setActiveSessions() {
	if s.metrics == nil {
		return
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		if s.metrics == nil {
			return
		}
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		s.metrics.HTTPRequests.WithLabelValues(route, statusClass(sw.status)).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack keeps websocket upgrades working through the instrumentation wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}

func statusClass(status int) string {
	return fmt.Sprintf("%dxx", status/100)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
