package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sky-ai/skai/internal/kernel"
	"github.com/sky-ai/skai/internal/session"
	"github.com/sky-ai/skai/internal/voice"
	"go.uber.org/zap"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	kernel *kernel.Kernel
	conv   *voice.Conversation
	logger *zap.Logger
}

// NewHandler creates a new API handler. conv may be nil when the host has
// no audio stack configured; voice routes then report unavailable.
func NewHandler(k *kernel.Kernel, conv *voice.Conversation, logger *zap.Logger) *Handler {
	return &Handler{
		kernel: k,
		conv:   conv,
		logger: logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)

		r.Post("/chat", h.chat)
		r.Get("/agents", h.listAgents)
		r.Post("/agents/{name}/route", h.routeToAgent)
		r.Post("/workflow", h.executeWorkflow)

		// Session routes
		r.Get("/sessions/{id}", h.getSession)
		r.Get("/sessions/{id}/messages", h.getSessionMessages)
		r.Delete("/sessions/{id}", h.deleteSession)

		// Voice conversation routes
		r.Post("/voice/start", h.voiceStart)
		r.Post("/voice/stop", h.voiceStop)
		r.Post("/voice/text", h.voiceText)
		r.Get("/voice/state", h.voiceState)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "skai"})
}

type chatRequest struct {
	Message   string         `json:"message"`
	SessionID string         `json:"session_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	env := h.kernel.ProcessMessage(r.Context(), req.Message, req.SessionID, req.Metadata)
	writeJSON(w, http.StatusOK, env)
}

func (h *Handler) listAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"agents": h.kernel.Agents().Names()})
}

type routeRequest struct {
	Input     string `json:"input"`
	SessionID string `json:"session_id,omitempty"`
}

func (h *Handler) routeToAgent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Input == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "input is required"})
		return
	}

	result := h.kernel.RouteToAgent(r.Context(), name, req.Input, req.SessionID)
	writeJSON(w, http.StatusOK, result)
}

type workflowRequest struct {
	Steps     []kernel.WorkflowStep `json:"steps"`
	SessionID string                `json:"session_id,omitempty"`
}

func (h *Handler) executeWorkflow(w http.ResponseWriter, r *http.Request) {
	var req workflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if len(req.Steps) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "steps are required"})
		return
	}

	result := h.kernel.ExecuteWorkflow(r.Context(), req.Steps, req.SessionID)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := h.kernel.Sessions().Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (h *Handler) getSessionMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := h.kernel.Sessions().Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	snap := sess.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": snap.SessionID,
		"messages":   snap.Messages,
	})
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.kernel.Sessions().Delete(r.Context(), id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) voiceStart(w http.ResponseWriter, r *http.Request) {
	if h.conv == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "voice not initialized"})
		return
	}
	if err := h.conv.Start(context.Background()); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (h *Handler) voiceStop(w http.ResponseWriter, r *http.Request) {
	if h.conv == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "voice not initialized"})
		return
	}
	h.conv.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

type voiceTextRequest struct {
	Text string `json:"text"`
}

func (h *Handler) voiceText(w http.ResponseWriter, r *http.Request) {
	if h.conv == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "voice not initialized"})
		return
	}
	var req voiceTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}
	if !h.conv.Inject(req.Text) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "conversation not accepting input"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (h *Handler) voiceState(w http.ResponseWriter, r *http.Request) {
	if h.conv == nil {
		writeJSON(w, http.StatusOK, voice.State{Phase: voice.PhaseIdle})
		return
	}
	writeJSON(w, http.StatusOK, h.conv.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
