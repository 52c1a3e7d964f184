// Package server exposes the chat pipeline over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"pdfchat/internal/domain"
	"pdfchat/internal/session"
)

// Handler holds the dependencies for HTTP handlers.
type Handler struct {
	sessions    *session.Manager
	log         *slog.Logger
	maxUpload   int64
	maxSessions int
}

// NewHandler creates a Handler over a session manager.
func NewHandler(sessions *session.Manager, log *slog.Logger, maxUploadBytes int64, maxSessions int) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		sessions:    sessions,
		log:         log,
		maxUpload:   maxUploadBytes,
		maxSessions: maxSessions,
	}
}

type sessionResponse struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

type ingestResponse struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Chunks     int    `json:"chunks"`
	Summary    string `json:"summary,omitempty"`
}

type chatRequest struct {
	Query string `json:"query"`
}

type sourceResponse struct {
	ChunkID  string  `json:"chunk_id"`
	Source   string  `json:"source"`
	Page     int     `json:"page"`
	Text     string  `json:"text"`
	Distance float64 `json:"distance"`
}

type chatResponse struct {
	Answer  string           `json:"answer"`
	Sources []sourceResponse `json:"sources"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleCreateSession handles POST /api/sessions.
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	if h.maxSessions > 0 && h.sessions.Len() >= h.maxSessions {
		sendJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "session capacity reached"})
		return
	}
	s := h.sessions.Create()
	h.log.Info("session created", "session", s.ID())
	sendJSON(w, http.StatusCreated, sessionResponse{ID: s.ID(), State: s.State().String()})
}

// HandleGetSession handles GET /api/sessions/{id}.
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.Get(mux.Vars(r)["id"])
	if !ok {
		sendJSON(w, http.StatusNotFound, errorResponse{Error: "unknown session"})
		return
	}
	sendJSON(w, http.StatusOK, sessionResponse{ID: s.ID(), State: s.State().String()})
}

// HandleUpload handles POST /api/sessions/{id}/documents.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.Get(mux.Vars(r)["id"])
	if !ok {
		sendJSON(w, http.StatusNotFound, errorResponse{Error: "unknown session"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile("document")
	if err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "multipart field 'document' required: " + err.Error()})
		return
	}
	defer file.Close()

	res, err := s.Ingest(r.Context(), header.Filename, file)
	if err != nil {
		h.sendError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, ingestResponse{
		DocumentID: res.DocumentID,
		Filename:   res.Filename,
		Chunks:     res.Chunks,
		Summary:    res.Summary,
	})
}

// HandleChat handles POST /api/sessions/{id}/chat.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.Get(mux.Vars(r)["id"])
	if !ok {
		sendJSON(w, http.StatusNotFound, errorResponse{Error: "unknown session"})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
		return
	}
	if req.Query == "" {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "query must not be empty"})
		return
	}

	ans, err := s.Ask(r.Context(), req.Query)
	if err != nil {
		h.sendError(w, err)
		return
	}

	sources := make([]sourceResponse, 0, len(ans.Sources))
	for _, src := range ans.Sources {
		sources = append(sources, sourceResponse{
			ChunkID:  src.Chunk.ID,
			Source:   src.Chunk.Source,
			Page:     src.Chunk.Page,
			Text:     src.Chunk.Text,
			Distance: src.Distance,
		})
	}
	sendJSON(w, http.StatusOK, chatResponse{Answer: ans.Turn.Answer, Sources: sources})
}

// HandleReset handles POST /api/sessions/{id}/reset.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.Get(mux.Vars(r)["id"])
	if !ok {
		sendJSON(w, http.StatusNotFound, errorResponse{Error: "unknown session"})
		return
	}
	if err := s.Reset(); err != nil {
		h.sendError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, sessionResponse{ID: s.ID(), State: s.State().String()})
}

// HandleDeleteSession handles DELETE /api/sessions/{id}.
func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Remove(mux.Vars(r)["id"]) {
		sendJSON(w, http.StatusNotFound, errorResponse{Error: "unknown session"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleHealth handles GET /healthz.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": h.sessions.Len()})
}

func (h *Handler) sendError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidConfig):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnreadableDocument):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrSessionBusy):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrSessionClosed):
		status = http.StatusGone
	case errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrInferenceUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, domain.ErrDimensionMismatch):
		status = http.StatusUnprocessableEntity
	}
	h.log.Error("request failed", "status", status, "error", err)
	sendJSON(w, status, errorResponse{Error: err.Error()})
}

// sendJSON sends a JSON response with the given status code.
func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
