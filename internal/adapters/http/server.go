// Package http exposes the workflow engine as a JSON API over chi.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dev-Ruco/pressflow/pkg/domain"
)

// Engine defines the interface the server needs from the workflow core.
type Engine interface {
	StartSession(ctx context.Context, sessionID, userID string) (*domain.WorkflowState, error)
	State(ctx context.Context, sessionID string) (*domain.WorkflowState, error)
	Advance(ctx context.Context, sessionID string) (domain.Step, error)
	Update(ctx context.Context, sessionID string, patch domain.Patch) error
	AddFiles(ctx context.Context, sessionID string, files []domain.FileDescriptor, payloads map[string][]byte) error
	Submit(ctx context.Context, sessionID string) error
	Titles(ctx context.Context, sessionID string) ([]string, error)
	Watch(sessionID string) (<-chan domain.WorkflowState, func(), error)
	EndSession(ctx context.Context, sessionID string) error
	NewsSources(ctx context.Context, userID string) ([]domain.NewsSource, error)
	SaveNewsSource(ctx context.Context, src *domain.NewsSource) (*domain.NewsSource, error)
	Transcriptions(ctx context.Context, userID string) ([]domain.Transcription, error)
	CreateTranscription(ctx context.Context, tr *domain.Transcription) (*domain.Transcription, error)
}

// Server carries the engine behind the HTTP handlers.
type Server struct {
	Engine Engine
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine Engine) http.Handler {
	server := &Server{Engine: engine}
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/news-sources", func(r chi.Router) {
		r.Get("/", server.ListNewsSources)
		r.Post("/", server.SaveNewsSource)
	})
	r.Route("/api/transcriptions", func(r chi.Router) {
		r.Get("/", server.ListTranscriptions)
		r.Post("/", server.CreateTranscription)
	})

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", server.StartSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", server.GetState)
			r.Patch("/", server.UpdateState)
			r.Delete("/", server.EndSession)
			r.Post("/advance", server.Advance)
			r.Post("/files", server.AddFiles)
			r.Post("/submit", server.Submit)
			r.Get("/titles", server.GetTitles)
			r.Get("/watch", server.WatchState)
		})
	})

	return r
}

type startSessionRequest struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

// StartSession handles POST /api/sessions.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	var body startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.SessionID == "" || body.UserID == "" {
		writeError(w, http.StatusBadRequest, "sessionId and userId are required")
		return
	}

	state, err := s.Engine.StartSession(r.Context(), body.SessionID, body.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

// GetState handles GET /api/sessions/{sessionID}.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	state, err := s.Engine.State(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// UpdateState handles PATCH /api/sessions/{sessionID}.
func (s *Server) UpdateState(w http.ResponseWriter, r *http.Request) {
	var patch domain.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if err := s.Engine.Update(r.Context(), sessionID, patch); err != nil {
		writeEngineError(w, err)
		return
	}

	state, err := s.Engine.State(r.Context(), sessionID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Advance handles POST /api/sessions/{sessionID}/advance.
func (s *Server) Advance(w http.ResponseWriter, r *http.Request) {
	step, err := s.Engine.Advance(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"step": step})
}

// AddFiles handles POST /api/sessions/{sessionID}/files (multipart).
func (s *Server) AddFiles(w http.ResponseWriter, r *http.Request) {
	// 64 MiB in memory before spilling to disk.
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	var descriptors []domain.FileDescriptor
	payloads := make(map[string][]byte)

	for _, headers := range r.MultipartForm.File {
		for _, hdr := range headers {
			f, err := hdr.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("cannot read %s", hdr.Filename))
				return
			}
			data := make([]byte, hdr.Size)
			if _, err := io.ReadFull(f, data); err != nil {
				f.Close()
				writeError(w, http.StatusBadRequest, fmt.Sprintf("cannot read %s", hdr.Filename))
				return
			}
			f.Close()

			desc := domain.FileDescriptor{
				ID:       uuid.NewString(),
				FileName: hdr.Filename,
				MimeType: hdr.Header.Get("Content-Type"),
				FileType: fileTypeFor(hdr.Header.Get("Content-Type")),
				FileSize: hdr.Size,
				Status:   domain.FilePending,
			}
			descriptors = append(descriptors, desc)
			payloads[desc.ID] = data
		}
	}

	sessionID := chi.URLParam(r, "sessionID")
	if err := s.Engine.AddFiles(r.Context(), sessionID, descriptors, payloads); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, descriptors)
}

// Submit handles POST /api/sessions/{sessionID}/submit.
func (s *Server) Submit(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.Engine.Submit(r.Context(), sessionID); err != nil {
		writeEngineError(w, err)
		return
	}

	state, err := s.Engine.State(r.Context(), sessionID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, state)
}

// GetTitles handles GET /api/sessions/{sessionID}/titles.
func (s *Server) GetTitles(w http.ResponseWriter, r *http.Request) {
	titles, err := s.Engine.Titles(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"titulos": titles})
}

// EndSession handles DELETE /api/sessions/{sessionID}.
func (s *Server) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.EndSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// WatchState handles GET /api/sessions/{sessionID}/watch (SSE).
func (s *Server) WatchState(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	events, cancel, err := s.Engine.Watch(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// ListNewsSources handles GET /api/news-sources?userId=...
func (s *Server) ListNewsSources(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	sources, err := s.Engine.NewsSources(r.Context(), userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if sources == nil {
		sources = []domain.NewsSource{}
	}
	writeJSON(w, http.StatusOK, sources)
}

// SaveNewsSource handles POST /api/news-sources. An empty ID creates a
// feed; a present ID updates it.
func (s *Server) SaveNewsSource(w http.ResponseWriter, r *http.Request) {
	var src domain.NewsSource
	if err := json.NewDecoder(r.Body).Decode(&src); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	saved, err := s.Engine.SaveNewsSource(r.Context(), &src)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	status := http.StatusOK
	if src.ID == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, saved)
}

// ListTranscriptions handles GET /api/transcriptions?userId=...
func (s *Server) ListTranscriptions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	jobs, err := s.Engine.Transcriptions(r.Context(), userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if jobs == nil {
		jobs = []domain.Transcription{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// CreateTranscription handles POST /api/transcriptions.
func (s *Server) CreateTranscription(w http.ResponseWriter, r *http.Request) {
	var tr domain.Transcription
	if err := json.NewDecoder(r.Body).Decode(&tr); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := s.Engine.CreateTranscription(r.Context(), &tr)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// writeEngineError maps engine errors onto HTTP statuses: validation
// rejections become 422 with the validator's message, missing sessions
// 404, missing auth 401.
func writeEngineError(w http.ResponseWriter, err error) {
	if te, ok := domain.IsTransitionError(err); ok {
		writeError(w, http.StatusUnprocessableEntity, te.Message)
		return
	}
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrArticleNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrNoMaterial):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrUnsupportedStore):
		writeError(w, http.StatusNotImplemented, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fileTypeFor buckets a MIME type into the product's coarse categories.
func fileTypeFor(mime string) string {
	switch {
	case strings.HasPrefix(mime, "audio/"):
		return "audio"
	case strings.HasPrefix(mime, "image/"):
		return "image"
	case strings.HasPrefix(mime, "video/"):
		return "video"
	default:
		return "document"
	}
}
