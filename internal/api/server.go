// Package api exposes the daemon over HTTP for the browser extension, the
// dashboard, and the CLI. Handlers are a thin skin over the job registry
// and the history store.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"lectern/internal/history"
	"lectern/internal/jobs"
	"lectern/internal/logging"
	"lectern/internal/services"
)

// Version is reported by the health endpoint.
const Version = "0.3.0"

// JobService is the registry surface the server needs.
type JobService interface {
	EnqueueDownload(req jobs.DownloadRequest) (jobs.DownloadJob, error)
	EnqueueProcessing(req jobs.ProcessingRequest) (jobs.ProcessingJob, error)
	GetDownload(id string) (jobs.DownloadJob, bool)
	GetProcessing(id string) (jobs.ProcessingJob, bool)
	ListDownloads() []jobs.DownloadJob
	ListProcessing() []jobs.ProcessingJob
}

// RecordingService is the history surface the server needs.
type RecordingService interface {
	List(ctx context.Context) ([]*history.Recording, error)
	GetByID(ctx context.Context, id string) (*history.Recording, error)
	Delete(ctx context.Context, id string) error
}

// Server serves the HTTP API.
type Server struct {
	bind       string
	registry   JobService
	recordings RecordingService
	logger     *slog.Logger

	listener net.Listener
	server   *http.Server
}

// NewServer wires the handlers. recordings may be nil, which disables the
// recordings endpoints.
func NewServer(bind string, registry JobService, recordings RecordingService, logger *slog.Logger) *Server {
	s := &Server{
		bind:       bind,
		registry:   registry,
		recordings: recordings,
		logger:     logging.NewComponentLogger(logger, "api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/download", s.handleDownload)
	mux.HandleFunc("/api/download/", s.handleDownloadStatus)
	mux.HandleFunc("/api/process", s.handleProcess)
	mux.HandleFunc("/api/process/", s.handleProcessStatus)
	mux.HandleFunc("/api/jobs", s.handleJobs)
	mux.HandleFunc("/api/recordings", s.handleRecordings)
	mux.HandleFunc("/api/recordings/", s.handleRecording)

	s.server = &http.Server{
		Handler:           withCORS(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins listening. The server shuts down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound listen address, or empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// withCORS allows the extension and the local dashboard to call the API.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: Version})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var payload DownloadPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req, err := payload.ToJobRequest()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	job, err := s.registry.EnqueueDownload(req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleDownloadStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := pathTail(r.URL.Path, "/api/download/")
	if id == "" {
		s.writeError(w, http.StatusNotFound, "download not found")
		return
	}
	job, ok := s.registry.GetDownload(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "download not found")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var payload ProcessPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	job, err := s.registry.EnqueueProcessing(payload.ToJobRequest())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleProcessStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := pathTail(r.URL.Path, "/api/process/")
	if id == "" {
		s.writeError(w, http.StatusNotFound, "processing job not found")
		return
	}
	job, ok := s.registry.GetProcessing(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "processing job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, JobsResponse{
		Downloads:  s.registry.ListDownloads(),
		Processing: s.registry.ListProcessing(),
	})
}

func (s *Server) handleRecordings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.recordings == nil {
		s.writeJSON(w, http.StatusOK, RecordingsResponse{})
		return
	}
	recs, err := s.recordings.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]RecordingView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, recordingView(rec))
	}
	s.writeJSON(w, http.StatusOK, RecordingsResponse{Recordings: views})
}

func (s *Server) handleRecording(w http.ResponseWriter, r *http.Request) {
	id := pathTail(r.URL.Path, "/api/recordings/")
	if id == "" || s.recordings == nil {
		s.writeError(w, http.StatusNotFound, "recording not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		rec, err := s.recordings.GetByID(r.Context(), id)
		if err != nil {
			s.writeHistoryError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, recordingView(rec))
	case http.MethodDelete:
		rec, err := s.recordings.GetByID(r.Context(), id)
		if err != nil {
			s.writeHistoryError(w, err)
			return
		}
		if purgeRequested(r) && rec.RecordingDir != "" {
			if rmErr := os.RemoveAll(rec.RecordingDir); rmErr != nil {
				s.writeError(w, http.StatusInternalServerError, "remove artifacts: "+rmErr.Error())
				return
			}
		}
		if err := s.recordings.Delete(r.Context(), id); err != nil {
			s.writeHistoryError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func purgeRequested(r *http.Request) bool {
	value := r.URL.Query().Get("purge")
	return value == "1" || strings.EqualFold(value, "true")
}

func recordingView(rec *history.Recording) RecordingView {
	view := RecordingView{
		ID:           rec.ID,
		Title:        rec.Title,
		RecordingDir: rec.RecordingDir,
		VideoPath:    rec.VideoPath,
		Status:       string(rec.Status),
		Stage:        rec.Stage,
		Progress:     rec.Progress,
		Error:        rec.ErrorMessage,
		CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
	}
	if rec.CompletedAt != nil {
		view.CompletedAt = rec.CompletedAt.Format(time.RFC3339)
	}
	return view
}

func pathTail(path, prefix string) string {
	tail := strings.TrimPrefix(path, prefix)
	if tail == "" || strings.Contains(tail, "/") {
		return ""
	}
	return tail
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, jobs.ErrDownloadBusy), errors.Is(err, jobs.ErrQueueFull):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) writeHistoryError(w http.ResponseWriter, err error) {
	if errors.Is(err, history.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "recording not found")
		return
	}
	s.writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}
