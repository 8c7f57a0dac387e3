package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/paperwavelabs/paperwave-core/internal/config"
	"github.com/paperwavelabs/paperwave-core/internal/task"
)

// Submitter starts a podcast run for an uploaded document.
type Submitter interface {
	Submit(params task.Parameters, docPath string) task.Record
}

// Server exposes the submission surface: upload a document, poll task
// status, download the finished episode.
type Server struct {
	pipeline  Submitter
	tasks     *task.Store
	uploadDir string
	outputDir string
	maxBytes  int64
	clock     func() time.Time
	logger    *slog.Logger
}

func New(cfg config.StorageConfig, pipeline Submitter, tasks *task.Store, logger *slog.Logger) *Server {
	return &Server{
		pipeline:  pipeline,
		tasks:     tasks,
		uploadDir: cfg.UploadDir,
		outputDir: cfg.OutputDir,
		maxBytes:  int64(cfg.MaxUploadMB) << 20,
		clock:     time.Now,
		logger:    logger.With(slog.String("component", "server")),
	}
}

// Register mounts the submission routes on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /status/{task_id}", s.handleStatus)
	mux.HandleFunc("GET /download/{identifier}", s.handleDownload)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes)
	if err := r.ParseMultipartForm(s.maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}

	file, header, err := r.FormFile("pdf")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()
	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No file selected")
		return
	}
	if !allowedFile(header.Filename) {
		writeError(w, http.StatusBadRequest, "Invalid file type. Please upload a PDF.")
		return
	}

	hosts := formInt(r, "num_hosts", 2)
	guests := formInt(r, "num_guests", 1)
	length := formInt(r, "podcast_length", 10)
	selected := r.MultipartForm.Value["selected_hosts[]"]

	if hosts < 1 || hosts > 4 {
		writeError(w, http.StatusBadRequest, "Number of hosts must be between 1 and 4")
		return
	}
	if guests < 0 || guests > 3 {
		writeError(w, http.StatusBadRequest, "Number of guests must be between 0 and 3")
		return
	}
	if length < 3 || length > 15 {
		writeError(w, http.StatusBadRequest, "Podcast length must be between 3 and 15 minutes")
		return
	}

	docPath, err := s.saveUpload(file, header.Filename)
	if err != nil {
		s.logger.Error("failed to store upload", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Failed to store uploaded file")
		return
	}

	rec := s.pipeline.Submit(task.Parameters{
		Hosts:         hosts,
		Guests:        guests,
		LengthMinutes: length,
		Speakers:      selected,
	}, docPath)

	s.logger.Info("upload accepted",
		slog.String("task_id", rec.ID), slog.String("filename", header.Filename))
	writeJSON(w, http.StatusOK, map[string]string{"task_id": rec.ID})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.tasks.Get(r.PathValue("task_id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleDownload accepts either a task identifier or a literal output
// filename.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	identifier := r.PathValue("identifier")

	filename := identifier
	if rec, ok := s.tasks.Get(identifier); ok && rec.Filename != "" {
		filename = rec.Filename
	}
	filename = sanitizeFilename(filename)

	path := filepath.Join(s.outputDir, filename)
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeFile(w, r, path)
}

func (s *Server) saveUpload(file multipart.File, name string) (string, error) {
	filename := fmt.Sprintf("%s_%s", s.clock().Format("20060102_150405"), sanitizeFilename(name))
	path := filepath.Join(s.uploadDir, filename)

	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, file); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func formInt(r *http.Request, key string, fallback int) int {
	raw := r.FormValue(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func allowedFile(name string) bool {
	return filepath.Ext(name) == ".pdf" || filepath.Ext(name) == ".txt"
}

var unsafeFilenameRe = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// sanitizeFilename strips any path components and characters that are not
// safe in a stored filename.
func sanitizeFilename(name string) string {
	return unsafeFilenameRe.ReplaceAllString(filepath.Base(name), "_")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
