package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/duynm98/daily-story/internal/models"
	"github.com/duynm98/daily-story/internal/tasks"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	store *tasks.Store
}

func NewHandler(store *tasks.Store) *Handler {
	return &Handler{store: store}
}

// CreateStory handles POST /v1/stories
func (h *Handler) CreateStory(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, models.TaskKindStory)
}

// CreateVideo handles POST /v1/videos
func (h *Handler) CreateVideo(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, models.TaskKindVideo)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, kind models.TaskKind) {
	var req models.TextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "Text is required")
		return
	}

	taskID, err := h.store.Submit(r.Context(), kind, req.Text, req.SearchTerms)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to submit task")
		return
	}

	respondJSON(w, http.StatusAccepted, models.SubmitTaskResponse{
		TaskID: taskID,
		Status: models.TaskStatusPending,
	})
}

// ListTasks handles GET /v1/tasks
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	infos, err := h.store.ListAll(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list tasks")
		return
	}

	respondJSON(w, http.StatusOK, models.ListTasksResponse{
		Tasks: infos,
		Total: len(infos),
	})
}

// GetTask handles GET /v1/tasks/{id}
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	info, err := h.store.Status(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, tasks.ErrTaskNotFound) {
			respondError(w, http.StatusNotFound, "Task not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to get task status")
		return
	}

	respondJSON(w, http.StatusOK, info)
}

// GetTaskDownload handles GET /v1/tasks/{id}/download
func (h *Handler) GetTaskDownload(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	info, err := h.store.Status(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, tasks.ErrTaskNotFound) {
			respondError(w, http.StatusNotFound, "Task not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to get task status")
		return
	}

	if info.Status != models.TaskStatusSuccess || info.Result == "" {
		respondError(w, http.StatusNotFound, "Video not ready")
		return
	}

	if _, err := os.Stat(info.Result); err != nil {
		respondError(w, http.StatusNotFound, "Video file no longer available")
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=\""+taskID+".mp4\"")
	http.ServeFile(w, r, info.Result)
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
