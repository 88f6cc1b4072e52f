package api

import (
	"context"
	"net/http"
	"strings"

	"plutus/internal/imagetask"
	"plutus/internal/metrics"
	"plutus/pkg/errors"
	"plutus/pkg/logger"
)

// TaskResolver is the image task capability the endpoint needs.
type TaskResolver interface {
	Resolve(ctx context.Context, id string) (*imagetask.Task, error)
}

// ImageHandler serves POST /api/generate_image/{taskId}. The frontend polls
// this endpoint until the task reaches a terminal state.
type ImageHandler struct {
	tasks TaskResolver
	log   *logger.Logger
}

// NewImageHandler creates the image poll endpoint handler.
func NewImageHandler(tasks TaskResolver) *ImageHandler {
	return &ImageHandler{
		tasks: tasks,
		log:   logger.Get().With("handler", "image"),
	}
}

type imageResponse struct {
	Status   string `json:"status,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ServeHTTP resolves one task poll.
func (h *ImageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	taskID := strings.TrimPrefix(r.URL.Path, "/api/generate_image/")
	if taskID == "" || strings.Contains(taskID, "/") {
		writeError(w, errors.Wrap(errors.ErrInvalidRequest, "missing task id"))
		return
	}

	task, err := h.tasks.Resolve(r.Context(), taskID)
	if err != nil {
		if !errors.Is(err, errors.ErrUnknownTask) {
			h.log.Errorf("resolve task %s: %v", taskID, err)
		}
		writeError(w, err)
		return
	}

	switch task.Status {
	case imagetask.StatusReady:
		metrics.RecordImageTask("ready")
		writeJSON(w, http.StatusOK, imageResponse{ImageURL: task.URL})
	case imagetask.StatusError:
		metrics.RecordImageTask("error")
		writeJSON(w, http.StatusOK, imageResponse{
			Status:  "error",
			Message: "image generation failed, please try again",
		})
	default:
		writeJSON(w, http.StatusOK, imageResponse{Status: string(task.Status)})
	}
}
