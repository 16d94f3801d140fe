// Package api provides HTTP API handlers for browsing stored annotation runs.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/posekit/internal/landmark"
	"github.com/ayusman/posekit/internal/store"
)

// RunHandler handles HTTP requests for run resources.
type RunHandler struct {
	store *store.Store
}

// NewRunHandler creates a new RunHandler with the given store.
func NewRunHandler(s *store.Store) *RunHandler {
	return &RunHandler{store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *RunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/runs, /api/runs/{id}, /api/runs/{id}/detections
	// or /api/runs/{id}/thumbnail
	path := strings.TrimPrefix(r.URL.Path, "/api/runs")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if id, ok := strings.CutSuffix(path, "/detections"); ok {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.detections(w, r, id)
		return
	}

	if id, ok := strings.CutSuffix(path, "/thumbnail"); ok {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.thumbnail(w, r, id)
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type runResponse struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Source    string `json:"source"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Frames    int    `json:"frames"`
	Detected  int    `json:"detected"`
	CreatedAt string `json:"created_at"`
}

type listRunsResponse struct {
	Runs []runResponse `json:"runs"`
}

type detectionResponse struct {
	FrameIndex int              `json:"frame_index"`
	HasPose    bool             `json:"has_pose"`
	LeftHand   bool             `json:"left_hand"`
	RightHand  bool             `json:"right_hand"`
	Result     *landmark.Result `json:"result"`
}

type listDetectionsResponse struct {
	RunID      string              `json:"run_id"`
	Detections []detectionResponse `json:"detections"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toResponse(run *store.Run, detected int) runResponse {
	return runResponse{
		ID:        run.ID,
		Kind:      string(run.Kind),
		Source:    run.Source,
		Width:     run.Width,
		Height:    run.Height,
		Frames:    run.Frames,
		Detected:  detected,
		CreatedAt: run.CreatedAt.Format(time.RFC3339),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/runs and returns all runs, newest first.
func (h *RunHandler) list(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.Runs().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	response := listRunsResponse{
		Runs: make([]runResponse, 0, len(runs)),
	}
	for _, run := range runs {
		detected, err := h.store.Detections().CountByRun(run.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to count detections")
			return
		}
		response.Runs = append(response.Runs, toResponse(run, detected))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/runs/{id} and returns a single run.
func (h *RunHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	run, err := h.store.Runs().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}

	detected, err := h.store.Detections().CountByRun(run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count detections")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(run, detected))
}

// detections handles GET /api/runs/{id}/detections and returns the per-frame results.
func (h *RunHandler) detections(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.store.Runs().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}

	detections, err := h.store.Detections().ListByRun(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list detections")
		return
	}

	response := listDetectionsResponse{
		RunID:      id,
		Detections: make([]detectionResponse, 0, len(detections)),
	}
	for _, d := range detections {
		response.Detections = append(response.Detections, detectionResponse{
			FrameIndex: d.FrameIndex,
			HasPose:    d.HasPose,
			LeftHand:   d.LeftHand,
			RightHand:  d.RightHand,
			Result:     d.Result,
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// thumbnail handles GET /api/runs/{id}/thumbnail and returns the JPEG preview.
func (h *RunHandler) thumbnail(w http.ResponseWriter, r *http.Request, id string) {
	data, err := h.store.Runs().Thumbnail(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Thumbnail not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get thumbnail")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// delete handles DELETE /api/runs/{id} and removes a run with its detections.
func (h *RunHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Runs().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete run")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
