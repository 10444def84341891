// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/medsegkit/segprep/pkg/segprep"
)

// FetchRequest is the request body for starting a fetch job.
// Note: the output root is NOT configurable via the API; the server uses
// its configured OutputRoot so clients cannot write anywhere else.
type FetchRequest struct {
	Kind      FetchKind `json:"kind"`
	Task      string    `json:"task,omitempty"`
	Session   string    `json:"session,omitempty"`
	ModelType string    `json:"modelType,omitempty"`
}

// TaskInfo describes one available task configuration.
type TaskInfo struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	HasModelID bool   `json:"hasModelId"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse represents a simple success message.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Handlers ---

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleListTasks returns the available task configurations.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	keys := segprep.TaskNames()
	infos := make([]TaskInfo, 0, len(keys))
	for _, k := range keys {
		cfg, err := segprep.LookupTask(k)
		if err != nil {
			continue
		}
		infos = append(infos, TaskInfo{
			Key:        k,
			Name:       cfg.Name,
			HasModelID: cfg.ModelFileID != "",
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tasks": infos,
		"count": len(infos),
	})
}

// handleStartFetch starts a new fetch job.
func (s *Server) handleStartFetch(w http.ResponseWriter, r *http.Request) {
	var req FetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	switch req.Kind {
	case FetchKindModel, FetchKindDatasets, FetchKindClip:
	case "":
		writeError(w, http.StatusBadRequest, "Missing required field: kind", "Expected model, datasets or clip")
		return
	default:
		writeError(w, http.StatusBadRequest, "Unknown fetch kind", string(req.Kind))
		return
	}

	if req.Kind == FetchKindModel && req.Task != "" {
		if _, err := segprep.LookupTask(req.Task); err != nil {
			writeError(w, http.StatusBadRequest, "Unknown task", err.Error())
			return
		}
	}

	job, wasExisting, err := s.jobs.CreateJob(req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create job", err.Error())
		return
	}

	if wasExisting {
		writeJSON(w, http.StatusOK, map[string]any{
			"job":     job,
			"message": "Fetch already in progress",
		})
	} else {
		writeJSON(w, http.StatusAccepted, job)
	}
}

// handleListJobs returns all jobs.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.jobs.ListJobs()
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// handleGetJob returns a specific job.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing job ID", "")
		return
	}

	job, ok := s.jobs.GetJob(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Job not found", "")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// handleCancelJob cancels a job.
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing job ID", "")
		return
	}

	if s.jobs.CancelJob(id) {
		writeJSON(w, http.StatusOK, SuccessResponse{
			Success: true,
			Message: "Job cancelled",
		})
	} else {
		writeError(w, http.StatusNotFound, "Job not found or already completed", "")
	}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, ErrorResponse{
		Error:   message,
		Details: details,
	})
}
