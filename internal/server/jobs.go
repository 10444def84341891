// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/medsegkit/segprep/pkg/segprep"
)

// FetchKind selects which fetcher a job runs.
type FetchKind string

const (
	FetchKindModel    FetchKind = "model"
	FetchKindDatasets FetchKind = "datasets"
	FetchKindClip     FetchKind = "clip"
)

// JobStatus represents the state of a fetch job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusExhausted JobStatus = "exhausted" // cascade ran out; manual instructions issued
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job represents one fetch job.
type Job struct {
	ID        string      `json:"id"`
	Kind      FetchKind   `json:"kind"`
	Task      string      `json:"task,omitempty"`
	Session   string      `json:"session,omitempty"`
	ModelType string      `json:"modelType,omitempty"`
	Status    JobStatus   `json:"status"`
	Progress  JobProgress `json:"progress"`
	Target    string      `json:"target,omitempty"`
	Manual    string      `json:"manual,omitempty"` // manual instructions when exhausted
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	StartedAt *time.Time  `json:"startedAt,omitempty"`
	EndedAt   *time.Time  `json:"endedAt,omitempty"`

	cancel context.CancelFunc
}

// JobProgress holds byte progress of the active transfer.
type JobProgress struct {
	Stage      string `json:"stage,omitempty"`
	Downloaded int64  `json:"downloaded"`
	Total      int64  `json:"total"`
	Message    string `json:"message,omitempty"`
}

// JobManager manages fetch jobs.
type JobManager struct {
	mu     sync.RWMutex
	jobs   map[string]*Job
	config Config
	wsHub  *WSHub
}

// NewJobManager creates a new job manager.
func NewJobManager(cfg Config, wsHub *WSHub) *JobManager {
	return &JobManager{
		jobs:   make(map[string]*Job),
		config: cfg,
		wsHub:  wsHub,
	}
}

// generateID creates a short random ID.
func generateID() string {
	b := make([]byte, 6)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// CreateJob creates and starts a fetch job. An already queued or running
// job of the same kind/task/session is returned instead of duplicated:
// the dataset reset is destructive and must never run concurrently
// against the same directory.
func (m *JobManager) CreateJob(req FetchRequest) (*Job, bool, error) {
	m.mu.Lock()
	for _, existing := range m.jobs {
		if existing.Kind == req.Kind &&
			existing.Task == req.Task &&
			existing.Session == req.Session &&
			existing.ModelType == req.ModelType &&
			(existing.Status == JobStatusQueued || existing.Status == JobStatusRunning) {
			m.mu.Unlock()
			return existing, true, nil
		}
	}

	job := &Job{
		ID:        generateID(),
		Kind:      req.Kind,
		Task:      req.Task,
		Session:   req.Session,
		ModelType: req.ModelType,
		Status:    JobStatusQueued,
		CreatedAt: time.Now(),
	}

	m.jobs[job.ID] = job
	m.mu.Unlock()

	go m.runJob(job)

	return job, false, nil
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	return job, ok
}

// ListJobs returns all jobs.
func (m *JobManager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// CancelJob cancels a running or queued job.
func (m *JobManager) CancelJob(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return false
	}

	if job.Status == JobStatusQueued || job.Status == JobStatusRunning {
		if job.cancel != nil {
			job.cancel()
		}
		job.Status = JobStatusCancelled
		now := time.Now()
		job.EndedAt = &now
		m.notify(job)
		return true
	}

	return false
}

func (m *JobManager) notify(job *Job) {
	if m.wsHub != nil {
		m.wsHub.BroadcastJob(job)
	}
}

// runJob executes the fetch.
func (m *JobManager) runJob(job *Job) {
	ctx, cancel := context.WithCancel(context.Background())
	job.cancel = cancel

	m.mu.Lock()
	job.Status = JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	m.mu.Unlock()
	m.notify(job)

	cfg := segprep.Settings{
		OutputRoot: m.config.OutputRoot,
		Endpoint:   m.config.Endpoint,
	}

	exhausted := false

	// Progress callback; must not hold the lock while notifying.
	progress := func(ev segprep.ProgressEvent) {
		m.mu.Lock()
		switch ev.Event {
		case "fetch_start":
			job.Target = ev.Path
		case "stage_start":
			job.Progress.Stage = ev.Stage
		case "stage_failed":
			job.Progress.Message = ev.Message
		case "file_progress":
			job.Progress.Downloaded = ev.Downloaded
			job.Progress.Total = ev.Total
		case "manual":
			exhausted = true
			job.Manual = ev.Message
		case "extracted", "done", "file_done":
			if ev.Message != "" {
				job.Progress.Message = ev.Message
			}
		}
		m.mu.Unlock()
		m.notify(job)
	}

	err := m.dispatch(ctx, job, cfg, progress)

	m.mu.Lock()
	endTime := time.Now()
	job.EndedAt = &endTime
	switch {
	case ctx.Err() != nil && job.Status == JobStatusCancelled:
		// already marked by CancelJob
	case ctx.Err() != nil:
		job.Status = JobStatusCancelled
	case err != nil:
		job.Status = JobStatusFailed
		job.Error = err.Error()
	case exhausted:
		job.Status = JobStatusExhausted
	default:
		job.Status = JobStatusCompleted
	}
	m.mu.Unlock()

	m.notify(job)
}

func (m *JobManager) dispatch(ctx context.Context, job *Job, cfg segprep.Settings, progress segprep.ProgressFunc) error {
	switch job.Kind {
	case FetchKindDatasets:
		return segprep.FetchDataset(ctx, segprep.DatasetSpec{}, cfg, progress)
	case FetchKindClip:
		return segprep.FetchCLIP(ctx, cfg, progress)
	default: // FetchKindModel
		task, err := segprep.LookupTask(defaultIfEmpty(job.Task, "covid19"))
		if err != nil {
			return err
		}
		spec := segprep.ModelSpec{
			Task:    task.Name,
			Kind:    defaultIfEmpty(job.ModelType, "RecLMIS"),
			Session: defaultIfEmpty(job.Session, "session_09.25_00h27"),
			FileID:  task.ModelFileID,
		}
		return segprep.FetchModel(ctx, spec, cfg, progress)
	}
}

func defaultIfEmpty(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
