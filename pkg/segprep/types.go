// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package segprep

import "time"

// ModelSpec identifies one pretrained checkpoint to fetch.
//
// The target path is derived from the three labels:
//
//	<OutputRoot>/<Task>/<Kind>/<Session>/models/best_model-<Kind>.pth.tar
type ModelSpec struct {
	// Task is the task name used as the top-level directory (e.g. "Covid19").
	Task string

	// Kind is the model variant name (e.g. "RecLMIS").
	Kind string

	// Session is the training session label (e.g. "session_09.25_00h27").
	Session string

	// FileID is the cloud-drive file identifier for the checkpoint.
	FileID string
}

// DatasetSpec identifies the dataset archive to fetch and unpack.
type DatasetSpec struct {
	// FileID is the cloud-drive identifier for the dataset zip.
	FileID string

	// ArchiveName is the local name for the downloaded zip before
	// extraction. Defaults to "datasets.zip".
	ArchiveName string
}

// Settings configures fetch behavior. The zero value works; every field
// has a default applied by the fetchers.
type Settings struct {
	// OutputRoot is the directory all target paths are relative to.
	// Defaults to ".".
	OutputRoot string

	// DatasetsDir is the dataset directory name under OutputRoot.
	// Defaults to "datasets".
	DatasetsDir string

	// NetsDir is the auxiliary-model directory name under OutputRoot.
	// Defaults to "nets".
	NetsDir string

	// Endpoint overrides the cloud-drive base URL. Defaults to
	// DefaultDriveEndpoint. Mainly useful for tests and mirrors.
	Endpoint string

	// ClipURL overrides the auxiliary model source URL.
	// Defaults to DefaultClipURL.
	ClipURL string

	// ChunkSize is the copy buffer size for streamed downloads.
	// Defaults to 1 MiB.
	ChunkSize int

	// Timeout bounds each individual transport request. Zero means the
	// http.Client default (no timeout).
	Timeout time.Duration
}

func (s Settings) withDefaults() Settings {
	s.OutputRoot = defaultString(s.OutputRoot, ".")
	s.DatasetsDir = defaultString(s.DatasetsDir, "datasets")
	s.NetsDir = defaultString(s.NetsDir, "nets")
	s.Endpoint = defaultString(s.Endpoint, DefaultDriveEndpoint)
	s.ClipURL = defaultString(s.ClipURL, DefaultClipURL)
	if s.ChunkSize <= 0 {
		s.ChunkSize = 1 << 20
	}
	return s
}

// ProgressEvent reports fetch progress and status.
//
// The Event field identifies the update:
//   - "fetch_start":  a fetcher began (Path holds the target)
//   - "stage_start":  a cascade stage began (Stage holds its name)
//   - "stage_failed": a cascade stage failed (Message holds the reason)
//   - "file_progress": periodic byte progress during a streamed download
//   - "file_done":    a file landed on disk (Message may say "skip (exists)")
//   - "extracted":    archive extraction finished (Message lists top-level entries)
//   - "manual":       manual-download instructions (Message holds the full text)
//   - "error":        a fetch failed terminally
//   - "done":         the fetch finished
type ProgressEvent struct {
	// Time is when the event occurred (UTC).
	Time time.Time `json:"time"`

	// Event is the event type identifier.
	Event string `json:"event"`

	// Stage names the cascade stage for stage_* events.
	Stage string `json:"stage,omitempty"`

	// Path is the local target path the event refers to.
	Path string `json:"path,omitempty"`

	// Downloaded is the cumulative bytes written so far.
	Downloaded int64 `json:"downloaded,omitempty"`

	// Total is the expected size in bytes, when the server reported one.
	Total int64 `json:"total,omitempty"`

	// Message carries additional context or error details.
	Message string `json:"message,omitempty"`
}

// ProgressFunc is a callback for receiving progress events. A nil
// ProgressFunc is always safe; events are simply dropped.
type ProgressFunc func(ProgressEvent)

// emitter wraps a ProgressFunc so fetchers can emit without nil checks.
func emitter(progress ProgressFunc) func(ProgressEvent) {
	return func(ev ProgressEvent) {
		if progress == nil {
			return
		}
		if ev.Time.IsZero() {
			ev.Time = time.Now().UTC()
		}
		progress(ev)
	}
}
