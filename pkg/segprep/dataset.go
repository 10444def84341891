// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package segprep

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// FetchDataset retrieves the dataset archive through the fallback cascade
// and extracts it into the datasets directory.
//
// The directory is always reset first: a stale or partially extracted tree
// from a previous run is removed wholesale, so every invocation starts
// from a clean slate and the operation is idempotent.
//
// When every transport stage fails, manual download instructions are
// emitted and a nil error is returned: the historical behavior is that an
// exhausted cascade never fails the batch job. Strict callers can detect
// exhaustion through the "manual" progress event or use FetchDatasetStrict.
func FetchDataset(ctx context.Context, spec DatasetSpec, cfg Settings, progress ProgressFunc) error {
	err := fetchDataset(ctx, spec, cfg, progress)
	if err == errExhausted {
		return nil
	}
	return err
}

// FetchDatasetStrict is FetchDataset with cascade exhaustion surfaced as
// ErrCascadeExhausted instead of being swallowed.
func FetchDatasetStrict(ctx context.Context, spec DatasetSpec, cfg Settings, progress ProgressFunc) error {
	err := fetchDataset(ctx, spec, cfg, progress)
	if err == errExhausted {
		return ErrCascadeExhausted
	}
	return err
}

// errExhausted is the internal marker distinguishing "all stages failed,
// instructions printed" from real errors. Never returned to callers.
var errExhausted = &FetchError{Target: "dataset", Err: ErrCascadeExhausted}

func fetchDataset(ctx context.Context, spec DatasetSpec, cfg Settings, progress ProgressFunc) error {
	cfg = cfg.withDefaults()
	emit := emitter(progress)

	spec.FileID = defaultString(spec.FileID, DatasetFileID)
	spec.ArchiveName = defaultString(spec.ArchiveName, "datasets.zip")

	datasetDir := filepath.Join(cfg.OutputRoot, cfg.DatasetsDir)
	archivePath := filepath.Join(datasetDir, spec.ArchiveName)

	// Reset: wipe whatever a previous run left behind, then start empty.
	if err := os.RemoveAll(datasetDir); err != nil {
		ferr := &FetchError{Target: datasetDir, Err: err}
		emit(ProgressEvent{Event: "error", Path: datasetDir, Message: ferr.Error()})
		return ferr
	}
	if err := os.MkdirAll(datasetDir, 0o755); err != nil {
		ferr := &FetchError{Target: datasetDir, Err: err}
		emit(ProgressEvent{Event: "error", Path: datasetDir, Message: ferr.Error()})
		return ferr
	}

	emit(ProgressEvent{Event: "fetch_start", Path: archivePath})

	httpc := buildHTTPClient(cfg.Timeout)
	ok, failures := runCascade(ctx, httpc, datasetCascade(), cfg.Endpoint, spec.FileID, archivePath, cfg.ChunkSize, emit)
	if !ok {
		reasons := make([]string, 0, len(failures))
		for _, f := range failures {
			reasons = append(reasons, f.Error())
		}
		emit(ProgressEvent{
			Event:   "manual",
			Path:    datasetDir,
			Message: ManualInstructions(spec.FileID, spec.ArchiveName, datasetDir),
		})
		emit(ProgressEvent{Event: "done", Path: datasetDir, Message: "exhausted: " + strings.Join(reasons, "; ")})
		return errExhausted
	}

	// Validate before touching the directory tree. An HTML error page
	// saved as the zip is the classic failure here.
	if err := validateArchive(archivePath); err != nil {
		emit(ProgressEvent{Event: "error", Path: archivePath, Message: err.Error()})
		return err
	}

	if err := extractArchive(archivePath, datasetDir); err != nil {
		ferr := &FetchError{Target: datasetDir, Err: err}
		emit(ProgressEvent{Event: "error", Path: datasetDir, Message: ferr.Error()})
		return ferr
	}

	if err := os.Remove(archivePath); err != nil {
		ferr := &FetchError{Target: archivePath, Err: err}
		emit(ProgressEvent{Event: "error", Path: archivePath, Message: ferr.Error()})
		return ferr
	}

	entries, err := topLevelEntries(datasetDir)
	if err != nil {
		ferr := &FetchError{Target: datasetDir, Err: err}
		emit(ProgressEvent{Event: "error", Path: datasetDir, Message: ferr.Error()})
		return ferr
	}

	emit(ProgressEvent{Event: "extracted", Path: datasetDir, Message: strings.Join(entries, ", ")})
	emit(ProgressEvent{Event: "done", Path: datasetDir, Message: "datasets ready"})
	return nil
}
