// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package segprep

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ModelPath computes the checkpoint target path for a spec, relative to
// the output root:
//
//	<root>/<Task>/<Kind>/<Session>/models/best_model-<Kind>.pth.tar
func ModelPath(root string, spec ModelSpec) string {
	return filepath.Join(root, spec.Task, spec.Kind, spec.Session, "models",
		fmt.Sprintf("best_model-%s.pth.tar", spec.Kind))
}

// FetchModel retrieves one pretrained checkpoint. The directory chain is
// created before any write. A single drive-direct transport is used; on
// failure the error is reported through progress events and returned, and
// any partially written file is left in place for inspection.
func FetchModel(ctx context.Context, spec ModelSpec, cfg Settings, progress ProgressFunc) error {
	cfg = cfg.withDefaults()
	emit := emitter(progress)

	dst := ModelPath(cfg.OutputRoot, spec)

	if spec.FileID == "" {
		err := &FetchError{Target: dst, Err: ErrMissingFileID}
		emit(ProgressEvent{Event: "error", Path: dst, Message: err.Error()})
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		err = &FetchError{Target: dst, Err: err}
		emit(ProgressEvent{Event: "error", Path: dst, Message: err.Error()})
		return err
	}

	emit(ProgressEvent{Event: "fetch_start", Path: dst})

	// Single transport, no cascade: the bypass-capable direct request is
	// what gdown issues for a one-shot file download.
	httpc := buildHTTPClient(cfg.Timeout)
	if err := fetchDriveBypass(ctx, httpc, cfg.Endpoint, spec.FileID, dst, cfg.ChunkSize, emit); err != nil {
		ferr := &FetchError{Target: dst, Err: &TransportError{Stage: "drive", Err: err}}
		emit(ProgressEvent{Event: "error", Path: dst, Message: ferr.Error()})
		return ferr
	}

	emit(ProgressEvent{Event: "file_done", Path: dst})
	emit(ProgressEvent{Event: "done", Path: dst, Message: doneMessage(dst)})
	return nil
}

// doneMessage reports the landed file size when it can be read.
func doneMessage(path string) string {
	fi, err := os.Stat(path)
	if err != nil {
		return "download complete"
	}
	return fmt.Sprintf("download complete (%s)", humanBytes(fi.Size()))
}
