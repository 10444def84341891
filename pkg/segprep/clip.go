// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package segprep

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

// ClipFileName is the auxiliary checkpoint's local file name.
const ClipFileName = "ViT-B-32.pt"

// FetchCLIP retrieves the CLIP ViT-B-32 checkpoint from its public URL
// into <root>/<nets>/ViT-B-32.pt.
//
// If the target file already exists the fetch is skipped outright; mere
// existence is the only check, no integrity verification happens. The
// source is a stable direct-HTTP endpoint with no access gating, so there
// is no fallback cascade either.
func FetchCLIP(ctx context.Context, cfg Settings, progress ProgressFunc) error {
	cfg = cfg.withDefaults()
	emit := emitter(progress)

	netsDir := filepath.Join(cfg.OutputRoot, cfg.NetsDir)
	dst := filepath.Join(netsDir, ClipFileName)

	if fi, err := os.Stat(dst); err == nil {
		emit(ProgressEvent{
			Event:   "file_done",
			Path:    dst,
			Message: fmt.Sprintf("skip (exists, %s)", humanBytes(fi.Size())),
		})
		return nil
	}

	if err := os.MkdirAll(netsDir, 0o755); err != nil {
		ferr := &FetchError{Target: dst, Err: err}
		emit(ProgressEvent{Event: "error", Path: dst, Message: ferr.Error()})
		return ferr
	}

	emit(ProgressEvent{Event: "fetch_start", Path: dst})

	httpc := buildHTTPClient(cfg.Timeout)
	req, err := http.NewRequestWithContext(ctx, "GET", cfg.ClipURL, nil)
	if err != nil {
		return &FetchError{Target: dst, Err: err}
	}
	req.Header.Set("User-Agent", "segprep/1")

	resp, err := httpc.Do(req)
	if err != nil {
		ferr := &FetchError{Target: dst, Err: err}
		emit(ProgressEvent{Event: "error", Path: dst, Message: ferr.Error()})
		return ferr
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		ferr := &FetchError{Target: dst, Err: fmt.Errorf("bad status: %s", resp.Status)}
		emit(ProgressEvent{Event: "error", Path: dst, Message: ferr.Error()})
		return ferr
	}

	if err := streamToFile(resp.Body, resp.ContentLength, dst, cfg.ChunkSize, emit); err != nil {
		ferr := &FetchError{Target: dst, Err: err}
		emit(ProgressEvent{Event: "error", Path: dst, Message: ferr.Error()})
		return ferr
	}

	emit(ProgressEvent{Event: "file_done", Path: dst})
	emit(ProgressEvent{Event: "done", Path: dst, Message: doneMessage(dst)})
	return nil
}
