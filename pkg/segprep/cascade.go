// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package segprep

import (
	"context"
	"net/http"
)

// transport is one download strategy in the fallback cascade. Each strategy
// is a uniform function that either lands the remote object at dst or
// returns the reason it could not.
type transport struct {
	Name  string
	Fetch func(ctx context.Context, httpc *http.Client, endpoint, id, dst string, chunk int, emit func(ProgressEvent)) error
}

// datasetCascade is the ordered fallback sequence for the dataset archive,
// from "most likely to just work" to "most likely to need manual cookie
// massaging". Adding or removing a strategy is a one-line edit here.
func datasetCascade() []transport {
	return []transport{
		{Name: "drive-direct", Fetch: fetchDriveDirect},
		{Name: "drive-fuzzy", Fetch: fetchDriveFuzzy},
		{Name: "drive-bypass", Fetch: fetchDriveBypass},
	}
}

// runCascade attempts each transport in order until one succeeds.
// Escalation is strictly sequential: no stage retries itself, and no
// backtracking happens once a later stage has started. It returns the
// per-stage failures when every stage failed.
func runCascade(ctx context.Context, httpc *http.Client, stages []transport, endpoint, id, dst string, chunk int, emit func(ProgressEvent)) (ok bool, failures []*TransportError) {
	for _, stage := range stages {
		if ctx.Err() != nil {
			failures = append(failures, &TransportError{Stage: stage.Name, Err: ctx.Err()})
			return false, failures
		}

		emit(ProgressEvent{Event: "stage_start", Stage: stage.Name, Path: dst})

		err := stage.Fetch(ctx, httpc, endpoint, id, dst, chunk, emit)
		if err == nil {
			return true, nil
		}

		te := &TransportError{Stage: stage.Name, Err: err}
		failures = append(failures, te)
		emit(ProgressEvent{Event: "stage_failed", Stage: stage.Name, Path: dst, Message: te.Error()})
	}
	return false, failures
}
