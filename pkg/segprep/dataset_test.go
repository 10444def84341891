// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package segprep

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

// buildZip returns an in-memory zip archive with the given name->content
// entries. Names ending in "/" become directories.
func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		if strings.HasSuffix(name, "/") {
			if _, err := zw.Create(name); err != nil {
				t.Fatal(err)
			}
			continue
		}
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func datasetZip(t *testing.T) []byte {
	return buildZip(t, map[string]string{
		"Covid19/":               "",
		"Covid19/train/img1.png": "png-bytes",
		"MosMedPlus/":            "",
		"MosMedPlus/readme.txt":  "ct scans",
	})
}

func TestFetchDataset_ExtractsAndCleansUp(t *testing.T) {
	archive := datasetZip(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.Write(archive)
	}))
	defer srv.Close()

	root := t.TempDir()
	datasetDir := filepath.Join(root, "datasets")

	// Simulate leftovers from an aborted previous run.
	if err := os.MkdirAll(filepath.Join(datasetDir, "stale-dir"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(datasetDir, "datasets.zip"), []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Settings{OutputRoot: root, Endpoint: srv.URL}

	var events []ProgressEvent
	err := FetchDataset(context.Background(), DatasetSpec{}, cfg, func(ev ProgressEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("FetchDataset failed: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(datasetDir, "Covid19", "train", "img1.png"))
	if err != nil {
		t.Fatalf("extracted file missing: %v", err)
	}
	if string(got) != "png-bytes" {
		t.Errorf("extracted content = %q", got)
	}

	if _, err := os.Stat(filepath.Join(datasetDir, "stale-dir")); !os.IsNotExist(err) {
		t.Error("stale directory survived the reset")
	}
	if _, err := os.Stat(filepath.Join(datasetDir, "datasets.zip")); !os.IsNotExist(err) {
		t.Error("archive not removed after extraction")
	}

	var extracted, done bool
	for _, ev := range events {
		switch ev.Event {
		case "extracted":
			extracted = true
			if !strings.Contains(ev.Message, "Covid19") || !strings.Contains(ev.Message, "MosMedPlus") {
				t.Errorf("extracted event message = %q", ev.Message)
			}
		case "done":
			done = true
		}
	}
	if !extracted || !done {
		t.Errorf("missing events, got %+v", events)
	}
}

func TestFetchDataset_FallsBackToFuzzy(t *testing.T) {
	archive := datasetZip(t)
	var ucHits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/uc":
			ucHits.Add(1)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		case "/open":
			w.Header().Set("Content-Type", "application/zip")
			w.Write(archive)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	root := t.TempDir()
	cfg := Settings{OutputRoot: root, Endpoint: srv.URL}

	var stages []string
	err := FetchDataset(context.Background(), DatasetSpec{}, cfg, func(ev ProgressEvent) {
		if ev.Event == "stage_start" {
			stages = append(stages, ev.Stage)
		}
	})
	if err != nil {
		t.Fatalf("FetchDataset failed: %v", err)
	}

	// Direct hits /uc once and fails; fuzzy succeeds on /open; bypass
	// (which would hit /uc again) never runs.
	if ucHits.Load() != 1 {
		t.Errorf("/uc hits = %d, want 1", ucHits.Load())
	}
	want := []string{"drive-direct", "drive-fuzzy"}
	if len(stages) != len(want) || stages[0] != want[0] || stages[1] != want[1] {
		t.Errorf("stages = %v, want %v", stages, want)
	}

	if _, err := os.Stat(filepath.Join(root, "datasets", "Covid19")); err != nil {
		t.Errorf("dataset not extracted: %v", err)
	}
}

func TestFetchDataset_HTMLPayloadIsInvalidArchive(t *testing.T) {
	// A 200 response carrying an HTML error page. The direct stage accepts
	// it (status was fine), so validation has to catch it.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("error page pretending to be a zip"))
	}))
	defer srv.Close()

	root := t.TempDir()
	cfg := Settings{OutputRoot: root, Endpoint: srv.URL}

	err := FetchDataset(context.Background(), DatasetSpec{}, cfg, nil)
	if !errors.Is(err, ErrInvalidArchive) {
		t.Fatalf("expected ErrInvalidArchive, got %v", err)
	}

	// Nothing must have been extracted.
	entries, readErr := os.ReadDir(filepath.Join(root, "datasets"))
	if readErr != nil {
		t.Fatal(readErr)
	}
	for _, e := range entries {
		if e.Name() != "datasets.zip" {
			t.Errorf("unexpected entry %q after invalid archive", e.Name())
		}
	}
}

func TestFetchDataset_ExhaustionIsLenient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	root := t.TempDir()
	cfg := Settings{OutputRoot: root, Endpoint: srv.URL}
	spec := DatasetSpec{FileID: "exhaust-test-id-0000000000000000"}

	var manual, done string
	err := FetchDataset(context.Background(), spec, cfg, func(ev ProgressEvent) {
		switch ev.Event {
		case "manual":
			manual = ev.Message
		case "done":
			done = ev.Message
		}
	})
	if err != nil {
		t.Fatalf("exhaustion must not fail the lenient call, got %v", err)
	}

	if !strings.Contains(manual, spec.FileID) {
		t.Errorf("manual instructions missing file id: %q", manual)
	}
	for _, dir := range expectedDatasetDirs {
		if !strings.Contains(manual, dir) {
			t.Errorf("manual instructions missing %q: %q", dir, manual)
		}
	}
	for _, stage := range []string{"drive-direct", "drive-fuzzy", "drive-bypass"} {
		if !strings.Contains(done, stage) {
			t.Errorf("done message missing %q: %q", stage, done)
		}
	}
}

func TestFetchDatasetStrict_SurfacesExhaustion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := Settings{OutputRoot: t.TempDir(), Endpoint: srv.URL}
	err := FetchDatasetStrict(context.Background(), DatasetSpec{}, cfg, nil)
	if !errors.Is(err, ErrCascadeExhausted) {
		t.Fatalf("expected ErrCascadeExhausted, got %v", err)
	}
}
