// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package segprep

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestModelPath(t *testing.T) {
	spec := ModelSpec{
		Task:    "Covid19",
		Kind:    "RecLMIS",
		Session: "session_09.25_00h27",
	}

	got := ModelPath(".", spec)
	want := filepath.Join(".", "Covid19", "RecLMIS", "session_09.25_00h27", "models", "best_model-RecLMIS.pth.tar")
	if got != want {
		t.Errorf("ModelPath = %q, want %q", got, want)
	}
}

func TestFetchModel(t *testing.T) {
	payload := []byte{0x80, 0x02, 0x8a, 0x0a, 0x6c, 0xfc, 0x9c, 0x46} // binary, not HTML

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/uc" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("id"); got != "model-id-000000000000000000000000" {
			t.Errorf("unexpected id %q", got)
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(payload)
	}))
	defer srv.Close()

	root := t.TempDir()
	spec := ModelSpec{
		Task:    "Covid19",
		Kind:    "RecLMIS",
		Session: "session_09.25_00h27",
		FileID:  "model-id-000000000000000000000000",
	}
	cfg := Settings{OutputRoot: root, Endpoint: srv.URL}

	var events []string
	err := FetchModel(context.Background(), spec, cfg, func(ev ProgressEvent) {
		events = append(events, ev.Event)
	})
	if err != nil {
		t.Fatalf("FetchModel failed: %v", err)
	}

	dst := filepath.Join(root, "Covid19", "RecLMIS", "session_09.25_00h27", "models", "best_model-RecLMIS.pth.tar")
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("target file missing: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("payload mismatch: got %d bytes", len(got))
	}

	var sawDone bool
	for _, e := range events {
		if e == "done" {
			sawDone = true
		}
	}
	if !sawDone {
		t.Errorf("missing done event, got %v", events)
	}
}

func TestFetchModel_MissingFileID(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	spec := ModelSpec{Task: "MosMedPlus", Kind: "RecLMIS", Session: "s"}
	cfg := Settings{OutputRoot: t.TempDir(), Endpoint: srv.URL}

	err := FetchModel(context.Background(), spec, cfg, nil)
	if !errors.Is(err, ErrMissingFileID) {
		t.Fatalf("expected ErrMissingFileID, got %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("expected no requests, got %d", hits.Load())
	}
}

func TestFetchModel_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	root := t.TempDir()
	spec := ModelSpec{Task: "Covid19", Kind: "RecLMIS", Session: "s", FileID: "some-id-00000000000000000000"}
	cfg := Settings{OutputRoot: root, Endpoint: srv.URL}

	var errMsg string
	err := FetchModel(context.Background(), spec, cfg, func(ev ProgressEvent) {
		if ev.Event == "error" {
			errMsg = ev.Message
		}
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if errMsg == "" {
		t.Error("expected an error event")
	}

	// The directory chain is created even when the transport fails.
	dir := filepath.Join(root, "Covid19", "RecLMIS", "s", "models")
	if _, statErr := os.Stat(dir); statErr != nil {
		t.Errorf("model directory not created: %v", statErr)
	}
}
