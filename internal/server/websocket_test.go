// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocket_InitAndJobUpdates(t *testing.T) {
	srv := New(Config{OutputRoot: t.TempDir()})
	go srv.wsHub.Run()

	mux := http.NewServeMux()
	srv.registerAPIRoutes(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}

	var init WSMessage
	if err := json.Unmarshal(raw, &init); err != nil {
		t.Fatal(err)
	}
	if init.Type != "init" {
		t.Fatalf("first message type = %q, want init", init.Type)
	}

	// A broadcast job shows up as a job_update frame.
	srv.wsHub.BroadcastJob(&Job{ID: "job1", Kind: FetchKindClip, Status: JobStatusRunning})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err = conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}

	// writePump batches queued frames newline-separated; take the first.
	line := strings.SplitN(string(raw), "\n", 2)[0]

	var update WSMessage
	if err := json.Unmarshal([]byte(line), &update); err != nil {
		t.Fatal(err)
	}
	if update.Type != "job_update" {
		t.Fatalf("message type = %q, want job_update", update.Type)
	}
}
