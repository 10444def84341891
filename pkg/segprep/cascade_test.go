// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package segprep

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
)

func fakeTransport(name string, calls *[]string, err error) transport {
	return transport{
		Name: name,
		Fetch: func(ctx context.Context, httpc *http.Client, endpoint, id, dst string, chunk int, emit func(ProgressEvent)) error {
			*calls = append(*calls, name)
			return err
		},
	}
}

func TestRunCascade_ShortCircuitsOnSuccess(t *testing.T) {
	var calls []string
	stages := []transport{
		fakeTransport("a", &calls, errors.New("a down")),
		fakeTransport("b", &calls, nil),
		fakeTransport("c", &calls, errors.New("never reached")),
	}

	dst := filepath.Join(t.TempDir(), "out.zip")
	ok, failures := runCascade(context.Background(), http.DefaultClient, stages, "http://unused", "id", dst, 1<<16, discardEmit)
	if !ok {
		t.Fatalf("cascade should have succeeded, failures: %v", failures)
	}
	if failures != nil {
		t.Errorf("success must clear accumulated failures, got %v", failures)
	}

	want := []string{"a", "b"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls = %v, want %v", calls, want)
			break
		}
	}
}

func TestRunCascade_ExhaustionKeepsStageOrder(t *testing.T) {
	var calls []string
	stages := []transport{
		fakeTransport("a", &calls, errors.New("a down")),
		fakeTransport("b", &calls, errors.New("b down")),
		fakeTransport("c", &calls, errors.New("c down")),
	}

	var stageEvents []string
	emit := func(ev ProgressEvent) {
		if ev.Event == "stage_failed" {
			stageEvents = append(stageEvents, ev.Stage)
		}
	}

	dst := filepath.Join(t.TempDir(), "out.zip")
	ok, failures := runCascade(context.Background(), http.DefaultClient, stages, "http://unused", "id", dst, 1<<16, emit)
	if ok {
		t.Fatal("cascade should have been exhausted")
	}
	if len(failures) != 3 {
		t.Fatalf("want 3 failures, got %d", len(failures))
	}
	for i, name := range []string{"a", "b", "c"} {
		if failures[i].Stage != name {
			t.Errorf("failures[%d].Stage = %q, want %q", i, failures[i].Stage, name)
		}
		if stageEvents[i] != name {
			t.Errorf("stage_failed[%d] = %q, want %q", i, stageEvents[i], name)
		}
	}
}

func TestRunCascade_ContextCancelStopsEscalation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls []string
	stages := []transport{
		{
			Name: "a",
			Fetch: func(ctx context.Context, httpc *http.Client, endpoint, id, dst string, chunk int, emit func(ProgressEvent)) error {
				calls = append(calls, "a")
				cancel()
				return errors.New("a down")
			},
		},
		fakeTransport("b", &calls, nil),
	}

	dst := filepath.Join(t.TempDir(), "out.zip")
	ok, failures := runCascade(ctx, http.DefaultClient, stages, "http://unused", "id", dst, 1<<16, discardEmit)
	if ok {
		t.Fatal("cascade must not succeed after cancellation")
	}
	if len(calls) != 1 {
		t.Errorf("stage b ran after cancel: calls = %v", calls)
	}

	last := failures[len(failures)-1]
	if !errors.Is(last.Err, context.Canceled) {
		t.Errorf("last failure = %v, want context.Canceled", last.Err)
	}
}

func TestDatasetCascade_Order(t *testing.T) {
	stages := datasetCascade()
	want := []string{"drive-direct", "drive-fuzzy", "drive-bypass"}
	if len(stages) != len(want) {
		t.Fatalf("got %d stages, want %d", len(stages), len(want))
	}
	for i := range want {
		if stages[i].Name != want[i] {
			t.Errorf("stage[%d] = %q, want %q", i, stages[i].Name, want[i])
		}
	}
}
